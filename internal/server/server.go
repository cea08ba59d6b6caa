// Package server implements the HTTP server and routing for photowall.
package server

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/banux/photowall/internal/gallery"
)

// Options holds optional configuration for the Server.
type Options struct {
	// AllowUpload enables the guest upload form and the POST /upload endpoint.
	AllowUpload bool

	// UploadPIN, when non-empty, is required on every upload. Guests send it
	// in the X-Upload-Pin header or the "pin" form field.
	UploadPIN string

	// AdminPIN protects moderation (delete, rescan) via the X-Admin-Pin
	// header. If empty, moderation is disabled entirely.
	AdminPIN string

	// ViewPIN is the shared PIN for session-based viewing authentication.
	// If empty, the wall, slideshow and admin pages are open to everyone.
	ViewPIN string

	// MaxUploadBytes caps the size of a single upload request.
	// Zero means the 10 MiB default.
	MaxUploadBytes int64

	// StaticFS is the filesystem containing the frontend HTML pages.
	// If nil, the pages are not served.
	StaticFS fs.FS
}

// Server is the HTTP server for the photo wall.
type Server struct {
	router    *mux.Router
	gallery   gallery.Gallery
	uploader  gallery.Uploader  // optional; nil if backend doesn't support upload
	deleter   gallery.Deleter   // optional; nil if backend doesn't support delete
	rescanner gallery.Rescanner // optional; nil if backend doesn't support rescan
	archiver  gallery.Archiver  // optional; nil if backend doesn't support ZIP export
	sessions  *sessionStore
	opts      Options
}

// New creates and configures a new Server with the given gallery backend and options.
// If the backend also implements gallery.Uploader, the upload endpoint is enabled;
// delete, rescan and the ZIP download are likewise enabled when the backend
// supports them. If opts.ViewPIN is non-empty, session-cookie auth is required
// on the viewing surfaces (/wall, /slideshow, /admin, /list, /download).
func New(g gallery.Gallery, opts Options) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		gallery:  g,
		sessions: newSessionStore(),
		opts:     opts,
	}
	if u, ok := g.(gallery.Uploader); ok {
		s.uploader = u
	}
	if d, ok := g.(gallery.Deleter); ok {
		s.deleter = d
	}
	if rs, ok := g.(gallery.Rescanner); ok {
		s.rescanner = rs
	}
	if a, ok := g.(gallery.Archiver); ok {
		s.archiver = a
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler, delegating to the mux router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// registerRoutes sets up all endpoint routes.
func (s *Server) registerRoutes() {
	r := s.router
	auth := viewAuthMiddleware(s.opts.ViewPIN, s.sessions)

	// Always-public endpoints (no view PIN required)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginPost).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost, http.MethodGet)

	// Guest-facing upload surface. Uploads carry their own gate (the
	// AllowUpload flag plus optional upload PIN) rather than the view PIN,
	// so guests can contribute photos without being able to browse.
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)

	// Stored photos; names embed an unguessable random token.
	r.HandleFunc("/uploads/{name}", s.handleImage).Methods(http.MethodGet)

	// Moderation endpoints check the admin PIN themselves.
	r.HandleFunc("/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/rescan", s.handleRescan).Methods(http.MethodPost)

	// Viewing surfaces are wrapped with the view auth middleware.
	protected := r.NewRoute().Subrouter()
	protected.Use(auth)

	protected.HandleFunc("/wall", s.handleWall).Methods(http.MethodGet)
	protected.HandleFunc("/slideshow", s.handleSlideshow).Methods(http.MethodGet)
	protected.HandleFunc("/admin", s.handleAdmin).Methods(http.MethodGet)

	// API: JSON photo listing for the wall, slideshow and admin pages
	protected.HandleFunc("/list", s.handleList).Methods(http.MethodGet)

	// ZIP export of every photo
	protected.HandleFunc("/download", s.handleDownload).Methods(http.MethodGet)
}
