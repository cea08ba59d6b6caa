package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/banux/photowall/internal/gallery"
)

// defaultMaxUploadBytes caps upload request bodies when no limit is configured (10 MiB).
const defaultMaxUploadBytes = 10 << 20

// handleHealth serves a simple health-check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// servePage writes one of the frontend HTML pages from StaticFS.
func (s *Server) servePage(w http.ResponseWriter, name string) {
	if s.opts.StaticFS == nil {
		http.Error(w, "page not available", http.StatusNotFound)
		return
	}
	data, err := fs.ReadFile(s.opts.StaticFS, name)
	if err != nil {
		http.Error(w, "page not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// handleIndex serves the guest upload page, or a notice when uploads are closed.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.opts.AllowUpload {
		s.servePage(w, "disabled.html")
		return
	}
	s.servePage(w, "upload.html")
}

func (s *Server) handleWall(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, "wall.html")
}

func (s *Server) handleSlideshow(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, "slideshow.html")
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, "admin.html")
}

// photoJSON is the JSON representation of one photo in the /list response.
type photoJSON struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Ts      int64  `json:"ts"`
	Tk      *int64 `json:"tk"`
	Caption string `json:"cap"`
}

// displayCaption converts a stored caption to its display form: underscores
// become spaces and the result is trimmed and capped at 80 characters.
func displayCaption(c string) string {
	c = strings.TrimSpace(strings.ReplaceAll(c, "_", " "))
	if len(c) > 80 {
		c = c[:80]
	}
	return c
}

// parseListOptions extracts the sort, order, limit and cursor query parameters.
func parseListOptions(r *http.Request) gallery.ListOptions {
	q := r.URL.Query()
	opts := gallery.ListOptions{
		Sort:  q.Get("sort"),
		Order: q.Get("order"),
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	if v, err := strconv.ParseInt(q.Get("before"), 10, 64); err == nil && v > 0 {
		opts.Before = v
	}
	return opts
}

// handleList serves the photo listing as JSON for the wall, slideshow and
// admin pages. Supports ?sort=, ?order=, ?limit= and the ?before= cursor.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	photos, err := s.gallery.List(parseListOptions(r))
	if err != nil {
		http.Error(w, "gallery error", http.StatusInternalServerError)
		return
	}

	items := make([]photoJSON, 0, len(photos))
	for _, p := range photos {
		items = append(items, photoJSON{
			Name:    p.Name,
			URL:     "/uploads/" + p.Name,
			Ts:      p.UploadMs,
			Tk:      p.TakenMs,
			Caption: displayCaption(p.Caption),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	// The wall polls this endpoint; never let a proxy serve a stale list.
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// handleUpload accepts a multipart/form-data POST with a "file" field and an
// optional "caption" field, stores the photo, and returns its name and URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.opts.AllowUpload {
		http.Error(w, "uploads are disabled", http.StatusForbidden)
		return
	}
	if s.uploader == nil {
		http.Error(w, "upload not supported by this backend", http.StatusNotImplemented)
		return
	}

	// Limit the request body before touching the form to prevent memory
	// exhaustion; the PIN check below needs the parsed form.
	maxBytes := s.opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "photo too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed form: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !s.uploadPinOK(r) {
		http.Error(w, "invalid upload pin", http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' field in form: "+err.Error(), http.StatusBadRequest)
		return
	}
	// file is an io.ReadCloser; StorePhoto will close it
	photo, err := s.uploader.StorePhoto(header.Filename, r.FormValue("caption"), file)
	if err != nil {
		if errors.Is(err, gallery.ErrUnsupportedType) {
			http.Error(w, "upload failed: "+err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, "upload failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"name": photo.Name,
		"url":  "/uploads/" + photo.Name,
	})
}

// deleteRequest is the JSON body accepted by POST /delete.
type deleteRequest struct {
	Name string `json:"name"`
}

// handleDelete removes a photo by name. Requires the admin PIN.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.adminOK(r) {
		http.Error(w, "admin pin required", http.StatusForbidden)
		return
	}
	if s.deleter == nil {
		http.Error(w, "deletion not supported by this backend", http.StatusNotImplemented)
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Name == "." || req.Name == ".." || strings.ContainsAny(req.Name, "/\\") {
		http.Error(w, "invalid photo name", http.StatusBadRequest)
		return
	}

	if err := s.deleter.DeletePhoto(req.Name); err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			http.Error(w, "photo not found", http.StatusNotFound)
			return
		}
		http.Error(w, "delete failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRescan re-reads the uploads directory and rebuilds the capture-time
// cache from scratch. Requires the admin PIN.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if !s.adminOK(r) {
		http.Error(w, "admin pin required", http.StatusForbidden)
		return
	}
	if s.rescanner == nil {
		http.Error(w, "rescan not supported by this backend", http.StatusNotImplemented)
		return
	}

	res, err := s.rescanner.Rescan()
	if err != nil {
		http.Error(w, "rescan failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"rescanned": res.Rescanned,
		"cached":    res.Cached,
	})
}

// handleImage serves a stored photo by name.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	path, err := s.gallery.ImagePath(name)
	if err != nil {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "photo unavailable", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	// Names embed a random token and files never change, so cache hard.
	w.Header().Set("Cache-Control", "public, max-age=604800, immutable")

	http.ServeContent(w, r, filepath.Base(path), time.Time{}, f)
}

// handleDownload streams every photo as a single ZIP archive.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		http.Error(w, "download not supported by this backend", http.StatusNotImplemented)
		return
	}

	// Build the archive in a temp file so the response carries a proper
	// Content-Length and range requests work for slow clients.
	tmp, err := os.CreateTemp("", "photowall-*.zip")
	if err != nil {
		http.Error(w, "archive failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := s.archiver.WriteZip(tmp); err != nil {
		http.Error(w, "archive failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "archive failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	filename := "photowall-" + time.Now().Format("20060102-150405") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	http.ServeContent(w, r, filename, time.Time{}, tmp)
}

// loginPageHTML is the standalone login form served at GET /login.
// It is self-contained (inline styles) so it renders before any
// session exists and without reaching into StaticFS.
const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1.0"/>
  <title>Photowall – Login</title>
  <style>
    body { margin:0; min-height:100vh; display:flex; align-items:center; justify-content:center;
           background:#111827; color:#e5e7eb; font-family:system-ui,-apple-system,sans-serif; }
    .card { background:#1f2937; border-radius:16px; padding:2rem; width:100%; max-width:20rem;
            box-shadow:0 10px 25px rgba(0,0,0,.5); }
    h1 { margin:0 0 .25rem; font-size:1.3rem; text-align:center; }
    p { margin:0 0 1.5rem; font-size:.85rem; color:#9ca3af; text-align:center; }
    .error { background:#7f1d1d; border:1px solid #b91c1c; color:#fecaca; font-size:.85rem;
             border-radius:8px; padding:.5rem .75rem; margin-bottom:1rem; }
    input[type=password] { width:100%; box-sizing:border-box; padding:.55rem .75rem; font-size:1rem;
            border-radius:8px; border:1px solid #374151; background:#111827; color:#e5e7eb; }
    input[type=password]:focus { outline:2px solid #2563eb; border-color:transparent; }
    button { width:100%; margin-top:1rem; padding:.6rem; font-size:.95rem; font-weight:600;
             border:none; border-radius:8px; background:#2563eb; color:#fff; cursor:pointer; }
    button:hover { background:#1d4ed8; }
  </style>
</head>
<body>
  <div class="card">
    <h1>&#128247; Photowall</h1>
    <p>Enter the viewing PIN to continue</p>
    {{if .Error}}
    <div class="error">{{.Error}}</div>
    {{end}}
    <form method="POST" action="/login">
      <input type="hidden" name="redirect" value="{{.Redirect}}"/>
      <input id="pin" name="pin" type="password" autocomplete="current-password"
        autofocus required placeholder="PIN"/>
      <button type="submit">Enter</button>
    </form>
  </div>
</body>
</html>`

// handleLoginPage serves the GET /login HTML form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If viewing is open, there is nothing to log in to.
	if s.opts.ViewPIN == "" {
		http.Redirect(w, r, "/wall", http.StatusSeeOther)
		return
	}
	// If already logged in, redirect to the wall.
	if c, err := r.Cookie(sessionCookieName); err == nil && s.sessions.valid(c.Value) {
		http.Redirect(w, r, "/wall", http.StatusSeeOther)
		return
	}
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/wall"
	}
	s.renderLoginPage(w, redirect, "")
}

// handleLoginPost processes the POST /login form submission.
func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	pin := r.FormValue("pin")
	redirect := r.FormValue("redirect")
	if redirect == "" || redirect[0] != '/' {
		redirect = "/wall"
	}

	// Constant-time PIN comparison to prevent timing attacks.
	pinOK := s.opts.ViewPIN == "" ||
		(subtle.ConstantTimeCompare([]byte(pin), []byte(s.opts.ViewPIN)) == 1)

	if pinOK {
		token, err := s.sessions.create()
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(sessionDuration.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}

	// Wrong PIN – re-render the form with an error.
	s.renderLoginPage(w, redirect, "Incorrect PIN. Please try again.")
}

// handleLogout clears the session cookie and redirects to /login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// renderLoginPage writes the login HTML page with the given error message.
func (s *Server) renderLoginPage(w http.ResponseWriter, redirect, errMsg string) {
	type data struct {
		Error    string
		Redirect string
	}
	tmpl, err := template.New("login").Parse(loginPageHTML)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errMsg != "" {
		w.WriteHeader(http.StatusUnauthorized)
	}
	_ = tmpl.Execute(w, data{Error: errMsg, Redirect: redirect})
}
