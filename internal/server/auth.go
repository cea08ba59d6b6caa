package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookieName = "pw_session"
	sessionDuration   = 30 * 24 * time.Hour // 30 days
)

// sessionStore holds active viewing session tokens in memory.
// For a single-event gallery this is perfectly sufficient.
type sessionStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token -> expiry
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time)}
}

// create generates a new random session token, stores it, and returns it.
func (s *sessionStore) create() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().Add(sessionDuration)

	s.mu.Lock()
	s.tokens[token] = expiry
	s.mu.Unlock()
	return token, nil
}

// valid returns true if token exists and has not expired.
func (s *sessionStore) valid(token string) bool {
	s.mu.RLock()
	exp, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return false
	}
	return true
}

// delete removes a session token (logout).
func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// viewAuthMiddleware returns a middleware that enforces the viewing PIN via
// session cookie. Programmatic clients (the slideshow kiosk, scripts) may
// send the PIN directly in the X-View-Pin header instead.
// If pin is empty, viewing is open and the middleware passes everything through.
func viewAuthMiddleware(pin string, sessions *sessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if pin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Check session cookie
			if c, err := r.Cookie(sessionCookieName); err == nil {
				if sessions.valid(c.Value) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// 2. Fallback: PIN header (for API clients)
			if v := r.Header.Get("X-View-Pin"); v != "" {
				if subtle.ConstantTimeCompare([]byte(v), []byte(pin)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			// 3. Not authenticated – redirect browser requests to /login,
			//    return 401 for API requests.
			accept := r.Header.Get("Accept")
			isAPI := r.URL.Path == "/list"
			if !isAPI && (accept == "" || acceptsHTML(accept)) {
				http.Redirect(w, r, "/login?redirect="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
				return
			}

			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// acceptsHTML reports whether an Accept header value includes text/html.
func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		// strip quality value: "text/html;q=0.9" → "text/html"
		if i := strings.IndexByte(part, ';'); i >= 0 {
			part = part[:i]
		}
		switch strings.TrimSpace(part) {
		case "text/html", "text/*", "*/*":
			return true
		}
	}
	return false
}

// adminOK reports whether the request carries the configured admin PIN in
// the X-Admin-Pin header. An empty configured PIN disables moderation, so
// no request can ever pass.
func (s *Server) adminOK(r *http.Request) bool {
	if s.opts.AdminPIN == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Pin")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.AdminPIN)) == 1
}

// uploadPinOK reports whether the request satisfies the upload PIN, if one
// is configured. The PIN may arrive as the X-Upload-Pin header or as the
// "pin" form field. Must be called after the form has been parsed.
func (s *Server) uploadPinOK(r *http.Request) bool {
	if s.opts.UploadPIN == "" {
		return true
	}
	got := r.Header.Get("X-Upload-Pin")
	if got == "" {
		got = r.FormValue("pin")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.UploadPIN)) == 1
}
