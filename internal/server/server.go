// Package server exposes a backend.Backend over JSON/HTTP so several
// reelwatch clients can share one account database. Table routes are scoped
// to /users/{userID} and only the session's own user may touch them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

type ctxKey int

const sessionKey ctxKey = iota

// Server routes HTTP requests to a backend.
type Server struct {
	backend backend.Backend
	router  *mux.Router
}

// New builds the router.
func New(b backend.Backend) *Server {
	s := &Server{backend: b, router: mux.NewRouter()}

	s.router.Use(logRequests)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", s.signUp).Methods(http.MethodPost)
	auth.HandleFunc("/signin", s.signIn).Methods(http.MethodPost)
	auth.Handle("/signout", s.withSession(s.signOut)).Methods(http.MethodPost)
	auth.Handle("/session", s.withSession(s.session)).Methods(http.MethodGet)
	auth.Handle("/password", s.withSession(s.changePassword)).Methods(http.MethodPost)

	users := s.router.PathPrefix("/users/{userID}").Subrouter()
	users.Use(s.requireOwner)
	users.HandleFunc("/history", s.listHistory).Methods(http.MethodGet)
	users.HandleFunc("/history", s.upsertHistory).Methods(http.MethodPut)
	users.HandleFunc("/history/{mediaType}/{mediaID}", s.deleteHistory).Methods(http.MethodDelete)
	users.HandleFunc("/bookmarks", s.listBookmarks).Methods(http.MethodGet)
	users.HandleFunc("/bookmarks", s.insertBookmark).Methods(http.MethodPost)
	users.HandleFunc("/bookmarks/{mediaType}/{mediaID}", s.deleteBookmark).Methods(http.MethodDelete)
	users.HandleFunc("/ratings", s.listRatings).Methods(http.MethodGet)
	users.HandleFunc("/ratings", s.upsertRating).Methods(http.MethodPut)
	users.HandleFunc("/ratings/{mediaType}/{mediaID}", s.deleteRating).Methods(http.MethodDelete)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("[server] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[server] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// withSession resolves the bearer token and stores the session in the
// request context.
func (s *Server) withSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.backend.SessionUser(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// requireOwner rejects table requests whose path user is not the session user.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["userID"] != sessionFrom(r).User.ID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": backend.ErrUnauthorized.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) backend.Session {
	sess, _ := r.Context().Value(sessionKey).(backend.Session)
	return sess
}

// statusFor maps backend errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, backend.ErrDuplicate),
		errors.Is(err, backend.ErrEmailTaken),
		errors.Is(err, backend.ErrNicknameTaken):
		return http.StatusConflict
	case errors.Is(err, backend.ErrInvalidCredentials),
		errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, backend.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends {"error": msg}. Sentinel errors are sent verbatim so
// clients can map them back; anything else is logged and hidden.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[server] internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// refFromPath reads {mediaType}/{mediaID}.
func refFromPath(w http.ResponseWriter, r *http.Request) (media.Ref, bool) {
	vars := mux.Vars(r)
	typ, err := media.ParseMediaType(vars["mediaType"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return media.Ref{}, false
	}
	id, err := strconv.Atoi(vars["mediaID"])
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid media id"})
		return media.Ref{}, false
	}
	return media.Ref{ID: id, Type: typ}, true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
