package server

import (
	"net/http"
	"strconv"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// PasswordRequest is the body of POST /auth/password.
type PasswordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpRequest
	if !decode(w, r, &body) {
		return
	}
	sess, err := s.backend.SignUp(r.Context(), body.Email, body.Nickname, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body SignInRequest
	if !decode(w, r, &body) {
		return
	}
	sess, err := s.backend.SignIn(r.Context(), body.Identifier, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.SignOut(r.Context(), sessionFrom(r).Token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var body PasswordRequest
	if !decode(w, r, &body) {
		return
	}
	if err := s.backend.ChangePassword(r.Context(), sessionFrom(r).Token, body.Current, body.Next); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := backend.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	rows, err := s.backend.ListProgress(r.Context(), sessionFrom(r).User.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) upsertHistory(w http.ResponseWriter, r *http.Request) {
	var p media.Progress
	if !decode(w, r, &p) {
		return
	}
	p.UserID = sessionFrom(r).User.ID
	if p.Season < 1 || p.Episode < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "season and episode must be at least 1"})
		return
	}
	saved, err := s.backend.UpsertProgress(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	ref, ok := refFromPath(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteProgress(r.Context(), sessionFrom(r).User.ID, ref); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	rows, err := s.backend.ListBookmarks(r.Context(), sessionFrom(r).User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) insertBookmark(w http.ResponseWriter, r *http.Request) {
	var b media.Bookmark
	if !decode(w, r, &b) {
		return
	}
	b.UserID = sessionFrom(r).User.ID
	saved, err := s.backend.InsertBookmark(r.Context(), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	ref, ok := refFromPath(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteBookmark(r.Context(), sessionFrom(r).User.ID, ref); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.backend.ListRatings(r.Context(), sessionFrom(r).User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) upsertRating(w http.ResponseWriter, r *http.Request) {
	var rt media.Rating
	if !decode(w, r, &rt) {
		return
	}
	rt.UserID = sessionFrom(r).User.ID
	if err := media.ValidateRating(rt.Value); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := s.backend.UpsertRating(r.Context(), rt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteRating(w http.ResponseWriter, r *http.Request) {
	ref, ok := refFromPath(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteRating(r.Context(), sessionFrom(r).User.ID, ref); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
