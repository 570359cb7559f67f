package discussions

import (
	"errors"
	"log/slog"
	"net/http"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/services/auth/verifier"

	"github.com/gorilla/mux"
)

func writeError(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, httputil.J{"error": message})
}

// Routes mounts the discussion routes on r, typically
// `/api/discussions`. Writes require a session verified by v.
func (s Service) Routes(r *mux.Router, v verifier.Verifier) {
	r.HandleFunc("", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleView).Methods(http.MethodGet)

	r.Handle("", v.Middleware(http.HandlerFunc(s.handleCreate))).Methods(http.MethodPost)
	r.Handle("/", v.Middleware(http.HandlerFunc(s.handleCreate))).Methods(http.MethodPost)
	r.Handle("/{id}/comments", v.Middleware(http.HandlerFunc(s.handleComment))).Methods(http.MethodPost)
	r.Handle("/{id}/like", v.Middleware(http.HandlerFunc(s.handleLike))).Methods(http.MethodPut)
}

func author(r *http.Request) (Author, bool) {
	user, ok := verifier.UserFromContext(r.Context())
	if !ok {
		return Author{}, false
	}
	return Author{ID: user.ID, Name: AuthorName(user.FirstName, user.LastName)}, true
}

func (s Service) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch discussions", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch discussions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s Service) handleView(w http.ResponseWriter, r *http.Request) {
	discussion, err := s.View(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Discussion not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch discussion", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch discussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, discussion)
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	a, ok := author(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	discussion, err := s.Create(r.Context(), CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Author:      a,
	})
	switch {
	case errors.Is(err, ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Title and description are required")
	case errors.Is(err, ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "Invalid category")
	case err != nil:
		slog.ErrorContext(r.Context(), "failed to create discussion", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create discussion")
	default:
		httputil.WriteJSON(w, http.StatusCreated, discussion)
	}
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s Service) handleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	a, ok := author(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	comment, err := s.AddComment(r.Context(), mux.Vars(r)["id"], req.Text, a)
	switch {
	case errors.Is(err, ErrEmptyComment):
		writeError(w, http.StatusBadRequest, "Comment text is required")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Discussion not found")
	case err != nil:
		slog.ErrorContext(r.Context(), "failed to add comment", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to add comment")
	default:
		httputil.WriteJSON(w, http.StatusCreated, comment)
	}
}

func (s Service) handleLike(w http.ResponseWriter, r *http.Request) {
	likes, err := s.Like(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Discussion not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to like discussion", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to like discussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{"likes": likes})
}
