package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/services/auth"
	"pathwise-backend/services/auth/verifier"

	"github.com/gorilla/mux"
)

func writeMessage(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, httputil.J{"message": message})
}

func writeFailed(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.ErrorContext(r.Context(), "admin request failed", "path", r.URL.Path, "err", err)
	writeMessage(w, http.StatusInternalServerError, message)
}

// RequireAdmin rejects users that are neither flagged admin nor have the
// admin role. It must run after the verifier middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := verifier.UserFromContext(r.Context())
		if !ok || !(user.IsAdmin || user.Role == auth.RoleAdmin) {
			writeMessage(w, http.StatusForbidden, "Access denied. Admin privileges required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Routes mounts the admin routes on r, typically `/api/admin`.
func (s Service) Routes(r *mux.Router, v verifier.Verifier) {
	r.Use(v.Middleware, RequireAdmin)

	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/system/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/activity", s.handleActivity).Methods(http.MethodGet)
	r.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
}

func (s Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		writeFailed(w, r, "Failed to fetch admin statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// positive reads an integer query parameter, falling back to def when it
// is missing, malformed or not positive.
func positive(r *http.Request, key string, def int) int {
	n, ok := httputil.QueryInt(r, key, def)
	if !ok || n < 1 {
		return def
	}
	return n
}

func (s Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := positive(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	page, err := s.ListUsers(r.Context(), UserQuery{
		Page:   positive(r, "page", 1),
		Limit:  limit,
		Search: query.Get("search"),
		Role:   query.Get("role"),
		Status: query.Get("status"),
	})
	if err != nil {
		writeFailed(w, r, "Failed to fetch users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (s Service) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var update UserUpdate
	err := httputil.DecodeJSON(r, &update)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	user, err := s.UpdateUser(r.Context(), mux.Vars(r)["id"], update)
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrInvalidRole):
		writeMessage(w, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, ErrInvalidEmail):
		writeMessage(w, http.StatusBadRequest, "Please include a valid email")
	case errors.Is(err, ErrEmailTaken):
		writeMessage(w, http.StatusBadRequest, "Email is already in use")
	case err != nil:
		writeFailed(w, r, "Failed to update user", err)
	default:
		httputil.WriteJSON(w, http.StatusOK, user)
	}
}

func (s Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := verifier.UserFromContext(r.Context())
	err := s.DeleteUser(r.Context(), actor.ID, mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrDeleteSelf):
		writeMessage(w, http.StatusBadRequest, "Cannot delete your own account")
	case errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case err != nil:
		writeFailed(w, r, "Failed to delete user", err)
	default:
		writeMessage(w, http.StatusOK, "User deleted successfully")
	}
}

func (s Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.Health(r.Context()))
}

func (s Service) handleActivity(w http.ResponseWriter, r *http.Request) {
	actor, _ := verifier.UserFromContext(r.Context())
	feed, err := s.Activity(r.Context(), actor.Email, positive(r, "limit", 50))
	if err != nil {
		writeFailed(w, r, "Failed to fetch recent activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feed)
}

func (s Service) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.Analytics(r.Context(), positive(r, "days", 30))
	if err != nil {
		writeFailed(w, r, "Failed to fetch analytics data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, analytics)
}
