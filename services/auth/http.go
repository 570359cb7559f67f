package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/lib/oauth"
	"pathwise-backend/services/auth/verifier"

	"github.com/gorilla/mux"
)

func writeMessage(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, httputil.J{"message": message})
}

func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "auth request failed", "path", r.URL.Path, "err", err)
	writeMessage(w, http.StatusInternalServerError, "Server error")
}

// Routes mounts the auth routes on r, typically `/api/auth`. The profile
// routes are guarded by v.
func (s Service) Routes(r *mux.Router, v verifier.Verifier) {
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/google", s.handleGoogle).Methods(http.MethodPost)
	r.HandleFunc("/github", s.handleGitHub).Methods(http.MethodPost)
	r.HandleFunc("/linkedin", s.handleLinkedIn).Methods(http.MethodPost)

	profile := r.PathPrefix("/profile").Subrouter()
	profile.Use(v.Middleware)
	profile.HandleFunc("", s.handleGetProfile).Methods(http.MethodGet)
	profile.HandleFunc("", s.handleUpdateProfile).Methods(http.MethodPut)
	profile.HandleFunc("/from-resume", s.handleFromResume).Methods(http.MethodPut)
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required" msg:"First name is required"`
	LastName  string `json:"lastName" validate:"required" msg:"Last name is required"`
	Email     string `json:"email" validate:"mailbox" msg:"Please include a valid email"`
	Password  string `json:"password" validate:"min=6" msg:"Password must be at least 6 characters" secret:"true"`
}

func (s Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	v := &httputil.Validation{}
	v.Check(req)
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	session, err := s.Register(r.Context(), RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if errors.Is(err, ErrUserExists) {
		writeMessage(w, http.StatusBadRequest, "User already exists with this email")
		return
	}
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.J{
		"message": "User registered successfully",
		"token":   session.Token,
		"user":    session.User.Brief(),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"mailbox" msg:"Please include a valid email"`
	Password string `json:"password" validate:"required" msg:"Password is required" secret:"true"`
}

func (s Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	v := &httputil.Validation{}
	v.Check(req)
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	session, err := s.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"message": "Login successful",
		"token":   session.Token,
		"user":    session.User.Brief(),
	})
}

// providerMessages holds the responses for one identity provider.
type providerMessages struct {
	name           string
	missing        string
	noAccessToken  string
	emailRequired  string
	invalidRequest string
}

var (
	googleMessages = providerMessages{
		name:           "Google",
		missing:        "Google token is required",
		invalidRequest: "Invalid Google token or OAuth not configured properly",
		emailRequired:  "Google email is required",
	}
	githubMessages = providerMessages{
		name:           "GitHub",
		missing:        "GitHub authorization code is required",
		noAccessToken:  "Failed to get GitHub access token",
		emailRequired:  "GitHub email is required",
		invalidRequest: "Invalid GitHub authorization code or OAuth not configured properly",
	}
	linkedinMessages = providerMessages{
		name:           "LinkedIn",
		missing:        "LinkedIn authorization code is required",
		noAccessToken:  "Failed to get LinkedIn access token",
		emailRequired:  "LinkedIn email is required",
		invalidRequest: "Invalid LinkedIn authorization code or OAuth not configured properly",
	}
)

type credentialRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// handleProvider resolves a provider credential into a profile and signs
// the user in.
func (s Service) handleProvider(
	w http.ResponseWriter,
	r *http.Request,
	messages providerMessages,
	credential func(credentialRequest) string,
	resolve func(ctx context.Context, credential string) (oauth.Profile, error),
) {
	var req credentialRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	value := strings.TrimSpace(credential(req))
	if value == "" {
		writeMessage(w, http.StatusBadRequest, messages.missing)
		return
	}

	profile, err := resolve(r.Context(), value)
	if err == nil {
		var session Session
		session, err = s.OAuthLogin(r.Context(), profile)
		if err == nil {
			httputil.WriteJSON(w, http.StatusOK, httputil.J{
				"message": messages.name + " login successful",
				"token":   session.Token,
				"user":    session.User.Brief(),
			})
			return
		}
	}

	switch {
	case errors.Is(err, oauth.ErrNotConfigured):
		writeMessage(w, http.StatusInternalServerError, messages.name+" OAuth is not configured")
	case errors.Is(err, oauth.ErrNoAccessToken) && messages.noAccessToken != "":
		writeMessage(w, http.StatusBadRequest, messages.noAccessToken)
	case errors.Is(err, oauth.ErrEmailRequired):
		writeMessage(w, http.StatusBadRequest, messages.emailRequired)
	case errors.Is(err, oauth.ErrWrongRecipient),
		errors.Is(err, oauth.ErrInvalidToken),
		errors.Is(err, oauth.ErrInvalidCode),
		errors.Is(err, oauth.ErrNoAccessToken):
		writeMessage(w, http.StatusBadRequest, messages.invalidRequest)
	default:
		slog.ErrorContext(r.Context(), "oauth login failed", "provider", messages.name, "err", err)
		writeMessage(w, http.StatusInternalServerError, messages.name+" authentication failed")
	}
}

func notConfigured(context.Context, string) (oauth.Profile, error) {
	return oauth.Profile{}, oauth.ErrNotConfigured
}

func (s Service) handleGoogle(w http.ResponseWriter, r *http.Request) {
	resolve := notConfigured
	if s.options.Google != nil {
		resolve = s.options.Google.Verify
	}
	s.handleProvider(w, r, googleMessages, func(req credentialRequest) string { return req.Token }, resolve)
}

func (s Service) handleGitHub(w http.ResponseWriter, r *http.Request) {
	resolve := notConfigured
	if s.options.GitHub != nil {
		resolve = s.options.GitHub.Exchange
	}
	s.handleProvider(w, r, githubMessages, func(req credentialRequest) string { return req.Code }, resolve)
}

func (s Service) handleLinkedIn(w http.ResponseWriter, r *http.Request) {
	resolve := notConfigured
	if s.options.LinkedIn != nil {
		resolve = s.options.LinkedIn.Exchange
	}
	s.handleProvider(w, r, linkedinMessages, func(req credentialRequest) string { return req.Code }, resolve)
}

// currentUser returns the id of the user put in the context by the
// verifier middleware.
func (s Service) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	row, ok := verifier.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
		return "", false
	}
	return row.ID, true
}

func (s Service) writeUserResult(w http.ResponseWriter, r *http.Request, message string, user User, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrInvalidTheme):
		writeMessage(w, http.StatusBadRequest, "Theme must be light, dark or auto")
	case err != nil:
		writeServerError(w, r, err)
	case message == "":
		httputil.WriteJSON(w, http.StatusOK, httputil.J{"user": user.Profile()})
	default:
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"message": message,
			"user":    user.Profile(),
		})
	}
}

func (s Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	user, err := s.Get(r.Context(), id)
	s.writeUserResult(w, r, "", user, err)
}

func (s Service) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var patch ProfilePatch
	err := httputil.DecodeJSON(r, &patch)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	user, err := s.UpdateProfile(r.Context(), id, patch)
	s.writeUserResult(w, r, "Profile updated successfully", user, err)
}

func (s Service) handleFromResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var resume Resume
	err := httputil.DecodeJSON(r, &resume)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	user, err := s.UpdateFromResume(r.Context(), id, resume)
	s.writeUserResult(w, r, "Profile updated from resume successfully", user, err)
}
