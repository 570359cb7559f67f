package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pathwise-backend/lib/oauth"
	"pathwise-backend/services/auth/verifier"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type response struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
	Errors  []struct {
		Param string `json:"param"`
		Msg   string `json:"msg"`
	} `json:"errors"`
}

type client struct {
	t      *testing.T
	router *mux.Router
}

func newClient(t *testing.T, s Service) client {
	r := mux.NewRouter()
	s.Routes(r.PathPrefix("/api/auth").Subrouter(), verifier.NewVerifier(s.db, s.options.Issuer))
	return client{t: t, router: r}
}

func (c client) do(method, target, token, body string) (int, response) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var res response
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

func TestHandleRegisterAndLogin(t *testing.T) {
	s, cleanup := setup(t, Options{})
	defer cleanup()
	c := newClient(t, s)

	code, res := c.do(http.MethodPost, "/api/auth/register", "", `{"firstName": "", "lastName": "L", "email": "nope", "password": "123"}`)
	require.Equal(t, http.StatusBadRequest, code)
	params := []string{}
	for _, e := range res.Errors {
		params = append(params, e.Param)
	}
	require.Equal(t, []string{"firstName", "email", "password"}, params)

	body := `{"firstName": "Katherine", "lastName": "Johnson", "email": "kj@example.com", "password": "orbits"}`
	code, res = c.do(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "User registered successfully", res.Message)
	require.NotEmpty(t, res.Token)

	var brief map[string]any
	require.NoError(t, json.Unmarshal(res.User, &brief))
	require.Equal(t, "kj@example.com", brief["email"])
	require.Equal(t, false, brief["isAdmin"])
	require.NotContains(t, brief, "password")

	code, res = c.do(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "User already exists with this email", res.Message)

	code, res = c.do(http.MethodPost, "/api/auth/login", "", `{"email": "kj@example.com", "password": "wrong!"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid credentials", res.Message)

	code, res = c.do(http.MethodPost, "/api/auth/login", "", `{"email": "kj@example.com", "password": "orbits"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Login successful", res.Message)
	require.NotEmpty(t, res.Token)

	_, err := s.db.Exec("update users set is_active = false where email = ?", "kj@example.com")
	require.NoError(t, err)
	code, res = c.do(http.MethodPost, "/api/auth/login", "", `{"email": "kj@example.com", "password": "orbits"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid credentials", res.Message)
	require.Empty(t, res.Token)
}

func TestHandleProviders(t *testing.T) {
	cases := []struct {
		name    string
		options Options
		target  string
		body    string
		status  int
		message string
	}{
		{
			name:    "missing google token",
			target:  "/api/auth/google",
			body:    `{}`,
			status:  http.StatusBadRequest,
			message: "Google token is required",
		},
		{
			name:    "google not configured",
			target:  "/api/auth/google",
			body:    `{"token": "abc"}`,
			status:  http.StatusInternalServerError,
			message: "Google OAuth is not configured",
		},
		{
			name:    "google wrong audience",
			options: Options{Google: fakeProvider{err: oauth.ErrWrongRecipient}},
			target:  "/api/auth/google",
			body:    `{"token": "abc"}`,
			status:  http.StatusBadRequest,
			message: "Invalid Google token or OAuth not configured properly",
		},
		{
			name: "google login",
			options: Options{Google: fakeProvider{profile: oauth.Profile{
				Provider: "google", ID: "g", Email: "g@example.com", FirstName: "Gee",
			}}},
			target:  "/api/auth/google",
			body:    `{"token": "abc"}`,
			status:  http.StatusOK,
			message: "Google login successful",
		},
		{
			name:    "github no access token",
			options: Options{GitHub: fakeProvider{err: fmt.Errorf("%w: bad_verification_code", oauth.ErrNoAccessToken)}},
			target:  "/api/auth/github",
			body:    `{"code": "c"}`,
			status:  http.StatusBadRequest,
			message: "Failed to get GitHub access token",
		},
		{
			name:    "github no email",
			options: Options{GitHub: fakeProvider{err: oauth.ErrEmailRequired}},
			target:  "/api/auth/github",
			body:    `{"code": "c"}`,
			status:  http.StatusBadRequest,
			message: "GitHub email is required",
		},
		{
			name:    "github invalid code",
			options: Options{GitHub: fakeProvider{err: oauth.ErrInvalidCode}},
			target:  "/api/auth/github",
			body:    `{"code": "c"}`,
			status:  http.StatusBadRequest,
			message: "Invalid GitHub authorization code or OAuth not configured properly",
		},
		{
			name:    "linkedin missing code",
			target:  "/api/auth/linkedin",
			body:    `{"token": "not a code"}`,
			status:  http.StatusBadRequest,
			message: "LinkedIn authorization code is required",
		},
		{
			name:    "linkedin no access token",
			options: Options{LinkedIn: fakeProvider{err: oauth.ErrNoAccessToken}},
			target:  "/api/auth/linkedin",
			body:    `{"code": "c"}`,
			status:  http.StatusBadRequest,
			message: "Failed to get LinkedIn access token",
		},
		{
			name: "linkedin login",
			options: Options{LinkedIn: fakeProvider{profile: oauth.Profile{
				Provider: "linkedin", ID: "l", Email: "l@example.com",
			}}},
			target:  "/api/auth/linkedin",
			body:    `{"code": "c"}`,
			status:  http.StatusOK,
			message: "LinkedIn login successful",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			s, cleanup := setup(t, test.options)
			defer cleanup()
			c := newClient(t, s)

			code, res := c.do(http.MethodPost, test.target, "", test.body)
			require.Equal(t, test.status, code)
			require.Equal(t, test.message, res.Message)
			if test.status == http.StatusOK {
				require.NotEmpty(t, res.Token)
			}
		})
	}
}

func TestHandleProfile(t *testing.T) {
	s, cleanup := setup(t, Options{})
	defer cleanup()
	c := newClient(t, s)

	code, res := c.do(http.MethodGet, "/api/auth/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "No token, authorization denied", res.Message)

	code, res = c.do(http.MethodGet, "/api/auth/profile", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Token is not valid", res.Message)

	_, res = c.do(http.MethodPost, "/api/auth/register", "", `{"firstName": "Mary", "lastName": "Jackson", "email": "mj@example.com", "password": "wind-tunnel"}`)
	token := res.Token
	require.NotEmpty(t, token)

	code, res = c.do(http.MethodGet, "/api/auth/profile", token, "")
	require.Equal(t, http.StatusOK, code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(res.User, &profile))
	require.Equal(t, []any{}, profile["skills"])
	require.Equal(t, []any{}, profile["education"])
	require.Equal(t, map[string]any{
		"emailNotifications": true,
		"weeklyReports":      false,
		"theme":              "auto",
	}, profile["preferences"])
	require.NotContains(t, profile, "password")

	code, res = c.do(http.MethodPut, "/api/auth/profile", token, `{"location": "Hampton", "preferences": {"weeklyReports": true}}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Profile updated successfully", res.Message)
	require.NoError(t, json.Unmarshal(res.User, &profile))
	require.Equal(t, "Hampton", profile["location"])
	require.Equal(t, map[string]any{
		"emailNotifications": true,
		"weeklyReports":      true,
		"theme":              "auto",
	}, profile["preferences"])

	code, res = c.do(http.MethodPut, "/api/auth/profile", token, `{"preferences": {"theme": "sepia"}}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, res = c.do(http.MethodPut, "/api/auth/profile/from-resume", token, `{
		"name": "Mary Winston Jackson",
		"skills": ["Aerodynamics"],
		"education": [{"degree": "BS", "school": "Hampton Institute", "year_end": 1942}]
	}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Profile updated from resume successfully", res.Message)
	require.NoError(t, json.Unmarshal(res.User, &profile))
	require.Equal(t, "Winston Jackson", profile["lastName"])
	require.Equal(t, []any{map[string]any{
		"degree":      "BS",
		"institution": "Hampton Institute",
		"year_end":    "1942",
	}}, profile["education"])
}
