package discussions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pathwise-backend/lib/auth"
	authdb "pathwise-backend/services/auth/db"
	"pathwise-backend/services/auth/verifier"
	"pathwise-backend/services/discussions/db"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

var issuer = auth.NewTokenIssuer("discussions-test", time.Hour)

func newRouter(t *testing.T) (*mux.Router, string) {
	s, cleanup := setup(t, authdb.Schema+"\n"+db.Schema)
	t.Cleanup(cleanup)

	now := time.Now().UnixMilli()
	err := authdb.New(s.db).CreateUser(context.Background(), authdb.User{
		ID:             "user-1",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Role:           "user",
		IsActive:       true,
		LastLogin:      now,
		Skills:         "[]",
		Education:      "[]",
		Experience:     "[]",
		Projects:       "[]",
		Certifications: "[]",
		Languages:      "[]",
		Preferences:    "{}",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	r := mux.NewRouter()
	s.Routes(r.PathPrefix("/api/discussions").Subrouter(), verifier.NewVerifier(s.db, issuer))
	return r, token
}

func do(t *testing.T, r *mux.Router, method, target, token, body string) (int, []byte) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func errorOf(t *testing.T, body []byte) string {
	var res struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &res), string(body))
	return res.Error
}

func TestHandleDiscussions(t *testing.T) {
	r, token := newRouter(t)

	code, _ := do(t, r, http.MethodPost, "/api/discussions", "", `{"title": "t", "description": "d"}`)
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := do(t, r, http.MethodPost, "/api/discussions", token, `{"title": "t"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Title and description are required", errorOf(t, body))

	code, body = do(t, r, http.MethodPost, "/api/discussions", token, `{"title": "Kotlin or Swift", "description": "First language?", "category": "Mobile Development"}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var created Discussion
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, "Ada Lovelace", created.Author)
	require.Equal(t, "Mobile Development", created.Category)

	code, body = do(t, r, http.MethodGet, "/api/discussions/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, code)
	var viewed Discussion
	require.NoError(t, json.Unmarshal(body, &viewed))
	require.EqualValues(t, 1, viewed.Views)

	code, body = do(t, r, http.MethodGet, "/api/discussions/missing", "", "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Discussion not found", errorOf(t, body))

	code, body = do(t, r, http.MethodPost, "/api/discussions/"+created.ID+"/comments", token, `{"text": ""}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Comment text is required", errorOf(t, body))

	code, body = do(t, r, http.MethodPost, "/api/discussions/"+created.ID+"/comments", token, `{"text": "Kotlin."}`)
	require.Equal(t, http.StatusCreated, code)
	var comment map[string]any
	require.NoError(t, json.Unmarshal(body, &comment))
	require.Equal(t, "Kotlin.", comment["text"])
	require.Equal(t, "Ada Lovelace", comment["author"])
	require.EqualValues(t, 0, comment["likes"])

	code, body = do(t, r, http.MethodPut, "/api/discussions/"+created.ID+"/like", token, "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"likes": 1}`, string(body))

	code, _ = do(t, r, http.MethodPut, "/api/discussions/missing/like", token, "")
	require.Equal(t, http.StatusNotFound, code)

	code, body = do(t, r, http.MethodGet, "/api/discussions?category=Mobile%20Development", "", "")
	require.Equal(t, http.StatusOK, code)
	var list []Discussion
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].Replies)
	require.EqualValues(t, 1, list[0].Likes)

	code, body = do(t, r, http.MethodGet, "/api/discussions?category=DevOps", "", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))
}
