package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	libauth "pathwise-backend/lib/auth"
	"pathwise-backend/lib/testutil"
	"pathwise-backend/lib/timezone"
	"pathwise-backend/services/auth"
	authdb "pathwise-backend/services/auth/db"
	"pathwise-backend/services/auth/verifier"
	"pathwise-backend/services/discussions"
	discussionsdb "pathwise-backend/services/discussions/db"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

var issuer = libauth.NewTokenIssuer("admin-test", time.Hour)

type fixture struct {
	admin       Service
	auth        auth.Service
	discussions discussions.Service
	router      *mux.Router

	adminToken string
	adminId    string
	userToken  string
	userId     string
}

func setup(t *testing.T, probes []Probe) fixture {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/admin",
		DbSchema: authdb.Schema + "\n" + discussionsdb.Schema,
	})
	t.Cleanup(cleanup)
	ctx := context.Background()

	f := fixture{
		auth:        auth.NewService(res.DB, auth.Options{Issuer: issuer}),
		discussions: discussions.NewService(res.DB),
	}
	f.admin = NewService(res.DB, f.discussions, nil, Options{
		DatabaseName: "pathwise",
		Probes:       probes,
	})

	_, err := f.auth.SeedAdmin(ctx)
	require.NoError(t, err)
	session, err := f.auth.Login(ctx, auth.AdminEmail, auth.AdminPassword)
	require.NoError(t, err)
	f.adminToken, f.adminId = session.Token, session.User.ID

	session, err = f.auth.Register(ctx, auth.RegisterParams{
		FirstName: "Linus",
		LastName:  "Torvalds",
		Email:     "linus@example.com",
		Password:  "kernel",
	})
	require.NoError(t, err)
	f.userToken, f.userId = session.Token, session.User.ID

	f.router = mux.NewRouter()
	f.admin.Routes(f.router.PathPrefix("/api/admin").Subrouter(), verifier.NewVerifier(res.DB, issuer))
	return f
}

func (f fixture) do(t *testing.T, method, target, token, body string) (int, []byte) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func TestRequireAdmin(t *testing.T) {
	f := setup(t, nil)

	code, _ := f.do(t, http.MethodGet, "/api/admin/stats", "", "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := f.do(t, http.MethodGet, "/api/admin/stats", f.userToken, "")
	require.Equal(t, http.StatusForbidden, code)
	require.JSONEq(t, `{"message": "Access denied. Admin privileges required."}`, string(body))

	code, _ = f.do(t, http.MethodGet, "/api/admin/stats", f.adminToken, "")
	require.Equal(t, http.StatusOK, code)
}

func TestStats(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.discussions.Create(ctx, discussions.CreateParams{
		Title:       "Kernel",
		Description: "Monolithic?",
		Author:      discussions.Author{ID: f.userId, Name: "Linus Torvalds"},
	})
	require.NoError(t, err)

	inactive := false
	_, err = f.admin.UpdateUser(ctx, f.userId, UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	stats, err := f.admin.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Users.Total)
	require.EqualValues(t, 1, stats.Users.Active)
	require.EqualValues(t, 2, stats.Users.NewThisMonth)
	require.Equal(t, map[string]int64{"admin": 1, "user": 1}, stats.Users.ByRole)
	require.EqualValues(t, 1, stats.Discussions.Total)
	require.EqualValues(t, 1, stats.Discussions.ActiveThisWeek)
	require.Len(t, stats.RecentUsers, 2)
	require.Equal(t, "linus@example.com", stats.RecentUsers[0].Email)
}

func TestListUsers(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	page, err := f.admin.ListUsers(ctx, UserQuery{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Users, 1)
	require.Equal(t, "linus@example.com", page.Users[0].Email)

	page, err = f.admin.ListUsers(ctx, UserQuery{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, auth.AdminEmail, page.Users[0].Email)

	page, err = f.admin.ListUsers(ctx, UserQuery{Page: 1, Limit: 20, Search: "TORV"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	page, err = f.admin.ListUsers(ctx, UserQuery{Page: 1, Limit: 20, Role: "admin"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, auth.AdminEmail, page.Users[0].Email)

	page, err = f.admin.ListUsers(ctx, UserQuery{Page: 1, Limit: 20, Status: "inactive"})
	require.NoError(t, err)
	require.EqualValues(t, 0, page.Total)
	require.Equal(t, []auth.User{}, page.Users)

	code, body := f.do(t, http.MethodGet, "/api/admin/users?page=1&limit=20", f.adminToken, "")
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, string(body), "password")
	require.NotContains(t, string(body), "$2a$")
}

func TestUpdateAndDeleteUser(t *testing.T) {
	f := setup(t, nil)

	code, body := f.do(t, http.MethodPut, "/api/admin/users/"+f.userId, f.adminToken, `{"role": "superuser"}`)
	require.Equal(t, http.StatusBadRequest, code, string(body))

	code, _ = f.do(t, http.MethodPut, "/api/admin/users/"+f.userId, f.adminToken, `{"email": "not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/api/admin/users/"+f.userId, f.adminToken, `{"email": "`+auth.AdminEmail+`"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/api/admin/users/missing", f.adminToken, `{"role": "moderator"}`)
	require.Equal(t, http.StatusNotFound, code)

	code, body = f.do(t, http.MethodPut, "/api/admin/users/"+f.userId, f.adminToken, `{"role": "moderator", "email": "Linus@Kernel.org"}`)
	require.Equal(t, http.StatusOK, code)
	var user auth.User
	require.NoError(t, json.Unmarshal(body, &user))
	require.Equal(t, "moderator", user.Role)
	require.Equal(t, "linus@kernel.org", user.Email)

	code, body = f.do(t, http.MethodDelete, "/api/admin/users/"+f.adminId, f.adminToken, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"message": "Cannot delete your own account"}`, string(body))

	code, body = f.do(t, http.MethodDelete, "/api/admin/users/"+f.userId, f.adminToken, "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"message": "User deleted successfully"}`, string(body))

	code, _ = f.do(t, http.MethodDelete, "/api/admin/users/"+f.userId, f.adminToken, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestActivity(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	d, err := f.discussions.Create(ctx, discussions.CreateParams{
		Title:       "Rust in the kernel",
		Description: "Thoughts?",
		Author:      discussions.Author{ID: f.userId, Name: "Linus Torvalds"},
	})
	require.NoError(t, err)

	feed, err := f.admin.Activity(ctx, auth.AdminEmail, 50)
	require.NoError(t, err)

	types := map[string]int{}
	for _, a := range feed {
		types[a.Type]++
	}
	require.Equal(t, 2, types["user_registration"])
	require.Equal(t, 1, types["discussion_created"])
	require.Equal(t, 2, types["user_login"])
	require.Equal(t, 1, types["system_event"])

	// the system event is stamped last, so it comes first
	require.Equal(t, "system_event", feed[0].Type)
	require.Equal(t, auth.AdminEmail, feed[0].Data["admin"])
	for i := 1; i < len(feed); i++ {
		require.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}

	found := false
	for _, a := range feed {
		if a.ID == "disc_"+d.ID {
			found = true
			require.Equal(t, `New discussion: "Rust in the kernel"`, a.Message)
			require.Equal(t, "Linus Torvalds", a.Data["author"])
		}
	}
	require.True(t, found)

	feed, err = f.admin.Activity(ctx, auth.AdminEmail, 3)
	require.NoError(t, err)
	require.Len(t, feed, 3)
}

func TestAnalytics(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.discussions.Create(ctx, discussions.CreateParams{
		Title:       "t",
		Description: "d",
		Author:      discussions.Author{Name: "Someone"},
	})
	require.NoError(t, err)

	analytics, err := f.admin.Analytics(ctx, 30)
	require.NoError(t, err)

	today := timezone.StartOfDay(timezone.Now())
	require.Equal(t, []GrowthPoint{{Date: today, Count: 2}}, analytics.UserGrowth)
	require.Equal(t, []GrowthPoint{{Date: today, Count: 1}}, analytics.DiscussionGrowth)
}

func TestHealth(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	f := setup(t, []Probe{
		{Name: "Authentication Service"},
		{Name: "Roadmap API", Url: up.URL},
		{Name: "Chatbot Service", Url: down.URL},
	})

	health := f.admin.Health(context.Background())
	require.Equal(t, "connected", health.Database.Status)
	require.Equal(t, "pathwise", health.Database.Name)
	require.Equal(t, "running", health.Server.Status)
	require.NotZero(t, health.Server.Memory.HeapUsed)
	require.NotEmpty(t, health.Server.Version)

	require.Len(t, health.Services, 3)
	require.Equal(t, ServiceHealth{
		Name:      "Authentication Service",
		Status:    StatusOnline,
		Uptime:    "100.0%",
		LastCheck: health.Services[0].LastCheck,
	}, health.Services[0])
	require.Equal(t, StatusOnline, health.Services[1].Status)
	require.Equal(t, StatusOffline, health.Services[2].Status)
	require.Equal(t, "0.0%", health.Services[2].Uptime)
}
