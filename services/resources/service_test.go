package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/testutil"
	"pathwise-backend/services/resources/db"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	uid, title, description, domain, typ, difficulty string
	active                                            bool
	lastScraped                                       time.Time
}

func setup(t *testing.T, fixtures ...fixture) Service {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "resources",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	s := NewService(res.DB)
	s.now = func() time.Time { return baseTime }

	qry := db.New(res.DB)
	for i, f := range fixtures {
		r := Resource{
			UID:         f.uid,
			ID:          "test-" + f.uid,
			Title:       f.title,
			Description: f.description,
			URL:         fmt.Sprintf("https://example.com/%s", f.uid),
			Type:        f.typ,
			Difficulty:  f.difficulty,
			Duration:    "30 min",
			Domain:      f.domain,
			Skill:       "testing",
			Source:      "Example",
			Color:       scraper.ColorForType(scraper.ResourceType(f.typ)),
			Tags:        []string{"tag"},
			IsActive:    f.active,
			LastScraped: f.lastScraped,
			Metadata:    scraper.Metadata{Author: "tester"},
			CreatedAt:   baseTime.Add(time.Duration(i) * time.Second),
			UpdatedAt:   baseTime,
		}
		row, err := r.Row()
		require.NoError(t, err)
		require.NoError(t, qry.CreateResource(context.Background(), row))
	}
	return s
}

var catalog = []fixture{
	{"a", "React hooks in depth", "Learn hooks", "Frontend Development", "Tutorial", "Advanced", true, baseTime.Add(-time.Hour)},
	{"b", "Intro to Go", "Go for beginners, with goroutines", "Backend Development", "Course", "Beginner", true, baseTime.Add(-2 * time.Hour)},
	{"c", "Go concurrency patterns", "Channels and hooks for goroutines", "Backend Development", "Video", "Intermediate", true, baseTime.Add(-48 * time.Hour)},
	{"d", "Old react article", "Class components", "Frontend Development", "Article", "Beginner", false, baseTime.Add(-72 * time.Hour)},
}

func uids(resources []Resource) []string {
	out := []string{}
	for _, r := range resources {
		out = append(out, r.UID)
	}
	return out
}

func TestList(t *testing.T) {
	s := setup(t, catalog...)
	ctx := context.Background()

	cases := []struct {
		name     string
		params   ListParams
		expected []string
		total    int64
	}{
		{"all active by last scraped", ListParams{Limit: 50}, []string{"a", "b", "c"}, 3},
		{"domain substring ignores case", ListParams{Filter: Filter{Domain: "backend"}, Limit: 50}, []string{"b", "c"}, 2},
		{"type", ListParams{Filter: Filter{Type: "Video"}, Limit: 50}, []string{"c"}, 1},
		{"difficulty", ListParams{Filter: Filter{Difficulty: "Beginner"}, Limit: 50}, []string{"b"}, 1},
		{"paging", ListParams{Limit: 1, Offset: 1}, []string{"b"}, 3},
		{"search counts without text", ListParams{Search: "goroutines", Limit: 50}, []string{"b", "c"}, 3},
		{"search with domain", ListParams{Filter: Filter{Domain: "front"}, Search: "hooks", Limit: 50}, []string{"a"}, 1},
		{"like wildcards are literal", ListParams{Filter: Filter{Domain: "%"}, Limit: 50}, []string{}, 0},
	}
	for _, c := range cases {
		result, err := s.List(ctx, c.params)
		require.NoError(t, err, c.name)
		require.Equal(t, c.total, result.Total, c.name)

		got := uids(result.Resources)
		if c.params.Search != "" {
			require.ElementsMatch(t, c.expected, got, c.name)
			continue
		}
		if diff := cmp.Diff(c.expected, got); diff != "" {
			t.Errorf("%s: %s", c.name, diff)
		}
	}
}

func TestSearchRanksTitleMatches(t *testing.T) {
	s := setup(t, catalog...)

	found, err := s.Search(context.Background(), "hooks", Filter{}, 50)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, uids(found))

	found, err = s.Search(context.Background(), "c++ (!)", Filter{}, 50)
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = s.Search(context.Background(), "!!!", Filter{}, 50)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestMatchExpression(t *testing.T) {
	require.Equal(t, `"react" OR "hooks"`, MatchExpression("React, hooks!"))
	require.Equal(t, `"node" OR "js"`, MatchExpression(`node"js`))
	require.Equal(t, "", MatchExpression("  -- "))
}

func TestGetCountsViews(t *testing.T) {
	s := setup(t, catalog...)
	ctx := context.Background()

	r, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, r.Views)
	require.Equal(t, []string{"tag"}, r.Tags)
	require.Equal(t, "tester", r.Metadata.Author)
	require.Equal(t, r.Duration, r.FormattedDuration)

	r, err = s.Get(ctx, "test-a")
	require.NoError(t, err)
	require.EqualValues(t, 2, r.Views)

	_, err = s.Get(ctx, "d")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	s := setup(t, catalog...)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalResources)
	require.EqualValues(t, 2, stats.RecentlyScraped)

	diff := cmp.Diff(map[string]int64{"Tutorial": 1, "Course": 1, "Video": 1}, stats.ByType)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, map[string]int64{"Backend Development": 2, "Frontend Development": 1}, stats.ByDomain)
	require.Equal(t, map[string]int64{"Advanced": 1, "Beginner": 1, "Intermediate": 1}, stats.ByDifficulty)
}

func serve(s Service) http.Handler {
	r := mux.NewRouter()
	s.Routes(r.PathPrefix("/api/resources").Subrouter())
	return r
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHTTP(t *testing.T) {
	h := serve(setup(t, catalog...))

	status, body := get(t, h, "/api/resources/?limit=2")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])
	require.Len(t, body["resources"], 2)
	require.Equal(t, map[string]any{
		"total":   float64(3),
		"limit":   float64(2),
		"offset":  float64(0),
		"hasMore": true,
	}, body["pagination"])

	status, body = get(t, h, "/api/resources/?limit=0")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, false, body["success"])
	require.Len(t, body["errors"], 1)

	status, body = get(t, h, "/api/resources/search?q=goroutines&type=Course")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "goroutines", body["query"])
	require.Equal(t, float64(1), body["resultsCount"])

	status, _ = get(t, h, "/api/resources/search")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = get(t, h, "/api/resources/domain/Frontend%20Development")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Frontend Development", body["domain"])
	require.Len(t, body["resources"], 1)

	status, body = get(t, h, "/api/resources/stats")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(3), body["data"].(map[string]any)["totalResources"])

	status, body = get(t, h, "/api/resources/b")
	require.Equal(t, http.StatusOK, status)
	resource := body["resource"].(map[string]any)
	require.Equal(t, "b", resource["_id"])
	require.Equal(t, "test-b", resource["id"])
	require.Equal(t, float64(1), resource["views"])

	status, body = get(t, h, "/api/resources/nope")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Resource not found", body["message"])
}
