package scraping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Param string `json:"param"`
		Msg   string `json:"msg"`
	} `json:"errors"`
}

func serve(t *testing.T, s *Service, method, target, body string) (int, response) {
	r := mux.NewRouter()
	s.Routes(r.PathPrefix("/api/scraping").Subrouter())

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

func params(res response) []string {
	out := []string{}
	for _, e := range res.Errors {
		out = append(out, e.Param)
	}
	return out
}

func TestHandleScrapeQuery(t *testing.T) {
	s, _ := setup(t, Options{})

	code, res := serve(t, s, http.MethodPost, "/api/scraping/resources", `{"query": "a", "maxResults": 500}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, res.Success)
	require.Equal(t, []string{"query", "maxResults"}, params(res))

	code, res = serve(t, s, http.MethodPost, "/api/scraping/resources", `{"query": "  machine learning ", "includeArticles": false}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, res.Success)
	require.Equal(t, "Successfully scraped 5 resources", res.Message)

	var data struct {
		Query          string `json:"query"`
		ResourcesFound int    `json:"resourcesFound"`
		Resources      []struct {
			ID    string `json:"_id"`
			Title string `json:"title"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	require.Equal(t, "machine learning", data.Query)
	require.Equal(t, 5, data.ResourcesFound)
	require.Len(t, data.Resources, 5)

	code, _ = serve(t, s, http.MethodPost, "/api/scraping/resources", `{"query": `)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHandleScrapeURLAndBulk(t *testing.T) {
	s, _ := setup(t, Options{})

	code, res := serve(t, s, http.MethodPost, "/api/scraping/url", `{"url": "ftp://files.test/x"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, []string{"url"}, params(res))

	code, res = serve(t, s, http.MethodPost, "/api/scraping/url", `{"url": "https://example.org/post"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Successfully scraped URL", res.Message)

	code, res = serve(t, s, http.MethodPost, "/api/scraping/bulk", `{"queries": []}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, []string{"queries"}, params(res))

	code, res = serve(t, s, http.MethodPost, "/api/scraping/bulk", `{"queries": ["ok query", "x"]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, []string{"queries[1]"}, params(res))

	code, res = serve(t, s, http.MethodPost, "/api/scraping/bulk", `{"queries": ["sql", "nosql"], "maxResultsPerQuery": 2}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Bulk scraping completed. Found 4 total resources", res.Message)
}

func TestHandleCleanupAndStats(t *testing.T) {
	s, _ := setup(t, Options{})
	_, err := s.ScrapeQuery(context.Background(), "graphql", "", DefaultQueryOptions())
	require.NoError(t, err)

	code, res := serve(t, s, http.MethodDelete, "/api/scraping/cleanup?olderThan=0", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, []string{"olderThan"}, params(res))

	code, res = serve(t, s, http.MethodDelete, "/api/scraping/cleanup?dryRun=true", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Would delete 0 resources (dry run)", res.Message)

	code, res = serve(t, s, http.MethodDelete, "/api/scraping/cleanup?olderThan=10", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Deleted 0 old/inactive resources", res.Message)

	code, res = serve(t, s, http.MethodGet, "/api/scraping/stats", "")
	require.Equal(t, http.StatusOK, code)
	var stats SourceStats
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	require.EqualValues(t, 5, stats.TotalResources)
	require.Len(t, stats.Sources, 5)

	code, _ = serve(t, s, http.MethodGet, "/api/scraping/sources", "")
	require.Equal(t, http.StatusOK, code)
}

func TestHandleJobs(t *testing.T) {
	s, _ := jobService(t)

	code, res := serve(t, s, http.MethodPost, "/api/scraping/jobs", `{"query": "go channels"}`)
	require.Equal(t, http.StatusAccepted, code)
	var started struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &started))
	s.Wait()

	code, res = serve(t, s, http.MethodGet, "/api/scraping/jobs/"+started.JobID, "")
	require.Equal(t, http.StatusOK, code)
	var job Job
	require.NoError(t, json.Unmarshal(res.Data, &job))
	require.Equal(t, StatusCompleted, job.Status)

	code, _ = serve(t, s, http.MethodDelete, "/api/scraping/jobs/"+started.JobID, "")
	require.Equal(t, http.StatusConflict, code)

	code, res = serve(t, s, http.MethodGet, "/api/scraping/jobs/job-missing", "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Job not found", res.Message)

	code, res = serve(t, s, http.MethodGet, "/api/scraping/jobs", "")
	require.Equal(t, http.StatusOK, code)
	var stats ScrapingStats
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	require.Len(t, stats.RecentJobs, 1)
}
