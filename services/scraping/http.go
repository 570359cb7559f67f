package scraping

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pathwise-backend/lib/httputil"

	"github.com/gorilla/mux"
)

const invalidValue = "Invalid value"

// Routes mounts the scraping routes on r, typically `/api/scraping`.
func (s *Service) Routes(r *mux.Router) {
	r.HandleFunc("/resources", s.handleScrapeQuery).Methods(http.MethodPost)
	r.HandleFunc("/url", s.handleScrapeURL).Methods(http.MethodPost)
	r.HandleFunc("/bulk", s.handleBulk).Methods(http.MethodPost)
	r.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/cleanup", s.handleCleanup).Methods(http.MethodDelete)
	r.HandleFunc("/jobs", s.handleStartJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", s.handleCancelJob).Methods(http.MethodDelete)
}

type scrapeQueryRequest struct {
	Query           string `json:"query" validate:"min=2,max=100"`
	Domain          string `json:"domain" validate:"max=50"`
	MaxResults      *int   `json:"maxResults" validate:"omitnil,min=1,max=100"`
	IncludeVideo    *bool  `json:"includeVideo"`
	IncludeArticles *bool  `json:"includeArticles"`
}

func (s *Service) handleScrapeQuery(w http.ResponseWriter, r *http.Request) {
	var req scrapeQueryRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	req.Domain = strings.TrimSpace(req.Domain)

	v := &httputil.Validation{}
	v.Check(req)
	opts := DefaultQueryOptions()
	if req.MaxResults != nil {
		opts.MaxResults = *req.MaxResults
	}
	if req.IncludeVideo != nil {
		opts.IncludeVideo = *req.IncludeVideo
	}
	if req.IncludeArticles != nil {
		opts.IncludeArticles = *req.IncludeArticles
	}
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	added, err := s.ScrapeQuery(r.Context(), req.Query, req.Domain, opts)
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}

	preview := added
	if len(preview) > 20 {
		preview = preview[:20]
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"message": fmt.Sprintf("Successfully scraped %d resources", len(added)),
		"data": httputil.J{
			"query":          req.Query,
			"domain":         req.Domain,
			"resourcesFound": len(added),
			"resources":      preview,
		},
	})
}

type scrapeURLRequest struct {
	URL    string `json:"url" validate:"required,http_url" msg:"Must be a valid URL"`
	Domain string `json:"domain" validate:"max=50"`
	Skill  string `json:"skill" validate:"max=100"`
}

func (s *Service) handleScrapeURL(w http.ResponseWriter, r *http.Request) {
	var req scrapeURLRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Domain = strings.TrimSpace(req.Domain)
	req.Skill = strings.TrimSpace(req.Skill)

	v := &httputil.Validation{}
	v.Check(req)
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	added, err := s.ScrapeURL(r.Context(), req.URL, req.Domain, req.Skill, "")
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"message": "Successfully scraped URL",
		"data": httputil.J{
			"url":            req.URL,
			"resourcesFound": len(added),
			"resources":      added,
		},
	})
}

type bulkRequest struct {
	Queries            []string `json:"queries" validate:"required,min=1,max=10,dive,min=2,max=100" msg:"Must provide 1-10 queries"`
	Domain             string   `json:"domain" validate:"max=50"`
	MaxResultsPerQuery *int     `json:"maxResultsPerQuery" validate:"omitnil,min=1,max=50"`
}

func (s *Service) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Domain = strings.TrimSpace(req.Domain)

	for i, query := range req.Queries {
		req.Queries[i] = strings.TrimSpace(query)
	}
	v := &httputil.Validation{}
	v.Check(req)
	maxPerQuery := 20
	if req.MaxResultsPerQuery != nil {
		maxPerQuery = *req.MaxResultsPerQuery
	}
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	results, total, err := s.BulkScrape(r.Context(), req.Queries, req.Domain, maxPerQuery)
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"message": fmt.Sprintf("Bulk scraping completed. Found %d total resources", total),
		"data": httputil.J{
			"totalQueries":        len(req.Queries),
			"totalResourcesFound": total,
			"results":             results,
		},
	})
}

func (s *Service) handleSources(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"data": httputil.J{
			"sources": s.Sources(),
		},
	})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.SourceStats(r.Context())
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"data":    stats,
	})
}

func (s *Service) handleCleanup(w http.ResponseWriter, r *http.Request) {
	v := &httputil.Validation{}
	olderThan, ok := httputil.QueryInt(r, "olderThan", 30)
	if !ok || olderThan < 1 || olderThan > 365 {
		v.AddQuery("olderThan", invalidValue, r.URL.Query().Get("olderThan"))
	}
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}
	dryRun := httputil.QueryBool(r, "dryRun")

	result, err := s.Cleanup(r.Context(), olderThan, dryRun)
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}

	if dryRun {
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"success": true,
			"message": fmt.Sprintf("Would delete %d resources (dry run)", result.Count),
			"data": httputil.J{
				"count":      result.Count,
				"cutoffDate": result.Cutoff,
				"dryRun":     true,
			},
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"message": fmt.Sprintf("Deleted %d old/inactive resources", result.Count),
		"data": httputil.J{
			"deletedCount": result.Count,
			"cutoffDate":   result.Cutoff,
		},
	})
}

type startJobRequest struct {
	Query    string `json:"query" validate:"min=2,max=100"`
	Domain   string `json:"domain" validate:"max=50"`
	MaxPages *int   `json:"maxPages" validate:"omitnil,min=1,max=20"`
}

func (s *Service) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	err := httputil.DecodeJSON(r, &req)
	if err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	req.Domain = strings.TrimSpace(req.Domain)

	v := &httputil.Validation{}
	v.Check(req)
	opts := JobOptions{}
	if req.MaxPages != nil {
		opts.MaxPages = *req.MaxPages
	}
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	id, err := s.StartJob(r.Context(), req.Query, req.Domain, opts)
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, httputil.J{
		"success": true,
		"data": httputil.J{
			"jobId": id,
		},
	})
}

func (s *Service) handleListJobs(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ScrapingStats(r.Context())
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"data":    stats,
	})
}

func (s *Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.GetJob(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrJobNotFound) {
		httputil.WriteFailure(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"data":    job,
	})
}

func (s *Service) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	err := s.CancelJob(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrJobNotFound):
		httputil.WriteFailure(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, ErrJobNotCancelable):
		httputil.WriteFailure(w, http.StatusConflict, "Job is not pending or running")
	case err != nil:
		httputil.WriteInternal(w, r, err)
	default:
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"success": true,
			"message": "Job cancelled",
		})
	}
}
