package resources

import (
	"errors"
	"net/http"
	"strings"

	"pathwise-backend/lib/httputil"

	"github.com/gorilla/mux"
)

const invalidValue = "Invalid value"

// Routes mounts the catalog routes on r, typically `/api/resources`.
func (s Service) Routes(r *mux.Router) {
	r.HandleFunc("", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/domain/{domain}", s.handleDomain).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
}

func queryFilter(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		Domain:     strings.TrimSpace(q.Get("domain")),
		Type:       strings.TrimSpace(q.Get("type")),
		Difficulty: strings.TrimSpace(q.Get("difficulty")),
	}
}

type pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

func newPagination(total int64, limit, offset int) pagination {
	return pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: total > int64(offset+limit),
	}
}

func readPaging(r *http.Request, v *httputil.Validation, maxLimit int) (limit, offset int) {
	limit, ok := httputil.QueryInt(r, "limit", 50)
	if !ok || limit < 1 || limit > maxLimit {
		v.AddQuery("limit", invalidValue, r.URL.Query().Get("limit"))
	}
	offset, ok = httputil.QueryInt(r, "offset", 0)
	if !ok || offset < 0 {
		v.AddQuery("offset", invalidValue, r.URL.Query().Get("offset"))
	}
	return limit, offset
}

func (s Service) handleList(w http.ResponseWriter, r *http.Request) {
	v := &httputil.Validation{}
	limit, offset := readPaging(r, v, 1000)
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	result, err := s.List(r.Context(), ListParams{
		Filter: queryFilter(r),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success":    true,
		"resources":  result.Resources,
		"pagination": newPagination(result.Total, limit, offset),
	})
}

func (s Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	v := &httputil.Validation{}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		v.AddQuery("q", "Search query is required", query)
	}
	limit, ok := httputil.QueryInt(r, "limit", 50)
	if !ok || limit < 1 || limit > 100 {
		v.AddQuery("limit", invalidValue, r.URL.Query().Get("limit"))
	}
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	found, err := s.Search(r.Context(), query, queryFilter(r), limit)
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success":      true,
		"resources":    found,
		"query":        query,
		"resultsCount": len(found),
	})
}

func (s Service) handleDomain(w http.ResponseWriter, r *http.Request) {
	domain := mux.Vars(r)["domain"]

	v := &httputil.Validation{}
	limit, offset := readPaging(r, v, 1000)
	if !v.Ok() {
		httputil.WriteInvalid(w, v)
		return
	}

	result, err := s.List(r.Context(), ListParams{
		Filter: Filter{Domain: domain},
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success":    true,
		"resources":  result.Resources,
		"domain":     domain,
		"pagination": newPagination(result.Total, limit, offset),
	})
}

func (s Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success": true,
		"data":    stats,
	})
}

func (s Service) handleGet(w http.ResponseWriter, r *http.Request) {
	resource, err := s.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		httputil.WriteFailure(w, http.StatusNotFound, "Resource not found")
		return
	}
	if err != nil {
		httputil.WriteInternal(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"success":  true,
		"resource": resource,
	})
}
