package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func testSite(t *testing.T) *httptest.Server {
	r := mux.NewRouter()
	r.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	r.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade-Insecure-Requests") != "1" {
			http.Error(w, "missing header", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "<html><head><title>Page</title></head></html>")
	})
	r.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secret")
	})
	r.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	r.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := testSite(t)
	f, err := NewHTTPFetcher(HTTPOptions{
		UserAgent:     "test-agent",
		RespectRobots: true,
	})
	require.NoError(t, err)
	ctx := context.Background()

	page, err := f.Fetch(ctx, srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, 200, page.StatusCode)
	doc, err := page.Document()
	require.NoError(t, err)
	require.Equal(t, "Page", doc.Find("title").Text())

	page, err = f.Fetch(ctx, srv.URL+"/moved")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/page", page.FinalURL)

	_, err = f.Fetch(ctx, srv.URL+"/private/page")
	require.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 404, statusErr.StatusCode)

	_, err = f.Fetch(ctx, "ftp://example.com/file")
	require.Error(t, err)
}

func TestHTTPFetcherAllowedHosts(t *testing.T) {
	srv := testSite(t)

	allowed, err := NewHTTPFetcher(HTTPOptions{
		UserAgent:    "test-agent",
		AllowedHosts: []string{"127.0.0.*", "localhost"},
	})
	require.NoError(t, err)
	_, err = allowed.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	denied, err := NewHTTPFetcher(HTTPOptions{
		AllowedHosts: []string{"*.example.com"},
	})
	require.NoError(t, err)
	_, err = denied.Fetch(context.Background(), srv.URL+"/page")
	require.ErrorIs(t, err, ErrDisallowed)
}
