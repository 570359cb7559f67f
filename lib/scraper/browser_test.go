package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"
)

func TestBrowserFetch(t *testing.T) {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no chrome binary available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, `<html><head><title>Rendered</title></head><body>
<div id="root"></div>
<script>document.getElementById("root").innerHTML = '<h1 class="ready">Hello from js</h1>'</script>
</body></html>`)
	}))
	defer srv.Close()

	b := NewBrowserFetcher(BrowserOptions{
		Headless: true,
		Bin:      bin,
		Timeout:  20 * time.Second,
		Settle:   50 * time.Millisecond,
	})
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := b.FetchWith(ctx, srv.URL+"/app", FetchOptions{WaitSelector: "h1.ready"})
	if err != nil {
		t.Skipf("browser could not start here: %v", err)
	}
	require.Equal(t, srv.URL+"/app", page.URL)
	require.Equal(t, 200, page.StatusCode)
	require.Contains(t, string(page.Body), "Hello from js")
	require.Contains(t, string(page.Body), "<title>Rendered</title>")

	// the browser is reused between fetches
	again, err := b.Fetch(ctx, srv.URL+"/other")
	require.NoError(t, err)
	require.Contains(t, string(again.Body), "Hello from js")

	require.NoError(t, b.Close())
	require.Nil(t, b.browser)
	require.Nil(t, b.launcher)
}
