package scraping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/scraper/sources"
	"pathwise-backend/lib/testutil"
	"pathwise-backend/services/resources"
	resourcesdb "pathwise-backend/services/resources/db"
	"pathwise-backend/services/scraping/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type sleepRecorder struct {
	lock  sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]time.Duration{}, r.calls...)
}

func setup(t *testing.T, opts Options) (*Service, *sleepRecorder) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "scraping",
		DbSchema: resourcesdb.Schema + "\n" + db.Schema,
	})
	t.Cleanup(cleanup)

	s := NewService(res.DB, opts)
	clock := baseTime
	var clockLock sync.Mutex
	s.now = func() time.Time {
		clockLock.Lock()
		defer clockLock.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}
	recorder := &sleepRecorder{}
	s.sleep = recorder.sleep
	return s, recorder
}

func titles(list []resources.Resource) []string {
	out := []string{}
	for _, r := range list {
		out = append(out, r.Title)
	}
	return out
}

func TestScrapeQueryMock(t *testing.T) {
	s, _ := setup(t, Options{})
	ctx := context.Background()

	added, err := s.ScrapeQuery(ctx, "react hooks", "", DefaultQueryOptions())
	require.NoError(t, err)

	diff := cmp.Diff([]string{
		"react hooks - Complete Guide",
		"Learn react hooks - Interactive Course",
		"react hooks Documentation",
		"react hooks Tutorial Video",
		"react hooks Project Examples",
	}, titles(added))
	if diff != "" {
		t.Fatal("unexpected titles", diff)
	}
	for _, r := range added {
		require.Equal(t, "react hooks", r.Skill)
		require.True(t, r.Metadata.MockResource)
		require.True(t, r.IsActive)
		require.Equal(t, scraper.ColorForType(scraper.ResourceType(r.Type)), r.Color)
		require.NotEmpty(t, r.UID)
	}

	// the same urls are updated instead of added
	added, err = s.ScrapeQuery(ctx, "react hooks", "", DefaultQueryOptions())
	require.NoError(t, err)
	require.Empty(t, added)

	total, err := s.resources.CountActiveResources(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
}

func TestScrapeQueryFilters(t *testing.T) {
	s, _ := setup(t, Options{})

	opts := DefaultQueryOptions()
	opts.IncludeVideo = false
	opts.MaxResults = 4
	added, err := s.ScrapeQuery(context.Background(), "golang", "Backend Development", opts)
	require.NoError(t, err)

	diff := cmp.Diff([]string{
		"golang - Complete Guide",
		"Learn golang - Interactive Course",
		"golang Documentation",
	}, titles(added))
	if diff != "" {
		t.Fatal("unexpected titles", diff)
	}
	for _, r := range added {
		require.Equal(t, "Backend Development", r.Domain)
	}
}

type fakeSource struct {
	name  string
	found []scraper.Candidate
	err   error
	max   int
}

func (f *fakeSource) Name() string                  { return f.name }
func (f *fakeSource) Description() string           { return "fake " + f.name }
func (f *fakeSource) Types() []scraper.ResourceType { return []scraper.ResourceType{scraper.TypeArticle} }

func (f *fakeSource) Scrape(ctx context.Context, query, domain string, max int) ([]scraper.Candidate, error) {
	f.max = max
	return f.found, f.err
}

func TestScrapeQueryLive(t *testing.T) {
	broken := &fakeSource{name: "Broken", err: errors.New("connection reset")}
	working := &fakeSource{
		name: "Working",
		found: []scraper.Candidate{
			{Title: "Go channels", URL: "https://working.test/a", Source: "Working", Type: scraper.TypeArticle},
			{Title: "Go generics", URL: "https://working.test/b", Source: "Working", Rating: 9},
		},
	}
	s, recorder := setup(t, Options{
		Config:  Config{Mode: ModeLive},
		Sources: []sources.Source{broken, working},
	})

	opts := DefaultQueryOptions()
	opts.MaxResults = 7
	added, err := s.ScrapeQuery(context.Background(), "go", "", opts)
	require.NoError(t, err)

	require.Equal(t, 4, broken.max)
	require.Equal(t, 4, working.max)
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, recorder.recorded())

	require.Len(t, added, 2)
	require.Equal(t, "Article", added[0].Type)
	// defaults for a bare candidate
	require.Equal(t, "Tutorial", added[1].Type)
	require.Equal(t, "Beginner", added[1].Difficulty)
	require.Equal(t, "30 min", added[1].Duration)
	require.Equal(t, "General", added[1].Domain)
	require.Equal(t, "General", added[1].Skill)
	require.Equal(t, 5.0, added[1].Rating)
}

func TestProcessAndSave(t *testing.T) {
	s, _ := setup(t, Options{})
	ctx := context.Background()

	candidates := []scraper.Candidate{
		{Title: "Understanding Go interfaces", URL: "https://a.test/1", Source: "A"},
		{Title: "Understanding Go interfaces", URL: "https://a.test/1", Source: "A"},
		{Title: "Understanding Go interface", URL: "https://a.test/2", Source: "A"},
		{Title: "Understanding Go interface", URL: "https://b.test/2", Source: "B"},
		{Title: "Rust ownership", URL: "https://a.test/3", Source: "A", Domain: "Systems"},
	}
	outcome, err := s.ProcessAndSave(ctx, candidates, "Backend Development", ProcessOptions{
		NearDuplicateThreshold: 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Duplicates)
	require.Equal(t, 0, outcome.Updated)
	require.Equal(t, 0, outcome.Failed)

	diff := cmp.Diff([]string{
		"Understanding Go interfaces",
		"Understanding Go interface",
		"Rust ownership",
	}, titles(outcome.Added))
	if diff != "" {
		t.Fatal("unexpected titles", diff)
	}
	require.Equal(t, "Backend Development", outcome.Added[0].Domain)
	require.Equal(t, "Systems", outcome.Added[2].Domain)

	first := outcome.Added[0]
	_, err = s.resources.IncrementResourceViews(ctx, first.UID)
	require.NoError(t, err)

	outcome, err = s.ProcessAndSave(ctx, []scraper.Candidate{
		{Title: "Understanding Go interfaces, revised", URL: "https://a.test/1", Source: "A", Type: scraper.TypeGuide},
	}, "", ProcessOptions{})
	require.NoError(t, err)
	require.Empty(t, outcome.Added)
	require.Equal(t, 1, outcome.Updated)

	row, err := s.resources.GetResourceByUrl(ctx, "https://a.test/1")
	require.NoError(t, err)
	require.Equal(t, first.UID, row.Uid)
	require.Equal(t, first.ID, row.ID)
	require.Equal(t, "Understanding Go interfaces, revised", row.Title)
	require.Equal(t, "Guide", row.Type)
	require.EqualValues(t, 1, row.Views)
	require.Equal(t, first.CreatedAt.UnixMilli(), row.CreatedAt)
	require.Greater(t, row.LastScraped, first.LastScraped.UnixMilli())
}

func TestScrapeURLMock(t *testing.T) {
	s, _ := setup(t, Options{})

	added, err := s.ScrapeURL(context.Background(), "https://go.dev/doc/effective_go", "", "", "")
	require.NoError(t, err)
	require.Len(t, added, 1)

	r := added[0]
	require.Equal(t, "Resource from go.dev", r.Title)
	require.Equal(t, "Content scraped from https://go.dev/doc/effective_go", r.Description)
	require.Equal(t, "Article", r.Type)
	require.Equal(t, "Intermediate", r.Difficulty)
	require.Equal(t, "10 min", r.Duration)
	require.Equal(t, "General", r.Domain)
	require.Equal(t, "General", r.Skill)
	require.True(t, r.Metadata.DirectScrape)

	_, err = s.ScrapeURL(context.Background(), "not a url", "", "", "")
	require.Error(t, err)
}

const articlePage = `<html lang="en"><head>
<title>Effective Go</title>
<meta name="description" content="Tips for writing clear, idiomatic Go code.">
</head><body><p>Read time 15 min</p></body></html>`

func TestScrapeURLLive(t *testing.T) {
	fetcher := scraper.FetcherFunc(func(ctx context.Context, url string) (scraper.Page, error) {
		return scraper.Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(articlePage)}, nil
	})
	s, _ := setup(t, Options{Fetcher: fetcher})

	added, err := s.ScrapeURL(context.Background(), "https://go.dev/doc/effective_go", "", "golang", ModeLive)
	require.NoError(t, err)
	require.Len(t, added, 1)

	r := added[0]
	require.Equal(t, "Effective Go", r.Title)
	require.Equal(t, "Tips for writing clear, idiomatic Go code.", r.Description)
	require.Equal(t, "Article", r.Type)
	require.Equal(t, "Intermediate", r.Difficulty)
	require.Equal(t, "10 min", r.Duration)
	require.Equal(t, "golang", r.Skill)
	require.Equal(t, "go.dev", r.Source)
}

func TestBulkScrape(t *testing.T) {
	s, recorder := setup(t, Options{})

	results, total, err := s.BulkScrape(context.Background(), []string{"docker", "kubernetes"}, "DevOps", 20)
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Len(t, results, 2)
	require.Equal(t, "docker", results[0].Query)
	require.Equal(t, 5, results[0].ResourcesFound)
	require.Len(t, results[1].Resources, 5)
	require.Empty(t, results[1].Error)

	require.Equal(t, []time.Duration{time.Second}, recorder.recorded())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.BulkScrape(ctx, []string{"a query", "another"}, "", 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanupAndSourceStats(t *testing.T) {
	s, _ := setup(t, Options{})
	ctx := context.Background()

	_, err := s.ScrapeQuery(ctx, "python", "", DefaultQueryOptions())
	require.NoError(t, err)

	stats, err := s.SourceStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, stats.TotalResources)
	require.EqualValues(t, 5, stats.RecentlyScraped)
	require.Len(t, stats.Sources, 5)
	for _, source := range stats.Sources {
		require.EqualValues(t, 1, source.Count)
	}

	row, err := s.resources.GetResourceByUrl(ctx, "https://mockhub.com/project/python")
	require.NoError(t, err)
	require.NoError(t, s.resources.SetResourceActive(ctx, row.Uid, false, s.now().UnixMilli()))

	result, err := s.Cleanup(ctx, 30, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Count)
	require.True(t, result.DryRun)

	// everything was scraped before a cutoff in the future
	result, err = s.Cleanup(ctx, -1, true)
	require.NoError(t, err)
	require.EqualValues(t, 5, result.Count)

	result, err = s.Cleanup(ctx, 30, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Count)

	total, err := s.resources.CountActiveResources(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
}
