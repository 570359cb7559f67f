package sources

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pathwise-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func staticFetcher(t *testing.T, pages map[string]string) scraper.Fetcher {
	return scraper.FetcherFunc(func(ctx context.Context, url string) (scraper.Page, error) {
		body, ok := pages[url]
		if !ok {
			t.Logf("unexpected fetch %s", url)
			return scraper.Page{}, &scraper.StatusError{URL: url, StatusCode: 404}
		}
		return scraper.Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}, nil
	})
}

func document(t *testing.T, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

const mdnResults = `<html><body>
<div class="result-item">
  <h2><a href="/en-US/docs/Web/JavaScript/Reference/Global_Objects/Promise">Promise</a></h2>
  <p class="result-excerpt">The Promise object represents eventual completion.</p>
</div>
<div class="result-item">
  <h2><a href="https://developer.mozilla.org/en-US/docs/Web/API/fetch">fetch()</a></h2>
</div>
<div class="result-item"><h2><a>missing href</a></h2></div>
</body></html>`

func TestMDNScrape(t *testing.T) {
	f := Fetchers{HTTP: staticFetcher(t, map[string]string{
		"https://developer.mozilla.org/en-US/search?q=promises+js": mdnResults,
	})}

	found, err := newMDN(f).Scrape(context.Background(), "promises js", "", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)

	require.Equal(t, "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Promise", found[0].URL)
	require.Equal(t, "The Promise object represents eventual completion.", found[0].Description)
	require.Equal(t, scraper.TypeDocumentation, found[0].Type)
	require.Equal(t, "Web Development", found[0].Domain)
	require.Equal(t, "promises js", found[0].Skill)
	require.Equal(t, "MDN Web Docs", found[0].Source)

	require.Equal(t, "https://developer.mozilla.org/en-US/docs/Web/API/fetch", found[1].URL)
	require.Equal(t, "MDN documentation for promises js", found[1].Description)
}

func TestScrapeRespectsMaxAndDomain(t *testing.T) {
	f := Fetchers{HTTP: staticFetcher(t, map[string]string{
		"https://developer.mozilla.org/en-US/search?q=promise": mdnResults,
	})}

	found, err := newMDN(f).Scrape(context.Background(), "promise", "Frontend Development", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Frontend Development", found[0].Domain)
}

func TestScrapeFetchError(t *testing.T) {
	f := Fetchers{HTTP: scraper.FetcherFunc(func(ctx context.Context, url string) (scraper.Page, error) {
		return scraper.Page{}, errors.New("connection refused")
	})}
	_, err := newMedium(f).Scrape(context.Background(), "go", "", 5)
	require.ErrorContains(t, err, "Medium")
	require.ErrorContains(t, err, "connection refused")
}

func TestGitHubParse(t *testing.T) {
	doc := document(t, `<ul>
<li class="repo-list-item">
  <h3><a href="/golang/go">golang/go</a></h3>
  <p>The Go programming language, an advanced systems language</p>
  <a aria-label="120k stars">120k</a>
</li>
<li class="repo-list-item">
  <h3><a href="/someone/react-starter">someone/react-starter</a></h3>
</li>
</ul>`)

	found := parseGitHub(doc, mustParse("https://github.com"), "go", 10)
	require.Len(t, found, 2)

	require.Equal(t, "https://github.com/golang/go", found[0].URL)
	require.Equal(t, scraper.Advanced, found[0].Difficulty)
	require.Equal(t, "golang", found[0].Metadata.Author)
	require.Equal(t, "120k", found[0].Metadata.Stars)
	require.Equal(t, "Variable", found[0].Duration)

	require.Equal(t, "GitHub repository for someone/react-starter", found[1].Description)
	require.Equal(t, scraper.Intermediate, found[1].Difficulty)
}

func TestFreeCodeCampParse(t *testing.T) {
	doc := document(t, `<div>
<article class="post-card">
  <a href="/news/learn-go/"><h2 class="post-card-title">Learn Go</h2></a>
  <div class="post-card-meta"><time>7 min read</time></div>
</article>
<article class="post-card">
  <a href="/news/intro-css/"><h2 class="post-card-title">Intro to CSS</h2></a>
  <p class="post-card-excerpt">Style the web.</p>
</article>
</div>`)

	found := parseFreeCodeCamp(doc, mustParse("https://www.freecodecamp.org"), "go", 10)
	require.Len(t, found, 2)
	require.Equal(t, "https://www.freecodecamp.org/news/learn-go/", found[0].URL)
	require.Equal(t, "7 min read", found[0].Duration)
	require.Equal(t, "freeCodeCamp article about go", found[0].Description)
	require.Equal(t, "10 min", found[1].Duration)
	require.Equal(t, scraper.Beginner, found[1].Difficulty)
}

func TestCourseraParse(t *testing.T) {
	doc := document(t, `<div data-testid="search-filter-group-PRODUCTS">
<a data-click-key="search.click.result" href="/learn/machine-learning">
  <h3>Machine Learning</h3>
  <p>Stanford</p>
  <span aria-label="4 stars"></span><span aria-label="4 stars"></span>
</a>
</div>`)

	found := parseCoursera(doc, mustParse("https://www.coursera.org"), "ml", 10)
	require.Len(t, found, 1)
	require.Equal(t, "https://www.coursera.org/learn/machine-learning", found[0].URL)
	require.Equal(t, float64(2), found[0].Rating)
	require.Equal(t, "4-6 weeks", found[0].Duration)
}

func TestMediumParse(t *testing.T) {
	doc := document(t, `<div>
<article>
  <a href="https://medium.com/@me/go-tips-1"><h2>Go tips</h2></a>
  <p>Some tips</p>
  <span data-testid="storyReadTime">4 min read</span>
  <span data-testid="authorName">Sam</span>
</article>
<article><a href="/@you/x"><h2>Untitled tips</h2></a></article>
</div>`)

	found := parseMedium(doc, mustParse("https://medium.com"), "go", 10)
	require.Len(t, found, 2)
	require.Equal(t, "Sam", found[0].Metadata.Author)
	require.Equal(t, "4 min read", found[0].Duration)
	require.Equal(t, "https://medium.com/@you/x", found[1].URL)
	require.Equal(t, "5 min read", found[1].Duration)
	require.Equal(t, "Medium Author", found[1].Metadata.Author)
}

func TestYouTubeParse(t *testing.T) {
	doc := document(t, `<html><body><script>
var ytInitialData = {"contents":[
 {"videoRenderer":{"videoId":"abc123","title":{"runs":[{"text":"Go in 100 seconds"}]},"lengthText":{"simpleText":"1:40"}}},
 {"videoRenderer":{"videoId":"abc123","title":{"runs":[{"text":"duplicate"}]}}},
 {"videoRenderer":{"videoId":"def456","title":{"runs":[{"text":"Go course"}]}}},
 {"videoRenderer":{"broken": }
]};
</script></body></html>`)

	found := parseYouTube(doc, mustParse("https://www.youtube.com"), "go", 10)
	require.Len(t, found, 2)
	require.Equal(t, "https://www.youtube.com/watch?v=abc123", found[0].URL)
	require.Equal(t, "1:40", found[0].Duration)
	require.Equal(t, "Go course", found[1].Title)
	require.Equal(t, "10 min", found[1].Duration)
	require.Equal(t, "YouTube tutorial about go", found[1].Description)

	limited := parseYouTube(doc, mustParse("https://www.youtube.com"), "go", 1)
	require.Len(t, limited, 1)
}

func TestExtractLinks(t *testing.T) {
	doc := document(t, `<body>
<a href="/en-US/docs/Web/CSS">CSS</a>
<a href="/en-US/docs/Web/CSS">CSS again</a>
<a href="https://developer.mozilla.org/en-US/docs/Web/HTML">absolute</a>
<a href="/questions/123/how">question</a>
<a href="/news/post/">news</a>
<a href="/watch?v=1">video</a>
<a href="https://example.com/page">external</a>
</body>`)

	cases := []struct {
		source   string
		expected []string
	}{
		{"MDN Web Docs", []string{"https://developer.mozilla.org/en-US/docs/Web/CSS"}},
		{"Stack Overflow", []string{"https://stackoverflow.com/questions/123/how"}},
		{"freeCodeCamp", []string{"https://www.freecodecamp.org/news/post/"}},
		{"YouTube", []string{"https://www.youtube.com/watch?v=1"}},
		{"Somewhere", []string{
			"https://developer.mozilla.org/en-US/docs/Web/HTML",
			"https://example.com/page",
		}},
	}
	for _, c := range cases {
		source := LinkSource{Name: c.source}
		for _, known := range LinkSources {
			if known.Name == c.source {
				source = known
			}
		}
		diff := cmp.Diff(c.expected, ExtractLinks(doc, source))
		if diff != "" {
			t.Errorf("%s: %s", c.source, diff)
		}
	}
}

func TestSearchPage(t *testing.T) {
	require.Equal(t,
		"https://stackoverflow.com/questions/tagged/react+hooks",
		LinkSources[2].SearchPage("react hooks", ""),
	)
	require.Equal(t,
		"https://github.com/search?q=react+Frontend",
		LinkSources[3].SearchPage("react", "Frontend"),
	)
}

func TestCatalog(t *testing.T) {
	catalog := Catalog(Default(Fetchers{}))
	require.Len(t, catalog, 6)
	names := []string{}
	for _, entry := range catalog {
		require.True(t, entry.Active)
		require.NotEmpty(t, entry.Types)
		names = append(names, entry.Name)
	}
	require.Equal(t, []string{"GitHub", "freeCodeCamp", "MDN Web Docs", "Coursera", "YouTube", "Medium"}, names)
}
