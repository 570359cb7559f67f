package sources

import (
	"net/url"
	"strings"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// LinkSource is a site whose search results are followed link by link,
// each linked page being extracted on its own.
type LinkSource struct {
	Name       string
	BaseURL    string
	SearchURL  string
	Type       scraper.ResourceType
	Difficulty scraper.Difficulty
	Domain     string
}

var LinkSources = []LinkSource{
	{
		Name:       "MDN Web Docs",
		BaseURL:    "https://developer.mozilla.org",
		SearchURL:  "https://developer.mozilla.org/en-US/search?q=",
		Type:       scraper.TypeDocumentation,
		Difficulty: scraper.Beginner,
		Domain:     "Web Development",
	},
	{
		Name:       "freeCodeCamp",
		BaseURL:    "https://www.freecodecamp.org",
		SearchURL:  "https://www.freecodecamp.org/news/search/",
		Type:       scraper.TypeCourse,
		Difficulty: scraper.Beginner,
		Domain:     "Programming",
	},
	{
		Name:       "Stack Overflow",
		BaseURL:    "https://stackoverflow.com",
		SearchURL:  "https://stackoverflow.com/questions/tagged/",
		Type:       scraper.TypeArticle,
		Difficulty: scraper.Intermediate,
		Domain:     "Programming",
	},
	{
		Name:       "GitHub",
		BaseURL:    "https://github.com",
		SearchURL:  "https://github.com/search?q=",
		Type:       scraper.TypeProject,
		Difficulty: scraper.Intermediate,
		Domain:     "Programming",
	},
	{
		Name:       "YouTube",
		BaseURL:    "https://www.youtube.com",
		SearchURL:  "https://www.youtube.com/results?search_query=",
		Type:       scraper.TypeVideo,
		Difficulty: scraper.Beginner,
		Domain:     "Programming",
	},
}

// SearchPage is the url of the search results for query within domain.
func (s LinkSource) SearchPage(query, domain string) string {
	q := strings.TrimSpace(query + " " + domain)
	return s.SearchURL + url.QueryEscape(q)
}

var linkSelectors = map[string]string{
	"MDN Web Docs":   `a[href*="/en-US/docs/"]`,
	"freeCodeCamp":   `a[href*="/news/"]`,
	"Stack Overflow": `a[href*="/questions/"]`,
	"GitHub":         `a[href*="/"]`,
	"YouTube":        `a[href*="/watch"]`,
}

func isAbsolute(href string) bool {
	return strings.HasPrefix(href, "http")
}

// ExtractLinks collects the result links of a search page. Known sources
// only follow their own relative links, anything else takes absolute
// links. The result is deduped in document order.
func ExtractLinks(doc *goquery.Document, source LinkSource) []string {
	selector, known := linkSelectors[source.Name]
	if !known {
		selector = "a[href]"
	}

	var links []string
	doc.Find(selector).Each(func(i int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		switch {
		case !known && isAbsolute(href):
			links = append(links, href)
		case known && !isAbsolute(href):
			links = append(links, source.BaseURL+href)
		}
	})
	return textutil.Dedupe(links)
}
