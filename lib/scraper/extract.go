package scraper

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pathwise-backend/lib/htmlutil"
	"pathwise-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	durationRegex    = regexp.MustCompile(`(?i)(\d+)\s*(hour|hr|minute|min|day|week|month)`)
	lastUpdatedRegex = regexp.MustCompile(`(?i)(last updated|updated|modified):\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	priceRegex       = regexp.MustCompile(`(?i)\$(\d+(?:\.\d{2})?)|free|paid`)
)

var pageTags = []string{"javascript", "react", "nodejs", "python", "css", "html", "tutorial", "course", "programming"}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return htmlutil.VisibleText(body.Nodes[0])
}

// ExtractResource reads the fields of a resource out of an arbitrary page.
func ExtractResource(doc *goquery.Document, pageUrl string) Candidate {
	text := bodyText(doc)
	lower := strings.ToLower(text)

	title := htmlutil.SelectionText(doc.Find("title"))
	if title == "" {
		title = htmlutil.SelectionText(doc.Find("h1"))
	}
	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`)
	}
	if title == "" {
		title = "Untitled Resource"
	}

	description := metaContent(doc, `meta[name="description"]`)
	if description == "" {
		description = metaContent(doc, `meta[property="og:description"]`)
	}
	if description == "" {
		description = textutil.Truncate(htmlutil.SelectionText(doc.Find("p")), 200)
	}
	if description == "" {
		description = "No description available"
	}

	duration := durationRegex.FindString(text)
	if duration == "" {
		duration = "Unknown"
	}

	author := metaContent(doc, `meta[name="author"]`)
	if author == "" {
		author = htmlutil.CleanText(doc.Find(`[rel="author"]`).Text())
	}
	if author == "" {
		author = "Unknown"
	}
	language := strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	if language == "" {
		language = "en"
	}

	return Candidate{
		Title:       title,
		Description: description,
		URL:         pageUrl,
		Type:        DetectResourceType(pageUrl, lower),
		Difficulty:  DetectDifficulty(lower),
		Duration:    duration,
		Source:      SourceHost(pageUrl),
		Tags:        extractPageTags(doc, lower),
		PageTags:    true,
		Metadata: Metadata{
			Author:      author,
			Language:    language,
			LastUpdated: extractLastUpdated(doc, text),
			Price:       extractPrice(text),
		},
	}
}

// DetectResourceType classifies a page by its url, then by its lowercased
// body text.
func DetectResourceType(pageUrl, lowerText string) ResourceType {
	u := strings.ToLower(pageUrl)
	has := func(s string, subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case has(u, "course", "tutorial"):
		return TypeCourse
	case has(u, "docs", "documentation"):
		return TypeDocumentation
	case has(u, "book", "ebook"):
		return TypeBook
	case has(u, "playground", "interactive"):
		return TypeInteractive
	case has(u, "project", "example"):
		return TypeProject
	case has(u, "video", "youtube"):
		return TypeVideo
	}

	switch {
	case has(lowerText, "tutorial", "step by step"):
		return TypeTutorial
	case has(lowerText, "course curriculum", "modules"):
		return TypeCourse
	case has(lowerText, "api reference", "documentation"):
		return TypeDocumentation
	case has(lowerText, "interactive", "try it"):
		return TypeInteractive
	}
	return TypeArticle
}

// DetectDifficulty reads the difficulty of a page from its lowercased body
// text.
func DetectDifficulty(lowerText string) Difficulty {
	switch {
	case strings.Contains(lowerText, "beginner"),
		strings.Contains(lowerText, "basic"),
		strings.Contains(lowerText, "introduction"):
		return Beginner
	case strings.Contains(lowerText, "advanced"),
		strings.Contains(lowerText, "expert"),
		strings.Contains(lowerText, "master"):
		return Advanced
	case strings.Contains(lowerText, "intermediate"),
		strings.Contains(lowerText, "medium"):
		return Intermediate
	}
	return Beginner
}

func extractPageTags(doc *goquery.Document, lowerText string) []string {
	var tags []string
	keywords := metaContent(doc, `meta[name="keywords"]`)
	if keywords != "" {
		for _, k := range strings.Split(keywords, ",") {
			tags = append(tags, strings.TrimSpace(k))
		}
	}
	for _, tag := range pageTags {
		if strings.Contains(lowerText, tag) {
			tags = append(tags, tag)
		}
	}
	tags = textutil.Dedupe(tags)
	if len(tags) > 10 {
		tags = tags[:10]
	}
	return tags
}

var dateLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"1-2-06",
}

func parseLooseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if t, err := http.ParseTime(value); err == nil {
		return &t
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return &t
		}
	}
	return nil
}

func extractLastUpdated(doc *goquery.Document, text string) *time.Time {
	lastModified := metaContent(doc, `meta[http-equiv="last-modified"]`)
	if lastModified != "" {
		if t := parseLooseDate(lastModified); t != nil {
			return t
		}
	}
	match := lastUpdatedRegex.FindStringSubmatch(text)
	if len(match) == 3 {
		return parseLooseDate(match[2])
	}
	return nil
}

func extractPrice(text string) string {
	match := priceRegex.FindString(text)
	if match == "" {
		return "Unknown"
	}
	if strings.Contains(strings.ToLower(match), "free") {
		return "Free"
	}
	return match
}

// SourceHost is the hostname of pageUrl without a leading "www.".
func SourceHost(pageUrl string) string {
	parsed, err := url.Parse(pageUrl)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
