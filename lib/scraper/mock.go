package scraper

import (
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"pathwise-backend/lib/textutil"
)

type mockTemplate struct {
	title       string
	description string
	kind        ResourceType
	source      string
	url         string
}

func mockTemplates(query string) []mockTemplate {
	slug := textutil.Slug(query)
	return []mockTemplate{
		{
			title:       fmt.Sprintf("%s - Complete Guide", query),
			description: fmt.Sprintf("Comprehensive guide to %s with examples and best practices", query),
			kind:        TypeTutorial,
			source:      "MockSource",
			url:         "https://example.com/guide/" + slug,
		},
		{
			title:       fmt.Sprintf("Learn %s - Interactive Course", query),
			description: fmt.Sprintf("Interactive online course covering %s fundamentals", query),
			kind:        TypeCourse,
			source:      "MockEdu",
			url:         "https://mockedu.com/course/" + slug,
		},
		{
			title:       fmt.Sprintf("%s Documentation", query),
			description: fmt.Sprintf("Official documentation for %s", query),
			kind:        TypeDocumentation,
			source:      "MockDocs",
			url:         "https://docs.example.com/" + slug,
		},
		{
			title:       fmt.Sprintf("%s Tutorial Video", query),
			description: fmt.Sprintf("Video tutorial explaining %s concepts", query),
			kind:        TypeVideo,
			source:      "MockTube",
			url:         "https://mocktube.com/watch/" + slug,
		},
		{
			title:       fmt.Sprintf("%s Project Examples", query),
			description: fmt.Sprintf("Real-world project examples using %s", query),
			kind:        TypeProject,
			source:      "MockHub",
			url:         "https://mockhub.com/project/" + slug,
		},
	}
}

var mockDurations = []string{"10 min", "30 min", "1 hour", "2 hours", "1 day", "1 week"}

// GenerateMock builds up to 5 placeholder candidates for query. rng may be
// nil.
func GenerateMock(query, domain string, max int, rng *rand.Rand) []Candidate {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if domain == "" {
		domain = InferDomain(query)
	}

	templates := mockTemplates(query)
	if max < len(templates) {
		templates = templates[:max]
	}

	now := time.Now()
	out := make([]Candidate, 0, len(templates))
	for _, t := range templates {
		out = append(out, Candidate{
			Title:       t.title,
			Description: t.description,
			URL:         t.url,
			Type:        t.kind,
			Source:      t.source,
			Difficulty:  Difficulties[rng.Intn(len(Difficulties))],
			Duration:    mockDurations[rng.Intn(len(mockDurations))],
			Domain:      domain,
			Skill:       query,
			Metadata: Metadata{
				MockResource: true,
				ScrapedAt:    &now,
			},
		})
	}
	return out
}

// MockURLResource stands in for a real scrape of pageUrl.
func MockURLResource(pageUrl, domain, skill string) (Candidate, error) {
	parsed, err := url.Parse(pageUrl)
	if err != nil || parsed.Hostname() == "" {
		return Candidate{}, fmt.Errorf("invalid url %q", pageUrl)
	}
	if domain == "" {
		domain = GeneralDomain
	}
	if skill == "" {
		skill = GeneralDomain
	}
	now := time.Now()
	return Candidate{
		Title:       "Resource from " + parsed.Hostname(),
		Description: "Content scraped from " + pageUrl,
		URL:         pageUrl,
		Type:        TypeArticle,
		Difficulty:  Intermediate,
		Duration:    "10 min",
		Source:      parsed.Hostname(),
		Domain:      domain,
		Skill:       skill,
		Metadata: Metadata{
			MockResource: true,
			DirectScrape: true,
			ScrapedAt:    &now,
		},
	}, nil
}
