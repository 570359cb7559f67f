// Package sources holds the per site scrapers used to discover learning
// resources for a search query.
package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"pathwise-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pathwise/lib/scraper/sources")

type Source interface {
	Name() string
	Description() string
	Types() []scraper.ResourceType
	Scrape(ctx context.Context, query, domain string, max int) ([]scraper.Candidate, error)
}

// Fetchers are the fetchers a source may use. Sources that need a
// rendered page use Browser and fall back to HTTP when it is nil.
type Fetchers struct {
	HTTP    scraper.Fetcher
	Browser scraper.Fetcher
}

type selectorFetcher interface {
	FetchWith(ctx context.Context, url string, opts scraper.FetchOptions) (scraper.Page, error)
}

func (f Fetchers) fetch(ctx context.Context, target string, browser bool, waitSelector string) (*goquery.Document, error) {
	fetcher := f.HTTP
	if browser && f.Browser != nil {
		fetcher = f.Browser
	}
	if fetcher == nil {
		return nil, fmt.Errorf("no fetcher available for %s", target)
	}

	var (
		page scraper.Page
		err  error
	)
	if sf, ok := fetcher.(selectorFetcher); ok && browser && waitSelector != "" {
		page, err = sf.FetchWith(ctx, target, scraper.FetchOptions{WaitSelector: waitSelector})
	} else {
		page, err = fetcher.Fetch(ctx, target)
	}
	if err != nil {
		return nil, err
	}
	return page.Document()
}

type parseFunc func(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate

// site is a search page on a third party site that lists resources.
type site struct {
	name         string
	description  string
	types        []scraper.ResourceType
	base         *url.URL
	search       func(query string) string
	browser      bool
	waitSelector string
	parse        parseFunc
	fetchers     Fetchers
}

func (s *site) Name() string                  { return s.name }
func (s *site) Description() string           { return s.description }
func (s *site) Types() []scraper.ResourceType { return s.types }

func (s *site) Scrape(ctx context.Context, query, domain string, max int) ([]scraper.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Scrape", trace.WithAttributes(
		attribute.String("source", s.name),
		attribute.String("query", query),
	))
	defer span.End()

	if max <= 0 {
		return nil, nil
	}

	doc, err := s.fetchers.fetch(ctx, s.search(query), s.browser, s.waitSelector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search page")
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	found := s.parse(doc, s.base, query, max)
	for i := range found {
		c := &found[i]
		c.Source = s.name
		c.Skill = query
		if c.Description == "" {
			c.Description = fmt.Sprintf("%s resource about %s", s.name, query)
		}
		if domain != "" {
			c.Domain = domain
		} else if c.Domain == "" {
			c.Domain = scraper.InferDomain(c.Title, c.Description)
		}
	}
	span.SetAttributes(attribute.Int("found", len(found)))
	return found, nil
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func searchUrl(prefix string, suffix string) func(string) string {
	return func(query string) string {
		return prefix + url.QueryEscape(query+suffix)
	}
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// Default returns the query scrapers in the order they are run.
func Default(f Fetchers) []Source {
	return []Source{
		newGitHub(f),
		newFreeCodeCamp(f),
		newMDN(f),
		newCoursera(f),
		newYouTube(f),
		newMedium(f),
	}
}

type CatalogEntry struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Types       []scraper.ResourceType `json:"types"`
	Active      bool                   `json:"active"`
}

// Catalog describes sources for display.
func Catalog(sources []Source) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(sources))
	for _, s := range sources {
		out = append(out, CatalogEntry{
			Name:        s.Name(),
			Description: s.Description(),
			Types:       s.Types(),
			Active:      true,
		})
	}
	return out
}
