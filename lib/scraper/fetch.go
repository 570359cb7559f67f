package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (Page, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}

// FetchDocument fetches url and parses the result.
func FetchDocument(ctx context.Context, f Fetcher, url string) (*goquery.Document, Page, error) {
	page, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, Page{}, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, page, err
	}
	return doc, page, nil
}
