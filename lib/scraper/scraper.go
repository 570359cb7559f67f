// Package scraper fetches third party pages and turns them into resource
// candidates.
//
// A scrape is always the same three steps:
//  1. fetch a page (plain HTTP or a headless browser)
//  2. parse it with goquery
//  3. read the fields of a resource out of the document
//
// Normalization and persistence of candidates happen in services/scraping.
package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type ResourceType string

const (
	TypeTutorial      ResourceType = "Tutorial"
	TypeCourse        ResourceType = "Course"
	TypeDocumentation ResourceType = "Documentation"
	TypeInteractive   ResourceType = "Interactive"
	TypeBook          ResourceType = "Book"
	TypeGuide         ResourceType = "Guide"
	TypeProject       ResourceType = "Project"
	TypeVideo         ResourceType = "Video"
	TypeArticle       ResourceType = "Article"
	TypeTool          ResourceType = "Tool"
)

var ResourceTypes = []ResourceType{
	TypeTutorial,
	TypeCourse,
	TypeDocumentation,
	TypeInteractive,
	TypeBook,
	TypeGuide,
	TypeProject,
	TypeVideo,
	TypeArticle,
	TypeTool,
}

func ValidType(t string) bool {
	for _, known := range ResourceTypes {
		if string(known) == t {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

func ValidDifficulty(d string) bool {
	for _, known := range Difficulties {
		if string(known) == d {
			return true
		}
	}
	return false
}

// Metadata is the loosely structured part of a resource.
type Metadata struct {
	Author           string     `json:"author,omitempty"`
	Language         string     `json:"language,omitempty"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
	Price            string     `json:"price,omitempty"`
	Prerequisites    []string   `json:"prerequisites,omitempty"`
	LearningOutcomes []string   `json:"learningOutcomes,omitempty"`
	Stars            string     `json:"stars,omitempty"`
	PublishedAt      string     `json:"publishedAt,omitempty"`
	MockResource     bool       `json:"mockResource,omitempty"`
	DirectScrape     bool       `json:"directScrape,omitempty"`
	ScrapedAt        *time.Time `json:"scrapedAt,omitempty"`
}

// Candidate is a resource as read from a source, before it is normalized
// and stored.
type Candidate struct {
	Title       string
	Description string
	URL         string
	Type        ResourceType
	Difficulty  Difficulty
	Duration    string
	Domain      string
	Skill       string
	Source      string
	Tags        []string
	// Tags were read from the page itself and are kept as is.
	PageTags bool
	Rating   float64
	Metadata Metadata
}

// Page is a fetched document.
type Page struct {
	URL string
	// url after redirects
	FinalURL   string
	StatusCode int
	Body       []byte
	FetchedAt  time.Time
}

func (p Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.URL, err)
	}
	return doc, nil
}

// StatusError is returned for non 2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// ErrDisallowed is returned when robots.txt or the host allowlist forbid a
// url.
var ErrDisallowed = errors.New("url is disallowed")
