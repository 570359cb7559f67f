package sources

import (
	"fmt"
	"net/url"
	"strings"

	"pathwise-backend/lib/htmlutil"
	"pathwise-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
)

func newGitHub(f Fetchers) *site {
	return &site{
		name:         "GitHub",
		description:  "Open source repositories and projects",
		types:        []scraper.ResourceType{scraper.TypeProject, scraper.TypeTutorial},
		base:         mustParse("https://github.com"),
		search:       func(q string) string { return "https://github.com/search?q=" + url.QueryEscape(q) + "&type=repositories" },
		browser:      true,
		waitSelector: ".repo-list-item",
		fetchers:     f,
		parse:        parseGitHub,
	}
}

func parseGitHub(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	doc.Find(".repo-list-item").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		link := item.Find("h3 a").First()
		title := text(link)
		href, ok := link.Attr("href")
		if title == "" || !ok {
			return true
		}
		description := text(item.Find("p").First())
		stars := text(item.Find(`[aria-label*="star"]`).First())
		owner, _, _ := strings.Cut(title, "/")

		c := scraper.Candidate{
			Title:       title,
			Description: description,
			URL:         htmlutil.Resolve(base, href),
			Type:        scraper.TypeProject,
			Difficulty:  scraper.InferDifficulty(description + " " + stars),
			Duration:    "Variable",
			Metadata: scraper.Metadata{
				Stars:    stars,
				Author:   strings.TrimSpace(owner),
				Language: "Multiple",
			},
		}
		if c.Description == "" {
			c.Description = "GitHub repository for " + title
		}
		out = append(out, c)
		return true
	})
	return out
}

func newFreeCodeCamp(f Fetchers) *site {
	return &site{
		name:        "freeCodeCamp",
		description: "Free coding tutorials and articles",
		types:       []scraper.ResourceType{scraper.TypeTutorial, scraper.TypeArticle},
		base:        mustParse("https://www.freecodecamp.org"),
		search:      searchUrl("https://www.freecodecamp.org/news/search/?query=", ""),
		fetchers:    f,
		parse:       parseFreeCodeCamp,
	}
}

func parseFreeCodeCamp(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	doc.Find(".post-card").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		title := text(item.Find(".post-card-title").First())
		href, ok := item.Find("a").First().Attr("href")
		if title == "" || !ok {
			return true
		}
		duration := text(item.Find(".post-card-meta time").First())
		if duration == "" {
			duration = "10 min"
		}
		description := text(item.Find(".post-card-excerpt").First())
		if description == "" {
			description = "freeCodeCamp article about " + query
		}
		out = append(out, scraper.Candidate{
			Title:       title,
			Description: description,
			URL:         htmlutil.Resolve(base, href),
			Type:        scraper.TypeTutorial,
			Difficulty:  scraper.Beginner,
			Duration:    duration,
			Metadata: scraper.Metadata{
				Author:   "freeCodeCamp",
				Language: "English",
			},
		})
		return true
	})
	return out
}

func newMDN(f Fetchers) *site {
	return &site{
		name:        "MDN Web Docs",
		description: "Web development documentation",
		types:       []scraper.ResourceType{scraper.TypeDocumentation},
		base:        mustParse("https://developer.mozilla.org"),
		search:      searchUrl("https://developer.mozilla.org/en-US/search?q=", ""),
		fetchers:    f,
		parse:       parseMDN,
	}
}

func parseMDN(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	doc.Find(".result-item").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		link := item.Find("h2 a").First()
		title := text(link)
		href, ok := link.Attr("href")
		if title == "" || !ok {
			return true
		}
		description := text(item.Find(".result-excerpt").First())
		if description == "" {
			description = "MDN documentation for " + query
		}
		out = append(out, scraper.Candidate{
			Title:       title,
			Description: description,
			URL:         htmlutil.Resolve(base, href),
			Type:        scraper.TypeDocumentation,
			Difficulty:  scraper.Intermediate,
			Duration:    "30 min",
			Domain:      "Web Development",
			Metadata: scraper.Metadata{
				Author:   "Mozilla",
				Language: "English",
			},
		})
		return true
	})
	return out
}

func newCoursera(f Fetchers) *site {
	return &site{
		name:         "Coursera",
		description:  "Online courses and specializations",
		types:        []scraper.ResourceType{scraper.TypeCourse},
		base:         mustParse("https://www.coursera.org"),
		search:       searchUrl("https://www.coursera.org/search?query=", ""),
		browser:      true,
		waitSelector: `[data-testid="search-results"]`,
		fetchers:     f,
		parse:        parseCoursera,
	}
}

const courseraResults = `[data-testid="search-filter-group-PRODUCTS"] [data-click-key="search.click.result"]`

func parseCoursera(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	doc.Find(courseraResults).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		title := text(item.Find("h3").First())
		href, ok := item.Attr("href")
		if title == "" || !ok {
			return true
		}
		description := text(item.Find("p").First())
		if description == "" {
			description = "Coursera course about " + query
		}
		rating := float64(item.Find(`[aria-label*="stars"]`).Length())
		if rating > 5 {
			rating = 5
		}
		out = append(out, scraper.Candidate{
			Title:       title,
			Description: description,
			URL:         htmlutil.Resolve(base, href),
			Type:        scraper.TypeCourse,
			Difficulty:  scraper.Intermediate,
			Duration:    "4-6 weeks",
			Rating:      rating,
			Metadata: scraper.Metadata{
				Language: "English",
			},
		})
		return true
	})
	return out
}

func newMedium(f Fetchers) *site {
	return &site{
		name:        "Medium",
		description: "Articles and blog posts",
		types:       []scraper.ResourceType{scraper.TypeArticle},
		base:        mustParse("https://medium.com"),
		search:      searchUrl("https://medium.com/search?q=", ""),
		fetchers:    f,
		parse:       parseMedium,
	}
}

func parseMedium(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	doc.Find("article").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		title := text(item.Find("h2").First())
		href, ok := item.Find("a[href]").First().Attr("href")
		if title == "" || !ok {
			return true
		}
		description := text(item.Find("p").First())
		if description == "" {
			description = "Medium article about " + query
		}
		duration := text(item.Find(`[data-testid="storyReadTime"]`).First())
		if duration == "" {
			duration = "5 min read"
		}
		author := text(item.Find(`[data-testid="authorName"]`).First())
		if author == "" {
			author = "Medium Author"
		}
		out = append(out, scraper.Candidate{
			Title:       title,
			Description: description,
			URL:         htmlutil.Resolve(base, href),
			Type:        scraper.TypeArticle,
			Difficulty:  scraper.Intermediate,
			Duration:    duration,
			Metadata: scraper.Metadata{
				Author: author,
			},
		})
		return true
	})
	return out
}

func newYouTube(f Fetchers) *site {
	return &site{
		name:         "YouTube",
		description:  "Video tutorials and lectures",
		types:        []scraper.ResourceType{scraper.TypeVideo},
		base:         mustParse("https://www.youtube.com"),
		search:       searchUrl("https://www.youtube.com/results?search_query=", " tutorial"),
		browser:      true,
		waitSelector: "#contents",
		fetchers:     f,
		parse:        parseYouTube,
	}
}

func parseYouTube(doc *goquery.Document, base *url.URL, query string, max int) []scraper.Candidate {
	out := []scraper.Candidate{}
	seen := map[string]bool{}
	doc.Find("script").EachWithBreak(func(i int, script *goquery.Selection) bool {
		for _, v := range videoRenderers(script.Text()) {
			if len(out) >= max {
				return false
			}
			if v.VideoId == "" || len(v.Title.Runs) == 0 || seen[v.VideoId] {
				continue
			}
			seen[v.VideoId] = true

			duration := v.LengthText.SimpleText
			if duration == "" {
				duration = "10 min"
			}
			out = append(out, scraper.Candidate{
				Title:       v.Title.Runs[0].Text,
				Description: fmt.Sprintf("YouTube tutorial about %s", query),
				URL:         htmlutil.Resolve(base, "/watch?v="+url.QueryEscape(v.VideoId)),
				Type:        scraper.TypeVideo,
				Difficulty:  scraper.Beginner,
				Duration:    duration,
			})
		}
		return len(out) < max
	})
	return out
}
