package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
)

// robotsCache keeps one parsed robots.txt per scheme and host for the
// lifetime of the fetcher.
type robotsCache struct {
	client *resty.Client

	lock  sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *resty.Client) *robotsCache {
	return &robotsCache{
		client: client,
		hosts:  map[string]*robotstxt.RobotsData{},
	}
}

func (c *robotsCache) get(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	key := target.Scheme + "://" + target.Host

	c.lock.Lock()
	data, ok := c.hosts[key]
	c.lock.Unlock()
	if ok {
		return data
	}

	res, err := c.client.R().
		SetContext(ctx).
		Get(key + "/robots.txt")
	if err != nil {
		// an unreachable robots.txt is treated as allow all, it is not cached
		slog.WarnContext(ctx, "failed to fetch robots.txt", "host", target.Host, "err", err)
		return nil
	}
	data, err = robotstxt.FromStatusAndBytes(res.StatusCode(), res.Body())
	if err != nil {
		slog.WarnContext(ctx, "failed to parse robots.txt", "host", target.Host, "err", err)
		data = nil
	}

	c.lock.Lock()
	c.hosts[key] = data
	c.lock.Unlock()
	return data
}

func (c *robotsCache) allowed(ctx context.Context, target *url.URL, agent string) bool {
	data := c.get(ctx, target)
	if data == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return data.TestAgent(path, agent)
}
