package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pathwise-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("pathwise.lib.scraper")

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type HTTPOptions struct {
	UserAgent string
	// defaults to 30s
	Timeout time.Duration
	// defaults to 5
	MaxRedirects int
	// 0 disables throttling
	RequestsPerSecond float64
	Burst             int
	RespectRobots     bool
	// glob patterns (gobwas/glob with '.' as separator) of hosts that may
	// be fetched, empty allows any host
	AllowedHosts []string
	// receives request dumps when debug logging is on, may be nil
	Output restyutil.InstrumentOutput
}

type HTTPFetcher struct {
	client    *resty.Client
	userAgent string
	allowed   []glob.Glob
	robots    *robotsCache
}

func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}

	allowed := make([]glob.Glob, len(opts.AllowedHosts))
	for i, pattern := range opts.AllowedHosts {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("allowed host %q: %w", pattern, err)
		}
		allowed[i] = g
	}

	f := &HTTPFetcher{
		userAgent: opts.UserAgent,
		allowed:   allowed,
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.Timeout)
	client.SetHeaders(map[string]string{
		"User-Agent":                opts.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Upgrade-Insecure-Requests": "1",
	})
	client.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(opts.MaxRedirects),
		resty.RedirectPolicyFunc(func(req *http.Request, _ []*http.Request) error {
			if !f.hostAllowed(req.URL.Hostname()) {
				return fmt.Errorf("redirect to %s: %w", req.URL.Hostname(), ErrDisallowed)
			}
			return nil
		}),
	)

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}
	restyutil.InstrumentClient(client, otel.Tracer("pathwise.lib.scraper/http"), opts.Output)

	f.client = client
	if opts.RespectRobots {
		f.robots = newRobotsCache(client)
	}
	return f, nil
}

func (f *HTTPFetcher) hostAllowed(host string) bool {
	if len(f.allowed) == 0 {
		return true
	}
	for _, g := range f.allowed {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Client exposes the underlying client for sources that call JSON apis.
func (f *HTTPFetcher) Client() *resty.Client {
	return f.client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawUrl string) (Page, error) {
	ctx, span := tracer.Start(ctx, "HTTPFetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", rawUrl))

	target, err := url.Parse(rawUrl)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		err = fmt.Errorf("invalid url %q", rawUrl)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid url")
		return Page{}, err
	}
	if !f.hostAllowed(target.Hostname()) {
		span.SetStatus(codes.Error, "host not allowed")
		return Page{}, fmt.Errorf("%s: %w", rawUrl, ErrDisallowed)
	}
	if f.robots != nil && !f.robots.allowed(ctx, target, f.userAgent) {
		span.SetStatus(codes.Error, "disallowed by robots.txt")
		return Page{}, fmt.Errorf("%s: robots.txt: %w", rawUrl, ErrDisallowed)
	}

	res, err := f.client.R().
		SetContext(ctx).
		Get(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return Page{}, fmt.Errorf("fetch %s: %w", rawUrl, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		err := &StatusError{URL: rawUrl, StatusCode: res.StatusCode()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return Page{}, err
	}

	finalUrl := rawUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return Page{
		URL:        rawUrl,
		FinalURL:   finalUrl,
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
		FetchedAt:  time.Now(),
	}, nil
}
