package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type BrowserOptions struct {
	Headless bool
	// connect to an already running browser instead of launching one
	ControlURL string
	// chrome binary, empty lets the launcher find or download one
	Bin       string
	UserAgent string
	// defaults to 30s
	Timeout time.Duration
	// time given to client side rendering after load, defaults to 2s
	Settle time.Duration
}

var blockedResources = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// BrowserFetcher renders pages in a headless chrome. It is started lazily
// on the first fetch.
type BrowserFetcher struct {
	opts BrowserOptions

	lock     sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	return &BrowserFetcher{opts: opts}
}

func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	controlUrl := b.opts.ControlURL
	if controlUrl == "" {
		l := launcher.New().
			Headless(b.opts.Headless).
			NoSandbox(true).
			Set(flags.Flag("disable-dev-shm-usage")).
			Set(flags.Flag("disable-gpu")).
			Set(flags.Flag("no-first-run"))
		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		b.launcher = l
		controlUrl = u
	}

	browser := rod.New().ControlURL(controlUrl)
	err := browser.Connect()
	if err != nil {
		if b.launcher != nil {
			b.launcher.Cleanup()
			b.launcher = nil
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	slog.Info("browser connected", "control_url", controlUrl, "headless", b.opts.Headless)
	b.browser = browser
	return browser, nil
}

// FetchOptions tunes a single browser fetch.
type FetchOptions struct {
	// css selector to wait for before reading the page
	WaitSelector string
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	return b.FetchWith(ctx, url, FetchOptions{})
}

func (b *BrowserFetcher) FetchWith(ctx context.Context, url string, opts FetchOptions) (Page, error) {
	ctx, span := tracer.Start(ctx, "BrowserFetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	browser, err := b.connect()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return Page{}, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open page")
		return Page{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent})
	if err != nil {
		return Page{}, fmt.Errorf("set user agent: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("set viewport: %w", err)
	}

	router := page.HijackRequests()
	for _, resourceType := range blockedResources {
		err = router.Add("*", resourceType, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		if err != nil {
			return Page{}, fmt.Errorf("block %s: %w", resourceType, err)
		}
	}
	go router.Run()
	defer router.Stop()

	p := page.Context(ctx).Timeout(b.opts.Timeout)
	err = p.Navigate(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
		return Page{}, fmt.Errorf("navigate %s: %w", url, err)
	}
	err = p.WaitLoad()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to wait for load")
		return Page{}, fmt.Errorf("load %s: %w", url, err)
	}
	if opts.WaitSelector != "" {
		_, err = p.Element(opts.WaitSelector)
		if err != nil {
			slog.DebugContext(ctx, "selector never appeared", "url", url, "selector", opts.WaitSelector, "err", err)
		}
	}

	select {
	case <-time.After(b.opts.Settle):
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}

	html, err := p.HTML()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read html")
		return Page{}, fmt.Errorf("read html of %s: %w", url, err)
	}

	finalUrl := url
	info, err := p.Info()
	if err == nil && info.URL != "" {
		finalUrl = info.URL
	}

	return Page{
		URL:        url,
		FinalURL:   finalUrl,
		StatusCode: 200,
		Body:       []byte(html),
		FetchedAt:  time.Now(),
	}, nil
}

// Close shuts the browser down and removes the launcher's profile
// directory.
func (b *BrowserFetcher) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}
