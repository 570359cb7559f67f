package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	devenv "pathwise-backend/dev/env"
	"pathwise-backend/lib/restyutil"
	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/scraper/sources"
	"pathwise-backend/services/resources"
	resourcesdb "pathwise-backend/services/resources/db"
	"pathwise-backend/services/scraping"
	scrapingdb "pathwise-backend/services/scraping/db"

	"github.com/dgraph-io/badger/v4"
)

var ResourcesdSchema = resourcesdb.Schema + "\n" + scrapingdb.Schema

func OpenResourcesdDB(ctx context.Context, cfg ResourcesdConfig) (*sql.DB, error) {
	return cfg.Database.OpenAndMigrate(ctx, ResourcesdSchema)
}

type Resourcesd struct {
	DB *sql.DB
	// nil when the page cache is disabled or failed to open
	Cache *badger.DB
	// nil unless the browser is enabled
	Browser   *scraper.BrowserFetcher
	Resources resources.Service
	Scraping  *scraping.Service
}

func (c ScrapingConfig) httpOptions(output restyutil.InstrumentOutput) scraper.HTTPOptions {
	return scraper.HTTPOptions{
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutMs) * time.Millisecond,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.MaxConcurrentRequests,
		RespectRobots:     !c.IgnoreRobots,
		AllowedHosts:      c.AllowedHosts,
		Output:            output,
	}
}

func (c ScrapingConfig) openCache(ctx context.Context) *badger.DB {
	if c.Cache.Disabled {
		return nil
	}
	dir, err := devenv.ResolvePath(c.Cache.Dir)
	if err == nil {
		var cache *badger.DB
		cache, err = scraper.OpenCache(dir)
		if err == nil {
			return cache
		}
	}
	slog.WarnContext(ctx, "page cache unavailable, continuing without it", "dir", c.Cache.Dir, "err", err)
	return nil
}

// NewResourcesd opens the database and the page cache and builds the
// catalog and scraping services.
func NewResourcesd(ctx context.Context, cfg ResourcesdConfig, output restyutil.InstrumentOutput) (Resourcesd, error) {
	mode, err := cfg.Scraping.mode()
	if err != nil {
		return Resourcesd{}, err
	}

	slog.InfoContext(ctx, "opening database...", "database", cfg.Database.Name())
	database, err := OpenResourcesdDB(ctx, cfg)
	if err != nil {
		return Resourcesd{}, err
	}

	httpFetcher, err := scraper.NewHTTPFetcher(cfg.Scraping.httpOptions(output))
	if err != nil {
		database.Close()
		return Resourcesd{}, err
	}

	out := Resourcesd{DB: database}

	var fetcher scraper.Fetcher = httpFetcher
	out.Cache = cfg.Scraping.openCache(ctx)
	if out.Cache != nil {
		fetcher = scraper.NewCachedFetcher(
			httpFetcher,
			out.Cache,
			time.Duration(cfg.Scraping.Cache.TtlSeconds)*time.Second,
		)
	}

	fetchers := sources.Fetchers{HTTP: fetcher}
	if cfg.Scraping.Browser.Enabled {
		out.Browser = scraper.NewBrowserFetcher(scraper.BrowserOptions{
			Headless:   !cfg.Scraping.Browser.ShowBrowser,
			ControlURL: cfg.Scraping.Browser.ControlUrl,
			Bin:        cfg.Scraping.Browser.Bin,
			UserAgent:  cfg.Scraping.UserAgent,
			Timeout:    time.Duration(cfg.Scraping.TimeoutMs) * time.Millisecond,
			Settle:     time.Duration(cfg.Scraping.Browser.SettleMs) * time.Millisecond,
		})
		fetchers.Browser = out.Browser
	}

	out.Resources = resources.NewService(database)
	out.Scraping = scraping.NewService(database, scraping.Options{
		Config: scraping.Config{
			Mode:        mode,
			SourceDelay: time.Duration(cfg.Scraping.DelayMs) * time.Millisecond,
			UserAgent:   cfg.Scraping.UserAgent,
		},
		Sources: sources.Default(fetchers),
		Fetcher: fetcher,
	})

	slog.InfoContext(ctx, "scraping configured",
		"mode", mode,
		"cache", out.Cache != nil,
		"browser", out.Browser != nil,
	)
	return out, nil
}

// Close waits for background jobs, then closes the browser, the cache and
// the database in that order.
func (r Resourcesd) Close() error {
	r.Scraping.Wait()

	var errs []error
	if r.Browser != nil {
		errs = append(errs, r.Browser.Close())
	}
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	errs = append(errs, r.DB.Close())
	return errors.Join(errs...)
}
