package scraper

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errPageNotCached = badger.ErrKeyNotFound

type cachedPage struct {
	Page      Page
	ExpiresAt int64
}

// CachedFetcher is a read through cache in front of another fetcher.
// Cache failures are logged and the page is fetched as if there was no
// cache.
type CachedFetcher struct {
	next Fetcher
	db   *badger.DB
	ttl  time.Duration
	now  func() time.Time
}

func NewCachedFetcher(next Fetcher, db *badger.DB, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedFetcher{
		next: next,
		db:   db,
		ttl:  ttl,
		now:  time.Now,
	}
}

// CacheKey hashes the normalized form of rawUrl, so that urls differing
// only in query order, fragments or default ports share an entry.
func CacheKey(rawUrl string) []byte {
	normalized, err := purell.NormalizeURLString(
		rawUrl,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	if err != nil {
		normalized = rawUrl
	}
	return []byte("page:" + strconv.FormatUint(xxh3.HashString(normalized), 16))
}

func (c *CachedFetcher) get(ctx context.Context, key []byte) (Page, error) {
	ctx, span := tracer.Start(ctx, "CachedFetcher.get")
	defer span.End()

	var cached cachedPage
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&cached)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Page{}, errPageNotCached
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cached page")
		return Page{}, err
	}

	if c.now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key", trace.WithAttributes(
			attribute.String("key", string(key)),
		))
		err = c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to delete expired page", "key", string(key), "err", err)
		}
		return Page{}, errPageNotCached
	}

	return cached.Page, nil
}

func (c *CachedFetcher) set(ctx context.Context, key []byte, page Page) error {
	_, span := tracer.Start(ctx, "CachedFetcher.set")
	defer span.End()

	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(cachedPage{
		Page:      page,
		ExpiresAt: c.now().Add(c.ttl).Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize page")
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, serialized.Bytes())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	key := CacheKey(url)

	page, err := c.get(ctx, key)
	if err == nil {
		slog.DebugContext(ctx, "page cache hit", "url", url)
		return page, nil
	}
	if !errors.Is(err, errPageNotCached) {
		slog.WarnContext(ctx, "page cache unavailable", "url", url, "err", err)
	}

	page, err = c.next.Fetch(ctx, url)
	if err != nil {
		return Page{}, err
	}

	err = c.set(ctx, key, page)
	if err != nil {
		slog.WarnContext(ctx, "failed to cache page", "url", url, "err", err)
	}
	return page, nil
}

// OpenCache opens a badger database at dir, an empty dir keeps the cache in
// memory.
func OpenCache(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}
