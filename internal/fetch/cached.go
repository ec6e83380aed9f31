package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL is how long a fetched posting is served from cache
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "cvtailor:page:"

// CachedFetcher serves postings from Redis and falls through to the wrapped fetcher on a
// miss. When Redis is unreachable the cache is bypassed, never failing a fetch.
type CachedFetcher struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger

	warnedUnavailable atomic.Bool
}

// NewCachedFetcher connects to redisURL. An empty URL, a bad URL or a failed ping leaves the
// cache disabled.
func NewCachedFetcher(ctx context.Context, next Fetcher, redisURL string, ttl time.Duration, log logrus.FieldLogger) *CachedFetcher {
	log = observability.OrNop(log)
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	f := &CachedFetcher{next: next, ttl: ttl, log: log}
	if redisURL == "" {
		return f
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.WithError(err).Warn("Invalid Redis URL, page cache disabled")
		return f
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, bypassing page cache")
		_ = client.Close()
		return f
	}

	f.client = client
	return f
}

// Enabled reports whether the cache is connected
func (f *CachedFetcher) Enabled() bool {
	return f.client != nil
}

// JobPosting implements Fetcher
func (f *CachedFetcher) JobPosting(ctx context.Context, url string) (*Page, error) {
	if page, ok := f.get(ctx, url); ok {
		f.log.WithField("url", url).Debug("Page cache hit")
		return page, nil
	}

	page, err := f.next.JobPosting(ctx, url)
	if err != nil {
		return nil, err
	}
	f.set(ctx, url, page)
	return page, nil
}

// Invalidate drops a cached page
func (f *CachedFetcher) Invalidate(ctx context.Context, url string) error {
	if !f.Enabled() {
		return nil
	}
	return f.client.Del(ctx, cacheKey(url)).Err()
}

// Close releases the Redis connection
func (f *CachedFetcher) Close() error {
	if !f.Enabled() {
		return nil
	}
	return f.client.Close()
}

func (f *CachedFetcher) get(ctx context.Context, url string) (*Page, bool) {
	if !f.Enabled() {
		return nil, false
	}
	data, err := f.client.Get(ctx, cacheKey(url)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			f.warnUnavailableOnce(err)
		}
		return nil, false
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (f *CachedFetcher) set(ctx context.Context, url string, page *Page) {
	if !f.Enabled() {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := f.client.Set(ctx, cacheKey(url), data, f.ttl).Err(); err != nil {
		f.warnUnavailableOnce(err)
	}
}

func (f *CachedFetcher) warnUnavailableOnce(err error) {
	if f.warnedUnavailable.CompareAndSwap(false, true) {
		f.log.WithError(err).Warn("Redis unavailable, bypassing page cache")
	}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
