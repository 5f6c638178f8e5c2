package p2p

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache is a run-scoped page cache in front of a fetcher.
// Failed fetches are not cached
type Cache struct {
	fetcher Fetcher
	items   *cache.Cache
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new empty page cache.
// A new cache should be created for every run
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		items:   cache.New(cache.NoExpiration, 0),
	}
}

// FetchPage serves the page from the cache, or fetches it
func (c *Cache) FetchPage(ctx context.Context, q PageQuery) ([]RawOffer, error) {
	key := CacheKey(q)

	if cached, ok := c.items.Get(key); ok {
		c.hits.Add(1)

		offers, _ := cached.([]RawOffer)

		return offers, nil
	}

	// Concurrent markets asking for the same page share one request
	res, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.items.Get(key); ok {
			return cached, nil
		}

		c.misses.Add(1)

		offers, err := c.fetcher.FetchPage(ctx, q)
		if err != nil {
			return nil, err
		}

		c.items.Set(key, offers, cache.NoExpiration)

		return offers, nil
	})
	if err != nil {
		return nil, err
	}

	offers, _ := res.([]RawOffer)

	return offers, nil
}

// Hits returns the number of pages served from the cache
func (c *Cache) Hits() int64 {
	return c.hits.Load()
}

// Misses returns the number of pages fetched upstream
func (c *Cache) Misses() int64 {
	return c.misses.Load()
}

// CacheKey builds the cache key for the page query.
// Filter order does not matter
func CacheKey(q PageQuery) string {
	countries := "GLOBAL"
	if len(q.Countries) > 0 {
		sorted := slices.Clone(q.Countries)
		slices.Sort(sorted)

		countries = strings.Join(sorted, ",")
	}

	payTypes := "ANY"
	if len(q.PayTypes) > 0 {
		sorted := slices.Clone(q.PayTypes)
		slices.Sort(sorted)

		payTypes = strings.Join(sorted, ",")
	}

	asset := q.Asset
	if asset == "" {
		asset = DefaultAsset
	}

	return fmt.Sprintf(
		"%s|%s|%s|p%d|r%d|%s|%s",
		asset,
		q.Fiat,
		q.Side,
		q.Page,
		q.Rows,
		countries,
		payTypes,
	)
}
