package p2p

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/p2prates/storage/types"
)

func TestCache_CacheKey(t *testing.T) {
	t.Parallel()

	t.Run("global, any method", func(t *testing.T) {
		t.Parallel()

		key := CacheKey(PageQuery{Fiat: "VES", Side: types.SideBUY, Page: 1, Rows: 20})

		assert.Equal(t, "USDT|VES|BUY|p1|r20|GLOBAL|ANY", key)
	})

	t.Run("filter order does not matter", func(t *testing.T) {
		t.Parallel()

		a := CacheKey(PageQuery{
			Fiat:      "USD",
			Side:      types.SideSELL,
			Page:      3,
			Rows:      20,
			Countries: []string{"US", "PA"},
			PayTypes:  []string{"Zelle", "BANK"},
		})
		b := CacheKey(PageQuery{
			Fiat:      "USD",
			Side:      types.SideSELL,
			Page:      3,
			Rows:      20,
			Countries: []string{"PA", "US"},
			PayTypes:  []string{"BANK", "Zelle"},
		})

		assert.Equal(t, a, b)
		assert.Equal(t, "USDT|USD|SELL|p3|r20|PA,US|BANK,Zelle", a)
	})

	t.Run("distinct pages", func(t *testing.T) {
		t.Parallel()

		a := CacheKey(PageQuery{Fiat: "VES", Side: types.SideBUY, Page: 1})
		b := CacheKey(PageQuery{Fiat: "VES", Side: types.SideBUY, Page: 2})
		c := CacheKey(PageQuery{Fiat: "VES", Side: types.SideSELL, Page: 1})

		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, c)
	})
}

func TestCache_FetchPage(t *testing.T) {
	t.Parallel()

	t.Run("identical queries hit the network once", func(t *testing.T) {
		t.Parallel()

		var (
			calls atomic.Int32

			fetcher = &mockFetcher{
				fetchPageFn: func(_ context.Context, _ PageQuery) ([]RawOffer, error) {
					calls.Add(1)

					return rawPage("a", 3, 300, "Pago Movil"), nil
				},
			}

			c = NewCache(fetcher)
			q = PageQuery{Fiat: "VES", Side: types.SideBUY, Page: 1, Rows: 20}
		)

		first, err := c.FetchPage(context.Background(), q)
		require.NoError(t, err)

		second, err := c.FetchPage(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, int64(1), c.Hits())
		assert.Equal(t, int64(1), c.Misses())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		var (
			calls atomic.Int32

			fetcher = &mockFetcher{
				fetchPageFn: func(_ context.Context, _ PageQuery) ([]RawOffer, error) {
					if calls.Add(1) == 1 {
						return nil, errors.New("timeout")
					}

					return rawPage("a", 1, 300, "Pago Movil"), nil
				},
			}

			c = NewCache(fetcher)
			q = PageQuery{Fiat: "VES", Side: types.SideBUY, Page: 1}
		)

		_, err := c.FetchPage(context.Background(), q)
		require.Error(t, err)

		offers, err := c.FetchPage(context.Background(), q)
		require.NoError(t, err)

		assert.Len(t, offers, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		var (
			fetcher = &mockFetcher{
				fetchPageFn: func(_ context.Context, q PageQuery) ([]RawOffer, error) {
					return rawPage(q.Fiat, 2, 1, "x"), nil
				},
			}

			c  = NewCache(fetcher)
			wg sync.WaitGroup
		)

		for i := 0; i < 32; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				fiat := "VES"
				if i%2 == 0 {
					fiat = "COP"
				}

				offers, err := c.FetchPage(context.Background(), PageQuery{
					Fiat: fiat,
					Side: types.SideBUY,
					Page: 1,
				})

				assert.NoError(t, err)
				assert.Len(t, offers, 2)
			}(i)
		}

		wg.Wait()

		// One upstream call per distinct page
		assert.Equal(t, int64(2), c.Misses())
	})
}
