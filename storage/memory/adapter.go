package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sig-0/p2prates/storage/types"
)

type bucketKey struct {
	label, side string
}

// Storage is the in-memory rate log.
// Rows of a single name are kept in append order
type Storage struct {
	rates   map[string][]types.NamedRate
	buckets map[bucketKey][]types.BucketRate

	mu sync.RWMutex
}

// NewStorage creates a new empty in-memory storage
func NewStorage() *Storage {
	return &Storage{
		rates:   make(map[string][]types.NamedRate),
		buckets: make(map[bucketKey][]types.BucketRate),
	}
}

func (s *Storage) SaveRate(_ context.Context, r *types.NamedRate) error {
	elem := *r
	elem.AsOf = elem.AsOf.In(types.Zone)

	s.mu.Lock()
	s.rates[r.Name] = append(s.rates[r.Name], elem)
	s.mu.Unlock()

	return nil
}

func (s *Storage) LatestRates(_ context.Context, name string, limit int) ([]*types.NamedRate, error) {
	s.mu.RLock()

	rows := s.rates[name]
	out := make([]*types.NamedRate, 0, len(rows))

	// Walk backwards so equal timestamps keep the latest append first
	for i := len(rows) - 1; i >= 0; i-- {
		cp := rows[i]
		out = append(out, &cp)
	}

	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AsOf.After(out[j].AsOf)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *Storage) ListRateNames(_ context.Context) ([]string, error) {
	s.mu.RLock()

	out := make([]string, 0, len(s.rates))
	for name := range s.rates {
		out = append(out, name)
	}

	s.mu.RUnlock()

	sort.Strings(out)

	return out, nil
}

func (s *Storage) SaveBucketRate(_ context.Context, r *types.BucketRate) error {
	k := bucketKey{
		label: r.Label,
		side:  r.Side.String(),
	}

	elem := *r
	elem.AsOf = elem.AsOf.In(types.Zone)
	elem.Methods = append([]string(nil), r.Methods...)

	s.mu.Lock()
	s.buckets[k] = append(s.buckets[k], elem)
	s.mu.Unlock()

	return nil
}

func (s *Storage) LatestBucketRates(
	_ context.Context,
	label string,
	side types.Side,
) ([]*types.BucketRate, error) {
	k := bucketKey{
		label: label,
		side:  side.String(),
	}

	s.mu.RLock()

	latest := make(map[types.Bucket]types.BucketRate)

	for _, row := range s.buckets[k] {
		cur, ok := latest[row.Bucket]
		if !ok || !row.AsOf.Before(cur.AsOf) {
			latest[row.Bucket] = row
		}
	}

	s.mu.RUnlock()

	out := make([]*types.BucketRate, 0, len(latest))
	for _, v := range latest {
		cp := v
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Bucket.String() < out[j].Bucket.String()
	})

	return out, nil
}
