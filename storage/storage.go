package storage

import (
	"context"

	"github.com/sig-0/p2prates/storage/types"
)

// Storage is an abstraction over the append-only rate log
type Storage interface {
	// SaveRate appends the given named rate
	SaveRate(context.Context, *types.NamedRate) error

	// LatestRates fetches the latest (limit) rates for the given name,
	// ordered by timestamp descending
	LatestRates(ctx context.Context, name string, limit int) ([]*types.NamedRate, error)

	// ListRateNames lists all rate names present
	ListRateNames(context.Context) ([]string, error)

	// SaveBucketRate appends the given bucket rate
	SaveBucketRate(context.Context, *types.BucketRate) error

	// LatestBucketRates fetches the latest value of every bucket for the given market
	LatestBucketRates(ctx context.Context, label string, side types.Side) ([]*types.BucketRate, error)
}
