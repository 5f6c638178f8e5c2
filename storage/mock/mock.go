package mock

import (
	"context"

	"github.com/sig-0/p2prates/storage/types"
)

type (
	SaveRateDelegate          func(context.Context, *types.NamedRate) error
	LatestRatesDelegate       func(context.Context, string, int) ([]*types.NamedRate, error)
	ListRateNamesDelegate     func(context.Context) ([]string, error)
	SaveBucketRateDelegate    func(context.Context, *types.BucketRate) error
	LatestBucketRatesDelegate func(context.Context, string, types.Side) ([]*types.BucketRate, error)
)

type Storage struct {
	SaveRateFn          SaveRateDelegate
	LatestRatesFn       LatestRatesDelegate
	ListRateNamesFn     ListRateNamesDelegate
	SaveBucketRateFn    SaveBucketRateDelegate
	LatestBucketRatesFn LatestBucketRatesDelegate
}

func (m *Storage) SaveRate(ctx context.Context, rate *types.NamedRate) error {
	if m.SaveRateFn != nil {
		return m.SaveRateFn(ctx, rate)
	}

	return nil
}

func (m *Storage) LatestRates(ctx context.Context, name string, limit int) ([]*types.NamedRate, error) {
	if m.LatestRatesFn != nil {
		return m.LatestRatesFn(ctx, name, limit)
	}

	return nil, nil
}

func (m *Storage) ListRateNames(ctx context.Context) ([]string, error) {
	if m.ListRateNamesFn != nil {
		return m.ListRateNamesFn(ctx)
	}

	return nil, nil
}

func (m *Storage) SaveBucketRate(ctx context.Context, rate *types.BucketRate) error {
	if m.SaveBucketRateFn != nil {
		return m.SaveBucketRateFn(ctx, rate)
	}

	return nil
}

func (m *Storage) LatestBucketRates(
	ctx context.Context,
	label string,
	side types.Side,
) ([]*types.BucketRate, error) {
	if m.LatestBucketRatesFn != nil {
		return m.LatestBucketRatesFn(ctx, label, side)
	}

	return nil, nil
}
