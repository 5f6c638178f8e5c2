package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/types"
)

// averageWindow is the number of latest rows averaged
const averageWindow = 2

// AverageTracker publishes the rolling average of named rates
type AverageTracker struct {
	storage storage.Storage
	now     func() time.Time
}

// NewAverageTracker creates a new average tracker on top of the storage
func NewAverageTracker(s storage.Storage, now func() time.Time) *AverageTracker {
	if now == nil {
		now = Now
	}

	return &AverageTracker{
		storage: s,
		now:     now,
	}
}

// Update averages the two latest rows of name and appends the mean
// under averageName, rounded to the given decimals.
// Fewer than two rows yield (0, false, nil)
func (a *AverageTracker) Update(
	ctx context.Context,
	name, averageName string,
	decimals int,
) (float64, bool, error) {
	rows, err := a.storage.LatestRates(ctx, name, averageWindow)
	if err != nil {
		return 0, false, fmt.Errorf("unable to fetch latest rates: %w", err)
	}

	if len(rows) < averageWindow {
		return 0, false, nil
	}

	sum := decimal.Zero
	for _, row := range rows[:averageWindow] {
		sum = sum.Add(row.Value)
	}

	mean := sum.Div(decimal.NewFromInt(averageWindow)).Round(int32(decimals))

	if err := a.storage.SaveRate(ctx, &types.NamedRate{
		AsOf:  a.now(),
		Name:  averageName,
		Value: mean,
	}); err != nil {
		return 0, false, fmt.Errorf("unable to save average rate: %w", err)
	}

	return mean.InexactFloat64(), true, nil
}
