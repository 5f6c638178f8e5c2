package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair_ComputePair(t *testing.T) {
	t.Parallel()

	tables := DefaultTables()

	t.Run("same origin and destination", func(t *testing.T) {
		t.Parallel()

		_, ok := ComputePair(tables, "Chile", "Chile", BasePrice{Price: 950}, BasePrice{Price: 950})

		assert.False(t, ok)
	})

	t.Run("default orientation and margin", func(t *testing.T) {
		t.Parallel()

		rates, ok := ComputePair(
			tables,
			"Venezuela",
			"Chile",
			BasePrice{Price: 300.5},
			BasePrice{Price: 950},
		)
		require.True(t, ok)

		assert.False(t, rates.Oriented)
		assert.InDelta(t, 950/300.5, rates.Full, 1e-12)
		assert.InDelta(t, 3.1614, rates.Full, 1e-4)
		assert.InDelta(t, 2.9401, rates.Public, 1e-4)
		assert.InDelta(t, 3.0350, rates.Wholesale, 1e-4)
		assert.Equal(t, 4, rates.Decimals)
		assert.Equal(t, "Venezuela - Chile", rates.Pair.String())
	})

	t.Run("oriented pair", func(t *testing.T) {
		t.Parallel()

		rates, ok := ComputePair(
			tables,
			"Chile",
			"USA",
			BasePrice{Price: 960},
			BasePrice{Price: 1.02},
		)
		require.True(t, ok)

		assert.True(t, rates.Oriented)
		assert.InDelta(t, 960/1.02, rates.Full, 1e-9)
		assert.InDelta(t, rates.Full*1.10, rates.Public, 1e-9)
		assert.InDelta(t, rates.Full*1.07, rates.Wholesale, 1e-9)

		// Magnitude precision is 3, the base precision wins
		assert.Equal(t, 4, rates.Decimals)
	})

	t.Run("margin sign invariant", func(t *testing.T) {
		t.Parallel()

		var (
			buy  = BasePrice{Price: 4000}
			sell = BasePrice{Price: 290}
		)

		for _, p := range []Pair{
			{"Colombia", "Venezuela"}, // oriented
			{"Colombia", "Argentina"},
			{"México", "Chile"},
		} {
			rates, ok := ComputePair(tables, p.Origin, p.Destination, buy, sell)
			require.True(t, ok)

			if tables.Oriented(p) {
				assert.InDelta(t, buy.Price/sell.Price, rates.Full, 1e-9)
				assert.Greater(t, rates.Public, rates.Full)
				assert.Greater(t, rates.Wholesale, rates.Full)

				continue
			}

			assert.InDelta(t, sell.Price/buy.Price, rates.Full, 1e-9)
			assert.Less(t, rates.Public, rates.Full)
			assert.Less(t, rates.Wholesale, rates.Full)
		}
	})

	t.Run("margin fallbacks", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, Margin{Public: 0.055, Wholesale: 0.04}, tables.MarginFor(Pair{"Chile", "Venezuela"}))
		assert.Equal(t, Margin{Public: 0.07, Wholesale: 0.10}, tables.MarginFor(Pair{"México", "Chile"}))
		assert.Equal(t, Margin{Public: 0.07, Wholesale: 0.04}, tables.MarginFor(Pair{"Perú", "Chile"}))
	})

	t.Run("pair base precision", func(t *testing.T) {
		t.Parallel()

		rates, ok := ComputePair(
			tables,
			"Chile",
			"Ecuador",
			BasePrice{Price: 10},
			BasePrice{Price: 50},
		)
		require.True(t, ok)

		assert.Equal(t, 5, rates.Decimals)

		// Small rates widen past the base precision
		rates, ok = ComputePair(
			tables,
			"Chile",
			"Ecuador",
			BasePrice{Price: 960},
			BasePrice{Price: 1.01},
		)
		require.True(t, ok)

		assert.Equal(t, 6, rates.Decimals)
	})

	t.Run("destination override", func(t *testing.T) {
		t.Parallel()

		overridden := DefaultTables()
		overridden.Overrides["Venezuela"] = Override{Decimals: 2}

		// Colombia - Venezuela is oriented, the override still wins
		rates, ok := ComputePair(
			overridden,
			"Colombia",
			"Venezuela",
			BasePrice{Price: 4000},
			BasePrice{Price: 290},
		)
		require.True(t, ok)

		assert.False(t, rates.Oriented)
		assert.InDelta(t, 4000.0/290, rates.Full, 1e-9)
		assert.InDelta(t, rates.Full*0.94, rates.Public, 1e-9)
		assert.InDelta(t, rates.Full*0.96, rates.Wholesale, 1e-9)
		assert.Equal(t, 2, rates.Decimals)
	})
}

func TestPair_MagnitudeDecimals(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		value    float64
		expected int
	}{
		{0.00005, 8},
		{0.0001, 6},
		{0.005, 6},
		{0.01, 5},
		{0.5, 5},
		{1, 4},
		{3.1614, 4},
		{99.99, 4},
		{100, 3},
		{999, 3},
		{1000, 2},
		{35000, 2},
		{-0.5, 5},
	}

	for _, testCase := range testTable {
		assert.Equal(t, testCase.expected, MagnitudeDecimals(testCase.value), testCase.value)
	}

	t.Run("non-decreasing as the value shrinks", func(t *testing.T) {
		t.Parallel()

		previous := 0

		for v := 5000.0; v > 1e-7; v /= 3 {
			d := MagnitudeDecimals(v)

			assert.GreaterOrEqual(t, d, previous)

			previous = d
		}
	})

	t.Run("never below the base precision", func(t *testing.T) {
		t.Parallel()

		tables := DefaultTables()

		rates, ok := ComputePair(
			tables,
			"Chile",
			"Brasil",
			BasePrice{Price: 1},
			BasePrice{Price: 5.5},
		)
		require.True(t, ok)

		assert.Equal(t, 5, rates.Decimals)
	})
}
