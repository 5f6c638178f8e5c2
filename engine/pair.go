package engine

import "math"

// PairRates are the derived rates of a single pair
type PairRates struct {
	Pair      Pair
	Full      float64
	Public    float64
	Wholesale float64
	Decimals  int
	Oriented  bool // full = buy / sell, margins added
}

// ComputePair derives the full, public and wholesale rates of the pair
// out of the origin BUY base and the destination SELL base.
// Identical origin and destination yield (PairRates{}, false)
func ComputePair(
	tables *Tables,
	origin, destination string,
	buy, sell BasePrice,
) (PairRates, bool) {
	if origin == destination || buy.Price <= 0 || sell.Price <= 0 {
		return PairRates{}, false
	}

	var (
		pair   = Pair{Origin: origin, Destination: destination}
		margin = tables.MarginFor(pair)
	)

	// Destination overrides take precedence over the orientation set
	if override, ok := tables.Overrides[destination]; ok {
		full := buy.Price / sell.Price

		return PairRates{
			Pair:      pair,
			Full:      full,
			Public:    full * (1 - margin.Public),
			Wholesale: full * (1 - margin.Wholesale),
			Decimals:  override.Decimals,
		}, true
	}

	rates := PairRates{
		Pair:     pair,
		Oriented: tables.Oriented(pair),
	}

	if rates.Oriented {
		rates.Full = buy.Price / sell.Price
		rates.Public = rates.Full * (1 + margin.Public)
		rates.Wholesale = rates.Full * (1 + margin.Wholesale)
	} else {
		rates.Full = sell.Price / buy.Price
		rates.Public = rates.Full * (1 - margin.Public)
		rates.Wholesale = rates.Full * (1 - margin.Wholesale)
	}

	rates.Decimals = max(tables.BaseDecimals(pair), MagnitudeDecimals(rates.Full))

	return rates, true
}

// MagnitudeDecimals returns the precision needed to keep
// the significant digits of the value
func MagnitudeDecimals(value float64) int {
	v := math.Abs(value)

	switch {
	case v < 0.0001:
		return 8
	case v < 0.01:
		return 6
	case v < 1:
		return 5
	case v < 100:
		return 4
	case v < 1000:
		return 3
	default:
		return 2
	}
}
