package engine

import (
	"fmt"

	"github.com/sig-0/p2prates/storage/types"
)

// BaseDecimals is the precision of the persisted base prices
const BaseDecimals = 4

// Tier is a published pair rate tier
type Tier string

const (
	TierFull      Tier = "full"
	TierPublic    Tier = "público"
	TierWholesale Tier = "mayorista"
)

// Tiers lists the tiers in publishing order
var Tiers = []Tier{TierFull, TierPublic, TierWholesale}

func (t Tier) String() string {
	return string(t)
}

// ParseTier parses a tier, accepting the unaccented spelling of "público"
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "full":
		return TierFull, true
	case "público", "publico":
		return TierPublic, true
	case "mayorista":
		return TierWholesale, true
	default:
		return "", false
	}
}

// Value returns the tier value of the pair rates
func (r PairRates) Value(tier Tier) float64 {
	switch tier {
	case TierPublic:
		return r.Public
	case TierWholesale:
		return r.Wholesale
	default:
		return r.Full
	}
}

// PairRateName returns the name of a pair rate, e.g. "Tasa público Chile - Venezuela"
func PairRateName(tier Tier, p Pair) string {
	return fmt.Sprintf("Tasa %s %s", tier, p)
}

// AverageRateName returns the name of a pair rate average,
// e.g. "Tasa público promedio Chile - Venezuela"
func AverageRateName(tier Tier, p Pair) string {
	return fmt.Sprintf("Tasa %s promedio %s", tier, p)
}

// BaseRateName returns the name of a market base price,
// "USDT en {label}" for BUY and "USDT en {label} (venta)" for SELL
func BaseRateName(label string, side types.Side) string {
	if side == types.SideSELL {
		return fmt.Sprintf("USDT en %s (venta)", label)
	}

	return "USDT en " + label
}
