package engine

import (
	"fmt"
	"slices"
	"sort"

	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage/types"
)

const defaultDepth = 20

// SelectionMode is the rule picking the base offer of a market
type SelectionMode string

const (
	SelectRank        SelectionMode = "rank"          // k-th cheapest
	SelectMin         SelectionMode = "min"           // cheapest
	SelectMax         SelectionMode = "max"           // most expensive
	SelectMaxOfTop    SelectionMode = "max_of_top"    // most expensive of the K cheapest
	SelectMedianOfTop SelectionMode = "median_of_top" // median of the K best for the side
)

// Selection is a market selection rule
type Selection struct {
	Mode SelectionMode `toml:"mode" validate:"oneof=rank min max max_of_top median_of_top"`
	Rank int           `toml:"rank" validate:"gte=0"`
	TopK int           `toml:"top_k" validate:"gte=0"`
}

// RankSelection selects the k-th cheapest offer
func RankSelection(k int) Selection {
	return Selection{Mode: SelectRank, Rank: k}
}

func (s Selection) validate() error {
	switch s.Mode {
	case SelectRank:
		if s.Rank < 1 {
			return fmt.Errorf("%w: rank must be at least 1", errInvalidSelection)
		}
	case SelectMaxOfTop, SelectMedianOfTop:
		if s.TopK < 1 {
			return fmt.Errorf("%w: top_k must be at least 1", errInvalidSelection)
		}
	case SelectMin, SelectMax:
	default:
		return fmt.Errorf("%w: unknown mode %q", errInvalidSelection, s.Mode)
	}

	return nil
}

// Depth returns the number of offers the collector should gather
// for the selection to be meaningful
func (s Selection) Depth(earlyStop int) int {
	switch s.Mode {
	case SelectRank:
		return s.Rank
	case SelectMaxOfTop, SelectMedianOfTop:
		return s.TopK
	case SelectMin, SelectMax:
		if earlyStop > 0 {
			return earlyStop
		}
	}

	return defaultDepth
}

// BasePrice is the selected representative price of a market
type BasePrice struct {
	Label    string
	Fiat     string
	Side     types.Side
	Price    float64
	Seller   string
	SellerID string
	Methods  []string
	AdvNo    string
}

// SelectBase picks the base offer out of the filtered offers.
// Absence of offers yields (nil, false)
func SelectBase(offers []p2p.Offer, side types.Side, sel Selection) (*BasePrice, bool) {
	if len(offers) == 0 {
		return nil, false
	}

	var (
		ascending = sortedByPrice(offers, true)

		chosen p2p.Offer
		price  float64
	)

	switch sel.Mode {
	case SelectRank:
		// Fewer offers than the rank falls back to the last one
		idx := min(max(sel.Rank, 1), len(ascending)) - 1

		chosen, price = ascending[idx], ascending[idx].Price
	case SelectMin:
		chosen, price = ascending[0], ascending[0].Price
	case SelectMax:
		last := ascending[len(ascending)-1]

		chosen, price = last, last.Price
	case SelectMaxOfTop:
		window := ascending[:min(max(sel.TopK, 1), len(ascending))]
		last := window[len(window)-1]

		chosen, price = last, last.Price
	case SelectMedianOfTop:
		ordered := ascending
		if side == types.SideSELL {
			ordered = sortedByPrice(offers, false)
		}

		window := ordered[:min(max(sel.TopK, 1), len(ordered))]

		chosen, price = window[len(window)/2], medianPrice(window)
	default:
		return nil, false
	}

	return &BasePrice{
		Side:     side,
		Price:    price,
		Seller:   chosen.Seller,
		SellerID: chosen.SellerID,
		Methods:  slices.Clone(chosen.Methods),
		AdvNo:    chosen.AdvNo,
	}, true
}

// sortedByPrice returns a stably sorted copy of the offers
func sortedByPrice(offers []p2p.Offer, ascending bool) []p2p.Offer {
	out := slices.Clone(offers)

	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Price < out[j].Price
		}

		return out[i].Price > out[j].Price
	})

	return out
}

// medianPrice returns the median price of the offers
func medianPrice(offers []p2p.Offer) float64 {
	prices := make([]float64, 0, len(offers))
	for _, o := range offers {
		prices = append(prices, o.Price)
	}

	slices.Sort(prices)

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}

	return (prices[n/2-1] + prices[n/2]) / 2
}
