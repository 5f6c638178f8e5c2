package p2p

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sig-0/p2prates/storage/types"
)

const defaultMaxPages = 3

// Request is a single market collection request
type Request struct {
	Method    *MethodRule // nil accepts every method
	Amount    *float64    // nil accepts every limit
	Asset     string
	Fiat      string
	Side      types.Side
	Countries []string

	// Want is the number of accepted offers after which paging stops.
	// Zero or less pages until exhaustion or MaxPages
	Want int

	// MaxPages caps the pages read per stage. Defaults to 3
	MaxPages int

	MerchantsOnly   bool
	UniqueMerchants bool
}

// Collector pages through the order book until enough offers pass the filters
type Collector struct {
	fetcher Fetcher
	logger  *slog.Logger
	rows    int
}

// NewCollector creates a new collector on top of the given fetcher
func NewCollector(fetcher Fetcher, opts ...CollectorOption) *Collector {
	c := &Collector{
		fetcher: fetcher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		rows:    defaultRows,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// collection is the accumulated state of one Collect call
type collection struct {
	req     Request
	seenAds map[string]struct{}
	offers  []Offer

	// firstSeen is set for unique merchant requests
	firstSeen func(Offer) bool
}

func (c *collection) full() bool {
	return c.req.Want > 0 && len(c.offers) >= c.req.Want
}

// accept runs the filters on the raw record and keeps it if it passes
func (c *collection) accept(raw RawOffer, matchMethod bool) {
	offer, ok := Normalize(raw, c.req.Side)
	if !ok {
		return
	}

	if matchMethod && !MethodMatches(offer, c.req.Method) {
		return
	}

	if !AmountInRange(offer, c.req.Amount) {
		return
	}

	if c.req.MerchantsOnly && !IsEligibleMerchant(offer) {
		return
	}

	adKey := offer.AdvNo
	if adKey == "" {
		adKey = fmt.Sprintf("%v|%s", offer.Price, offer.Seller)
	}

	if _, seen := c.seenAds[adKey]; seen {
		return
	}

	if c.firstSeen != nil && !c.firstSeen(offer) {
		return
	}

	c.seenAds[adKey] = struct{}{}
	c.offers = append(c.offers, offer)
}

// Collect gathers the offers of a single market, in upstream order.
// Fetch failures are logged and end the current stage
func (c *Collector) Collect(ctx context.Context, req Request) []Offer {
	state := &collection{
		req:     req,
		seenAds: make(map[string]struct{}),
		offers:  make([]Offer, 0, max(req.Want, 0)),
	}

	if req.UniqueMerchants {
		state.firstSeen = firstOfCounterparty()
	}

	// Local method matching over the market countries
	c.stage(ctx, state, req.Countries, nil, true)

	if state.full() || req.Method == nil || len(req.Method.PayTypes) == 0 {
		return state.offers
	}

	// Upstream pay type filter, market countries first, then global
	c.stage(ctx, state, req.Countries, req.Method.PayTypes, false)

	if !state.full() && len(req.Countries) > 0 {
		c.stage(ctx, state, nil, req.Method.PayTypes, false)
	}

	return state.offers
}

// stage pages through a single (countries, pay types) view of the book
func (c *Collector) stage(
	ctx context.Context,
	state *collection,
	countries []string,
	payTypes []string,
	matchMethod bool,
) {
	maxPages := state.req.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	for page := 1; page <= maxPages && !state.full(); page++ {
		q := PageQuery{
			Asset:     state.req.Asset,
			Fiat:      state.req.Fiat,
			Side:      state.req.Side,
			Countries: countries,
			PayTypes:  payTypes,
			Page:      page,
			Rows:      c.rows,
		}

		raws, err := c.fetcher.FetchPage(ctx, q)
		if err != nil {
			c.logger.Warn(
				"unable to fetch order book page",
				"fiat", q.Fiat,
				"side", q.Side,
				"page", page,
				"err", err,
			)

			return
		}

		if len(raws) == 0 {
			return
		}

		for _, raw := range raws {
			if state.full() {
				return
			}

			state.accept(raw, matchMethod)
		}
	}
}
