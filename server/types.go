package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/quote"
	"github.com/sig-0/p2prates/storage/types"
)

type RateNamesResponse struct {
	Results []string `json:"results"`
}

type BucketsResponse struct {
	Results []*types.BucketRate `json:"results"`
}

// QuoteResponse is a pair quote, with the converted amount if one was requested
type QuoteResponse struct {
	AsOf        time.Time        `json:"as_of"`
	Name        string           `json:"name"`
	Tier        string           `json:"tier"`
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Rate        decimal.Decimal  `json:"rate"`
	Oriented    bool             `json:"oriented"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Converted   *decimal.Decimal `json:"converted,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newQuoteResponse(q *quote.Quote) *QuoteResponse {
	return &QuoteResponse{
		AsOf:        q.AsOf,
		Name:        q.Name,
		Tier:        q.Tier.String(),
		Origin:      q.Pair.Origin,
		Destination: q.Pair.Destination,
		Rate:        q.Rate,
		Oriented:    q.Oriented,
	}
}

func newConversionResponse(c *quote.Conversion) *QuoteResponse {
	resp := newQuoteResponse(&c.Quote)

	resp.Amount = &c.Amount
	resp.Converted = &c.Converted

	return resp
}
