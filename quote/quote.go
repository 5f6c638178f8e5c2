package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/types"
)

const (
	amountDecimals = 2

	// maxHistory caps a single history lookup
	maxHistory = 500
)

var (
	// ErrRateUnavailable is returned when no row exists for the requested rate
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrInvalidAmount is returned for non-positive conversion amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPair is returned when the origin and destination are the same
	ErrInvalidPair = errors.New("invalid pair")
)

// Quote is the latest published rate of a pair tier
type Quote struct {
	AsOf     time.Time       `json:"as_of"`
	Pair     engine.Pair     `json:"-"`
	Name     string          `json:"name"`
	Tier     engine.Tier     `json:"tier"`
	Rate     decimal.Decimal `json:"rate"`
	Oriented bool            `json:"oriented"`
}

// Conversion is an amount converted at a quote
type Conversion struct {
	Quote

	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted"`
}

// Service answers rate lookups out of the published named rates
type Service struct {
	storage storage.Storage
	tables  *engine.Tables
}

// NewService creates a new quote service. The tables decide
// the conversion direction of every pair
func NewService(s storage.Storage, tables *engine.Tables) *Service {
	if tables == nil {
		tables = engine.DefaultTables()
	}

	return &Service{
		storage: s,
		tables:  tables,
	}
}

// Rate fetches the latest value of the named rate
func (s *Service) Rate(ctx context.Context, name string) (*types.NamedRate, error) {
	rows, err := s.storage.LatestRates(ctx, name, 1)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rate %s: %w", name, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, name)
	}

	return rows[0], nil
}

// History fetches the latest (limit) values of the named rate, newest first
func (s *Service) History(ctx context.Context, name string, limit int) ([]*types.NamedRate, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}

	rows, err := s.storage.LatestRates(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rate history %s: %w", name, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, name)
	}

	return rows, nil
}

// Names lists the names of every published rate
func (s *Service) Names(ctx context.Context) ([]string, error) {
	names, err := s.storage.ListRateNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list rate names: %w", err)
	}

	return names, nil
}

// PairQuote fetches the latest rate of the pair tier
func (s *Service) PairQuote(ctx context.Context, origin, destination string, tier engine.Tier) (*Quote, error) {
	if origin == destination {
		return nil, fmt.Errorf("%w: %s - %s", ErrInvalidPair, origin, destination)
	}

	var (
		pair = engine.Pair{Origin: origin, Destination: destination}
		name = engine.PairRateName(tier, pair)
	)

	row, err := s.Rate(ctx, name)
	if err != nil {
		return nil, err
	}

	return &Quote{
		AsOf:     row.AsOf,
		Pair:     pair,
		Name:     name,
		Tier:     tier,
		Rate:     row.Value,
		Oriented: s.tables.Oriented(pair),
	}, nil
}

// Convert converts an origin amount into the destination currency.
// Oriented pairs are quoted as origin per destination unit and divide,
// every other pair multiplies
func (s *Service) Convert(
	ctx context.Context,
	origin, destination string,
	tier engine.Tier,
	amount decimal.Decimal,
) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	q, err := s.PairQuote(ctx, origin, destination, tier)
	if err != nil {
		return nil, err
	}

	if !q.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, q.Name)
	}

	converted := amount.Mul(q.Rate)
	if q.Oriented {
		converted = amount.Div(q.Rate)
	}

	return &Conversion{
		Quote:     *q,
		Amount:    amount,
		Converted: converted.Round(amountDecimals),
	}, nil
}

// ToUSDT converts a local amount into USDT at the country SELL base price
func (s *Service) ToUSDT(ctx context.Context, country string, amount decimal.Decimal) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	name := engine.BaseRateName(country, types.SideSELL)

	row, err := s.Rate(ctx, name)
	if err != nil {
		return nil, err
	}

	if !row.Value.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, name)
	}

	return &Conversion{
		Quote: Quote{
			AsOf:     row.AsOf,
			Pair:     engine.Pair{Origin: country, Destination: "USDT"},
			Name:     name,
			Tier:     engine.TierFull,
			Rate:     row.Value,
			Oriented: true,
		},
		Amount:    amount,
		Converted: amount.Div(row.Value).Round(amountDecimals),
	}, nil
}

// Buckets fetches the latest bucket rates of a market
func (s *Service) Buckets(ctx context.Context, label string, side types.Side) ([]*types.BucketRate, error) {
	rows, err := s.storage.LatestBucketRates(ctx, label, side)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch bucket rates: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrRateUnavailable, label, side)
	}

	return rows, nil
}
