package engine

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"

	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage/types"
)

const pairSeparator = " - "

var (
	errInvalidPair         = errors.New("invalid pair")
	errUnknownMethod       = errors.New("unknown method rule")
	errDuplicateMarket     = errors.New("duplicate market")
	errInvalidSelection    = errors.New("invalid selection")
	errInvalidTablesConfig = errors.New("invalid tables configuration")
)

// Pair is an ordered (origin, destination) country pair
type Pair struct {
	Origin      string
	Destination string
}

// String returns the "{origin} - {destination}" form used in rate names
func (p Pair) String() string {
	return p.Origin + pairSeparator + p.Destination
}

// ParsePair parses the "{origin} - {destination}" form
func ParsePair(s string) (Pair, error) {
	origin, destination, ok := strings.Cut(s, pairSeparator)
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q", errInvalidPair, s)
	}

	p := Pair{
		Origin:      strings.TrimSpace(origin),
		Destination: strings.TrimSpace(destination),
	}

	if p.Origin == "" || p.Destination == "" {
		return Pair{}, fmt.Errorf("%w: %q", errInvalidPair, s)
	}

	return p, nil
}

// Margin is the pair markup, as fractions of the full rate
type Margin struct {
	Public    float64 `toml:"public" validate:"gte=0,lt=1"`
	Wholesale float64 `toml:"wholesale" validate:"gte=0,lt=1"`
}

// Override pins the rate derivation for a destination
type Override struct {
	Decimals int `toml:"decimals" validate:"gte=0,lte=12"`
}

// Buckets configures the supplementary per-market bucket rates
type Buckets struct {
	PublicAmount    float64 `toml:"public_amount" validate:"gt=0"`
	WholesaleAmount float64 `toml:"wholesale_amount" validate:"gtfield=PublicAmount"`
	TopK            int     `toml:"top_k" validate:"gte=1"`
}

// Market is a single (country, fiat, side) collection unit
type Market struct {
	Label     string     `toml:"label" validate:"required"`
	Fiat      string     `toml:"fiat" validate:"required,uppercase,len=3"`
	Side      types.Side `toml:"side" validate:"oneof=BUY SELL"`
	Countries []string   `toml:"countries"`

	// Method is the key of the method rule in Tables.Methods, if any
	Method string `toml:"method"`

	Selection Selection `toml:"selection"`

	// MaxPages caps the pages read per collection stage
	MaxPages int `toml:"max_pages" validate:"gte=0"`

	MerchantsOnly   bool `toml:"merchants_only"`
	UniqueMerchants bool `toml:"unique_merchants"`

	// TradeSize is the USDT volume used to derive an amount filter
	// from a first selection pass. Zero disables it
	TradeSize float64 `toml:"trade_size" validate:"gte=0"`
}

// Tables is the complete business configuration of the engine
type Tables struct {
	Markets []Market                   `validate:"required,dive"`
	Methods map[string]*p2p.MethodRule

	// Margins holds the pair specific markups
	Margins map[Pair]Margin `validate:"dive"`

	// OriginMargins holds the default markup of an origin
	OriginMargins map[string]Margin `validate:"dive"`

	DefaultMargin Margin

	// Orientation holds the pairs whose full rate is buy / sell,
	// with the margins added
	Orientation map[Pair]struct{}

	// Overrides is evaluated before the orientation set,
	// keyed by destination label
	Overrides map[string]Override `validate:"dive"`

	// PairDecimals holds the base precision of specific pairs
	PairDecimals    map[Pair]int `validate:"dive,gte=0,lte=12"`
	DefaultDecimals int          `validate:"gte=0,lte=12"`

	// Buckets enables the per-market bucket rates, if set
	Buckets *Buckets

	// EarlyStop is the collection depth of the extremum selections
	EarlyStop int `validate:"gte=1"`
}

// Validate validates the tables
func (t *Tables) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(t); err != nil {
		return fmt.Errorf("%w: %w", errInvalidTablesConfig, err)
	}

	for key, rule := range t.Methods {
		if rule == nil {
			return fmt.Errorf("%w: %q is empty", errUnknownMethod, key)
		}

		if err := v.Struct(rule); err != nil {
			return fmt.Errorf("%w: method %q: %w", errInvalidTablesConfig, key, err)
		}
	}

	seen := make(map[string]struct{}, len(t.Markets))

	for _, m := range t.Markets {
		key := m.Label + "|" + m.Side.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s %s", errDuplicateMarket, m.Label, m.Side)
		}

		seen[key] = struct{}{}

		if m.Method != "" {
			if _, ok := t.Methods[m.Method]; !ok {
				return fmt.Errorf("%w: %q (market %s)", errUnknownMethod, m.Method, m.Label)
			}
		}

		if err := m.Selection.validate(); err != nil {
			return fmt.Errorf("market %s %s: %w", m.Label, m.Side, err)
		}
	}

	return nil
}

// MarginFor returns the pair margin, falling back to the origin default,
// then to the global default
func (t *Tables) MarginFor(p Pair) Margin {
	if m, ok := t.Margins[p]; ok {
		return m
	}

	if m, ok := t.OriginMargins[p.Origin]; ok {
		return m
	}

	return t.DefaultMargin
}

// Oriented reports whether the pair is in the orientation set
func (t *Tables) Oriented(p Pair) bool {
	_, ok := t.Orientation[p]

	return ok
}

// BaseDecimals returns the configured base precision of the pair
func (t *Tables) BaseDecimals(p Pair) int {
	if d, ok := t.PairDecimals[p]; ok {
		return d
	}

	return t.DefaultDecimals
}

// MarketsBySide returns the markets of the given side, in configuration order
func (t *Tables) MarketsBySide(side types.Side) []Market {
	out := make([]Market, 0, len(t.Markets))

	for _, m := range t.Markets {
		if m.Side == side {
			out = append(out, m)
		}
	}

	return out
}

// tablesFile is the TOML layout of the tables.
// Pairs are written in their "{origin} - {destination}" form
type tablesFile struct {
	Markets         []Market                   `toml:"markets"`
	Methods         map[string]*p2p.MethodRule `toml:"methods"`
	Margins         map[string]Margin          `toml:"margins"`
	OriginMargins   map[string]Margin          `toml:"origin_margins"`
	DefaultMargin   *Margin                    `toml:"default_margin"`
	Orientation     []string                   `toml:"orientation"`
	Overrides       map[string]Override        `toml:"overrides"`
	PairDecimals    map[string]int             `toml:"pair_decimals"`
	DefaultDecimals *int                       `toml:"default_decimals"`
	Buckets         *Buckets                   `toml:"buckets"`
	DisableBuckets  bool                       `toml:"disable_buckets"`
	EarlyStop       int                        `toml:"early_stop"`
}

// ReadTables reads the TOML tables at the given path on top of DefaultTables.
// Markets and the orientation set are replaced when present,
// keyed tables are merged entry by entry
func ReadTables(path string) (*Tables, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read tables: %w", err)
	}

	return ParseTables(content)
}

// ParseTables parses the TOML tables on top of DefaultTables
func ParseTables(content []byte) (*Tables, error) {
	var file tablesFile

	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("unable to parse tables: %w", err)
	}

	t := DefaultTables()

	if len(file.Markets) > 0 {
		t.Markets = file.Markets
	}

	for key, rule := range file.Methods {
		t.Methods[key] = rule
	}

	for raw, margin := range file.Margins {
		p, err := ParsePair(raw)
		if err != nil {
			return nil, err
		}

		t.Margins[p] = margin
	}

	for origin, margin := range file.OriginMargins {
		t.OriginMargins[origin] = margin
	}

	if file.DefaultMargin != nil {
		t.DefaultMargin = *file.DefaultMargin
	}

	if file.Orientation != nil {
		t.Orientation = make(map[Pair]struct{}, len(file.Orientation))

		for _, raw := range file.Orientation {
			p, err := ParsePair(raw)
			if err != nil {
				return nil, err
			}

			t.Orientation[p] = struct{}{}
		}
	}

	for destination, override := range file.Overrides {
		t.Overrides[destination] = override
	}

	for raw, decimals := range file.PairDecimals {
		p, err := ParsePair(raw)
		if err != nil {
			return nil, err
		}

		t.PairDecimals[p] = decimals
	}

	if file.DefaultDecimals != nil {
		t.DefaultDecimals = *file.DefaultDecimals
	}

	switch {
	case file.DisableBuckets:
		t.Buckets = nil
	case file.Buckets != nil:
		t.Buckets = file.Buckets
	}

	if file.EarlyStop > 0 {
		t.EarlyStop = file.EarlyStop
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}
