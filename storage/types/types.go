package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Zone is the fixed UTC-4 offset every persisted timestamp is expressed in
var Zone = time.FixedZone("UTC-4", -4*60*60)

// Side is the P2P trade side, from the operator's point of view
type Side string

const (
	SideBUY  Side = "BUY"  // the operator acquires USDT
	SideSELL Side = "SELL" // the operator disposes of USDT
)

func (s Side) String() string {
	return string(s)
}

// Bucket is a per-market amount bucket
type Bucket string

const (
	BucketFull      Bucket = "FULL"
	BucketPublic    Bucket = "PUBLICO"
	BucketWholesale Bucket = "MAYORISTA"
	BucketAverage   Bucket = "PROMEDIO"
)

func (b Bucket) String() string {
	return string(b)
}

// NamedRate is a single appended, timestamped rate value
type NamedRate struct {
	AsOf  time.Time       `json:"as_of"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// BucketRate is a single appended per-market bucket value,
// alongside the offer metadata it was derived from
type BucketRate struct {
	AsOf    time.Time       `json:"as_of"`
	Label   string          `json:"label"`
	Fiat    string          `json:"fiat"`
	Side    Side            `json:"side"`
	Bucket  Bucket          `json:"bucket"`
	Seller  string          `json:"seller"`
	Methods []string        `json:"methods"`
	Value   decimal.Decimal `json:"value"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}
