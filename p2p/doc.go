// Package p2p collects USDT offers from the Binance P2P order book.
//
// # Fetching
//
// API: https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search
//
// Client issues one search request per page for an
// (asset, fiat, side, countries, pay types) tuple and returns the raw records.
// Requests are paced by a token bucket limiter. There are no retries at this
// layer, an empty page means the book is exhausted.
//
// Cache wraps a fetcher for the duration of a single run, so identical page
// requests issued by different markets only hit the network once.
//
// # Filtering
//
// Normalize turns a raw record into an Offer, dropping records with an
// unusable price. Offers are then matched against a declarative MethodRule
// (aliases, free-text keywords and the generic bank transfer fallback),
// an optional fiat amount, merchant eligibility and counterparty uniqueness.
//
// # Collecting
//
// Collector pages through the book until enough offers pass the filters:
//   - Market countries, local method matching
//   - Market countries, upstream pay type filter (if the rule declares pay types)
//   - Global, upstream pay type filter
//
// Offers are deduplicated by ad number across stages.
package p2p
