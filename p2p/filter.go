package p2p

import (
	"strings"

	"github.com/samber/lo"
)

// unrecognizedKYCTiers are KYC tier values that carry no verification
var unrecognizedKYCTiers = map[string]struct{}{
	"":     {},
	"0":    {},
	"none": {},
	"null": {},
}

// AmountInRange reports whether the offer accepts the given fiat amount.
// A nil amount is always accepted
func AmountInRange(offer Offer, amount *float64) bool {
	if amount == nil {
		return true
	}

	return offer.MinAmount <= *amount && *amount <= offer.MaxAmount
}

// RangeOverlaps reports whether the offer limits overlap the requested
// [minAmount, maxAmount] range. Nil bounds are open
func RangeOverlaps(offer Offer, minAmount, maxAmount *float64) bool {
	if minAmount != nil && offer.MaxAmount < *minAmount {
		return false
	}

	if maxAmount != nil && offer.MinAmount > *maxAmount {
		return false
	}

	return true
}

// IsEligibleMerchant reports whether the counterparty shows any
// merchant or verification evidence. The check is permissive
func IsEligibleMerchant(offer Offer) bool {
	flags := offer.Merchant

	if strings.EqualFold(strings.TrimSpace(flags.UserType), "merchant") {
		return true
	}

	if strings.Contains(strings.ToUpper(flags.Identity), "MERCHANT") {
		return true
	}

	if flags.Grade >= 2 || flags.Certified {
		return true
	}

	_, unrecognized := unrecognizedKYCTiers[strings.ToLower(strings.TrimSpace(flags.KYCTier))]

	return !unrecognized
}

// CounterpartyKey returns the identity used to deduplicate counterparties
func CounterpartyKey(offer Offer) string {
	if offer.SellerID != "" {
		return "id:" + offer.SellerID
	}

	return "name:" + strings.ToLower(strings.TrimSpace(offer.Seller))
}

// DedupeByCounterparty keeps the first offer of every counterparty
func DedupeByCounterparty(offers []Offer) []Offer {
	firstSeen := firstOfCounterparty()

	return lo.Filter(offers, func(offer Offer, _ int) bool {
		return firstSeen(offer)
	})
}

// firstOfCounterparty returns a predicate that accepts only the first offer
// of every counterparty it is called with
func firstOfCounterparty() func(Offer) bool {
	seen := make(map[string]struct{})

	return func(offer Offer) bool {
		key := CounterpartyKey(offer)
		if _, ok := seen[key]; ok {
			return false
		}

		seen[key] = struct{}{}

		return true
	}
}
