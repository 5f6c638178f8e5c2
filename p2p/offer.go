package p2p

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sig-0/p2prates/storage/types"
)

const (
	adURLPrefix      = "https://p2p.binance.com/es/advertiseDetail?advertiseNo="
	profileURLPrefix = "https://p2p.binance.com/es/advertiserDetail?advertiserNo="
)

// MerchantFlags are the counterparty verification indicators
type MerchantFlags struct {
	UserType  string
	Identity  string
	KYCTier   string
	Grade     int
	Certified bool
}

// Offer is a single normalized order book advertisement
type Offer struct {
	AdvNo    string
	SellerID string
	Seller   string
	Side     types.Side

	// Methods are the display labels of the declared payment methods
	Methods []string

	// MethodIDs are the upstream identifiers and short names
	// of the declared payment methods
	MethodIDs []string

	// Remarks is the case-folded free text of the ad and the nickname
	Remarks string

	Merchant MerchantFlags

	Price     float64
	MinAmount float64
	MaxAmount float64 // +Inf when absent
}

// Normalize converts the raw record into an offer.
// Records with an empty, unparsable or non-positive price are dropped
func Normalize(raw RawOffer, side types.Side) (Offer, bool) {
	price, ok := parsePrice(raw.Adv.Price)
	if !ok {
		return Offer{}, false
	}

	minAmount, ok := parsePrice(raw.Adv.MinSingleTransAmount)
	if !ok {
		minAmount = 0
	}

	maxAmount, ok := parsePrice(raw.Adv.MaxSingleTransAmount)
	if !ok {
		maxAmount = math.Inf(1)
	}

	var (
		labels = make([]string, 0, len(raw.Adv.TradeMethods))
		ids    = make([]string, 0, len(raw.Adv.TradeMethods)*2)
	)

	for _, m := range raw.Adv.TradeMethods {
		label := firstNonEmpty(m.TradeMethodName, m.TradeMethodShortName, m.Identifier, m.PayType)
		if label != "" {
			labels = append(labels, label)
		}

		for _, id := range []string{m.Identifier, m.PayType, m.TradeMethodShortName} {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	remarks := strings.ToLower(strings.Join(
		lo.Compact([]string{
			raw.Adv.Remarks,
			raw.Adv.AdvRemark,
			raw.Adv.BuyerRemarks,
			raw.Adv.SellerRemarks,
			raw.Advertiser.NickName,
		}),
		" ",
	))

	return Offer{
		AdvNo:     raw.Adv.AdvNo,
		SellerID:  raw.Advertiser.UserNo,
		Seller:    raw.Advertiser.NickName,
		Side:      side,
		Methods:   lo.Uniq(labels),
		MethodIDs: lo.Uniq(ids),
		Remarks:   remarks,
		Merchant: MerchantFlags{
			UserType:  raw.Advertiser.UserType,
			Identity:  raw.Advertiser.UserIdentity,
			KYCTier:   rawScalar(raw.Advertiser.KYCLevel),
			Grade:     raw.Advertiser.UserGrade,
			Certified: raw.Advertiser.ProMerchant || hasBadges(raw.Advertiser.Badges),
		},
		Price:     price,
		MinAmount: minAmount,
		MaxAmount: maxAmount,
	}, true
}

// AdURL returns the public URL of the advertisement
func AdURL(advNo string) string {
	if advNo == "" {
		return ""
	}

	return adURLPrefix + advNo
}

// ProfileURL returns the public URL of the advertiser profile
func ProfileURL(advertiserNo string) string {
	if advertiserNo == "" {
		return ""
	}

	return profileURLPrefix + advertiserNo
}

// parsePrice parses a positive, finite decimal string.
// Thousands separators are ignored
func parsePrice(value string) (float64, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	if math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0, false
	}

	return parsed, true
}

// rawScalar unwraps a JSON string or number into its text form
func rawScalar(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}

	if unquoted, err := strconv.Unquote(s); err == nil {
		return strings.TrimSpace(unquoted)
	}

	return s
}

// hasBadges reports whether the badge list is non-empty
func hasBadges(raw []byte) bool {
	s := strings.TrimSpace(string(raw))

	return s != "" && s != "null" && s != "[]" && s != "{}"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
