package p2p

import "strings"

// MethodRule is a declarative payment method requirement
type MethodRule struct {
	// Aliases are the known labels and identifiers of the method
	Aliases []string `toml:"aliases" validate:"required_without=Keywords"`

	// Keywords are searched in the offer's free text
	Keywords []string `toml:"keywords" validate:"required_without=Aliases"`

	// PayTypes are the upstream identifiers, used for the API-side fallback
	PayTypes []string `toml:"pay_types"`
}

// MethodMatches reports whether the offer satisfies the method rule.
// A nil rule matches every offer.
// Generic bank transfers whose remarks name the method are covered by the keyword match,
// the declared label text is never searched for keywords
func MethodMatches(offer Offer, rule *MethodRule) bool {
	if rule == nil {
		return true
	}

	// Direct match on any declared label or identifier
	for _, declared := range declaredMethods(offer) {
		for _, alias := range rule.Aliases {
			if strings.EqualFold(strings.TrimSpace(declared), strings.TrimSpace(alias)) {
				return true
			}
		}
	}

	// Keyword match on the remarks and nickname
	return containsAnyKeyword(offer.Remarks, rule.Keywords)
}

func containsAnyKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}

	text = strings.ToLower(text)

	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

func declaredMethods(offer Offer) []string {
	out := make([]string, 0, len(offer.Methods)+len(offer.MethodIDs))
	out = append(out, offer.Methods...)

	return append(out, offer.MethodIDs...)
}
