package card

import (
	"regexp"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// BrandInfo describes an accepted card network.
type BrandInfo struct {
	Name      string          `json:"name"`
	Code      enums.CardBrand `json:"code"`
	Prefix    string          `json:"prefix"`
	CVVLength int             `json:"cvvLength"`
	MinLength int             `json:"minLength"`
	MaxLength int             `json:"maxLength"`
}

type brandRule struct {
	info    BrandInfo
	pattern *regexp.Regexp
}

var brandRules = []brandRule{
	{BrandInfo{Name: "Visa", Code: enums.CardBrandVisa, Prefix: "4", CVVLength: 3, MinLength: 13, MaxLength: 19}, regexp.MustCompile(`^4`)},
	{BrandInfo{Name: "MasterCard", Code: enums.CardBrandMasterCard, Prefix: "51-55", CVVLength: 3, MinLength: 16, MaxLength: 16}, regexp.MustCompile(`^5[1-5]`)},
	{BrandInfo{Name: "American Express", Code: enums.CardBrandAmex, Prefix: "34, 37", CVVLength: 4, MinLength: 15, MaxLength: 15}, regexp.MustCompile(`^3[47]`)},
	{BrandInfo{Name: "Discover", Code: enums.CardBrandDiscover, Prefix: "6011, 65", CVVLength: 3, MinLength: 16, MaxLength: 19}, regexp.MustCompile(`^6(011|5)`)},
}

// DetectBrand maps a cleaned number to its network by prefix.
func DetectBrand(number string) enums.CardBrand {
	for _, rule := range brandRules {
		if rule.pattern.MatchString(number) {
			return rule.info.Code
		}
	}
	return enums.CardBrandUnknown
}

// CVVLength is 4 for Amex and 3 for everything else, unknown brands included.
func CVVLength(brand enums.CardBrand) int {
	if brand == enums.CardBrandAmex {
		return 4
	}
	return 3
}

// SupportedBrands lists the accepted networks in display order.
func SupportedBrands() []BrandInfo {
	out := make([]BrandInfo, 0, len(brandRules))
	for _, rule := range brandRules {
		out = append(out, rule.info)
	}
	return out
}
