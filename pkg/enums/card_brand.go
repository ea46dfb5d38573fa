package enums

// CardBrand identifies the card network detected from the number prefix.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMasterCard CardBrand = "mastercard"
	CardBrandAmex       CardBrand = "amex"
	CardBrandDiscover   CardBrand = "discover"
	CardBrandUnknown    CardBrand = "unknown"
)

// String implements fmt.Stringer.
func (b CardBrand) String() string {
	return string(b)
}

// IsSupported reports whether the brand is one the gateway accepts.
func (b CardBrand) IsSupported() bool {
	switch b {
	case CardBrandVisa, CardBrandMasterCard, CardBrandAmex, CardBrandDiscover:
		return true
	}
	return false
}
