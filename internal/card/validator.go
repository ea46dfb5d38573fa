// Package card validates payment card details without storing them.
package card

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

const (
	FieldCardNumber     = "cardNumber"
	FieldExpiryDate     = "expiryDate"
	FieldCVV            = "cvv"
	FieldCardholderName = "cardholderName"

	minNameLength = 2
)

var (
	digitsRe = regexp.MustCompile(`^\d{13,19}$`)
	expiryRe = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	cvvRe    = regexp.MustCompile(`^\d+$`)
)

// Input carries raw card fields as entered by the customer.
type Input struct {
	CardNumber     string
	ExpiryDate     string
	CVV            string
	CardholderName string
}

// Violation is one failed rule, tagged with the field it concerns.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result lists every rule the input broke, not only the first.
type Result struct {
	IsValid    bool
	Errors     []string
	Violations []Violation
	CardType   enums.CardBrand
}

// Validator checks card input against the network rules. now is injectable
// so expiry checks are deterministic under test.
type Validator struct {
	now func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate runs every rule including the cardholder name.
func (v *Validator) Validate(in Input) Result {
	return v.validate(in, true)
}

// ValidateCard runs the card rules only; used by the standalone check where
// no name is collected.
func (v *Validator) ValidateCard(in Input) Result {
	return v.validate(in, strings.TrimSpace(in.CardholderName) != "")
}

func (v *Validator) validate(in Input, checkName bool) Result {
	var res Result
	add := func(field, msg string) {
		res.Violations = append(res.Violations, Violation{Field: field, Message: msg})
		res.Errors = append(res.Errors, msg)
	}

	res.CardType = enums.CardBrandUnknown
	number := Clean(in.CardNumber)
	switch {
	case number == "":
		add(FieldCardNumber, "Card number is required")
	case !digitsRe.MatchString(number):
		add(FieldCardNumber, "Invalid card number format")
	default:
		res.CardType = DetectBrand(number)
		if !res.CardType.IsSupported() {
			add(FieldCardNumber, "Unsupported card type")
		}
		if !Luhn(number) {
			add(FieldCardNumber, "Invalid card number")
		}
	}

	expiry := strings.TrimSpace(in.ExpiryDate)
	if expiry == "" {
		add(FieldExpiryDate, "Expiry date is required")
	} else if msg := v.checkExpiry(expiry); msg != "" {
		add(FieldExpiryDate, msg)
	}

	cvv := strings.TrimSpace(in.CVV)
	if cvv == "" {
		add(FieldCVV, "CVV is required")
	} else {
		want := CVVLength(res.CardType)
		if !cvvRe.MatchString(cvv) || len(cvv) != want {
			add(FieldCVV, fmt.Sprintf("CVV must be %d digits", want))
		}
	}

	if checkName {
		name := strings.TrimSpace(in.CardholderName)
		if name == "" {
			add(FieldCardholderName, "Cardholder name is required")
		} else if len([]rune(name)) < minNameLength {
			add(FieldCardholderName, "Cardholder name is too short")
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// checkExpiry expects MM/YY. The card is usable while the first day of its
// expiry month is still in the future.
func (v *Validator) checkExpiry(expiry string) string {
	m := expiryRe.FindStringSubmatch(expiry)
	if m == nil {
		return "Invalid expiry date format (MM/YY)"
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return "Invalid expiry month"
	}
	now := v.now()
	expiresAt := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	if !expiresAt.After(now) {
		return "Card has expired"
	}
	return ""
}

// Clean strips the separators customers commonly type.
func Clean(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, number)
}

// WellFormed reports whether number is 13 to 19 digits once separators are
// stripped. It does not run the checksum.
func WellFormed(number string) bool {
	return digitsRe.MatchString(Clean(number))
}

// Luhn reports whether a digit string passes the mod-10 checksum.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// LastFour returns the trailing four digits of a cleaned number.
func LastFour(number string) string {
	number = Clean(number)
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// Mask renders a number the way receipts show it.
func Mask(number string) string {
	return "**** **** **** " + LastFour(number)
}
