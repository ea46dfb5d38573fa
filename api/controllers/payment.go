package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	"github.com/angelmondragon/checkout-backend/internal/card"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

type processPaymentRequest struct {
	Amount         *decimal.Decimal `json:"amount" validate:"required"`
	CardNumber     string           `json:"cardNumber"`
	ExpiryDate     string           `json:"expiryDate"`
	CVV            string           `json:"cvv"`
	CardholderName string           `json:"cardholderName"`
}

type processPaymentResponse struct {
	payment.Result
	Timestamp time.Time `json:"timestamp"`
}

// ProcessPayment runs a standalone authorization. The HTTP status mirrors the
// decision: 200 approved, 402 declined, 500 gateway error.
func ProcessPayment(gateway payment.Authorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		var payload processPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment amount").WithDetails(map[string]string{"amount": "must be greater than 0"}))
			return
		}

		result, err := gateway.Authorize(r.Context(), payment.Request{
			Amount:         *payload.Amount,
			CardNumber:     payload.CardNumber,
			ExpiryDate:     payload.ExpiryDate,
			CVV:            payload.CVV,
			CardholderName: payload.CardholderName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize payment"))
			return
		}

		responses.WriteSuccessStatus(w, paymentStatus(result.Result), processPaymentResponse{Result: result, Timestamp: time.Now().UTC()})
	}
}

func paymentStatus(result enums.TransactionResult) int {
	switch result {
	case enums.TransactionApproved:
		return http.StatusOK
	case enums.TransactionDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

type validatePaymentRequest struct {
	CardNumber     string `json:"cardNumber"`
	ExpiryDate     string `json:"expiryDate"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholderName,omitempty"`
}

type validatePaymentResponse struct {
	IsValid    bool             `json:"isValid"`
	Errors     []string         `json:"errors"`
	Violations []card.Violation `json:"violations,omitempty"`
	CardType   enums.CardBrand  `json:"cardType"`
}

// ValidatePayment runs the card rules without authorizing anything. The
// verdict is carried in the body.
func ValidatePayment(validator *card.Validator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if validator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "card validator unavailable"))
			return
		}

		var payload validatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := validator.ValidateCard(card.Input{
			CardNumber:     payload.CardNumber,
			ExpiryDate:     payload.ExpiryDate,
			CVV:            payload.CVV,
			CardholderName: payload.CardholderName,
		})
		errs := result.Errors
		if errs == nil {
			errs = []string{}
		}
		responses.WriteSuccess(w, validatePaymentResponse{
			IsValid:    result.IsValid,
			Errors:     errs,
			Violations: result.Violations,
			CardType:   result.CardType,
		})
	}
}

func CardTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, card.SupportedBrands())
	}
}
