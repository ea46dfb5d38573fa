// Package payment simulates a card gateway. Outcomes depend only on the
// trailing digits of the card number so every test card behaves the same way
// on every call.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/internal/card"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/ids"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	CodeInvalidDetails    = "INVALID_DETAILS"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeDeclinedByBank    = "DECLINED_BY_BANK"
	CodeGatewayError      = "GATEWAY_ERROR"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"

	transactionPrefix    = "TXN"
	transactionRandomLen = 8
)

// Request is one authorization attempt. The card data lives only for the
// duration of the call.
type Request struct {
	Amount         decimal.Decimal
	CardNumber     string
	ExpiryDate     string
	CVV            string
	CardholderName string
}

// Result is the gateway decision plus the non-sensitive card facts callers
// may persist.
type Result struct {
	Result           enums.TransactionResult `json:"result"`
	Message          string                  `json:"message"`
	TransactionID    string                  `json:"transactionId,omitempty"`
	ErrorCode        string                  `json:"errorCode,omitempty"`
	RetryAllowed     bool                    `json:"retryAllowed"`
	CardType         enums.CardBrand         `json:"cardType"`
	Last4            string                  `json:"-"`
	ValidationErrors []string                `json:"validationErrors,omitempty"`
}

// Approved reports whether the card was charged.
func (r Result) Approved() bool {
	return r.Result == enums.TransactionApproved
}

// Recorder receives one call per decision.
type Recorder interface {
	PaymentAuthorized(result, code string)
}

// Authorizer is what the checkout flow depends on.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Result, error)
}

// Options configures a Simulator. Zero values are usable.
type Options struct {
	Validator *card.Validator
	Latency   time.Duration
	Now       func() time.Time
	Random    ids.Source
	Metrics   Recorder
	Logger    *logger.Logger
}

type Simulator struct {
	validator *card.Validator
	latency   time.Duration
	now       func() time.Time
	random    ids.Source
	metrics   Recorder
	logg      *logger.Logger
}

func NewSimulator(opts Options) *Simulator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	validator := opts.Validator
	if validator == nil {
		validator = card.NewValidator(now)
	}
	return &Simulator{
		validator: validator,
		latency:   opts.Latency,
		now:       now,
		random:    opts.Random,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
	}
}

// Authorize validates the card, waits out the configured latency and
// decides. The only error returned is ctx's; every business outcome is
// carried in Result.
func (s *Simulator) Authorize(ctx context.Context, req Request) (Result, error) {
	if err := s.wait(ctx); err != nil {
		return Result{}, err
	}

	validation := s.validator.Validate(card.Input{
		CardNumber:     req.CardNumber,
		ExpiryDate:     req.ExpiryDate,
		CVV:            req.CVV,
		CardholderName: req.CardholderName,
	})
	res := Result{
		CardType: validation.CardType,
		Last4:    card.LastFour(req.CardNumber),
	}

	switch {
	case !validation.IsValid:
		res.Result = enums.TransactionError
		res.Message = "Invalid payment details"
		res.ErrorCode = CodeInvalidDetails
		res.RetryAllowed = true
		res.ValidationErrors = validation.Errors
	case !req.Amount.IsPositive():
		res.Result = enums.TransactionError
		res.Message = "Invalid payment amount"
		res.ErrorCode = CodeInvalidAmount
		res.RetryAllowed = true
	default:
		outcome := Decide(card.Clean(req.CardNumber))
		res.Result = outcome.Result
		res.Message = outcome.Message
		res.ErrorCode = outcome.ErrorCode
		res.RetryAllowed = outcome.RetryAllowed
		if outcome.Result == enums.TransactionApproved {
			txnID, err := s.transactionID()
			if err != nil {
				return Result{}, err
			}
			res.TransactionID = txnID
		}
	}

	if s.metrics != nil {
		s.metrics.PaymentAuthorized(string(res.Result), res.ErrorCode)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_result": res.Result,
			"error_code":     res.ErrorCode,
			"card_brand":     res.CardType,
			"card_last4":     res.Last4,
		})
		s.logg.Info(logCtx, "payment authorization decided")
	}
	return res, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulator) transactionID() (string, error) {
	suffix, err := ids.RandomSegment(s.random, transactionRandomLen)
	if err != nil {
		return "", err
	}
	return transactionPrefix + ids.TimeSegment(s.now()) + suffix, nil
}
