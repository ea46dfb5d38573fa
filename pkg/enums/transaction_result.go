package enums

import (
	"fmt"
	"strings"
)

// TransactionResult is the outcome reported by the payment gateway.
type TransactionResult string

const (
	TransactionApproved TransactionResult = "approved"
	TransactionDeclined TransactionResult = "declined"
	TransactionError    TransactionResult = "error"
	TransactionPending  TransactionResult = "pending"
)

var validTransactionResults = []TransactionResult{
	TransactionApproved,
	TransactionDeclined,
	TransactionError,
	TransactionPending,
}

// String implements fmt.Stringer.
func (r TransactionResult) String() string {
	return string(r)
}

// IsValid reports whether the value is a known TransactionResult.
func (r TransactionResult) IsValid() bool {
	for _, candidate := range validTransactionResults {
		if candidate == r {
			return true
		}
	}
	return false
}

// OrderStatus maps a gateway outcome onto the status an order is created with.
func (r TransactionResult) OrderStatus() OrderStatus {
	switch r {
	case TransactionApproved:
		return OrderStatusApproved
	case TransactionDeclined:
		return OrderStatusDeclined
	case TransactionPending:
		return OrderStatusPending
	default:
		return OrderStatusFailed
	}
}

// ParseTransactionResult converts raw input into a TransactionResult.
func ParseTransactionResult(value string) (TransactionResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validTransactionResults {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction result %q", value)
}
