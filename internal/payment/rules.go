package payment

import (
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// Outcome is the rule table's verdict for a card number.
type Outcome struct {
	Result       enums.TransactionResult
	Message      string
	ErrorCode    string
	RetryAllowed bool
}

var (
	outcomeApproved = Outcome{
		Result:  enums.TransactionApproved,
		Message: "Transaction approved successfully",
	}
	outcomeDeclinedByBank = Outcome{
		Result:    enums.TransactionDeclined,
		Message:   "Transaction declined by issuing bank",
		ErrorCode: CodeDeclinedByBank,
	}
	outcomeGatewayError = Outcome{
		Result:       enums.TransactionError,
		Message:      "Payment gateway error. Please try again.",
		ErrorCode:    CodeGatewayError,
		RetryAllowed: true,
	}
	outcomeInsufficientFunds = Outcome{
		Result:    enums.TransactionDeclined,
		Message:   "Insufficient funds",
		ErrorCode: CodeInsufficientFunds,
	}
)

// Decide applies the rules in order to a cleaned, all-digit card number:
//
//	last digit odd           approved
//	last two in 10, 20, 30   declined DECLINED_BY_BANK
//	last two in 00, 99       error GATEWAY_ERROR
//	last digit 4             declined INSUFFICIENT_FUNDS
//	otherwise                approved
//
// The odd-digit rule runs first, so a number ending in 99 is approved.
func Decide(digits string) Outcome {
	if len(digits) < 2 {
		return outcomeGatewayError
	}
	last := int(digits[len(digits)-1] - '0')
	lastTwo := int(digits[len(digits)-2]-'0')*10 + last

	switch {
	case last%2 == 1:
		return outcomeApproved
	case lastTwo == 10 || lastTwo == 20 || lastTwo == 30:
		return outcomeDeclinedByBank
	case lastTwo == 0 || lastTwo == 99:
		return outcomeGatewayError
	case last == 4:
		return outcomeInsufficientFunds
	default:
		return outcomeApproved
	}
}
