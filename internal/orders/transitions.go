package orders

import (
	"fmt"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type stockEffect int

const (
	stockNone stockEffect = iota
	stockReduce
	stockIncrease
)

// checkTransition rejects moves out of refunded, back into pending, and
// refunds of orders that were never paid.
func checkTransition(from, to enums.OrderStatus) error {
	switch {
	case from == enums.OrderStatusRefunded:
		return stateConflict(from, to, "refunded orders are final")
	case to == enums.OrderStatusPending:
		return stateConflict(from, to, "orders cannot return to pending")
	case from == enums.OrderStatusPending && to == enums.OrderStatusRefunded:
		return stateConflict(from, to, "pending orders cannot be refunded")
	}
	return nil
}

// effectOf is the inventory side effect of moving from one status to another.
func effectOf(from, to enums.OrderStatus) stockEffect {
	switch {
	case from.HoldsStock() && !to.HoldsStock():
		return stockIncrease
	case !from.HoldsStock() && to.HoldsStock():
		return stockReduce
	}
	return stockNone
}

func stateConflict(from, to enums.OrderStatus, reason string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s: %s", from, to, reason)).
		WithDetails(map[string]any{"from": from, "to": to})
}
