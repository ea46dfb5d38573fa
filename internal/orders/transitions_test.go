package orders

import (
	"testing"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusApproved,
		enums.OrderStatusDeclined,
		enums.OrderStatusFailed,
		enums.OrderStatusRefunded,
	}
	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			err := checkTransition(from, to)
			illegal := from == enums.OrderStatusRefunded ||
				to == enums.OrderStatusPending ||
				(from == enums.OrderStatusPending && to == enums.OrderStatusRefunded)
			if illegal != (err != nil) {
				t.Fatalf("%s -> %s: illegal=%v err=%v", from, to, illegal, err)
			}
			if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("%s -> %s: expected state conflict, got %v", from, to, err)
			}
		}
	}
}

func TestStockEffects(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     stockEffect
	}{
		{enums.OrderStatusApproved, enums.OrderStatusRefunded, stockIncrease},
		{enums.OrderStatusApproved, enums.OrderStatusDeclined, stockIncrease},
		{enums.OrderStatusApproved, enums.OrderStatusFailed, stockIncrease},
		{enums.OrderStatusPending, enums.OrderStatusApproved, stockReduce},
		{enums.OrderStatusDeclined, enums.OrderStatusApproved, stockReduce},
		{enums.OrderStatusFailed, enums.OrderStatusApproved, stockReduce},
		{enums.OrderStatusDeclined, enums.OrderStatusRefunded, stockNone},
		{enums.OrderStatusPending, enums.OrderStatusFailed, stockNone},
	}
	for _, tc := range cases {
		if got := effectOf(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
