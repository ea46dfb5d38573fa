package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

func seedOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus) *models.Order {
	t.Helper()
	customer := &models.Customer{FullName: "Sam Lee", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(customer).Error)
	order := &models.Order{
		OrderNumber: number,
		CustomerID:  customer.ID,
		Item: models.OrderProduct{
			ProductID:        uuid.New(),
			Name:             "Desk Lamp",
			Price:            decimal.NewFromInt(25),
			Quantity:         1,
			SelectedVariants: dbtypes.VariantSelections{},
		},
		Payment: models.PaymentInfo{
			CardLast4: "4242",
			CardBrand: enums.CardBrandVisa,
			Result:    enums.TransactionApproved,
		},
		Status:   status,
		Subtotal: decimal.NewFromInt(25),
		Tax:      decimal.Zero,
		Total:    decimal.NewFromInt(25),
		Currency: "USD",
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), order))
	return order
}

func TestRepositoryCreateAssignsIdentityAndVersion(t *testing.T) {
	db := dbtest.Open(t)
	order := seedOrder(t, db, "ORD-REPO-000001", enums.OrderStatusApproved)

	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, 1, order.Version)

	repo := NewRepository(db)
	exists, err := repo.OrderNumberExists(context.Background(), "ORD-REPO-000001")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.OrderNumberExists(context.Background(), "ORD-REPO-999999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryRejectsDuplicateOrderNumber(t *testing.T) {
	db := dbtest.Open(t)
	seedOrder(t, db, "ORD-REPO-000002", enums.OrderStatusApproved)

	dup := seedlessCopy(t, db, "ORD-REPO-000002")
	err := NewRepository(db).Create(context.Background(), dup)
	require.Error(t, err)
}

func seedlessCopy(t *testing.T, db *gorm.DB, number string) *models.Order {
	t.Helper()
	var existing models.Order
	require.NoError(t, db.First(&existing, "order_number = ?", number).Error)
	existing.ID = uuid.Nil
	return &existing
}

func TestRepositoryFindByNumberLoadsCustomer(t *testing.T) {
	db := dbtest.Open(t)
	seedOrder(t, db, "ORD-REPO-000003", enums.OrderStatusDeclined)
	repo := NewRepository(db)

	order, err := repo.FindByNumber(context.Background(), "ORD-REPO-000003", true)
	require.NoError(t, err)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "Sam Lee", order.Customer.FullName)

	_, err = repo.FindByNumber(context.Background(), "ORD-REPO-404404", false)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryUpdateStatusChecksVersion(t *testing.T) {
	db := dbtest.Open(t)
	order := seedOrder(t, db, "ORD-REPO-000004", enums.OrderStatusApproved)
	repo := NewRepository(db)
	ctx := context.Background()

	ok, err := repo.UpdateStatus(ctx, order.ID, order.Version, enums.OrderStatusRefunded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, order.Version, enums.OrderStatusDeclined)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not update")

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestRepositoryUpdatePaymentWritesResult(t *testing.T) {
	db := dbtest.Open(t)
	order := seedOrder(t, db, "ORD-REPO-000005", enums.OrderStatusPending)
	repo := NewRepository(db)
	ctx := context.Background()

	info := order.Payment
	info.Result = enums.TransactionDeclined
	info.Message = "Transaction declined by issuing bank"
	info.ErrorCode = optionalString("DECLINED_BY_BANK")
	ok, err := repo.UpdatePayment(ctx, order.ID, order.Version, enums.OrderStatusDeclined, info)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDeclined, stored.Status)
	assert.Equal(t, enums.TransactionDeclined, stored.Payment.Result)
	require.NotNil(t, stored.Payment.ErrorCode)
	assert.Equal(t, "DECLINED_BY_BANK", *stored.Payment.ErrorCode)
	assert.Nil(t, stored.Payment.TransactionID)
}
