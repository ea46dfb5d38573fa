package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/pagination"
)

// Repository persists orders. Every status write is conditional on the
// version the caller read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	FindByNumber(ctx context.Context, orderNumber string, forUpdate bool) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, version int, status enums.OrderStatus) (bool, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, version int, status enums.OrderStatus, payment models.PaymentInfo) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts order inside a savepoint, so a unique violation on the
// order number leaves an enclosing transaction usable for a retry.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Customer").Create(order).Error
	})
}

func (r *repository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByNumber loads the order with its customer. forUpdate row-locks the
// order for the rest of the transaction.
func (r *repository) FindByNumber(ctx context.Context, orderNumber string, forUpdate bool) (*models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Customer")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := q.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Customer")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Email != "" {
		customerIDs := r.db.WithContext(ctx).
			Model(&models.Customer{}).
			Select("id").
			Where("email = ?", filter.Email)
		q = q.Where("customer_id IN (?)", customerIDs)
	}

	var rows []models.Order
	if err := q.Scopes(pagination.Scope(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, version int, status enums.OrderStatus) (bool, error) {
	return r.conditionalUpdate(ctx, id, version, map[string]any{
		"status": status,
	})
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, version int, status enums.OrderStatus, payment models.PaymentInfo) (bool, error) {
	return r.conditionalUpdate(ctx, id, version, map[string]any{
		"status":                 status,
		"payment_card_brand":     payment.CardBrand,
		"payment_result":         payment.Result,
		"payment_transaction_id": payment.TransactionID,
		"payment_message":        payment.Message,
		"payment_error_code":     payment.ErrorCode,
	})
}

func (r *repository) conditionalUpdate(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (bool, error) {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
