package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// Repository holds the stock SQL. Every decrement is a single conditional
// UPDATE so the check and the write cannot be separated by another writer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	DecrementProduct(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementProduct(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	SetProductInventory(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	DecrementVariant(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error)
	IncrementVariant(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error)
	SetVariantStock(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Transaction runs fn atomically. Inside an ambient transaction gorm opens a
// savepoint, so a failed call still leaves no partial mutation behind.
func (r *repository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) DecrementProduct(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET inventory = inventory - ?, updated_at = ? WHERE id = ? AND is_active = ? AND inventory >= ?`,
		qty, time.Now().UTC(), productID, true, qty,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) IncrementProduct(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET inventory = inventory + ?, updated_at = ? WHERE id = ?`,
		qty, time.Now().UTC(), productID,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetProductInventory(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET inventory = ?, updated_at = ? WHERE id = ?`,
		qty, time.Now().UTC(), productID,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) DecrementVariant(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = stock - ?, updated_at = ? WHERE product_id = ? AND type = ? AND value = ? AND stock >= ?`,
		qty, time.Now().UTC(), productID, variantType, value, qty,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) IncrementVariant(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = stock + ?, updated_at = ? WHERE product_id = ? AND type = ? AND value = ?`,
		qty, time.Now().UTC(), productID, variantType, value,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetVariantStock(ctx context.Context, productID uuid.UUID, variantType enums.VariantType, value string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = ?, updated_at = ? WHERE product_id = ? AND type = ? AND value = ?`,
		qty, time.Now().UTC(), productID, variantType, value,
	)
	return res.RowsAffected == 1, res.Error
}
