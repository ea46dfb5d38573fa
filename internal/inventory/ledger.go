// Package inventory keeps product and variant stock counters. The product
// counter and each variant counter are independent sub-ledgers: a reduction
// decrements the product and every selected variant by the same quantity,
// and no relation between their totals is enforced.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	opReduce = "reduce"
)

// Availability is the read-only answer to "can qty be sold right now".
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
	Remaining int    `json:"remaining"`
}

// VariantStock is one variant counter in a Stock snapshot.
type VariantStock struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Stock int    `json:"stock"`
}

// Stock is the current state of a product's counters.
type Stock struct {
	ProductID uuid.UUID      `json:"productId"`
	Inventory int            `json:"inventory"`
	Variants  []VariantStock `json:"variants"`
}

// ConflictRecorder is told about every reduction the store refused.
type ConflictRecorder interface {
	InventoryConflict(operation string)
}

// Ledger is the stock API used by orders and the admin inventory endpoint.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	CheckAvailability(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) (Availability, error)
	Reduce(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error
	Increase(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error
	SetInventory(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error
	Snapshot(ctx context.Context, productID uuid.UUID) (*Stock, error)
}

type ledger struct {
	repo    Repository
	metrics ConflictRecorder
	logg    *logger.Logger
}

// NewLedger builds a ledger. metrics and logg may be nil.
func NewLedger(repo Repository, metrics ConflictRecorder, logg *logger.Logger) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &ledger{repo: repo, metrics: metrics, logg: logg}, nil
}

// WithTx binds the ledger to an ambient transaction.
func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{repo: l.repo.WithTx(tx), metrics: l.metrics, logg: l.logg}
}

// CheckAvailability never writes. It fails closed: a missing or inactive
// product is unavailable.
func (l *ledger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) (Availability, error) {
	if err := validateRequest(qty, variants); err != nil {
		return Availability{}, err
	}
	product, err := l.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Availability{Message: "Product not found"}, nil
		}
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return Availability{Message: "Product is not available"}, nil
	}
	if product.Inventory < qty {
		return Availability{
			Message:   fmt.Sprintf("Only %d items available in stock", product.Inventory),
			Remaining: product.Inventory,
		}, nil
	}
	remaining := product.Inventory
	for _, sel := range variants {
		variant, ok := product.FindVariant(sel.Type, sel.Value)
		if !ok {
			return Availability{Message: fmt.Sprintf("Variant %s not available", sel.Label())}, nil
		}
		if variant.Stock < qty {
			return Availability{
				Message:   fmt.Sprintf("Only %d items available for %s", variant.Stock, sel.Label()),
				Remaining: variant.Stock,
			}, nil
		}
		if variant.Stock < remaining {
			remaining = variant.Stock
		}
	}
	return Availability{Available: true, Remaining: remaining}, nil
}

// Reduce claims qty from the product and every selected variant, or from
// none of them.
func (l *ledger) Reduce(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error {
	if err := validateRequest(qty, variants); err != nil {
		return err
	}
	err := l.repo.Transaction(ctx, func(repo Repository) error {
		ok, err := repo.DecrementProduct(ctx, productID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement product inventory")
		}
		if !ok {
			return l.productShortfall(ctx, repo, productID)
		}
		for _, sel := range variants {
			ok, err := repo.DecrementVariant(ctx, productID, sel.Type, sel.Value, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement variant stock")
			}
			if !ok {
				return l.variantShortfall(ctx, repo, productID, sel)
			}
		}
		return nil
	})
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory) {
		if l.metrics != nil {
			l.metrics.InventoryConflict(opReduce)
		}
		if l.logg != nil {
			logCtx := l.logg.WithFields(ctx, map[string]any{
				"product_id": productID.String(),
				"quantity":   qty,
			})
			l.logg.Warn(logCtx, "inventory reduction refused")
		}
	}
	return err
}

// Increase returns qty to the product and its selected variants. A variant
// that no longer exists is skipped; the product itself must exist.
func (l *ledger) Increase(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error {
	if err := validateRequest(qty, variants); err != nil {
		return err
	}
	return l.repo.Transaction(ctx, func(repo Repository) error {
		ok, err := repo.IncrementProduct(ctx, productID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment product inventory")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		for _, sel := range variants {
			ok, err := repo.IncrementVariant(ctx, productID, sel.Type, sel.Value, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment variant stock")
			}
			if !ok && l.logg != nil {
				logCtx := l.logg.WithFields(ctx, map[string]any{
					"product_id": productID.String(),
					"variant":    sel.Label(),
				})
				l.logg.Warn(logCtx, "variant missing while returning stock")
			}
		}
		return nil
	})
}

// SetInventory overwrites the product counter, and the counters of any
// listed variants, with qty.
func (l *ledger) SetInventory(ctx context.Context, productID uuid.UUID, qty int, variants dbtypes.VariantSelections) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if err := validateSelections(variants); err != nil {
		return err
	}
	return l.repo.Transaction(ctx, func(repo Repository) error {
		ok, err := repo.SetProductInventory(ctx, productID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product inventory")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		for _, sel := range variants {
			ok, err := repo.SetVariantStock(ctx, productID, sel.Type, sel.Value, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set variant stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Variant %s not found", sel.Label()))
			}
		}
		return nil
	})
}

func (l *ledger) Snapshot(ctx context.Context, productID uuid.UUID) (*Stock, error) {
	product, err := l.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return snapshotOf(product), nil
}

func snapshotOf(product *models.Product) *Stock {
	stock := &Stock{
		ProductID: product.ID,
		Inventory: product.Inventory,
		Variants:  make([]VariantStock, 0, len(product.Variants)),
	}
	for _, v := range product.Variants {
		stock.Variants = append(stock.Variants, VariantStock{
			Type:  string(v.Type),
			Name:  v.Name,
			Value: v.Value,
			Stock: v.Stock,
		})
	}
	return stock
}

// productShortfall explains why the conditional product update matched no row.
func (l *ledger) productShortfall(ctx context.Context, repo Repository, productID uuid.UUID) error {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}
	return insufficient(fmt.Sprintf("Only %d items available in stock", product.Inventory), product.ID, product.Inventory, "")
}

func (l *ledger) variantShortfall(ctx context.Context, repo Repository, productID uuid.UUID, sel dbtypes.VariantSelection) error {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	variant, ok := product.FindVariant(sel.Type, sel.Value)
	if !ok {
		return insufficient(fmt.Sprintf("Variant %s not available", sel.Label()), productID, 0, sel.Label())
	}
	return insufficient(fmt.Sprintf("Only %d items available for %s", variant.Stock, sel.Label()), productID, variant.Stock, sel.Label())
}

func insufficient(message string, productID uuid.UUID, remaining int, variant string) error {
	details := map[string]any{
		"productId": productID.String(),
		"remaining": remaining,
	}
	if variant != "" {
		details["variant"] = variant
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, message).WithDetails(details)
}

func validateRequest(qty int, variants dbtypes.VariantSelections) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return validateSelections(variants)
}

// validateSelections allows at most one selection per variant type.
func validateSelections(variants dbtypes.VariantSelections) error {
	seen := make(map[string]struct{}, len(variants))
	for _, sel := range variants {
		if !sel.Type.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown variant type %q", sel.Type))
		}
		if sel.Value == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant value required")
		}
		if _, dup := seen[string(sel.Type)]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant type %s selected more than once", sel.Type))
		}
		seen[string(sel.Type)] = struct{}{}
	}
	return nil
}
