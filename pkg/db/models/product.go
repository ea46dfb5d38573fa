package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// Product is a sellable catalog entry. Inventory is the product-level stock
// counter; each variant keeps its own independent stock.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description string           `gorm:"column:description;not null"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	ImageURL    string           `gorm:"column:image_url;not null"`
	Category    string           `gorm:"column:category;not null;index:idx_products_category"`
	Inventory   int              `gorm:"column:inventory;not null;check:chk_products_inventory,inventory >= 0"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FindVariant returns the variant matching type and value, if any.
func (p *Product) FindVariant(variantType enums.VariantType, value string) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Type == variantType && p.Variants[i].Value == value {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// ProductVariant is a per-option stock sub-ledger.
type ProductVariant struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_variants_option,priority:1"`
	Type      enums.VariantType `gorm:"column:type;type:varchar(16);not null;uniqueIndex:ux_product_variants_option,priority:2"`
	Name      string            `gorm:"column:name;not null"`
	Value     string            `gorm:"column:value;not null;uniqueIndex:ux_product_variants_option,priority:3"`
	Stock     int               `gorm:"column:stock;not null;check:chk_product_variants_stock,stock >= 0"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
