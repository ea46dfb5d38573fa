package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// Order is written once at checkout; afterwards only Status, Version and
// UpdatedAt change.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:idx_orders_customer_id"`
	Customer    *Customer         `gorm:"foreignKey:CustomerID"`
	Item        OrderProduct      `gorm:"embedded;embeddedPrefix:item_"`
	Payment     PaymentInfo       `gorm:"embedded;embeddedPrefix:payment_"`
	Status      enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;index:idx_orders_status"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax         decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Currency    string            `gorm:"column:currency;type:varchar(3);not null"`
	Version     int               `gorm:"column:version;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderProduct is the purchase-time snapshot of the product.
type OrderProduct struct {
	ProductID        uuid.UUID                 `gorm:"column:product_id;type:uuid;not null"`
	Name             string                    `gorm:"column:name;not null"`
	Price            decimal.Decimal           `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity         int                       `gorm:"column:quantity;not null"`
	Image            string                    `gorm:"column:image;not null"`
	SelectedVariants dbtypes.VariantSelections `gorm:"column:selected_variants;type:jsonb;not null"`
}

// PaymentInfo keeps only what is safe to store: never the PAN or CVV.
type PaymentInfo struct {
	CardLast4      string                  `gorm:"column:card_last4;type:varchar(4);not null"`
	CardBrand      enums.CardBrand         `gorm:"column:card_brand;type:varchar(16);not null"`
	ExpiryDate     string                  `gorm:"column:expiry_date;type:varchar(5);not null"`
	CardholderName string                  `gorm:"column:cardholder_name;not null"`
	Result         enums.TransactionResult `gorm:"column:result;type:varchar(16);not null"`
	TransactionID  *string                 `gorm:"column:transaction_id"`
	Message        string                  `gorm:"column:message;not null"`
	ErrorCode      *string                 `gorm:"column:error_code"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	return nil
}
