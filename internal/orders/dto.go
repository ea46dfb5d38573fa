package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/internal/customers"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// ProductSelection is the single line of a checkout.
type ProductSelection struct {
	ProductID        uuid.UUID
	Quantity         int
	SelectedVariants dbtypes.VariantSelections
}

// CardDetails is the raw card as submitted. Only the last four digits,
// brand, expiry and cardholder name are ever stored.
type CardDetails struct {
	CardNumber     string
	ExpiryDate     string
	CardholderName string
	CVV            string
}

// TransactionOutcome is a payment result obtained before the order is
// created.
type TransactionOutcome struct {
	Result        enums.TransactionResult
	TransactionID string
	Message       string
	ErrorCode     string
}

// CreateOrderInput is the body of POST /api/orders.
type CreateOrderInput struct {
	Customer    customers.Input
	Product     ProductSelection
	Payment     CardDetails
	Transaction TransactionOutcome
}

// CheckoutInput drives the full flow: the payment is authorized here.
type CheckoutInput struct {
	Customer customers.Input
	Product  ProductSelection
	Payment  CardDetails
}

// Placement is returned by CreateOrder.
type Placement struct {
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	Order       *OrderDTO         `json:"-"`
}

// CheckoutResult carries the order plus the gateway decision.
type CheckoutResult struct {
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	Payment     payment.Result    `json:"payment"`
}

// Transition reports a status change.
type Transition struct {
	OrderNumber    string            `json:"orderNumber"`
	PreviousStatus enums.OrderStatus `json:"previousStatus"`
	Status         enums.OrderStatus `json:"status"`
}

// ListFilter narrows the admin order listing.
type ListFilter struct {
	Status enums.OrderStatus
	Email  string
	Limit  int
	Cursor string
}

type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	Count      int        `json:"count"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type CustomerDTO struct {
	ID       uuid.UUID  `json:"id"`
	FullName string     `json:"fullName"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	Address  AddressDTO `json:"address"`
}

type AddressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type OrderProductDTO struct {
	ProductID        uuid.UUID                 `json:"productId"`
	Name             string                    `json:"name"`
	Price            decimal.Decimal           `json:"price"`
	Quantity         int                       `json:"quantity"`
	Image            string                    `json:"image"`
	SelectedVariants dbtypes.VariantSelections `json:"selectedVariants"`
}

type PaymentInfoDTO struct {
	CardNumber     string          `json:"cardNumber"`
	CardLast4      string          `json:"cardLast4"`
	CardType       enums.CardBrand `json:"cardType"`
	ExpiryDate     string          `json:"expiryDate"`
	CardholderName string          `json:"cardholderName"`
}

type TransactionDTO struct {
	Result        enums.TransactionResult `json:"result"`
	TransactionID string                  `json:"transactionId,omitempty"`
	Message       string                  `json:"message"`
	ErrorCode     string                  `json:"errorCode,omitempty"`
}

// OrderDTO is the API view of an order. CardNumber is masked.
type OrderDTO struct {
	ID                uuid.UUID         `json:"id"`
	OrderNumber       string            `json:"orderNumber"`
	Customer          *CustomerDTO      `json:"customer,omitempty"`
	Product           OrderProductDTO   `json:"product"`
	PaymentInfo       PaymentInfoDTO    `json:"paymentInfo"`
	TransactionResult TransactionDTO    `json:"transactionResult"`
	Status            enums.OrderStatus `json:"status"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	Tax               decimal.Decimal   `json:"tax"`
	Total             decimal.Decimal   `json:"total"`
	Currency          string            `json:"currency"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func toOrderDTO(o *models.Order) *OrderDTO {
	variants := o.Item.SelectedVariants
	if variants == nil {
		variants = dbtypes.VariantSelections{}
	}
	dto := &OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Product: OrderProductDTO{
			ProductID:        o.Item.ProductID,
			Name:             o.Item.Name,
			Price:            o.Item.Price,
			Quantity:         o.Item.Quantity,
			Image:            o.Item.Image,
			SelectedVariants: variants,
		},
		PaymentInfo: PaymentInfoDTO{
			CardNumber:     maskedLast4(o.Payment.CardLast4),
			CardLast4:      o.Payment.CardLast4,
			CardType:       o.Payment.CardBrand,
			ExpiryDate:     o.Payment.ExpiryDate,
			CardholderName: o.Payment.CardholderName,
		},
		TransactionResult: TransactionDTO{
			Result:    o.Payment.Result,
			Message:   o.Payment.Message,
			ErrorCode: derefString(o.Payment.ErrorCode),
		},
		Status:    o.Status,
		Subtotal:  o.Subtotal,
		Tax:       o.Tax,
		Total:     o.Total,
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	dto.TransactionResult.TransactionID = derefString(o.Payment.TransactionID)
	if o.Customer != nil {
		c := o.Customer
		dto.Customer = &CustomerDTO{
			ID:       c.ID,
			FullName: c.FullName,
			Email:    c.Email,
			Phone:    c.Phone,
			Address: AddressDTO{
				Street:  c.Address.Street,
				City:    c.Address.City,
				State:   c.Address.State,
				ZipCode: c.Address.ZipCode,
				Country: c.Address.Country,
			},
		}
	}
	return dto
}

func maskedLast4(last4 string) string {
	if last4 == "" {
		return ""
	}
	return "**** **** **** " + last4
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
