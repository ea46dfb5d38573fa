// Package orders places orders and moves them through their lifecycle,
// keeping inventory in step with every status change.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/internal/card"
	"github.com/angelmondragon/checkout-backend/internal/customers"
	"github.com/angelmondragon/checkout-backend/internal/inventory"
	"github.com/angelmondragon/checkout-backend/internal/ordernumber"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	dbpkg "github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/pagination"
)

const (
	orderNumberConstraint = "ux_orders_order_number"
	defaultCurrency       = "USD"
	defaultMaxQuantity    = 10
	pendingMessage        = "Awaiting payment authorization"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductReader loads the product snapshot copied onto an order.
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// NumberSource hands out order numbers. Generate may consult the store;
// Candidate must not.
type NumberSource interface {
	Generate(ctx context.Context) (string, error)
	Candidate() (string, error)
	Attempts() int
}

// Notifier emails the customer. OrderOutcome never fails the caller.
type Notifier interface {
	OrderOutcome(ctx context.Context, order *models.Order)
	Deliver(ctx context.Context, order *models.Order, kind enums.NotificationKind) error
}

// Recorder counts order lifecycle events.
type Recorder interface {
	OrderCreated(status string)
	StatusTransition(from, to string)
}

// Service is the order orchestrator.
type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Placement, error)
	Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
	UpdateStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*Transition, error)
	GetByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
	ResendNotification(ctx context.Context, orderNumber string) error
}

// Deps wires the orchestrator. Metrics and Logger may be nil.
type Deps struct {
	Repo        Repository
	Customers   customers.Repository
	Products    ProductReader
	Ledger      inventory.Ledger
	Numbers     NumberSource
	Payments    payment.Authorizer
	Cards       *card.Validator
	Notifier    Notifier
	Tx          txRunner
	Metrics     Recorder
	Logger      *logger.Logger
	TaxRate     decimal.Decimal
	Currency    string
	MaxQuantity int
}

type service struct {
	repo        Repository
	customers   customers.Repository
	products    ProductReader
	ledger      inventory.Ledger
	numbers     NumberSource
	payments    payment.Authorizer
	cards       *card.Validator
	notifier    Notifier
	tx          txRunner
	metrics     Recorder
	logg        *logger.Logger
	taxRate     decimal.Decimal
	currency    string
	maxQuantity int
}

// NewService builds the orchestrator with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if deps.Numbers == nil {
		return nil, fmt.Errorf("order number source required")
	}
	if deps.Payments == nil {
		return nil, fmt.Errorf("payment authorizer required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Cards == nil {
		deps.Cards = card.NewValidator(time.Now)
	}
	if deps.Currency == "" {
		deps.Currency = defaultCurrency
	}
	if deps.MaxQuantity <= 0 {
		deps.MaxQuantity = defaultMaxQuantity
	}
	return &service{
		repo:        deps.Repo,
		customers:   deps.Customers,
		products:    deps.Products,
		ledger:      deps.Ledger,
		numbers:     deps.Numbers,
		payments:    deps.Payments,
		cards:       deps.Cards,
		notifier:    deps.Notifier,
		tx:          deps.Tx,
		metrics:     deps.Metrics,
		logg:        deps.Logger,
		taxRate:     deps.TaxRate,
		currency:    deps.Currency,
		maxQuantity: deps.MaxQuantity,
	}, nil
}

// CreateOrder persists an order for a payment the caller already ran. An
// approved order claims its stock in the same transaction; if the claim
// fails nothing is written.
func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Placement, error) {
	if err := s.validateLine(in.Customer, in.Product); err != nil {
		return nil, err
	}
	if !in.Transaction.Result.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transactionResult.result must be one of approved, declined, error, pending")
	}
	if !card.WellFormed(in.Payment.CardNumber) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paymentInfo.cardNumber must be 13-19 digits")
	}

	// The customer profile is refreshed even when the order is then refused.
	customer, err := s.customers.Upsert(ctx, in.Customer)
	if err != nil {
		return nil, err
	}
	product, err := s.loadSellable(ctx, in.Product)
	if err != nil {
		return nil, err
	}
	order := s.newOrder(product, in.Product, in.Payment, in.Transaction)
	if err := s.persist(ctx, order, customer, true); err != nil {
		return nil, err
	}

	s.recordCreated(order.Status)
	s.notifier.OrderOutcome(ctx, order)
	return &Placement{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       order.Total,
		Order:       toOrderDTO(order),
	}, nil
}

// Checkout runs the whole purchase: stock check, a pending order, the
// payment, then the status the payment decided.
func (s *service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if err := s.validateLine(in.Customer, in.Product); err != nil {
		return nil, err
	}
	validation := s.cards.Validate(card.Input{
		CardNumber:     in.Payment.CardNumber,
		ExpiryDate:     in.Payment.ExpiryDate,
		CVV:            in.Payment.CVV,
		CardholderName: in.Payment.CardholderName,
	})
	if !validation.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment details").
			WithDetails(map[string]any{"errors": validation.Violations})
	}

	customer, err := s.customers.Upsert(ctx, in.Customer)
	if err != nil {
		return nil, err
	}
	product, err := s.loadSellable(ctx, in.Product)
	if err != nil {
		return nil, err
	}
	order := s.newOrder(product, in.Product, in.Payment, TransactionOutcome{
		Result:  enums.TransactionPending,
		Message: pendingMessage,
	})
	if err := s.persist(ctx, order, customer, false); err != nil {
		return nil, err
	}
	s.recordCreated(order.Status)

	result, authErr := s.payments.Authorize(ctx, payment.Request{
		Amount:         order.Total,
		CardNumber:     in.Payment.CardNumber,
		ExpiryDate:     in.Payment.ExpiryDate,
		CVV:            in.Payment.CVV,
		CardholderName: in.Payment.CardholderName,
	})
	if authErr != nil {
		result = payment.Result{
			Result:       enums.TransactionError,
			Message:      "Payment authorization interrupted",
			ErrorCode:    payment.CodeGatewayError,
			RetryAllowed: true,
			CardType:     order.Payment.CardBrand,
		}
	}

	// The order exists now; settle it even if the caller has gone away.
	settled, stockErr := s.settle(context.WithoutCancel(ctx), order.OrderNumber, result)
	if settled == nil {
		return nil, stockErr
	}
	s.notifier.OrderOutcome(ctx, settled)

	if authErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, authErr, "payment authorization interrupted").
			WithDetails(map[string]any{"orderNumber": settled.OrderNumber})
	}
	if stockErr != nil {
		return nil, stockErr
	}
	return &CheckoutResult{
		OrderNumber: settled.OrderNumber,
		Status:      settled.Status,
		Total:       settled.Total,
		Payment:     result,
	}, nil
}

// settle records the payment decision on a pending order. When an approved
// payment can no longer claim stock the order is marked failed, and the
// returned error says why alongside the settled order.
func (s *service) settle(ctx context.Context, orderNumber string, result payment.Result) (*models.Order, error) {
	var (
		settled  *models.Order
		stockErr error
		previous enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		previous = order.Status
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was settled concurrently")
		}

		target := result.Result.OrderStatus()
		info := order.Payment
		info.Result = result.Result
		info.Message = result.Message
		info.TransactionID = optionalString(result.TransactionID)
		info.ErrorCode = optionalString(result.ErrorCode)
		if result.CardType != "" {
			info.CardBrand = result.CardType
		}

		if target.HoldsStock() {
			err := s.ledger.WithTx(tx).Reduce(ctx, order.Item.ProductID, order.Item.Quantity, order.Item.SelectedVariants)
			switch {
			case err == nil:
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory):
				stockErr = soldOut(err, order.OrderNumber)
				target = enums.OrderStatusFailed
			default:
				return err
			}
		}

		ok, err := s.repo.WithTx(tx).UpdatePayment(ctx, order.ID, order.Version, target, info)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}
		order.Status = target
		order.Payment = info
		order.Version++
		settled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stockErr != nil {
		logCtx := s.logg.WithOrderNumber(ctx, orderNumber)
		s.logg.Error(logCtx, "approved payment could not claim stock, order failed", stockErr)
	}
	s.recordTransition(previous, settled.Status)
	return settled, stockErr
}

// UpdateStatus applies an admin status change and its inventory effect in
// one transaction, serialized on the order row.
func (s *service) UpdateStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*Transition, error) {
	if !ordernumber.Valid(orderNumber) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order number format")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var (
		updated  *models.Order
		previous enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		previous = order.Status
		if previous == status {
			return nil
		}
		if err := checkTransition(previous, status); err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		item := order.Item
		switch effectOf(previous, status) {
		case stockReduce:
			if err := ledger.Reduce(ctx, item.ProductID, item.Quantity, item.SelectedVariants); err != nil {
				return err
			}
		case stockIncrease:
			if err := ledger.Increase(ctx, item.ProductID, item.Quantity, item.SelectedVariants); err != nil {
				return err
			}
		}

		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, order.Version, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}
		order.Status = status
		order.Version++
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_number": orderNumber,
			"from":         previous,
			"to":           status,
		})
		s.logg.Info(logCtx, "order status changed")
		s.recordTransition(previous, status)
		s.notifier.OrderOutcome(ctx, updated)
	}
	return &Transition{
		OrderNumber:    orderNumber,
		PreviousStatus: previous,
		Status:         status,
	}, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error) {
	if !ordernumber.Valid(orderNumber) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order number format")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber, false)
	if err != nil {
		return nil, orderLookupError(err)
	}
	return toOrderDTO(order), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, orderLookupError(err)
	}
	return toOrderDTO(order), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", filter.Status))
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Email = customers.NormalizeEmail(filter.Email)
	limit := pagination.NormalizeLimit(filter.Limit)

	rows, err := s.repo.List(ctx, filter, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &ListResult{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for i := range page {
		out.Orders = append(out.Orders, *toOrderDTO(&page[i]))
	}
	out.Count = len(out.Orders)
	return out, nil
}

// ResendNotification sends the email for the order's current status again.
// Unlike the automatic send, a failure here is reported to the caller.
func (s *service) ResendNotification(ctx context.Context, orderNumber string) error {
	if !ordernumber.Valid(orderNumber) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order number format")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber, false)
	if err != nil {
		return orderLookupError(err)
	}
	kind, ok := enums.NotificationKindForStatus(order.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("no notification for %s orders", order.Status))
	}
	if err := s.notifier.Deliver(ctx, order, kind); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification")
	}
	return nil
}

func (s *service) validateLine(customer customers.Input, sel ProductSelection) error {
	if customers.NormalizeEmail(customer.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer.email is required")
	}
	if strings.TrimSpace(customer.FullName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer.fullName is required")
	}
	if sel.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.productId is required")
	}
	if sel.Quantity < 1 || sel.Quantity > s.maxQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product.quantity must be between 1 and %d", s.maxQuantity))
	}
	return nil
}

// loadSellable re-reads the product and its stock; a prior client-side
// availability probe is never trusted.
func (s *service) loadSellable(ctx context.Context, sel ProductSelection) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, sel.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}

	avail, err := s.ledger.CheckAvailability(ctx, product.ID, sel.Quantity, sel.SelectedVariants)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientInventory, avail.Message).
			WithDetails(map[string]any{
				"productId": product.ID.String(),
				"remaining": avail.Remaining,
			})
	}
	return product, nil
}

func (s *service) newOrder(product *models.Product, sel ProductSelection, pay CardDetails, txn TransactionOutcome) *models.Order {
	subtotal := product.Price.Mul(decimal.NewFromInt(int64(sel.Quantity)))
	tax := subtotal.Mul(s.taxRate).Round(2)
	variants := sel.SelectedVariants
	if variants == nil {
		variants = dbtypes.VariantSelections{}
	}
	digits := card.Clean(pay.CardNumber)
	return &models.Order{
		Item: models.OrderProduct{
			ProductID:        product.ID,
			Name:             product.Name,
			Price:            product.Price,
			Quantity:         sel.Quantity,
			Image:            product.ImageURL,
			SelectedVariants: variants,
		},
		Payment: models.PaymentInfo{
			CardLast4:      card.LastFour(digits),
			CardBrand:      card.DetectBrand(digits),
			ExpiryDate:     strings.TrimSpace(pay.ExpiryDate),
			CardholderName: strings.TrimSpace(pay.CardholderName),
			Result:         txn.Result,
			TransactionID:  optionalString(txn.TransactionID),
			Message:        txn.Message,
			ErrorCode:      optionalString(txn.ErrorCode),
		},
		Status:   txn.Result.OrderStatus(),
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		Currency: s.currency,
	}
}

// persist upserts the customer and inserts order in one transaction. With
// claimStock an approved order also reduces inventory there.
func (s *service) persist(ctx context.Context, order *models.Order, customer *models.Customer, claimStock bool) error {
	number, err := s.numbers.Generate(ctx)
	if err != nil {
		return err
	}
	order.OrderNumber = number
	order.CustomerID = customer.ID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.insert(ctx, s.repo.WithTx(tx), order); err != nil {
			return err
		}
		if !claimStock || !order.Status.HoldsStock() {
			return nil
		}
		item := order.Item
		if err := s.ledger.WithTx(tx).Reduce(ctx, item.ProductID, item.Quantity, item.SelectedVariants); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_number": order.OrderNumber,
				"product_id":   item.ProductID.String(),
				"quantity":     item.Quantity,
			})
			s.logg.Error(logCtx, "approved order rolled back, stock claim failed", err)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Customer = customer
	return nil
}

// insert retries on order number collisions with fresh candidates, within
// the generator's attempt budget.
func (s *service) insert(ctx context.Context, repo Repository, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		err := repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, orderNumberConstraint) && !dbpkg.IsUniqueViolation(err, "orders.order_number") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if attempt >= s.numbers.Attempts() {
			return ordernumber.ErrGenerationExhausted
		}
		s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order number collided on insert, retrying")
		next, err := s.numbers.Candidate()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = next
	}
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderNumber string) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindByNumber(ctx, orderNumber, true)
	if err != nil {
		return nil, orderLookupError(err)
	}
	return order, nil
}

func (s *service) recordCreated(status enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.OrderCreated(string(status))
	}
}

func (s *service) recordTransition(from, to enums.OrderStatus) {
	if s.metrics != nil && from != to {
		s.metrics.StatusTransition(string(from), string(to))
	}
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

// soldOut rewrites a ledger shortfall so the client also learns which order
// was failed because of it.
func soldOut(err error, orderNumber string) error {
	details := map[string]any{"orderNumber": orderNumber}
	message := err.Error()
	if e := pkgerrors.As(err); e != nil {
		message = e.Message()
		if m, ok := e.Details().(map[string]any); ok {
			for k, v := range m {
				details[k] = v
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, message).WithDetails(details)
}
