package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	"github.com/angelmondragon/checkout-backend/internal/customers"
	"github.com/angelmondragon/checkout-backend/internal/ordernumber"
	internalorders "github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/pagination"
)

type addressRequest struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

type customerRequest struct {
	FullName string         `json:"fullName" validate:"required,min=2,max=100"`
	Email    string         `json:"email" validate:"required,email"`
	Phone    string         `json:"phone" validate:"required,min=7,max=20"`
	Address  addressRequest `json:"address"`
}

type variantRequest struct {
	Type  string `json:"type" validate:"required,oneof=color size"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value" validate:"required"`
}

type productRequest struct {
	ProductID        string           `json:"productId" validate:"required,uuid"`
	Quantity         int              `json:"quantity" validate:"required,min=1"`
	SelectedVariants []variantRequest `json:"selectedVariants" validate:"omitempty,dive"`
}

type paymentInfoRequest struct {
	CardNumber     string `json:"cardNumber" validate:"required"`
	ExpiryDate     string `json:"expiryDate" validate:"required,expiry"`
	CardholderName string `json:"cardholderName" validate:"required,min=2,max=100"`
	CVV            string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

type createOrderRequest struct {
	Customer          customerRequest    `json:"customer"`
	Product           productRequest     `json:"product"`
	PaymentInfo       paymentInfoRequest `json:"paymentInfo"`
	TransactionResult string             `json:"transactionResult" validate:"required,oneof=approved declined error pending"`
	TransactionID     string             `json:"transactionId,omitempty" validate:"omitempty,max=64"`
	ErrorCode         string             `json:"errorCode,omitempty" validate:"omitempty,max=64"`
	Message           string             `json:"message,omitempty" validate:"omitempty,max=255"`
}

type checkoutRequest struct {
	Customer    customerRequest    `json:"customer"`
	Product     productRequest     `json:"product"`
	PaymentInfo paymentInfoRequest `json:"paymentInfo"`
}

func (c customerRequest) toInput() customers.Input {
	return customers.Input{
		FullName: strings.TrimSpace(c.FullName),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
		Address: models.Address{
			Street:  strings.TrimSpace(c.Address.Street),
			City:    strings.TrimSpace(c.Address.City),
			State:   strings.TrimSpace(c.Address.State),
			ZipCode: strings.TrimSpace(c.Address.ZipCode),
			Country: strings.TrimSpace(c.Address.Country),
		},
	}
}

func (p productRequest) toSelection() internalorders.ProductSelection {
	variants := make(dbtypes.VariantSelections, 0, len(p.SelectedVariants))
	for _, v := range p.SelectedVariants {
		variants = append(variants, dbtypes.VariantSelection{
			Type:  enums.VariantType(strings.ToLower(v.Type)),
			Value: strings.TrimSpace(v.Value),
		})
	}
	return internalorders.ProductSelection{
		ProductID:        uuid.MustParse(p.ProductID),
		Quantity:         p.Quantity,
		SelectedVariants: variants,
	}
}

func (p paymentInfoRequest) toCard() internalorders.CardDetails {
	return internalorders.CardDetails{
		CardNumber:     p.CardNumber,
		ExpiryDate:     p.ExpiryDate,
		CardholderName: strings.TrimSpace(p.CardholderName),
		CVV:            p.CVV,
	}
}

// Create records an order whose payment was already decided by the client
// flow and claims stock when it was approved.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := enums.ParseTransactionResult(payload.TransactionResult)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transactionResult"))
			return
		}

		placement, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			Customer: payload.Customer.toInput(),
			Product:  payload.Product.toSelection(),
			Payment:  payload.PaymentInfo.toCard(),
			Transaction: internalorders.TransactionOutcome{
				Result:        result,
				TransactionID: strings.TrimSpace(payload.TransactionID),
				ErrorCode:     strings.TrimSpace(payload.ErrorCode),
				Message:       strings.TrimSpace(payload.Message),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placement)
	}
}

// Checkout authorizes the card itself. The order is persisted whatever the
// decision; the status code tells the client which way it went.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), internalorders.CheckoutInput{
			Customer: payload.Customer.toInput(),
			Product:  payload.Product.toSelection(),
			Payment:  payload.PaymentInfo.toCard(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, checkoutStatus(result.Status), result)
	}
}

func checkoutStatus(status enums.OrderStatus) int {
	switch status {
	case enums.OrderStatusApproved:
		return http.StatusCreated
	case enums.OrderStatusDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}

// List is the operator view of all orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internalorders.ListFilter{
			Email:  strings.TrimSpace(r.URL.Query().Get("email")),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = status
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetByID(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// GetByNumber returns the customer-facing view. The card is only ever shown
// masked.
func GetByNumber(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		transition, err := svc.UpdateStatus(r.Context(), orderNumber, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transition)
	}
}

func ResendNotification(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResendNotification(r.Context(), orderNumber); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"orderNumber": orderNumber, "status": "sent"})
	}
}

func orderNumberParam(r *http.Request) (string, error) {
	raw := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "orderNumber")))
	if !ordernumber.Valid(raw) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order number format").WithDetails(map[string]string{"orderNumber": "must look like ORD-XXXX-XXXX"})
	}
	return raw, nil
}
