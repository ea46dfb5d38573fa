package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type stubOrdersService struct {
	createIn   *internalorders.CreateOrderInput
	checkoutIn *internalorders.CheckoutInput
	checkout   func(internalorders.CheckoutInput) (*internalorders.CheckoutResult, error)
	update     func(string, enums.OrderStatus) (*internalorders.Transition, error)
	listFilter internalorders.ListFilter
	lookedUp   string
	resent     string
}

func (s *stubOrdersService) CreateOrder(_ context.Context, in internalorders.CreateOrderInput) (*internalorders.Placement, error) {
	s.createIn = &in
	return &internalorders.Placement{
		OrderNumber: "ORD-ABCD1234-EFGH",
		Status:      in.Transaction.Result.OrderStatus(),
		Total:       decimal.RequireFromString("485.97"),
	}, nil
}

func (s *stubOrdersService) Checkout(_ context.Context, in internalorders.CheckoutInput) (*internalorders.CheckoutResult, error) {
	s.checkoutIn = &in
	return s.checkout(in)
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, orderNumber string, status enums.OrderStatus) (*internalorders.Transition, error) {
	return s.update(orderNumber, status)
}

func (s *stubOrdersService) GetByNumber(_ context.Context, orderNumber string) (*internalorders.OrderDTO, error) {
	s.lookedUp = orderNumber
	return &internalorders.OrderDTO{OrderNumber: orderNumber}, nil
}

func (s *stubOrdersService) GetByID(_ context.Context, id uuid.UUID) (*internalorders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrdersService) List(_ context.Context, filter internalorders.ListFilter) (*internalorders.ListResult, error) {
	s.listFilter = filter
	return &internalorders.ListResult{Orders: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrdersService) ResendNotification(_ context.Context, orderNumber string) error {
	s.resent = orderNumber
	return nil
}

const validOrderNumber = "ORD-ABCD1234-EFGH"

func withOrderNumber(req *http.Request, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderNumber", value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutBody(productID string) string {
	return `{
		"customer": {
			"fullName": "Jane Doe",
			"email": "Jane@Example.com",
			"phone": "+1 555 0100",
			"address": {"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701", "country": "US"}
		},
		"product": {"productId": "` + productID + `", "quantity": 3, "selectedVariants": [{"type": "color", "name": "Color", "value": "black"}]},
		"paymentInfo": {"cardNumber": "4242424242424242", "expiryDate": "12/30", "cardholderName": "Jane Doe", "cvv": "123"}
	}`
}

func orderBody(productID, transactionResult string) string {
	body := strings.TrimSuffix(strings.TrimSpace(checkoutBody(productID)), "}")
	return body + `, "transactionResult": "` + transactionResult + `"}`
}

func TestCreateMapsRequest(t *testing.T) {
	svc := &stubOrdersService{}
	productID := uuid.New()
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody(productID.String(), "approved"))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	in := svc.createIn
	if in == nil {
		t.Fatal("service not called")
	}
	if in.Product.ProductID != productID || in.Product.Quantity != 3 || len(in.Product.SelectedVariants) != 1 {
		t.Fatalf("unexpected product mapping %+v", in.Product)
	}
	if in.Transaction.Result != enums.TransactionApproved {
		t.Fatalf("unexpected transaction %+v", in.Transaction)
	}
	if in.Customer.Address.ZipCode != "62701" {
		t.Fatalf("unexpected address %+v", in.Customer.Address)
	}

	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["orderNumber"] != validOrderNumber || env.Data["status"] != "approved" || env.Data["total"] != "485.97" {
		t.Fatalf("unexpected body %v", env.Data)
	}
	if _, leaked := env.Data["order"]; leaked {
		t.Fatalf("full order should not be in the create response")
	}
}

func TestCreateAcceptsPendingResult(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody(uuid.NewString(), "pending"))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createIn == nil || svc.createIn.Transaction.Result != enums.TransactionPending {
		t.Fatalf("unexpected transaction %+v", svc.createIn)
	}

	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["status"] != "pending" {
		t.Fatalf("expected pending status, got %v", env.Data)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := map[string]string{
		"bad product id":     orderBody("not-a-uuid", "approved"),
		"bad result":         orderBody(uuid.NewString(), "maybe"),
		"bad email":          strings.Replace(orderBody(uuid.NewString(), "approved"), "Jane@Example.com", "jane", 1),
		"bad expiry":         strings.Replace(orderBody(uuid.NewString(), "approved"), "12/30", "1230", 1),
		"missing zip":        strings.Replace(orderBody(uuid.NewString(), "approved"), `"zipCode": "62701", `, "", 1),
		"unknown field":      strings.Replace(orderBody(uuid.NewString(), "approved"), `"transactionResult"`, `"extra": 1, "transactionResult"`, 1),
		"bad variant type":   strings.Replace(orderBody(uuid.NewString(), "approved"), `"type": "color"`, `"type": "flavor"`, 1),
		"non numeric cvv":    strings.Replace(orderBody(uuid.NewString(), "approved"), `"cvv": "123"`, `"cvv": "12a"`, 1),
		"zero quantity":      strings.Replace(orderBody(uuid.NewString(), "approved"), `"quantity": 3`, `"quantity": 0`, 1),
		"malformed json":     `{"customer":`,
		"missing everything": `{}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &stubOrdersService{}
			rec := httptest.NewRecorder()
			Create(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if svc.createIn != nil {
				t.Fatalf("service should not be called")
			}
		})
	}
}

func TestCreateValidationNamesNestedField(t *testing.T) {
	body := strings.Replace(orderBody(uuid.NewString(), "approved"), `"zipCode": "62701", `, "", 1)
	rec := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))
	if !strings.Contains(rec.Body.String(), `"customer.address.zipCode"`) {
		t.Fatalf("expected nested field path, got %s", rec.Body.String())
	}
}

func TestCheckoutStatusFollowsDecision(t *testing.T) {
	tests := []struct {
		status enums.OrderStatus
		result enums.TransactionResult
		want   int
	}{
		{enums.OrderStatusApproved, enums.TransactionApproved, http.StatusCreated},
		{enums.OrderStatusDeclined, enums.TransactionDeclined, http.StatusPaymentRequired},
		{enums.OrderStatusFailed, enums.TransactionError, http.StatusBadGateway},
	}
	for _, tt := range tests {
		svc := &stubOrdersService{checkout: func(internalorders.CheckoutInput) (*internalorders.CheckoutResult, error) {
			return &internalorders.CheckoutResult{
				OrderNumber: validOrderNumber,
				Status:      tt.status,
				Payment:     payment.Result{Result: tt.result},
			}, nil
		}}
		body := checkoutBody(uuid.NewString())
		rec := httptest.NewRecorder()
		Checkout(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body)))
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d: %s", tt.status, tt.want, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), validOrderNumber) {
			t.Fatalf("expected order number in body, got %s", rec.Body.String())
		}
	}
}

func TestCheckoutSurfacesShortage(t *testing.T) {
	svc := &stubOrdersService{checkout: func(internalorders.CheckoutInput) (*internalorders.CheckoutResult, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientInventory, "Only 2 items available in stock").WithDetails(map[string]any{"remaining": 2})
	}}
	body := checkoutBody(uuid.NewString())
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Only 2 items available in stock") {
		t.Fatalf("expected shortage message, got %s", rec.Body.String())
	}
}

func TestGetByNumberValidatesFormat(t *testing.T) {
	svc := &stubOrdersService{}

	rec := httptest.NewRecorder()
	GetByNumber(svc, nil).ServeHTTP(rec, withOrderNumber(httptest.NewRequest(http.MethodGet, "/", nil), strings.ToLower(validOrderNumber)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lookedUp != validOrderNumber {
		t.Fatalf("expected normalized lookup, got %q", svc.lookedUp)
	}

	rec = httptest.NewRecorder()
	GetByNumber(svc, nil).ServeHTTP(rec, withOrderNumber(httptest.NewRequest(http.MethodGet, "/", nil), "12345"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	GetByID(&stubOrdersService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateStatusResponses(t *testing.T) {
	svc := &stubOrdersService{update: func(orderNumber string, status enums.OrderStatus) (*internalorders.Transition, error) {
		if status == enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from approved to pending")
		}
		return &internalorders.Transition{OrderNumber: orderNumber, PreviousStatus: enums.OrderStatusApproved, Status: status}, nil
	}}

	tests := []struct {
		body string
		want int
	}{
		{`{"status":"refunded"}`, http.StatusOK},
		{`{"status":"pending"}`, http.StatusUnprocessableEntity},
		{`{"status":"shipped"}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := withOrderNumber(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)), validOrderNumber)
		UpdateStatus(svc, nil).ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.body, tt.want, rec.Code)
		}
	}
}

func TestUpdateStatusBody(t *testing.T) {
	svc := &stubOrdersService{update: func(orderNumber string, status enums.OrderStatus) (*internalorders.Transition, error) {
		return &internalorders.Transition{OrderNumber: orderNumber, PreviousStatus: enums.OrderStatusApproved, Status: status}, nil
	}}
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, withOrderNumber(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"refunded"}`)), validOrderNumber))

	var env struct {
		Data internalorders.Transition `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.PreviousStatus != enums.OrderStatusApproved || env.Data.Status != enums.OrderStatusRefunded {
		t.Fatalf("unexpected transition %+v", env.Data)
	}
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders?status=approved&email=jane@example.com&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.listFilter.Status != enums.OrderStatusApproved || svc.listFilter.Email != "jane@example.com" || svc.listFilter.Limit != 5 {
		t.Fatalf("unexpected filter %+v", svc.listFilter)
	}

	rec = httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders?status=lost", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResendNotification(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	ResendNotification(svc, nil).ServeHTTP(rec, withOrderNumber(httptest.NewRequest(http.MethodPost, "/", nil), validOrderNumber))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if svc.resent != validOrderNumber {
		t.Fatalf("expected resend for %s, got %q", validOrderNumber, svc.resent)
	}
}
