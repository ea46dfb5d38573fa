package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/outbox"
)

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent []Message
	wait bool
}

func (s *stubSender) Send(ctx context.Context, msg Message) error {
	if s.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type countingRecorder struct {
	kinds []string
}

func (c *countingRecorder) NotificationFailed(kind string) {
	c.kinds = append(c.kinds, kind)
}

type memoryQueue struct {
	reqs []outbox.NotificationRequested
	err  error
}

func (q *memoryQueue) Enqueue(_ context.Context, req outbox.NotificationRequested) error {
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, req)
	return nil
}

func sampleOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-LOYW3V28-A1B2C3",
		Customer: &models.Customer{
			FullName: "Jane Doe",
			Email:    "jane@example.com",
			Address: models.Address{
				Street:  "1 Main St",
				City:    "Springfield",
				State:   "IL",
				ZipCode: "62701",
				Country: "US",
			},
		},
		Item: models.OrderProduct{
			Name:     "Trail Runner",
			Price:    decimal.RequireFromString("49.99"),
			Quantity: 2,
			SelectedVariants: dbtypes.VariantSelections{
				{Type: enums.VariantTypeColor, Value: "Red"},
				{Type: enums.VariantTypeSize, Value: "M"},
			},
		},
		Payment: models.PaymentInfo{
			CardLast4: "4242",
			Result:    enums.TransactionApproved,
		},
		Status:    status,
		Subtotal:  decimal.RequireFromString("99.98"),
		Tax:       decimal.RequireFromString("8.00"),
		Total:     decimal.RequireFromString("107.98"),
		CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func newTestNotifier(t *testing.T, sender Sender, queue Queue, rec FailureRecorder) *Notifier {
	t.Helper()
	renderer, err := NewRenderer("https://shop.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	n, err := NewNotifier(Options{
		Renderer: renderer,
		Sender:   sender,
		Queue:    queue,
		Metrics:  rec,
		Timeout:  50 * time.Millisecond,
		Logger:   logger.Nop(),
	})
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	return n
}

func TestRenderConfirmation(t *testing.T) {
	renderer, err := NewRenderer("https://shop.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	msg, err := renderer.Render(sampleOrder(enums.OrderStatusApproved), enums.NotificationOrderConfirmation)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Order Confirmation - ORD-LOYW3V28-A1B2C3" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.To != "jane@example.com" || msg.ToName != "Jane Doe" {
		t.Fatalf("unexpected recipient %q %q", msg.To, msg.ToName)
	}
	for _, want := range []string{"Hi Jane Doe", "Quantity: 2", "Selected Options: color: Red, size: M", "Total: $107.98", "Springfield, IL 62701"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("text missing %q:\n%s", want, msg.Text)
		}
	}
	if !strings.Contains(msg.HTML, "March 4, 2026") || !strings.Contains(msg.HTML, "$49.99") {
		t.Fatalf("html missing order details")
	}
}

func TestRenderFailureReasons(t *testing.T) {
	renderer, err := NewRenderer("https://shop.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	order := sampleOrder(enums.OrderStatusDeclined)
	order.Payment.Result = enums.TransactionDeclined
	msg, err := renderer.Render(order, enums.NotificationOrderFailure)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Order Payment Failed - ORD-LOYW3V28-A1B2C3" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Reason: Your payment was declined by your bank.") {
		t.Fatalf("text missing reason:\n%s", msg.Text)
	}

	order.Payment.Result = enums.TransactionError
	if got := FailureReason(order); got != "There was a technical error processing your payment." {
		t.Fatalf("unexpected error reason %q", got)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	renderer, err := NewRenderer("https://shop.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	order := sampleOrder(enums.OrderStatusRefunded)
	order.Customer.FullName = "<script>x</script>"
	msg, err := renderer.Render(order, enums.NotificationOrderRefund)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatalf("customer name was not escaped")
	}
}

func TestRenderRequiresCustomer(t *testing.T) {
	renderer, err := NewRenderer("")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	order := sampleOrder(enums.OrderStatusApproved)
	order.Customer = nil
	if _, err := renderer.Render(order, enums.NotificationOrderConfirmation); err == nil {
		t.Fatalf("expected error without customer")
	}
	if _, err := renderer.Render(sampleOrder(enums.OrderStatusApproved), enums.NotificationKind("bogus")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestOrderOutcomeSendsForStatus(t *testing.T) {
	sender := &stubSender{}
	n := newTestNotifier(t, sender, &memoryQueue{}, &countingRecorder{})

	n.OrderOutcome(context.Background(), sampleOrder(enums.OrderStatusApproved))
	n.OrderOutcome(context.Background(), sampleOrder(enums.OrderStatusPending))

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	if !strings.HasPrefix(sender.sent[0].Subject, "Order Confirmation") {
		t.Fatalf("unexpected subject %q", sender.sent[0].Subject)
	}
}

func TestOrderOutcomeFailureIsQueuedAndCounted(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	queue := &memoryQueue{}
	rec := &countingRecorder{}
	n := newTestNotifier(t, sender, queue, rec)
	order := sampleOrder(enums.OrderStatusFailed)

	n.OrderOutcome(context.Background(), order)

	if len(rec.kinds) != 1 || rec.kinds[0] != string(enums.NotificationOrderFailure) {
		t.Fatalf("unexpected failure metrics %v", rec.kinds)
	}
	if len(queue.reqs) != 1 {
		t.Fatalf("expected 1 queued retry, got %d", len(queue.reqs))
	}
	req := queue.reqs[0]
	if req.OrderID != order.ID || req.Kind != enums.NotificationOrderFailure || !strings.Contains(req.Reason, "connection refused") {
		t.Fatalf("unexpected queued request %+v", req)
	}
}

func TestOrderOutcomeSurvivesQueueFailure(t *testing.T) {
	n := newTestNotifier(t, &stubSender{err: errors.New("down")}, &memoryQueue{err: errors.New("db down")}, nil)
	n.OrderOutcome(context.Background(), sampleOrder(enums.OrderStatusApproved))
}

func TestOrderOutcomeTimesOutAfterCallerCancel(t *testing.T) {
	queue := &memoryQueue{}
	n := newTestNotifier(t, &stubSender{wait: true}, queue, &countingRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	n.OrderOutcome(ctx, sampleOrder(enums.OrderStatusApproved))
	if time.Since(start) < 40*time.Millisecond {
		t.Fatalf("send should run until its own deadline, not the caller's")
	}
	if len(queue.reqs) != 1 || !strings.Contains(queue.reqs[0].Reason, context.DeadlineExceeded.Error()) {
		t.Fatalf("expected deadline retry, got %+v", queue.reqs)
	}
}

func TestOutboxQueueWritesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	q := NewOutboxQueue(conn, outbox.NewService(outbox.NewRepository(conn), logger.Nop()))
	order := sampleOrder(enums.OrderStatusApproved)

	err := q.Enqueue(context.Background(), outbox.NotificationRequested{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Kind:        enums.NotificationOrderConfirmation,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pending, err := outbox.NewRepository(conn).CountPending(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending event, got %d", pending)
	}
}

func TestLogSenderRequiresRecipient(t *testing.T) {
	s := NewLogSender(logger.Nop())
	if err := s.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
	if err := s.Send(context.Background(), Message{To: "a@b.co", Subject: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
