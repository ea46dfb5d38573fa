package notifications

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/outbox"
)

const defaultTimeout = 5 * time.Second

// FailureRecorder counts notifications that could not be sent inline.
type FailureRecorder interface {
	NotificationFailed(kind string)
}

// Queue stores a notification for a later retry.
type Queue interface {
	Enqueue(ctx context.Context, req outbox.NotificationRequested) error
}

// OutboxQueue writes retry requests to the transactional outbox.
type OutboxQueue struct {
	db  *gorm.DB
	svc *outbox.Service
}

func NewOutboxQueue(db *gorm.DB, svc *outbox.Service) *OutboxQueue {
	return &OutboxQueue{db: db, svc: svc}
}

func (q *OutboxQueue) Enqueue(ctx context.Context, req outbox.NotificationRequested) error {
	return q.svc.EnqueueNotification(ctx, q.db.WithContext(ctx), req)
}

type Options struct {
	Renderer *Renderer
	Sender   Sender
	Queue    Queue
	Metrics  FailureRecorder
	Timeout  time.Duration
	Logger   *logger.Logger
}

// Notifier emails customers about order outcomes. Sending never fails the
// caller's operation: failures are logged, counted and queued for the relay.
type Notifier struct {
	renderer *Renderer
	sender   Sender
	queue    Queue
	metrics  FailureRecorder
	timeout  time.Duration
	logg     *logger.Logger
}

func NewNotifier(opts Options) (*Notifier, error) {
	if opts.Renderer == nil {
		return nil, errors.New("notification renderer required")
	}
	if opts.Sender == nil {
		return nil, errors.New("notification sender required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Notifier{
		renderer: opts.Renderer,
		sender:   opts.Sender,
		queue:    opts.Queue,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		logg:     opts.Logger,
	}, nil
}

// OrderOutcome sends the email matching order's current status. Statuses
// without a template are ignored.
func (n *Notifier) OrderOutcome(ctx context.Context, order *models.Order) {
	if n == nil || order == nil {
		return
	}
	kind, ok := enums.NotificationKindForStatus(order.Status)
	if !ok {
		return
	}
	// The request may already be finished; delivery gets its own deadline.
	sendCtx := context.WithoutCancel(ctx)
	err := n.Deliver(sendCtx, order, kind)
	if err == nil {
		return
	}

	logCtx := n.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"kind":         kind,
	})
	n.logg.Error(logCtx, "order notification failed", err)
	if n.metrics != nil {
		n.metrics.NotificationFailed(string(kind))
	}
	if n.queue == nil {
		return
	}
	req := outbox.NotificationRequested{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Kind:        kind,
		Reason:      err.Error(),
	}
	if qerr := n.queue.Enqueue(sendCtx, req); qerr != nil {
		n.logg.Error(logCtx, "queue notification retry", qerr)
	}
}

// Deliver renders and sends one email, bounded by the notifier timeout.
func (n *Notifier) Deliver(ctx context.Context, order *models.Order, kind enums.NotificationKind) error {
	msg, err := n.renderer.Render(order, kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}
	n.logg.Info(n.logg.WithOrderNumber(ctx, order.OrderNumber), "order notification sent")
	return nil
}
