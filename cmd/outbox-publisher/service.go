package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/outbox"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
	relayName          = "notifications"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchPendingForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

// orderFinder loads an order with its customer through the batch transaction.
type orderFinder func(ctx context.Context, tx *gorm.DB, orderNumber string) (*models.Order, error)

type deliverer interface {
	Deliver(ctx context.Context, order *models.Order, kind enums.NotificationKind) error
}

type relayMetrics interface {
	ObserveBatch(relay string, d time.Duration)
	IncDelivered(eventType string)
	IncFailed(eventType string)
}

// errNonRetryable marks events that can never be delivered.
var errNonRetryable = errors.New("non-retryable")

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Orders     orderFinder
	Deliverer  deliverer
	Metrics    relayMetrics
	// Retention prunes settled rows between batches. Optional.
	Retention retentionRepository
}

type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	orders       orderFinder
	deliverer    deliverer
	metrics      relayMetrics
	retention    *retentionSweep
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order finder is required")
	}
	if params.Deliverer == nil {
		return nil, errors.New("notification deliverer is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var retention *retentionSweep
	if params.Retention != nil {
		retention = newRetentionSweep(params.Logger, params.DB, params.Retention, params.Config.Outbox.RetentionDays)
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		orders:       params.Orders,
		deliverer:    params.Deliverer,
		metrics:      params.Metrics,
		retention:    retention,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if s.retention != nil {
			if err := s.retention.MaybeRun(ctx); err != nil {
				s.logg.Error(ctx, "outbox retention failed", err)
			}
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch delivers one batch. A failing event never blocks the rest;
// bookkeeping errors are collected and returned together so the transaction
// rolls back and the whole batch is retried.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	start := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchPendingForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		var markErrs error
		for _, event := range events {
			markErrs = multierr.Append(markErrs, s.handle(ctx, tx, event))
		}
		return markErrs
	})
	if processed && s.metrics != nil {
		s.metrics.ObserveBatch(relayName, time.Since(start))
	}
	return processed, err
}

func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	fields := s.eventFields(event)

	req, err := s.decode(event)
	if err != nil {
		return s.handleTerminal(ctx, tx, event, err, fields)
	}
	fields["order_number"] = req.OrderNumber
	fields["kind"] = req.Kind

	if err := s.deliver(ctx, tx, req); err != nil {
		if errors.Is(err, errNonRetryable) {
			return s.handleTerminal(ctx, tx, event, err, fields)
		}
		s.recordFailure(event)

		nextAttempt := event.AttemptCount + 1
		fields["attempt_count"] = nextAttempt
		if nextAttempt >= s.maxAttempts {
			fields["terminal_reason"] = "max_attempts"
			return s.handleTerminal(ctx, tx, event, fmt.Errorf("max delivery attempts reached: %w", err), fields)
		}

		ctxWithFields := s.logg.WithFields(ctx, fields)
		ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
		s.logg.Warn(ctxWithFields, "notification delivery failed")
		if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return nil
	}

	if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, markErr)
	}
	if s.metrics != nil {
		s.metrics.IncDelivered(string(event.EventType))
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "notification delivered")
	return nil
}

func (s *Service) decode(event models.OutboxEvent) (outbox.NotificationRequested, error) {
	if event.EventType != enums.EventNotificationRequested {
		return outbox.NotificationRequested{}, fmt.Errorf("%w: unsupported event type %q", errNonRetryable, event.EventType)
	}
	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return outbox.NotificationRequested{}, fmt.Errorf("%w: %v", errNonRetryable, err)
	}
	req, err := outbox.DecodeNotification(env)
	if err != nil {
		return outbox.NotificationRequested{}, fmt.Errorf("%w: %v", errNonRetryable, err)
	}
	return req, nil
}

func (s *Service) deliver(ctx context.Context, tx *gorm.DB, req outbox.NotificationRequested) error {
	order, err := s.orders(ctx, tx, req.OrderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %s not found", errNonRetryable, req.OrderNumber)
		}
		return err
	}
	if kind, ok := enums.NotificationKindForStatus(order.Status); !ok || kind != req.Kind {
		// The order moved on since the event was queued; a newer event covers it.
		return fmt.Errorf("%w: order %s is %s, notification %s is stale", errNonRetryable, order.OrderNumber, order.Status, req.Kind)
	}
	return s.deliverer.Deliver(ctx, order, req.Kind)
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, err error, fields map[string]any) error {
	ctxWithFields := s.logg.WithFields(ctx, fields)
	ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
	s.logg.Warn(ctxWithFields, "outbox event will not be retried")

	if errors.Is(err, errNonRetryable) {
		s.recordFailure(event)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) recordFailure(event models.OutboxEvent) {
	if s.metrics != nil {
		s.metrics.IncFailed(string(event.EventType))
	}
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
