package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

const notificationPayloadVersion = 1

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// NotificationRequested asks the relay to (re)send an order email.
type NotificationRequested struct {
	OrderID     uuid.UUID              `json:"orderId"`
	OrderNumber string                 `json:"orderNumber"`
	Kind        enums.NotificationKind `json:"kind"`
	Reason      string                 `json:"reason,omitempty"`
}

// DecodeEnvelope parses a stored payload column.
func DecodeEnvelope(payload string) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode outbox envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, fmt.Errorf("decode outbox envelope: missing eventId")
	}
	return env, nil
}

// DecodeNotification extracts a NotificationRequested from an envelope.
func DecodeNotification(env PayloadEnvelope) (NotificationRequested, error) {
	if env.Version != notificationPayloadVersion {
		return NotificationRequested{}, fmt.Errorf("unsupported notification payload version %d", env.Version)
	}
	var data NotificationRequested
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return NotificationRequested{}, fmt.Errorf("decode notification payload: %w", err)
	}
	if data.OrderNumber == "" {
		return NotificationRequested{}, fmt.Errorf("decode notification payload: missing orderNumber")
	}
	return data, nil
}
