// Package notify emits order lifecycle events to interested consumers
// (websocket fan-out, notification workers, reporting). Emission is
// fire-and-forget: the broker's correctness never depends on an event being
// delivered, so implementations log failures and move on.
package notify

import (
	"context"
	"time"
)

// Event is one order lifecycle notification.
type Event struct {
	Type       string    `json:"type"` // order.created, order.status, order.cancelled
	OrderID    string    `json:"order_id"`
	BusinessID string    `json:"business_id"`
	CarrierKey string    `json:"carrier_key"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers events asynchronously.
type Notifier interface {
	OrderEvent(ctx context.Context, event Event)
}

// Nop is a Notifier that drops every event.
type Nop struct{}

// OrderEvent discards the event.
func (Nop) OrderEvent(ctx context.Context, event Event) {}
