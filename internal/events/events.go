// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/talkincode/thriftmart/internal/domain"
)

const (
	OrderCreated   = "orders.created"
	OrderProcessed = "orders.processed"
	OrderDeleted   = "orders.deleted"
)

// OrderEvent is the payload sent for every order lifecycle change. Order is
// nil for deletions.
type OrderEvent struct {
	Type    string            `json:"type"`
	OrderID int64             `json:"order_id"`
	At      time.Time         `json:"at"`
	Order   *domain.OrderView `json:"order,omitempty"`
}

// Key partitions events of one order together.
func (e OrderEvent) Key() string {
	return strconv.FormatInt(e.OrderID, 10)
}

// Publisher delivers events. Publish must not block on the broker; delivery
// failures are reported out of band.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// Topic joins the configured prefix and an event type.
func Topic(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
