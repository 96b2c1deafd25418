// Package events defines domain events written through the transactional outbox.
package events

import (
	"context"
	"time"

	"cashpoint/internal/core/id"
)

// Event types.
const (
	TypeSaleCompleted     = "sale.completed"
	TypeSaleVoided        = "sale.voided"
	TypeCashSessionClosed = "cash_session.closed"

	AggregateSale        = "sale"
	AggregateCashSession = "cash_session"
)

// Event is a fact that happened inside a committed transaction.
type Event struct {
	ID            id.ID
	TenantID      id.ID
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
	OccurredAt    time.Time
}

// New builds an event with a fresh ID and timestamp.
func New(tenantID id.ID, aggregateType string, aggregateID id.ID, eventType string, payload any) Event {
	return Event{
		ID:            id.New(),
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher records events. Publish must be called inside the transaction
// whose effects the event describes, so the event commits or rolls back with them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
