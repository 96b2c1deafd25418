package cash_session

import (
	"context"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain"
)

// LockMode selects the row lock taken by a read.
type LockMode int

const (
	LockNone LockMode = iota
	// LockShare keeps the row from being closed while allowing other shared readers.
	LockShare
	// LockUpdate is an exclusive lock.
	LockUpdate
)

// Repository defines persistence for cash sessions and movements.
type Repository interface {
	// LockOpenSlot serializes session opening for a tenant until the transaction ends.
	LockOpenSlot(ctx context.Context, tenantID id.ID) error

	// FindOpen returns the tenant's open session, or nil when none is open.
	FindOpen(ctx context.Context, tenantID id.ID, mode LockMode) (*Session, error)

	// Create inserts an open session. Returns apperror SessionAlreadyOpen when
	// another open session exists for the tenant.
	Create(ctx context.Context, s *Session) error

	GetByID(ctx context.Context, tenantID, sessionID id.ID) (*Session, error)
	GetForUpdate(ctx context.Context, tenantID, sessionID id.ID) (*Session, error)

	// SaveClosing persists the closing fields and status of a locked session.
	SaveClosing(ctx context.Context, s *Session) error

	InsertMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, tenantID, sessionID id.ID) ([]Movement, error)

	// SalesAggregates groups the session's completed sales by payment method.
	SalesAggregates(ctx context.Context, tenantID, sessionID id.ID) ([]MethodAggregate, error)

	// MovementSums returns the total of "in" and "out" movements.
	MovementSums(ctx context.Context, tenantID, sessionID id.ID) (entries, withdrawals types.Money, err error)

	// List returns sessions newest first.
	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[Session], error)
}
