// Package audit defines the audit trail contract for terminal operations
// (voided sales, closed cash sessions, manual stock adjustments).
package audit

import (
	"context"
	"encoding/json"
	"time"

	"cashpoint/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionVoid   Action = "void"
	ActionOpen   Action = "open"
	ActionClose  Action = "close"
	ActionAdjust Action = "adjust"
)

// Entry is a single audit record.
type Entry struct {
	TenantID   id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     id.ID
	UserName   string
	Changes    map[string]any
}

// Recorder persists audit entries. Record joins the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Record is a stored entry with its changes decoded.
type Record struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	UserID     *id.ID          `json:"userId,omitempty"`
	UserName   *string         `json:"userName,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// History reads the audit trail of one entity, newest first.
type History interface {
	EntityHistory(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID, limit int) ([]Record, error)
}
