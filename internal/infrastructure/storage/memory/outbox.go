package memory

import (
	"context"
	"encoding/json"
	"time"

	"cashpoint/internal/core/events"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain/audit"
)

var (
	_ events.Publisher = (*Outbox)(nil)
	_ audit.Recorder   = (*AuditLog)(nil)
	_ audit.History    = (*AuditLog)(nil)
)

// Outbox keeps published events in memory; they roll back with the transaction.
type Outbox struct{ s *Store }

func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

func (o *Outbox) Publish(ctx context.Context, e events.Event) error {
	o.s.write(ctx,
		func() { o.s.outbox = append(o.s.outbox, e) },
		func() { o.s.outbox = removeByID(o.s.outbox, e.ID, func(e events.Event) id.ID { return e.ID }) },
	)
	return nil
}

// Events returns a copy of all committed (or in-flight) events.
func (o *Outbox) Events() []events.Event {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return append([]events.Event(nil), o.s.outbox...)
}

// AuditLog keeps audit entries in memory.
type AuditLog struct{ s *Store }

type auditRow struct {
	id    id.ID
	at    time.Time
	entry audit.Entry
}

func (s *Store) Audit() *AuditLog { return &AuditLog{s: s} }

func (a *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	row := &auditRow{id: id.New(), at: time.Now().UTC(), entry: e}
	a.s.write(ctx,
		func() { a.s.auditLog = append(a.s.auditLog, row) },
		func() {
			for i := len(a.s.auditLog) - 1; i >= 0; i-- {
				if a.s.auditLog[i] == row {
					a.s.auditLog = append(a.s.auditLog[:i:i], a.s.auditLog[i+1:]...)
					return
				}
			}
		},
	)
	return nil
}

func (a *AuditLog) Entries() []audit.Entry {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := make([]audit.Entry, 0, len(a.s.auditLog))
	for _, r := range a.s.auditLog {
		out = append(out, r.entry)
	}
	return out
}

// EntityHistory returns the entity's entries newest first.
func (a *AuditLog) EntityHistory(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID, limit int) ([]audit.Record, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []audit.Record{}
	for i := len(a.s.auditLog) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		r := a.s.auditLog[i]
		e := r.entry
		if e.TenantID != tenantID || e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		changes, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, err
		}
		rec := audit.Record{
			ID:         r.id,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     e.Action,
			Changes:    changes,
			CreatedAt:  r.at,
		}
		if !id.IsNil(e.UserID) {
			userID := e.UserID
			rec.UserID = &userID
		}
		if e.UserName != "" {
			name := e.UserName
			rec.UserName = &name
		}
		out = append(out, rec)
	}
	return out, nil
}
