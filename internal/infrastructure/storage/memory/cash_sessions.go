package memory

import (
	"context"
	"sort"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
)

var _ cash_session.Repository = (*CashSessionRepo)(nil)

// CashSessionRepo implements cash_session.Repository.
type CashSessionRepo struct{ s *Store }

func (s *Store) CashSessions() *CashSessionRepo { return &CashSessionRepo{s: s} }

func (r *CashSessionRepo) LockOpenSlot(ctx context.Context, tenantID id.ID) error {
	return r.s.lock(ctx, openSlotKey(tenantID))
}

func (r *CashSessionRepo) FindOpen(ctx context.Context, tenantID id.ID, mode cash_session.LockMode) (*cash_session.Session, error) {
	for _, candidate := range r.openSessions(tenantID) {
		if mode == cash_session.LockNone {
			c := candidate
			return &c, nil
		}
		if err := r.s.lock(ctx, sessionKey(candidate.ID)); err != nil {
			return nil, err
		}
		// Re-read under the lock: the session may have been closed meanwhile.
		current, err := r.GetByID(ctx, tenantID, candidate.ID)
		if err != nil {
			return nil, err
		}
		if current.IsOpen() {
			return current, nil
		}
	}
	return nil, nil
}

func (r *CashSessionRepo) openSessions(tenantID id.ID) []cash_session.Session {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]cash_session.Session, 0, 1)
	for _, cs := range r.s.sessions {
		if cs.TenantID == tenantID && cs.IsOpen() {
			out = append(out, cs)
		}
	}
	return out
}

func (r *CashSessionRepo) Create(ctx context.Context, cs *cash_session.Session) error {
	if open := r.openSessions(cs.TenantID); len(open) > 0 {
		return apperror.NewSessionAlreadyOpen(open[0].ID.String())
	}

	row := *cs
	r.s.write(ctx,
		func() { r.s.sessions[row.ID] = row },
		func() { delete(r.s.sessions, row.ID) },
	)
	return nil
}

func (r *CashSessionRepo) GetByID(ctx context.Context, tenantID, sessionID id.ID) (*cash_session.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cs, ok := r.s.sessions[sessionID]
	if !ok || cs.TenantID != tenantID {
		return nil, apperror.NewNotFound("cash session", sessionID)
	}
	return &cs, nil
}

func (r *CashSessionRepo) GetForUpdate(ctx context.Context, tenantID, sessionID id.ID) (*cash_session.Session, error) {
	if _, err := r.GetByID(ctx, tenantID, sessionID); err != nil {
		return nil, err
	}
	if err := r.s.lock(ctx, sessionKey(sessionID)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tenantID, sessionID)
}

func (r *CashSessionRepo) SaveClosing(ctx context.Context, cs *cash_session.Session) error {
	old, err := r.GetByID(ctx, cs.TenantID, cs.ID)
	if err != nil {
		return err
	}

	prev, row := *old, *cs
	r.s.write(ctx,
		func() { r.s.sessions[row.ID] = row },
		func() { r.s.sessions[row.ID] = prev },
	)
	return nil
}

func (r *CashSessionRepo) InsertMovement(ctx context.Context, m *cash_session.Movement) error {
	row := *m
	r.s.write(ctx,
		func() { r.s.cashMovements = append(r.s.cashMovements, row) },
		func() {
			r.s.cashMovements = removeByID(r.s.cashMovements, row.ID, func(m cash_session.Movement) id.ID { return m.ID })
		},
	)
	return nil
}

func (r *CashSessionRepo) ListMovements(ctx context.Context, tenantID, sessionID id.ID) ([]cash_session.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]cash_session.Movement, 0)
	for _, m := range r.s.cashMovements {
		if m.TenantID == tenantID && m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *CashSessionRepo) SalesAggregates(ctx context.Context, tenantID, sessionID id.ID) ([]cash_session.MethodAggregate, error) {
	r.s.mu.RLock()
	byMethod := make(map[sale.PaymentMethod]*cash_session.MethodAggregate)
	for _, sl := range r.s.sales {
		if sl.TenantID != tenantID || sl.Status != sale.StatusCompleted {
			continue
		}
		if sl.CashSessionID == nil || *sl.CashSessionID != sessionID {
			continue
		}
		agg, ok := byMethod[sl.PaymentMethod]
		if !ok {
			agg = &cash_session.MethodAggregate{
				PaymentMethod: string(sl.PaymentMethod),
				Total:         types.Zero(),
				ChangeGiven:   types.Zero(),
			}
			byMethod[sl.PaymentMethod] = agg
		}
		agg.Count++
		agg.Total = agg.Total.Add(sl.Total)
		agg.ChangeGiven = agg.ChangeGiven.Add(sl.Change)
	}
	r.s.mu.RUnlock()

	out := make([]cash_session.MethodAggregate, 0, len(byMethod))
	for _, m := range sale.PaymentMethods {
		if agg, ok := byMethod[m]; ok {
			out = append(out, *agg)
		}
	}
	return out, nil
}

func (r *CashSessionRepo) MovementSums(ctx context.Context, tenantID, sessionID id.ID) (types.Money, types.Money, error) {
	entries, withdrawals := types.Zero(), types.Zero()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.cashMovements {
		if m.TenantID != tenantID || m.SessionID != sessionID {
			continue
		}
		switch m.Type {
		case cash_session.MovementIn:
			entries = entries.Add(m.Amount)
		case cash_session.MovementOut:
			withdrawals = withdrawals.Add(m.Amount)
		}
	}
	return entries, withdrawals, nil
}

func (r *CashSessionRepo) List(ctx context.Context, tenantID id.ID, filter cash_session.ListFilter) (domain.ListResult[cash_session.Session], error) {
	r.s.mu.RLock()
	out := make([]cash_session.Session, 0)
	for _, cs := range r.s.sessions {
		if cs.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && cs.Status != *filter.Status {
			continue
		}
		out = append(out, cs)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return domain.Paginate(out, domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}), nil
}
