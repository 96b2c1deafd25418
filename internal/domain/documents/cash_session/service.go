package cash_session

import (
	"context"
	"fmt"
	"time"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/events"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/audit"
	"cashpoint/pkg/logger"
)

// Service manages the cash session lifecycle.
type Service struct {
	repo      Repository
	txManager tx.Manager
	events    events.Publisher
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new cash session service.
func NewService(repo Repository, txManager tx.Manager, publisher events.Publisher, recorder audit.Recorder) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		events:    publisher,
		audit:     recorder,
		now:       time.Now,
	}
}

// Open starts a session. At most one session per tenant may be open.
func (s *Service) Open(ctx context.Context, actor appctx.Actor, openingAmount types.Money) (*Session, error) {
	if openingAmount.IsNegative() {
		return nil, apperror.NewValidation("opening amount must not be negative")
	}

	session := &Session{
		ID:            id.New(),
		TenantID:      actor.TenantID,
		OpenedBy:      actor.UserID,
		OpenedByName:  actor.UserName,
		OpeningAmount: openingAmount,
		OpenedAt:      s.now().UTC(),
		Status:        StatusOpen,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockOpenSlot(ctx, actor.TenantID); err != nil {
			return fmt.Errorf("lock open session slot: %w", err)
		}

		existing, err := s.repo.FindOpen(ctx, actor.TenantID, LockUpdate)
		if err != nil {
			return fmt.Errorf("find open session: %w", err)
		}
		if existing != nil {
			return apperror.NewSessionAlreadyOpen(existing.ID.String())
		}

		if err := s.repo.Create(ctx, session); err != nil {
			return err
		}

		return s.audit.Record(ctx, audit.Entry{
			TenantID:   actor.TenantID,
			EntityType: events.AggregateCashSession,
			EntityID:   session.ID,
			Action:     audit.ActionOpen,
			UserID:     actor.UserID,
			UserName:   actor.UserName,
			Changes:    map[string]any{"openingAmount": openingAmount.StringFixed(types.MoneyPlaces)},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash session opened", "session_id", session.ID, "opening_amount", openingAmount.String())
	return session, nil
}

// AddMovement records a manual cash entry or withdrawal on an open session.
func (s *Service) AddMovement(ctx context.Context, actor appctx.Actor, sessionID id.ID, in MovementInput) (*Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var m *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.GetForUpdate(ctx, actor.TenantID, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewSessionClosed(sessionID.String())
		}

		m = &Movement{
			ID:            id.New(),
			TenantID:      actor.TenantID,
			SessionID:     sessionID,
			Type:          in.Type,
			Amount:        in.Amount,
			Reason:        in.Reason,
			Notes:         in.Notes,
			CreatedBy:     actor.UserID,
			CreatedByName: actor.UserName,
			CreatedAt:     s.now().UTC(),
		}
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert cash movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash movement recorded",
		"session_id", sessionID,
		"type", m.Type,
		"amount", m.Amount.String(),
	)
	return m, nil
}

// LiveTotals returns the running aggregates of a session without the expected
// cash. For a closed session the totals persisted at close are returned.
func (s *Service) LiveTotals(ctx context.Context, actor appctx.Actor, sessionID id.ID) (Totals, error) {
	session, err := s.repo.GetByID(ctx, actor.TenantID, sessionID)
	if err != nil {
		return Totals{}, err
	}
	if !session.IsOpen() && session.Totals != nil {
		return *session.Totals, nil
	}

	var totals Totals
	err = s.txManager.Snapshot(ctx, func(ctx context.Context) error {
		totals, err = s.computeTotals(ctx, actor.TenantID, sessionID)
		return err
	})
	return totals, err
}

// Close performs the blind-count reconciliation and settles the session.
func (s *Service) Close(ctx context.Context, actor appctx.Actor, sessionID id.ID, in CloseInput) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var session *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.repo.GetForUpdate(ctx, actor.TenantID, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewAlreadySettled(sessionID.String())
		}

		// In-flight sales hold the session row, so the aggregates below are final.
		totals, err := s.computeTotals(ctx, actor.TenantID, sessionID)
		if err != nil {
			return err
		}
		rec := Reconcile(session.OpeningAmount, totals, in.ActualCash)

		now := s.now().UTC()
		closedBy := actor.UserID
		closedByName := actor.UserName
		session.Status = StatusClosed
		session.ClosedBy = &closedBy
		session.ClosedByName = &closedByName
		session.ClosedAt = &now
		session.Totals = &totals
		session.ExpectedCash = &rec.Expected
		session.ActualCash = &rec.Actual
		session.Difference = &rec.Difference
		session.ClosingStatus = &rec.Status
		session.Observations = in.Observations

		if err := s.repo.SaveClosing(ctx, session); err != nil {
			return fmt.Errorf("save closing: %w", err)
		}

		err = s.audit.Record(ctx, audit.Entry{
			TenantID:   actor.TenantID,
			EntityType: events.AggregateCashSession,
			EntityID:   sessionID,
			Action:     audit.ActionClose,
			UserID:     actor.UserID,
			UserName:   actor.UserName,
			Changes: map[string]any{
				"expectedCash":  rec.Expected.StringFixed(types.MoneyPlaces),
				"actualCash":    rec.Actual.StringFixed(types.MoneyPlaces),
				"difference":    rec.Difference.StringFixed(types.MoneyPlaces),
				"closingStatus": rec.Status,
			},
		})
		if err != nil {
			return fmt.Errorf("record audit: %w", err)
		}

		return s.events.Publish(ctx, events.New(actor.TenantID, events.AggregateCashSession, sessionID, events.TypeCashSessionClosed, map[string]any{
			"expectedCash":  rec.Expected.StringFixed(types.MoneyPlaces),
			"actualCash":    rec.Actual.StringFixed(types.MoneyPlaces),
			"difference":    rec.Difference.StringFixed(types.MoneyPlaces),
			"closingStatus": rec.Status,
			"salesCount":    totals.SalesCount,
		}))
	})
	if err != nil {
		return nil, err
	}

	if *session.ClosingStatus != ClosingBalanced {
		logger.Warn(ctx, "cash session closed with discrepancy",
			"session_id", sessionID,
			"difference", session.Difference.String(),
			"status", *session.ClosingStatus,
		)
	} else {
		logger.Info(ctx, "cash session closed", "session_id", sessionID)
	}
	return session, nil
}

// LockOpenSessionID returns the tenant's open session under a shared lock so
// that it cannot be closed before the caller's transaction ends.
func (s *Service) LockOpenSessionID(ctx context.Context, tenantID id.ID) (*id.ID, error) {
	session, err := s.repo.FindOpen(ctx, tenantID, LockShare)
	if err != nil || session == nil {
		return nil, err
	}
	sid := session.ID
	return &sid, nil
}

// FindActiveSession returns the open session or NotFound.
func (s *Service) FindActiveSession(ctx context.Context, actor appctx.Actor) (*Session, error) {
	session, err := s.repo.FindOpen(ctx, actor.TenantID, LockNone)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFound("cash session", "active")
	}
	return session, nil
}

func (s *Service) FindSession(ctx context.Context, actor appctx.Actor, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, actor.TenantID, sessionID)
}

// FindSessionMovements lists the manual movements of a session, oldest first.
func (s *Service) FindSessionMovements(ctx context.Context, actor appctx.Actor, sessionID id.ID) ([]Movement, error) {
	if _, err := s.repo.GetByID(ctx, actor.TenantID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, actor.TenantID, sessionID)
}

func (s *Service) ListSessions(ctx context.Context, actor appctx.Actor, filter ListFilter) (domain.ListResult[Session], error) {
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.List(ctx, actor.TenantID, filter)
}

func (s *Service) computeTotals(ctx context.Context, tenantID, sessionID id.ID) (Totals, error) {
	aggs, err := s.repo.SalesAggregates(ctx, tenantID, sessionID)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregate sales: %w", err)
	}
	entries, withdrawals, err := s.repo.MovementSums(ctx, tenantID, sessionID)
	if err != nil {
		return Totals{}, fmt.Errorf("sum cash movements: %w", err)
	}
	return BuildTotals(aggs, entries, withdrawals), nil
}
