package document_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/infrastructure/storage/postgres"
)

const (
	cashSessionsTable  = "cash_sessions"
	cashMovementsTable = "cash_movements"
	oneOpenSession     = "cash_sessions_one_open"
)

// sessionRow is the storage shape of a cash session. Totals are kept as JSONB.
type sessionRow struct {
	ID            id.ID        `db:"id"`
	TenantID      id.ID        `db:"tenant_id"`
	OpenedBy      id.ID        `db:"opened_by"`
	OpenedByName  string       `db:"opened_by_name"`
	OpeningAmount types.Money  `db:"opening_amount"`
	OpenedAt      time.Time    `db:"opened_at"`
	Status        string       `db:"status"`
	ClosedBy      *id.ID       `db:"closed_by"`
	ClosedByName  *string      `db:"closed_by_name"`
	ClosedAt      *time.Time   `db:"closed_at"`
	Totals        []byte       `db:"totals"`
	ExpectedCash  *types.Money `db:"expected_cash"`
	ActualCash    *types.Money `db:"actual_cash"`
	Difference    *types.Money `db:"difference"`
	ClosingStatus *string      `db:"closing_status"`
	Observations  *string      `db:"observations"`
}

func (r sessionRow) toSession() (*cash_session.Session, error) {
	s := &cash_session.Session{
		ID:            r.ID,
		TenantID:      r.TenantID,
		OpenedBy:      r.OpenedBy,
		OpenedByName:  r.OpenedByName,
		OpeningAmount: r.OpeningAmount,
		OpenedAt:      r.OpenedAt,
		Status:        cash_session.Status(r.Status),
		ClosedBy:      r.ClosedBy,
		ClosedByName:  r.ClosedByName,
		ClosedAt:      r.ClosedAt,
		ExpectedCash:  r.ExpectedCash,
		ActualCash:    r.ActualCash,
		Difference:    r.Difference,
		Observations:  r.Observations,
	}
	if r.ClosingStatus != nil {
		cs := cash_session.ClosingStatus(*r.ClosingStatus)
		s.ClosingStatus = &cs
	}
	if len(r.Totals) > 0 {
		var t cash_session.Totals
		if err := json.Unmarshal(r.Totals, &t); err != nil {
			return nil, fmt.Errorf("decode totals: %w", err)
		}
		s.Totals = &t
	}
	return s, nil
}

var _ cash_session.Repository = (*CashSessionRepo)(nil)

// CashSessionRepo implements cash_session.Repository.
type CashSessionRepo struct {
	txManager   *postgres.TxManager
	builder     squirrel.StatementBuilderType
	sessionCols []string
	movCols     []string
}

// NewCashSessionRepo creates a new cash session repository.
func NewCashSessionRepo(txManager *postgres.TxManager) *CashSessionRepo {
	return &CashSessionRepo{
		txManager:   txManager,
		builder:     postgres.Builder(),
		sessionCols: postgres.ExtractDBColumns[sessionRow](),
		movCols:     postgres.ExtractDBColumns[cash_session.Movement](),
	}
}

// LockOpenSlot takes a transaction-scoped advisory lock keyed by tenant.
func (r *CashSessionRepo) LockOpenSlot(ctx context.Context, tenantID id.ID) error {
	tx := r.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("open slot lock requires transaction context")
	}
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "cash_session_open:"+tenantID.String())
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// FindOpen returns the open session of the tenant or nil.
func (r *CashSessionRepo) FindOpen(ctx context.Context, tenantID id.ID, mode cash_session.LockMode) (*cash_session.Session, error) {
	q := r.builder.Select(r.sessionCols...).From(cashSessionsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "status": cash_session.StatusOpen})
	if suffix := lockSuffix(mode); suffix != "" {
		if !r.txManager.InTransaction(ctx) {
			return nil, fmt.Errorf("session row lock requires transaction context")
		}
		q = q.Suffix(suffix)
	}

	s, err := r.get(ctx, q)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return s, err
}

// Create inserts an open session.
func (r *CashSessionRepo) Create(ctx context.Context, s *cash_session.Session) error {
	sql, args, err := r.builder.Insert(cashSessionsTable).
		Columns("id", "tenant_id", "opened_by", "opened_by_name", "opening_amount", "opened_at", "status").
		Values(s.ID, s.TenantID, s.OpenedBy, s.OpenedByName, s.OpeningAmount, s.OpenedAt, s.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, oneOpenSession) {
			return apperror.NewSessionAlreadyOpen("")
		}
		return fmt.Errorf("insert cash session: %w", err)
	}
	return nil
}

func (r *CashSessionRepo) GetByID(ctx context.Context, tenantID, sessionID id.ID) (*cash_session.Session, error) {
	s, err := r.get(ctx, r.byID(tenantID, sessionID))
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("cash session", sessionID)
	}
	return s, err
}

// GetForUpdate locks the session row. Sales holding FOR SHARE block it.
func (r *CashSessionRepo) GetForUpdate(ctx context.Context, tenantID, sessionID id.ID) (*cash_session.Session, error) {
	if !r.txManager.InTransaction(ctx) {
		return nil, fmt.Errorf("session row lock requires transaction context")
	}
	s, err := r.get(ctx, r.byID(tenantID, sessionID).Suffix("FOR UPDATE"))
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("cash session", sessionID)
	}
	return s, err
}

// SaveClosing writes the closing fields.
func (r *CashSessionRepo) SaveClosing(ctx context.Context, s *cash_session.Session) error {
	totals, err := json.Marshal(s.Totals)
	if err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}

	sql, args, err := r.builder.Update(cashSessionsTable).
		Set("status", s.Status).
		Set("closed_by", s.ClosedBy).
		Set("closed_by_name", s.ClosedByName).
		Set("closed_at", s.ClosedAt).
		Set("totals", totals).
		Set("expected_cash", s.ExpectedCash).
		Set("actual_cash", s.ActualCash).
		Set("difference", s.Difference).
		Set("closing_status", s.ClosingStatus).
		Set("observations", s.Observations).
		Where(squirrel.Eq{"tenant_id": s.TenantID, "id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update cash session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("cash session", s.ID)
	}
	return nil
}

func (r *CashSessionRepo) InsertMovement(ctx context.Context, m *cash_session.Movement) error {
	sql, args, err := r.builder.Insert(cashMovementsTable).SetMap(postgres.StructToMap(m)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert cash movement: %w", err)
	}
	return nil
}

// ListMovements returns the session's movements oldest first.
func (r *CashSessionRepo) ListMovements(ctx context.Context, tenantID, sessionID id.ID) ([]cash_session.Movement, error) {
	sql, args, err := r.builder.Select(r.movCols...).From(cashMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "session_id": sessionID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []cash_session.Movement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select cash movements: %w", err)
	}
	return out, nil
}

// SalesAggregates sums completed sales per payment method.
func (r *CashSessionRepo) SalesAggregates(ctx context.Context, tenantID, sessionID id.ID) ([]cash_session.MethodAggregate, error) {
	sql, args, err := salesAggregateQuery(r.builder, tenantID, sessionID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []cash_session.MethodAggregate{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	return out, nil
}

func salesAggregateQuery(b squirrel.StatementBuilderType, tenantID, sessionID id.ID) squirrel.SelectBuilder {
	return b.Select(
		"payment_method",
		"COUNT(*) AS count",
		"COALESCE(SUM(total), 0) AS total",
		"COALESCE(SUM(change_amount), 0) AS change_given",
	).From(salesTable).
		Where(squirrel.Eq{
			"tenant_id":       tenantID,
			"cash_session_id": sessionID,
			"status":          sale.StatusCompleted,
		}).
		GroupBy("payment_method").
		OrderBy("payment_method")
}

// MovementSums returns the totals of entries and withdrawals.
func (r *CashSessionRepo) MovementSums(ctx context.Context, tenantID, sessionID id.ID) (types.Money, types.Money, error) {
	entries, withdrawals := types.Zero(), types.Zero()
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = $3), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = $4), 0)
		FROM cash_movements
		WHERE tenant_id = $1 AND session_id = $2
	`, tenantID, sessionID, cash_session.MovementIn, cash_session.MovementOut).Scan(&entries, &withdrawals)
	if err != nil {
		return entries, withdrawals, fmt.Errorf("sum cash movements: %w", err)
	}
	return entries, withdrawals, nil
}

// List returns sessions newest first.
func (r *CashSessionRepo) List(ctx context.Context, tenantID id.ID, filter cash_session.ListFilter) (domain.ListResult[cash_session.Session], error) {
	where := squirrel.And{squirrel.Eq{"tenant_id": tenantID}}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}

	sel := r.builder.Select(r.sessionCols...).From(cashSessionsTable).Where(where).OrderBy("opened_at DESC", "id DESC")
	count := r.builder.Select("COUNT(*)").From(cashSessionsTable).Where(where)
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}

	rows, err := postgres.SelectPage[sessionRow](ctx, r.txManager.GetQuerier(ctx), sel, count, page)
	if err != nil {
		return domain.ListResult[cash_session.Session]{}, err
	}

	res := domain.ListResult[cash_session.Session]{
		Items:      make([]cash_session.Session, 0, len(rows.Items)),
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
	}
	for _, row := range rows.Items {
		s, err := row.toSession()
		if err != nil {
			return res, err
		}
		res.Items = append(res.Items, *s)
	}
	return res, nil
}

func (r *CashSessionRepo) byID(tenantID, sessionID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.sessionCols...).From(cashSessionsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": sessionID})
}

// get returns a bare apperror NotFound when no row matches.
func (r *CashSessionRepo) get(ctx context.Context, q squirrel.SelectBuilder) (*cash_session.Session, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row sessionRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("cash session", nil)
		}
		return nil, fmt.Errorf("get cash session: %w", err)
	}
	return row.toSession()
}

func lockSuffix(mode cash_session.LockMode) string {
	switch mode {
	case cash_session.LockShare:
		return "FOR SHARE"
	case cash_session.LockUpdate:
		return "FOR UPDATE"
	}
	return ""
}
