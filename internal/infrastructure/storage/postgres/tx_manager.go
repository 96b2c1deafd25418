package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cashpoint/internal/core/tx"
	"cashpoint/pkg/logger"
)

var tracer = otel.Tracer("cashpoint/storage/postgres")

var _ tx.Manager = (*TxManager)(nil)

// defaultLockTimeout bounds how long a sale waits for the invoice sequence
// or a stock row held by a concurrent sale before failing with a conflict.
const defaultLockTimeout = 10 * time.Second

type txMode struct {
	name      string
	isolation pgx.TxIsoLevel
	access    pgx.TxAccessMode
}

var (
	modeWrite    = txMode{name: "tx.write", isolation: pgx.ReadCommitted, access: pgx.ReadWrite}
	modeSnapshot = txMode{name: "tx.snapshot", isolation: pgx.RepeatableRead, access: pgx.ReadOnly}
)

// TxManager keeps the active pgx.Tx in the context. Stock and session
// invariants rely on row locks, so writes run at read committed.
type TxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, lockTimeout: defaultLockTimeout}
}

type txKey struct{}

// Tx is the transaction stored in the context.
type Tx struct {
	pgx.Tx
}

// RunInTransaction joins the transaction in ctx or begins a read-write one.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, modeWrite, fn)
}

// Snapshot runs fn read-only at repeatable read. Inside an existing
// transaction it simply joins it.
func (m *TxManager) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, modeSnapshot, fn)
}

func (m *TxManager) InTransaction(ctx context.Context) bool {
	return m.GetTx(ctx) != nil
}

// GetTx returns the transaction in ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	t, _ := ctx.Value(txKey{}).(*Tx)
	return t
}

func (m *TxManager) run(ctx context.Context, mode txMode, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, mode.name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("tx.isolation", string(mode.isolation)),
	))
	defer span.End()

	err := m.begin(ctx, mode, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *TxManager) begin(ctx context.Context, mode txMode, fn func(ctx context.Context) error) (err error) {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: mode.isolation, AccessMode: mode.access})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Rollback must finish even when ctx is already cancelled.
	rollback := func(cause any) {
		if rbErr := pgTx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "cause", cause)
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollback(p)
			panic(p)
		}
	}()

	if mode.access == pgx.ReadWrite && m.lockTimeout > 0 {
		if _, err := pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", m.lockTimeout.Milliseconds())); err != nil {
			rollback(err)
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})); err != nil {
		rollback(err)
		return mapLockError(err)
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapLockError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, otherwise the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
