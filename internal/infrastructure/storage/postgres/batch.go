package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"cashpoint/internal/core/tx"
)

// Batch writes many rows in one round trip on the transaction in ctx.
type Batch struct {
	txManager *TxManager
}

func NewBatch(txManager *TxManager) *Batch {
	return &Batch{txManager: txManager}
}

// Statement is one queued query.
type Statement struct {
	SQL  string
	Args []any
}

func (b *Batch) tx(ctx context.Context) (pgx.Tx, error) {
	t := b.txManager.GetTx(ctx)
	if t == nil {
		return nil, tx.ErrNoTransaction
	}
	return t.Tx, nil
}

// Copy streams rows into table over the binary COPY protocol.
func (b *Batch) Copy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t, err := b.tx(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		for i, v := range row {
			row[i] = copyValue(v)
		}
	}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// CopyStructs copies db-tagged structs, taking the values named by columns.
func CopyStructs[T any](ctx context.Context, b *Batch, table string, columns []string, items []T) (int64, error) {
	rows := make([][]any, len(items))
	for i := range items {
		rows[i] = RowValues(&items[i], columns)
	}
	return b.Copy(ctx, table, columns, rows)
}

// copyValue converts decimals, which pgx cannot encode in binary COPY.
func copyValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return copyValue(*d)
	}
	return v
}

// Exec sends all statements as one pgx batch and fails on the first error.
func (b *Batch) Exec(ctx context.Context, stmts []Statement) error {
	t, err := b.tx(ctx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.SQL, s.Args...)
	}
	results := t.SendBatch(ctx, batch)
	defer results.Close()

	for i := range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
