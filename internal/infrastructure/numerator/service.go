// Package numerator provides the PostgreSQL invoice sequencer.
// This is the infrastructure layer - it implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"cashpoint/internal/core/id"
	corenumerator "cashpoint/internal/core/numerator"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/infrastructure/storage/postgres"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service issues gapless per-tenant invoice numbers from invoice_sequences.
// The counter row is locked by the increment until the caller's transaction
// ends, so concurrent sales of one tenant are serialized on it.
type Service struct {
	txm           tx.Manager
	querier       func(ctx context.Context) Querier
	defaultPrefix string
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates the sequencer. Tenants without a row are provisioned with
// defaultPrefix on first use.
func New(txManager *postgres.TxManager, defaultPrefix string) *Service {
	return newService(txManager, func(ctx context.Context) Querier {
		return txManager.GetQuerier(ctx)
	}, defaultPrefix)
}

func newService(txm tx.Manager, querier func(ctx context.Context) Querier, defaultPrefix string) *Service {
	if defaultPrefix == "" {
		defaultPrefix = corenumerator.DefaultPrefix
	}
	return &Service{txm: txm, querier: querier, defaultPrefix: defaultPrefix}
}

// Next increments the tenant's counter. Must run in the sale's transaction.
func (s *Service) Next(ctx context.Context, tenantID id.ID) (string, error) {
	if !s.txm.InTransaction(ctx) {
		return "", tx.ErrNoTransaction
	}

	var (
		prefix string
		num    int64
	)
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO invoice_sequences (tenant_id, prefix, current_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id) DO UPDATE
			SET current_value = invoice_sequences.current_value + 1,
			    updated_at = NOW()
		RETURNING prefix, current_value
	`, tenantID, s.defaultPrefix).Scan(&prefix, &num)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}

	return corenumerator.DefaultConfig(prefix).Format(num), nil
}

// SetNext stores prefix and the last issued value. An empty prefix keeps the
// current one, or the default for a new tenant.
func (s *Service) SetNext(ctx context.Context, tenantID id.ID, prefix string, lastIssued int64) error {
	if lastIssued < 0 {
		return fmt.Errorf("last issued number must not be negative")
	}

	insertPrefix := prefix
	if insertPrefix == "" {
		insertPrefix = s.defaultPrefix
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var current int64
		err := s.querier(ctx).QueryRow(ctx, `
			INSERT INTO invoice_sequences (tenant_id, prefix, current_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id) DO UPDATE
				SET prefix = COALESCE(NULLIF($4, ''), invoice_sequences.prefix),
				    current_value = EXCLUDED.current_value,
				    updated_at = NOW()
			RETURNING current_value
		`, tenantID, insertPrefix, lastIssued, prefix).Scan(&current)
		if err != nil {
			return fmt.Errorf("set invoice sequence: %w", err)
		}
		return nil
	})
}

// ParseNumber extracts the numeric part of PREFIX-NNNNN.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
