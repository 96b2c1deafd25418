package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"cashpoint/internal/core/apperror"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "sales_invoice_unique"})

	assert.True(t, IsUniqueViolation(err, "sales_invoice_unique"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "products_sku_unique"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestMapLockError(t *testing.T) {
	busy := mapLockError(&pgconn.PgError{Code: CodeLockNotAvailable})
	assert.True(t, apperror.Is(busy, apperror.CodeConflict))

	plain := errors.New("boom")
	assert.Same(t, plain, mapLockError(plain))
}
