package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/tx"
)

type txKey struct{}

// fakeTx marks the context as transactional. It does not roll back.
type fakeTx struct{}

func (fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (f fakeTx) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return f.RunInTransaction(ctx, fn)
}

func (fakeTx) InTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type sequenceRow struct {
	prefix  string
	current int64
}

type mockRow struct {
	vals []any
	err  error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = m.vals[i].(string)
		case *int64:
			*p = m.vals[i].(int64)
		}
	}
	return nil
}

// mockQuerier simulates the upserts on invoice_sequences.
type mockQuerier struct {
	mu   sync.Mutex
	rows map[id.ID]*sequenceRow
	err  error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	tenantID := args[0].(id.ID)
	row, ok := m.rows[tenantID]

	if strings.Contains(sql, "current_value + 1") {
		if !ok {
			row = &sequenceRow{prefix: args[1].(string)}
			m.rows[tenantID] = row
		}
		row.current++
		return &mockRow{vals: []any{row.prefix, row.current}}
	}

	prefix := args[3].(string)
	if !ok {
		row = &sequenceRow{prefix: args[1].(string)}
		m.rows[tenantID] = row
	} else if prefix != "" {
		row.prefix = prefix
	}
	row.current = args[2].(int64)
	return &mockRow{vals: []any{row.current}}
}

func newTestService(q *mockQuerier, prefix string) *Service {
	return newService(fakeTx{}, func(context.Context) Querier { return q }, prefix)
}

func inTx() context.Context {
	return context.WithValue(context.Background(), txKey{}, true)
}

func TestNext_RequiresTransaction(t *testing.T) {
	svc := newTestService(&mockQuerier{rows: map[id.ID]*sequenceRow{}}, "")

	_, err := svc.Next(context.Background(), id.New())
	assert.ErrorIs(t, err, tx.ErrNoTransaction)
}

func TestNext_ProvisionsAndIncrements(t *testing.T) {
	q := &mockQuerier{rows: map[id.ID]*sequenceRow{}}
	svc := newTestService(q, "")
	tenantA, tenantB := id.New(), id.New()
	ctx := inTx()

	num, err := svc.Next(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, "FAC-00001", num)

	num, err = svc.Next(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, "FAC-00002", num)

	num, err = svc.Next(ctx, tenantB)
	require.NoError(t, err)
	assert.Equal(t, "FAC-00001", num, "counters are per tenant")
}

func TestSetNext(t *testing.T) {
	q := &mockQuerier{rows: map[id.ID]*sequenceRow{}}
	svc := newTestService(q, "FAC")
	tenantID := id.New()

	require.NoError(t, svc.SetNext(context.Background(), tenantID, "B001", 41))
	num, err := svc.Next(inTx(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "B001-00042", num)

	// Empty prefix keeps the configured one.
	require.NoError(t, svc.SetNext(context.Background(), tenantID, "", 99))
	num, err = svc.Next(inTx(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "B001-00100", num)

	assert.Error(t, svc.SetNext(context.Background(), tenantID, "", -1))
}

func TestNext_WrapsQueryError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newTestService(&mockQuerier{err: boom}, "")

	_, err := svc.Next(inTx(), id.New())
	assert.ErrorIs(t, err, boom)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("FAC-00042"))
	assert.Equal(t, int64(123456), ParseNumber("B-001-123456"))
	assert.Equal(t, int64(-1), ParseNumber("FAC00042"))
	assert.Equal(t, int64(-1), ParseNumber("FAC-abc"))
}
