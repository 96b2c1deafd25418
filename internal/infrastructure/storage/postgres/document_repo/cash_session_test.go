package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/infrastructure/storage/postgres"
)

func TestSalesAggregateQuery(t *testing.T) {
	tenantID, sessionID := id.New(), id.New()

	sql, args, err := salesAggregateQuery(postgres.Builder(), tenantID, sessionID).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT payment_method, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total, "+
			"COALESCE(SUM(change_amount), 0) AS change_given FROM sales "+
			"WHERE cash_session_id = $1 AND status = $2 AND tenant_id = $3 "+
			"GROUP BY payment_method ORDER BY payment_method",
		sql)
	assert.Equal(t, []any{sessionID, sale.StatusCompleted, tenantID}, args)
}

func TestLockSuffix(t *testing.T) {
	assert.Equal(t, "", lockSuffix(cash_session.LockNone))
	assert.Equal(t, "FOR SHARE", lockSuffix(cash_session.LockShare))
	assert.Equal(t, "FOR UPDATE", lockSuffix(cash_session.LockUpdate))
}

func TestSessionRow_ToSession(t *testing.T) {
	t.Run("open session has no closing data", func(t *testing.T) {
		row := sessionRow{
			ID:            id.New(),
			OpeningAmount: types.MustMoney("100.00"),
			OpenedAt:      time.Now(),
			Status:        string(cash_session.StatusOpen),
		}

		s, err := row.toSession()
		require.NoError(t, err)
		assert.True(t, s.IsOpen())
		assert.Nil(t, s.Totals)
		assert.Nil(t, s.ClosingStatus)
		assert.Nil(t, s.ExpectedCash)
	})

	t.Run("closed session decodes totals", func(t *testing.T) {
		short := string(cash_session.ClosingShort)
		row := sessionRow{
			ID:            id.New(),
			Status:        string(cash_session.StatusClosed),
			ClosingStatus: &short,
			Totals:        []byte(`{"cashSales":"50.5","cashCount":2,"salesCount":2,"totalSales":"50.5"}`),
		}

		s, err := row.toSession()
		require.NoError(t, err)
		require.NotNil(t, s.Totals)
		assert.Equal(t, "50.50", s.Totals.CashSales.StringFixed(2))
		assert.Equal(t, int64(2), s.Totals.CashCount)
		assert.Equal(t, cash_session.ClosingShort, *s.ClosingStatus)
	})

	t.Run("corrupt totals", func(t *testing.T) {
		_, err := sessionRow{Totals: []byte(`{`)}.toSession()
		assert.Error(t, err)
	})
}

func TestCashSessionRepo_Columns(t *testing.T) {
	repo := NewCashSessionRepo(nil)
	assert.Equal(t, []string{
		"id", "tenant_id", "session_id", "type", "amount", "reason", "notes",
		"created_by", "created_by_name", "created_at",
	}, repo.movCols)
	assert.Contains(t, repo.sessionCols, "totals")
	assert.Contains(t, repo.sessionCols, "closing_status")
}
