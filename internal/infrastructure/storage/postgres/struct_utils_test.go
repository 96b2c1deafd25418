package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/documents/sale"
)

type stamped struct {
	CreatedAt time.Time `db:"created_at"`
}

type row struct {
	stamped
	ID      id.ID       `db:"id"`
	Amount  types.Money `db:"amount"`
	Skipped string      `db:"-"`
	Plain   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	assert.Equal(t, []string{"created_at", "id", "amount"}, ExtractDBColumns[row]())
}

func TestExtractDBColumns_SaleSkipsItems(t *testing.T) {
	cols := ExtractDBColumns[sale.Sale]()

	assert.Contains(t, cols, "invoice_number")
	assert.Contains(t, cols, "change_amount")
	assert.NotContains(t, cols, "items")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	r := row{
		stamped: stamped{CreatedAt: now},
		ID:      id.New(),
		Amount:  types.MustMoney("12.50"),
		Skipped: "x",
		Plain:   "y",
	}

	m := StructToMap(&r)

	assert.Len(t, m, 3)
	assert.Equal(t, r.ID, m["id"])
	assert.Equal(t, now, m["created_at"])
	assert.True(t, r.Amount.Equal(m["amount"].(types.Money)))
}

func TestRowValues_FollowsNames(t *testing.T) {
	r := row{ID: id.New(), Amount: types.MustMoney("3")}

	vals := RowValues(r, []string{"amount", "id", "missing"})

	assert.Equal(t, []any{r.Amount, r.ID, nil}, vals)
}

func TestStructToMap_NotAStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
