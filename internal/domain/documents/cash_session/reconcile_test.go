package cash_session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cashpoint/internal/core/types"
)

func TestExpectedCash_IgnoresChange(t *testing.T) {
	totals := BuildTotals(
		[]MethodAggregate{
			{PaymentMethod: "cash", Count: 1, Total: types.MustMoney("50000"), ChangeGiven: types.MustMoney("30000")},
			{PaymentMethod: "card", Count: 2, Total: types.MustMoney("12000"), ChangeGiven: types.Zero()},
		},
		types.MustMoney("20000"),
		types.MustMoney("5000"),
	)

	got := ExpectedCash(types.MustMoney("100000"), totals)

	assert.Equal(t, "165000.00", got.StringFixed(2))
	assert.Equal(t, int64(3), totals.SalesCount)
	assert.Equal(t, "62000.00", totals.TotalSales.StringFixed(2))
	assert.Equal(t, "30000.00", totals.ChangeGiven.StringFixed(2))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		difference string
		want       ClosingStatus
	}{
		{"0", ClosingBalanced},
		{"0.005", ClosingBalanced},
		{"-0.009", ClosingBalanced},
		{"0.01", ClosingOver},
		{"0.02", ClosingOver},
		{"-0.01", ClosingShort},
		{"-0.02", ClosingShort},
		{"-1500", ClosingShort},
	}

	for _, tt := range tests {
		t.Run(tt.difference, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(types.MustMoney(tt.difference)))
		})
	}
}

func TestReconcile(t *testing.T) {
	totals := BuildTotals(nil, types.Zero(), types.MustMoney("200"))

	rec := Reconcile(types.MustMoney("1000"), totals, types.MustMoney("750"))

	assert.Equal(t, "800.00", rec.Expected.StringFixed(2))
	assert.Equal(t, "-50.00", rec.Difference.StringFixed(2))
	assert.Equal(t, ClosingShort, rec.Status)
}

func TestBuildTotals_PerMethod(t *testing.T) {
	totals := BuildTotals([]MethodAggregate{
		{PaymentMethod: "transfer", Count: 1, Total: types.MustMoney("10"), ChangeGiven: types.Zero()},
		{PaymentMethod: "credit", Count: 4, Total: types.MustMoney("40"), ChangeGiven: types.Zero()},
	}, types.Zero(), types.Zero())

	assert.True(t, totals.CashSales.IsZero())
	assert.Equal(t, "10", totals.TransferSales.String())
	assert.Equal(t, int64(4), totals.CreditCount)
	assert.Equal(t, int64(5), totals.SalesCount)
}
