package cash_session

import (
	"cashpoint/internal/core/types"
)

// MethodAggregate is the per-payment-method sum of completed sales.
type MethodAggregate struct {
	PaymentMethod string      `db:"payment_method"`
	Count         int64       `db:"count"`
	Total         types.Money `db:"total"`
	ChangeGiven   types.Money `db:"change_given"`
}

// BuildTotals folds sale aggregates and manual movement sums into Totals.
// Unknown payment methods count towards the overall figures only.
func BuildTotals(aggs []MethodAggregate, entries, withdrawals types.Money) Totals {
	t := Totals{
		CashSales:       types.Zero(),
		CardSales:       types.Zero(),
		TransferSales:   types.Zero(),
		CreditSales:     types.Zero(),
		TotalSales:      types.Zero(),
		ChangeGiven:     types.Zero(),
		CashEntries:     entries,
		CashWithdrawals: withdrawals,
	}
	for _, a := range aggs {
		switch a.PaymentMethod {
		case "cash":
			t.CashSales = t.CashSales.Add(a.Total)
			t.CashCount += a.Count
		case "card":
			t.CardSales = t.CardSales.Add(a.Total)
			t.CardCount += a.Count
		case "transfer":
			t.TransferSales = t.TransferSales.Add(a.Total)
			t.TransferCount += a.Count
		case "credit":
			t.CreditSales = t.CreditSales.Add(a.Total)
			t.CreditCount += a.Count
		}
		t.SalesCount += a.Count
		t.TotalSales = t.TotalSales.Add(a.Total)
		t.ChangeGiven = t.ChangeGiven.Add(a.ChangeGiven)
	}
	return t
}

// ExpectedCash is the cash that should be in the drawer.
// Cash sales are counted at their net total; change handed back is already
// netted out of the tendered amount and is never subtracted again.
func ExpectedCash(opening types.Money, t Totals) types.Money {
	return opening.Add(t.CashSales).Add(t.CashEntries).Sub(t.CashWithdrawals)
}

// Classify maps a difference (actual - expected) to a closing status.
// Differences below one cent are balanced.
func Classify(difference types.Money) ClosingStatus {
	switch {
	case types.IsNegligible(difference):
		return ClosingBalanced
	case difference.IsPositive():
		return ClosingOver
	default:
		return ClosingShort
	}
}

// Reconciliation is the outcome of a blind count.
type Reconciliation struct {
	Expected   types.Money
	Actual     types.Money
	Difference types.Money
	Status     ClosingStatus
}

// Reconcile compares the counted cash with the expected cash.
func Reconcile(opening types.Money, t Totals, actual types.Money) Reconciliation {
	expected := ExpectedCash(opening, t)
	diff := actual.Sub(expected)
	return Reconciliation{
		Expected:   expected,
		Actual:     actual,
		Difference: diff,
		Status:     Classify(diff),
	}
}
