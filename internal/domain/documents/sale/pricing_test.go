package sale

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
)

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		qty          int64
		discount     string
		wantSubtotal string
		wantDiscount string
	}{
		{"no discount", "2500", 4, "0", "10000.00", "0.00"},
		{"ten percent", "1000", 3, "10", "2700.00", "300.00"},
		{"full discount", "99.99", 2, "100", "0.00", "199.98"},
		{"rounds half away from zero", "0.15", 1, "50", "0.08", "0.07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, disc := PriceLine(types.MustMoney(tt.price), tt.qty, types.MustMoney(tt.discount))
			assert.Equal(t, tt.wantSubtotal, sub.StringFixed(2))
			assert.Equal(t, tt.wantDiscount, disc.StringFixed(2))
		})
	}
}

func TestComputeTotals_NineteenPercentTax(t *testing.T) {
	items := []Item{
		{Subtotal: types.MustMoney("25000")},
		{Subtotal: types.MustMoney("15000")},
	}

	got := ComputeTotals(items, types.Zero(), types.MustMoney("0.19"))

	assert.Equal(t, "40000.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "7600.00", got.Tax.StringFixed(2))
	assert.Equal(t, "47600.00", got.Total.StringFixed(2))
}

func TestCreateInput_Validate(t *testing.T) {
	valid := func() CreateInput {
		return CreateInput{
			Items:         []ItemInput{{ProductID: id.New(), Quantity: 1, Discount: types.Zero()}},
			PaymentMethod: PaymentCash,
			AmountPaid:    types.MustMoney("10"),
		}
	}

	assert.NoError(t, valid().Validate())

	in := valid()
	in.PaymentMethod = PaymentCredit
	err := in.Validate()
	assert.ErrorContains(t, err, "MISSING_CUSTOMER_FOR_CREDIT")

	in = valid()
	in.Items = nil
	assert.ErrorContains(t, in.Validate(), "VALIDATION_ERROR")

	in = valid()
	in.Items[0].Quantity = 0
	assert.ErrorContains(t, in.Validate(), "VALIDATION_ERROR")

	in = valid()
	in.Items[0].Discount = types.MustMoney("100.5")
	assert.ErrorContains(t, in.Validate(), "VALIDATION_ERROR")

	in = valid()
	in.PaymentMethod = "cheque"
	assert.ErrorContains(t, in.Validate(), "VALIDATION_ERROR")
}
