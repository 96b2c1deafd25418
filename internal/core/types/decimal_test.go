package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDiscount(t *testing.T) {
	got := ApplyDiscount(MustMoney("250.00"), MustMoney("10"))
	assert.True(t, got.Equal(MustMoney("225")), got.String())

	assert.True(t, ApplyDiscount(MustMoney("99.99"), Zero()).Equal(MustMoney("99.99")))
	assert.True(t, ApplyDiscount(MustMoney("99.99"), MustMoney("100")).IsZero())
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.03", Round(MustMoney("0.025")).StringFixed(MoneyPlaces))
	assert.Equal(t, "-0.03", Round(MustMoney("-0.025")).StringFixed(MoneyPlaces))
}

func TestIsNegligible(t *testing.T) {
	assert.True(t, IsNegligible(MustMoney("0.009")))
	assert.True(t, IsNegligible(MustMoney("-0.009")))
	assert.False(t, IsNegligible(MustMoney("0.01")))
}

func TestValidPercent(t *testing.T) {
	assert.True(t, ValidPercent(Zero()))
	assert.True(t, ValidPercent(MustMoney("100")))
	assert.False(t, ValidPercent(MustMoney("100.01")))
	assert.False(t, ValidPercent(MustMoney("-1")))
}
