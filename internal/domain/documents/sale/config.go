package sale

import "cashpoint/internal/core/types"

const DefaultCreditDays = 30

// Config holds tenant-independent pricing settings.
type Config struct {
	// TaxRate is applied to the discounted subtotal (0.19 = 19%).
	TaxRate types.Money

	// CreditDays is the default term for credit sales.
	CreditDays int
}

// DefaultConfig returns the standard 19% tax and 30-day credit term.
func DefaultConfig() Config {
	return Config{
		TaxRate:    types.MustMoney("0.19"),
		CreditDays: DefaultCreditDays,
	}
}
