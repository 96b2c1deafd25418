// Package numerator provides domain contracts for invoice numbering.
package numerator

import "fmt"

const (
	// DefaultPrefix is used when a tenant has no configured sequence yet.
	DefaultPrefix = "FAC"
	// DefaultPadWidth is the minimum digit count of the numeric part.
	DefaultPadWidth = 5
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "FAC")
	Prefix string

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Config{
		Prefix:   prefix,
		PadWidth: DefaultPadWidth,
	}
}

// Format renders PREFIX-NNNNN. Numbers wider than PadWidth are not truncated.
func (c Config) Format(number int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = DefaultPadWidth
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, number)
}
