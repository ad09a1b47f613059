// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPDATE ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Faster, but may produce gaps if the process restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Reset periods.
const (
	ResetMonth = "month"
	ResetYear  = "year"
	ResetNever = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "RCP", "ISS")
	Prefix string

	// PadWidth is the minimum width of the counter (default 6)
	PadWidth int

	// ResetPeriod: "month", "year", "never"
	ResetPeriod string
}

// DefaultConfig returns monthly numbering: PREFIX-YYYYMM-000001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    6,
		ResetPeriod: ResetMonth,
	}
}

// Key is the counter name for a period. Counters are stored per tenant.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case ResetMonth:
		return fmt.Sprintf("%s_%s", c.Prefix, period.UTC().Format("200601"))
	case ResetYear:
		return fmt.Sprintf("%s_%s", c.Prefix, period.UTC().Format("2006"))
	default:
		return c.Prefix
	}
}

// Format renders counter value n.
func (c Config) Format(period time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 6
	}
	switch c.ResetPeriod {
	case ResetMonth:
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.UTC().Format("200601"), width, n)
	case ResetYear:
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.UTC().Format("2006"), width, n)
	default:
		return fmt.Sprintf("%s-%0*d", c.Prefix, width, n)
	}
}
