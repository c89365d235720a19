package billing

import "github.com/shopspring/decimal"

// MinorToMajor converts a provider minor-unit amount (cents) into major units.
// Every currency is assumed to have two decimal places.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// MajorToMinor converts a major-unit amount into provider minor units,
// rounding half away from zero.
func MajorToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
