package app

import "math"

// ToMinorUnits converts a decimal currency amount to minor units (cents),
// rounding half away from zero. 29.99 becomes 2999.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// PlatformFee computes the platform's cut of a unit amount in minor units,
// rounded to the nearest cent. For 2999 at 30% that is 900.
func PlatformFee(unitAmount int64, percent float64) int64 {
	return int64(math.Round(float64(unitAmount) * percent / 100))
}
