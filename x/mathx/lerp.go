package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Lerp returns a + (b-a)*t. t is not clamped.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// LerpU8 interpolates between two channel values with t clamped to [0,1],
// rounding to the nearest integer.
func LerpU8(a, b uint8, t float32) uint8 {
	t = Clamp01(t)
	v := Lerp(float32(a), float32(b), t)
	return ToU8(v)
}

// ToU8 rounds and saturates a float into the 0..255 channel range.
func ToU8[T constraints.Float](v T) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(float64(v)))
}

// Round rounds v to the given number of decimal places.
func Round[T constraints.Float](v T, places int) T {
	p := math.Pow10(places)
	return T(math.Round(float64(v)*p) / p)
}
