package math

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

const (
	K_PI            float32 = math32.Pi
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func DegToRad(degrees float32) float32 {
	return degrees * K_PI / 180.0
}

func RadToDeg(radians float32) float32 {
	return radians * 180.0 / K_PI
}

// Inf returns positive infinity, used as the unbounded culling distance.
func Inf() float32 {
	return math32.Inf(1)
}

func IsInf(f float32) bool {
	return math32.IsInf(f, 0)
}
