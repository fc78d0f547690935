package drivetrain

import (
	"fmt"
	"math"
)

type WheelPowers struct {
	FrontLeft  float64
	FrontRight float64
	BackLeft   float64
	BackRight  float64
}

func (w WheelPowers) String() string {
	return fmt.Sprintf("fl %.2f fr %.2f bl %.2f br %.2f", w.FrontLeft, w.FrontRight, w.BackLeft, w.BackRight)
}

// MixWheels computes the mecanum wheel powers for a strafe (x), forward (y)
// and rotation command. The result is scaled down proportionally when the
// maximum selected by norm exceeds 1; it is never scaled up.
func MixWheels(x, y, rotation float64, norm Normalization) WheelPowers {
	w := WheelPowers{
		FrontLeft:  x + y + rotation,
		FrontRight: -x + y - rotation,
		BackLeft:   -x + y + rotation,
		BackRight:  x + y - rotation,
	}
	if max := w.max(norm); max > 1 {
		w.FrontLeft /= max
		w.FrontRight /= max
		w.BackLeft /= max
		w.BackRight /= max
	}
	return w
}

func (w WheelPowers) max(norm Normalization) float64 {
	values := [...]float64{w.FrontLeft, w.FrontRight, w.BackLeft, w.BackRight}
	max := math.Inf(-1)
	for _, v := range values {
		if norm == NormalizeAbsMax {
			v = math.Abs(v)
		}
		if v > max {
			max = v
		}
	}
	return max
}
