package flip

// Easing names an interpolation curve for settle animations.
type Easing string

const (
	EaseLinear   Easing = "linear"
	EaseIn       Easing = "easeIn"
	EaseOut      Easing = "easeOut"
	EaseInOut    Easing = "easeInOut"
	EaseCubicOut Easing = "cubicOut"
)

// Apply maps t in [0, 1] through the curve.
func (e Easing) Apply(t float64) float64 {
	t = max(0, min(t, 1))
	switch e {
	case EaseIn:
		return t * t

	case EaseOut:
		return t * (2 - t)

	case EaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EaseCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	default: // linear
		return t
	}
}
