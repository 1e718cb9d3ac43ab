package ink

import (
	"errors"
	"math"
)

// ErrDegenerateTransform marks a transform that is not finite or collapses
// the plane. Strokes only ever carry invertible, finite transforms.
var ErrDegenerateTransform = errors.New("degenerate transform")

// Matrix2D is a 2D affine transform stored as [a, b, c, d, e, f]:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity transform.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a rotation by radians around the origin.
func Rotate(radians float64) Matrix2D {
	cos, sin := math.Cos(radians), math.Sin(radians)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// RotateAround rotates by radians around (cx, cy). Lasso rotations pivot on the
// selection center.
func RotateAround(radians, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(Rotate(radians)).Multiply(Translate(-cx, -cy))
}

// ScaleAround scales around (cx, cy).
func ScaleAround(sx, sy, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(Scale(sx, sy)).Multiply(Translate(-cx, -cy))
}

// Multiply returns m * other: other is applied first, then m.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// Apply maps a point through the transform.
func (m Matrix2D) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse transform. A singular matrix has no inverse and
// reports false.
func (m Matrix2D) Invert() (Matrix2D, bool) {
	det := m.Determinant()
	if det == 0 {
		return Identity(), false
	}
	inv := 1.0 / det
	return Matrix2D{
		m[3] * inv,
		-m[1] * inv,
		-m[2] * inv,
		m[0] * inv,
		(m[2]*m[5] - m[3]*m[4]) * inv,
		(m[1]*m[4] - m[0]*m[5]) * inv,
	}, true
}

func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}

// Validate reports ErrDegenerateTransform unless every entry is finite and
// the linear part is invertible.
func (m Matrix2D) Validate() error {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrDegenerateTransform
		}
	}
	if det := m.Determinant(); det == 0 || math.IsInf(det, 0) || math.IsNaN(det) {
		return ErrDegenerateTransform
	}
	return nil
}
