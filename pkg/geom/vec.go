// Package geom provides the 2D vector arithmetic used by the diagram
// layout engine and the render backends.
package geom

import "math"

// Vec represents a 2D vector or point in diagram coordinates.
type Vec struct {
	X, Y float64
}

// V is a shorthand constructor.
func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{v.X - o.X, v.Y - o.Y}
}

// Mul returns v scaled by f.
func (v Vec) Mul(f float64) Vec {
	return Vec{v.X * f, v.Y * f}
}

// Div returns v scaled by 1/f.
func (v Vec) Div(f float64) Vec {
	return Vec{v.X / f, v.Y / f}
}

// Len returns the euclidean length of v.
func (v Vec) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Dist returns the distance between v and o.
func (v Vec) Dist(o Vec) float64 {
	return v.Sub(o).Len()
}

// Dot returns the dot product of v and o.
func (v Vec) Dot(o Vec) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Norm returns v scaled to unit length. A zero vector stays zero:
// coincident points are a normal transient state while editing, so
// callers branch on IsZero instead of handling errors.
func (v Vec) Norm() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// Orthogonal returns v rotated by 90 degrees.
func (v Vec) Orthogonal() Vec {
	return Vec{v.Y, -v.X}
}

// IsZero reports whether both components are exactly zero.
func (v Vec) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
