package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b Vec) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestArithmetic(t *testing.T) {
	a := V(3, 4)
	b := V(1, -2)

	if got := a.Add(b); !almostEqual(got, V(4, 2)) {
		t.Errorf("Add: got %v", got)
	}
	if got := a.Sub(b); !almostEqual(got, V(2, 6)) {
		t.Errorf("Sub: got %v", got)
	}
	if got := a.Mul(2); !almostEqual(got, V(6, 8)) {
		t.Errorf("Mul: got %v", got)
	}
	if got := a.Div(2); !almostEqual(got, V(1.5, 2)) {
		t.Errorf("Div: got %v", got)
	}
	if got := a.Len(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Len: got %f", got)
	}
	if got := a.Dot(b); math.Abs(got-(-5)) > 1e-9 {
		t.Errorf("Dot: got %f", got)
	}
}

func TestNorm(t *testing.T) {
	n := V(3, 4).Norm()
	if math.Abs(n.Len()-1) > 1e-9 {
		t.Errorf("Norm should have unit length, got %f", n.Len())
	}

	// Zero vector stays zero rather than producing NaN
	z := Vec{}.Norm()
	if !z.IsZero() {
		t.Errorf("Norm of zero vector should be zero, got %v", z)
	}
}

func TestOrthogonal(t *testing.T) {
	v := V(2, 5)
	o := v.Orthogonal()

	if math.Abs(v.Dot(o)) > 1e-9 {
		t.Errorf("Orthogonal should be perpendicular, dot=%f", v.Dot(o))
	}
	if math.Abs(v.Len()-o.Len()) > 1e-9 {
		t.Errorf("Orthogonal should preserve length")
	}
}

func TestDist(t *testing.T) {
	if got := V(0, 0).Dist(V(6, 8)); math.Abs(got-10) > 1e-9 {
		t.Errorf("Dist: got %f", got)
	}
}
