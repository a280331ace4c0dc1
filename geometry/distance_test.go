package geometry

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPointPointDistance(t *testing.T) {
	d := PointPointDistance(r3.Vector{}, r3.Vector{X: 3, Y: 4})
	test.That(t, d, test.ShouldAlmostEqual, 25.0, 1e-12)
}

func TestPointEdgeDistance(t *testing.T) {
	e0 := r3.Vector{X: -1}
	e1 := r3.Vector{X: 1}

	t.Run("projects inside the segment", func(t *testing.T) {
		d := PointEdgeDistance(r3.Vector{Y: 2}, e0, e1)
		test.That(t, d, test.ShouldAlmostEqual, 4.0, 1e-12)
	})

	t.Run("clamps to an endpoint", func(t *testing.T) {
		d := PointEdgeDistance(r3.Vector{X: 2, Y: 1}, e0, e1)
		test.That(t, d, test.ShouldAlmostEqual, 2.0, 1e-12)
	})

	t.Run("degenerate segment", func(t *testing.T) {
		d := PointEdgeDistance(r3.Vector{X: 1}, e0, e0)
		test.That(t, d, test.ShouldAlmostEqual, 4.0, 1e-12)
	})
}

func TestPointTriangleDistance(t *testing.T) {
	t0 := r3.Vector{}
	t1 := r3.Vector{X: 1}
	t2 := r3.Vector{Y: 1}

	t.Run("above the interior", func(t *testing.T) {
		d := PointTriangleDistance(r3.Vector{X: 0.2, Y: 0.2, Z: 0.5}, t0, t1, t2)
		test.That(t, d, test.ShouldAlmostEqual, 0.25, 1e-12)
	})

	t.Run("closest to an edge", func(t *testing.T) {
		d := PointTriangleDistance(r3.Vector{X: 0.5, Y: -1}, t0, t1, t2)
		test.That(t, d, test.ShouldAlmostEqual, 1.0, 1e-12)
	})

	t.Run("closest to a vertex", func(t *testing.T) {
		d := PointTriangleDistance(r3.Vector{X: 2, Y: -1}, t0, t1, t2)
		test.That(t, d, test.ShouldAlmostEqual, 2.0, 1e-12)
	})
}

func TestEdgeEdgeDistance(t *testing.T) {
	t.Run("skew edges", func(t *testing.T) {
		d := EdgeEdgeDistance(
			r3.Vector{X: -1}, r3.Vector{X: 1},
			r3.Vector{Y: -1, Z: 0.5}, r3.Vector{Y: 1, Z: 0.5},
		)
		test.That(t, d, test.ShouldAlmostEqual, 0.25, 1e-12)
	})

	t.Run("parallel edges", func(t *testing.T) {
		d := EdgeEdgeDistance(
			r3.Vector{X: -1}, r3.Vector{X: 1},
			r3.Vector{X: -1, Y: 2}, r3.Vector{X: 1, Y: 2},
		)
		test.That(t, d, test.ShouldAlmostEqual, 4.0, 1e-12)
	})

	t.Run("endpoint to endpoint", func(t *testing.T) {
		d := EdgeEdgeDistance(
			r3.Vector{X: -2}, r3.Vector{X: -1},
			r3.Vector{X: 1}, r3.Vector{X: 2},
		)
		test.That(t, d, test.ShouldAlmostEqual, 4.0, 1e-12)
	})
}

// finiteDifference approximates the gradient of f with respect to the stacked
// coordinates of the given points.
func finiteDifference(f func([]r3.Vector) float64, points []r3.Vector) []float64 {
	const h = 1e-6
	grad := make([]float64, 3*len(points))
	for i := range points {
		for j := 0; j < 3; j++ {
			perturb := func(sign float64) float64 {
				moved := make([]r3.Vector, len(points))
				copy(moved, points)
				switch j {
				case 0:
					moved[i].X += sign * h
				case 1:
					moved[i].Y += sign * h
				case 2:
					moved[i].Z += sign * h
				}
				return f(moved)
			}
			grad[3*i+j] = (perturb(1) - perturb(-1)) / (2 * h)
		}
	}
	return grad
}

func assertGradientMatches(t *testing.T, analytic, numeric []float64) {
	t.Helper()
	test.That(t, len(analytic), test.ShouldEqual, len(numeric))
	for i := range analytic {
		test.That(t, analytic[i], test.ShouldAlmostEqual, numeric[i], 1e-5)
	}
}

func TestDistanceGradients(t *testing.T) {
	t.Run("point-point", func(t *testing.T) {
		pts := []r3.Vector{{X: 0.1, Y: -0.3, Z: 0.2}, {X: 1.2, Y: 0.4, Z: -0.9}}
		grad := PointPointDistanceGradient(pts[0], pts[1])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return PointPointDistance(p[0], p[1])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("point-edge interior", func(t *testing.T) {
		pts := []r3.Vector{{X: 0.1, Y: 1.3, Z: 0.2}, {X: -1, Y: 0, Z: 0}, {X: 1, Y: 0.2, Z: 0.1}}
		grad := PointEdgeDistanceGradient(pts[0], pts[1], pts[2])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return PointEdgeDistance(p[0], p[1], p[2])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("point-edge clamped", func(t *testing.T) {
		pts := []r3.Vector{{X: 3, Y: 1, Z: 0}, {X: -1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}
		grad := PointEdgeDistanceGradient(pts[0], pts[1], pts[2])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return PointEdgeDistance(p[0], p[1], p[2])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("point-triangle interior", func(t *testing.T) {
		pts := []r3.Vector{
			{X: 0.25, Y: 0.25, Z: 0.7},
			{}, {X: 1}, {Y: 1},
		}
		grad := PointTriangleDistanceGradient(pts[0], pts[1], pts[2], pts[3])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return PointTriangleDistance(p[0], p[1], p[2], p[3])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("point-triangle edge region", func(t *testing.T) {
		pts := []r3.Vector{
			{X: 0.5, Y: -0.8, Z: 0.3},
			{}, {X: 1}, {Y: 1},
		}
		grad := PointTriangleDistanceGradient(pts[0], pts[1], pts[2], pts[3])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return PointTriangleDistance(p[0], p[1], p[2], p[3])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("edge-edge skew", func(t *testing.T) {
		pts := []r3.Vector{
			{X: -1, Y: 0.1, Z: 0}, {X: 1, Y: -0.2, Z: 0.1},
			{X: 0, Y: -1, Z: 0.6}, {X: 0.3, Y: 1, Z: 0.5},
		}
		grad := EdgeEdgeDistanceGradient(pts[0], pts[1], pts[2], pts[3])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return EdgeEdgeDistance(p[0], p[1], p[2], p[3])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})

	t.Run("edge-edge clamped", func(t *testing.T) {
		pts := []r3.Vector{
			{X: -2, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
			{X: 1, Y: 0.5, Z: 0}, {X: 2, Y: 0.5, Z: 0},
		}
		grad := EdgeEdgeDistanceGradient(pts[0], pts[1], pts[2], pts[3])
		fd := finiteDifference(func(p []r3.Vector) float64 {
			return EdgeEdgeDistance(p[0], p[1], p[2], p[3])
		}, pts)
		assertGradientMatches(t, grad, fd)
	})
}
