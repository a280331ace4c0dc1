package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Statically filtered orientation predicates. The determinant is trusted when
// its magnitude exceeds the worst-case floating-point error of its own
// evaluation; inside the filter band the sign is reported as zero, which the
// intersection tests treat as touching. This keeps the predicates exact
// outside the band and conservative inside it.
const (
	orient2dErrBound = 3.3306690738754716e-16
	orient3dErrBound = 7.7715611723761027e-16
)

// orient2d returns the sign of the signed area of triangle (a, b, c):
// +1 counterclockwise, -1 clockwise, 0 (possibly) degenerate.
func orient2d(a, b, c r2.Point) int {
	detLeft := (a.X - c.X) * (b.Y - c.Y)
	detRight := (a.Y - c.Y) * (b.X - c.X)
	det := detLeft - detRight
	detSum := math.Abs(detLeft) + math.Abs(detRight)
	if math.Abs(det) > orient2dErrBound*detSum {
		if det > 0 {
			return 1
		}
		return -1
	}
	return 0
}

// onSegment2D reports whether c, known collinear with [a, b], lies on the
// segment.
func onSegment2D(a, b, c r2.Point) bool {
	return math.Min(a.X, b.X) <= c.X && c.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= c.Y && c.Y <= math.Max(a.Y, b.Y)
}

// SegmentSegmentIntersect reports whether 2D segments [a0, a1] and [b0, b1]
// intersect, endpoints and collinear overlap included.
func SegmentSegmentIntersect(a0, a1, b0, b1 r2.Point) bool {
	d1 := orient2d(b0, b1, a0)
	d2 := orient2d(b0, b1, a1)
	d3 := orient2d(a0, a1, b0)
	d4 := orient2d(a0, a1, b1)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment2D(b0, b1, a0) {
		return true
	}
	if d2 == 0 && onSegment2D(b0, b1, a1) {
		return true
	}
	if d3 == 0 && onSegment2D(a0, a1, b0) {
		return true
	}
	if d4 == 0 && onSegment2D(a0, a1, b1) {
		return true
	}
	return false
}

// orient3d returns the sign of the orientation of d relative to the plane
// through (a, b, c): +1 below (following the right-hand rule), -1 above,
// 0 (possibly) coplanar.
func orient3d(a, b, c, d r3.Vector) int {
	adx, ady, adz := a.X-d.X, a.Y-d.Y, a.Z-d.Z
	bdx, bdy, bdz := b.X-d.X, b.Y-d.Y, b.Z-d.Z
	cdx, cdy, cdz := c.X-d.X, c.Y-d.Y, c.Z-d.Z

	bdxcdy := bdx * cdy
	cdxbdy := cdx * bdy
	cdxady := cdx * ady
	adxcdy := adx * cdy
	adxbdy := adx * bdy
	bdxady := bdx * ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)
	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	if math.Abs(det) > orient3dErrBound*permanent {
		if det > 0 {
			return 1
		}
		return -1
	}
	return 0
}

// project2D drops the dominant axis of n, mapping 3D points into the plane
// where a coplanar problem is best conditioned.
func project2D(p, n r3.Vector) r2.Point {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return r2.Point{X: p.Y, Y: p.Z}
	case ay >= az:
		return r2.Point{X: p.X, Y: p.Z}
	default:
		return r2.Point{X: p.X, Y: p.Y}
	}
}

func pointInTriangle2D(p, a, b, c r2.Point) bool {
	d1 := orient2d(a, b, p)
	d2 := orient2d(b, c, p)
	d3 := orient2d(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// SegmentTriangleIntersect reports whether segment [s0, s1] intersects
// triangle (t0, t1, t2) in 3D, touching configurations included.
func SegmentTriangleIntersect(s0, s1, t0, t1, t2 r3.Vector) bool {
	d0 := orient3d(t0, t1, t2, s0)
	d1 := orient3d(t0, t1, t2, s1)

	if (d0 > 0 && d1 > 0) || (d0 < 0 && d1 < 0) {
		return false
	}

	if d0 == 0 && d1 == 0 {
		// Coplanar: test in the projection plane of the triangle normal.
		n := t1.Sub(t0).Cross(t2.Sub(t0))
		a, b := project2D(s0, n), project2D(s1, n)
		pa, pb, pc := project2D(t0, n), project2D(t1, n), project2D(t2, n)
		if pointInTriangle2D(a, pa, pb, pc) || pointInTriangle2D(b, pa, pb, pc) {
			return true
		}
		return SegmentSegmentIntersect(a, b, pa, pb) ||
			SegmentSegmentIntersect(a, b, pb, pc) ||
			SegmentSegmentIntersect(a, b, pc, pa)
	}

	// The segment crosses (or touches) the supporting plane; it hits the
	// triangle iff it passes on a consistent side of all three edges.
	e0 := orient3d(s0, s1, t0, t1)
	e1 := orient3d(s0, s1, t1, t2)
	e2 := orient3d(s0, s1, t2, t0)
	return (e0 >= 0 && e1 >= 0 && e2 >= 0) || (e0 <= 0 && e1 <= 0 && e2 <= 0)
}
