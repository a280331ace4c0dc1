// Package geometry implements the narrow-phase primitives the contact
// pipeline is built on: squared distances between point/edge/triangle pairs,
// their closest-point decompositions and analytic gradients, and the
// intersection predicates used by the self-intersection test.
//
// All distances returned by this package are squared.
package geometry

import (
	"github.com/golang/geo/r3"

	"github.com/ipc-sim/ipctk/utils"
)

const degenerateSegmentEps = 1e-20

// PointPointDistance returns the squared distance between two points.
func PointPointDistance(p0, p1 r3.Vector) float64 {
	return p1.Sub(p0).Norm2()
}

// segmentParam returns the parameter in [0, 1] of the point on segment
// [s0, s1] closest to p. Degenerate segments collapse to parameter 0.
func segmentParam(s0, s1, p r3.Vector) float64 {
	u := s1.Sub(s0)
	uu := u.Norm2()
	if uu < degenerateSegmentEps {
		return 0
	}
	return utils.Clamp(p.Sub(s0).Dot(u)/uu, 0, 1)
}

// ClosestPointSegmentPoint returns the closest point on segment [s0, s1] to p.
func ClosestPointSegmentPoint(s0, s1, p r3.Vector) r3.Vector {
	t := segmentParam(s0, s1, p)
	return s0.Add(s1.Sub(s0).Mul(t))
}

// PointEdgeDistance returns the squared distance from p to segment [e0, e1].
func PointEdgeDistance(p, e0, e1 r3.Vector) float64 {
	return p.Sub(ClosestPointSegmentPoint(e0, e1, p)).Norm2()
}

// closestPointTriangleWithWeights returns the closest point on triangle
// (t0, t1, t2) to p along with its barycentric weights.
func closestPointTriangleWithWeights(p, t0, t1, t2 r3.Vector) (r3.Vector, [3]float64) {
	// Parametrize the triangle s.t. an interior point is
	// q = t0 + u*e0 + v*e1 with e0 = t1-t0, e1 = t2-t0,
	// and solve the normal equations for the unconstrained minimizer.
	e0 := t1.Sub(t0)
	e1 := t2.Sub(t0)
	a := e0.Norm2()
	b := e0.Dot(e1)
	c := e1.Norm2()
	d := p.Sub(t0)
	det := a*c - b*b
	if det > degenerateSegmentEps {
		u := (c*e0.Dot(d) - b*e1.Dot(d)) / det
		v := (-b*e0.Dot(d) + a*e1.Dot(d)) / det
		if u >= 0 && v >= 0 && u+v <= 1 {
			return t0.Add(e0.Mul(u)).Add(e1.Mul(v)), [3]float64{1 - u - v, u, v}
		}
	}

	// The minimizer is on the boundary (or the triangle is degenerate), so
	// the closest point lies on one of the three edges.
	best := struct {
		point   r3.Vector
		weights [3]float64
		distSq  float64
	}{}

	s := segmentParam(t0, t1, p)
	best.point = t0.Add(t1.Sub(t0).Mul(s))
	best.weights = [3]float64{1 - s, s, 0}
	best.distSq = p.Sub(best.point).Norm2()

	s = segmentParam(t1, t2, p)
	if q := t1.Add(t2.Sub(t1).Mul(s)); p.Sub(q).Norm2() < best.distSq {
		best.point = q
		best.weights = [3]float64{0, 1 - s, s}
		best.distSq = p.Sub(q).Norm2()
	}

	s = segmentParam(t2, t0, p)
	if q := t2.Add(t0.Sub(t2).Mul(s)); p.Sub(q).Norm2() < best.distSq {
		best.point = q
		best.weights = [3]float64{s, 0, 1 - s}
	}
	return best.point, best.weights
}

// PointTriangleDistance returns the squared distance from p to triangle
// (t0, t1, t2).
func PointTriangleDistance(p, t0, t1, t2 r3.Vector) float64 {
	q, _ := closestPointTriangleWithWeights(p, t0, t1, t2)
	return p.Sub(q).Norm2()
}

// closestParamsSegmentSegment returns the parameters (s, t) in [0, 1] of the
// closest points on segments [p1, q1] and [p2, q2].
func closestParamsSegmentSegment(p1, q1, p2, q2 r3.Vector) (float64, float64) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Norm2()
	e := d2.Norm2()
	f := d2.Dot(r)

	if a < degenerateSegmentEps && e < degenerateSegmentEps {
		return 0, 0
	}
	if a < degenerateSegmentEps {
		return 0, utils.Clamp(f/e, 0, 1)
	}
	c := d1.Dot(r)
	if e < degenerateSegmentEps {
		return utils.Clamp(-c/a, 0, 1), 0
	}

	b := d1.Dot(d2)
	denom := a*e - b*b

	var s float64
	if denom > degenerateSegmentEps {
		s = utils.Clamp((b*f-c*e)/denom, 0, 1)
	}
	t := (b*s + f) / e
	if t < 0 {
		t = 0
		s = utils.Clamp(-c/a, 0, 1)
	} else if t > 1 {
		t = 1
		s = utils.Clamp((b-c)/a, 0, 1)
	}
	return s, t
}

// EdgeEdgeDistance returns the squared distance between segments [ea0, ea1]
// and [eb0, eb1].
func EdgeEdgeDistance(ea0, ea1, eb0, eb1 r3.Vector) float64 {
	s, t := closestParamsSegmentSegment(ea0, ea1, eb0, eb1)
	ca := ea0.Add(ea1.Sub(ea0).Mul(s))
	cb := eb0.Add(eb1.Sub(eb0).Mul(t))
	return ca.Sub(cb).Norm2()
}
