package geometry

import "github.com/golang/geo/r3"

// The gradients below differentiate the squared distance of each primitive
// pair with respect to the stacked 3D coordinates of its vertices. They all
// follow the same closest-point form: with n the vector from the closest
// point on the second primitive to the closest point on the first, the
// gradient with respect to a vertex is +/-2*w*n where w is the vertex's
// convex weight in its primitive's closest point. At interior minimizers this
// is the envelope form of the constrained minimization; at clamped minimizers
// the active reduced case yields the same expression.

func accumulate(out []float64, at int, w float64, n r3.Vector) {
	out[at+0] += w * n.X
	out[at+1] += w * n.Y
	out[at+2] += w * n.Z
}

// PointPointDistanceGradient returns the gradient of the squared distance
// with respect to the stacked coordinates (p0, p1); length 6.
func PointPointDistanceGradient(p0, p1 r3.Vector) []float64 {
	n := p0.Sub(p1)
	grad := make([]float64, 6)
	accumulate(grad, 0, 2, n)
	accumulate(grad, 3, -2, n)
	return grad
}

// PointEdgeDistanceGradient returns the gradient of the squared distance from
// p to segment [e0, e1] with respect to the stacked coordinates (p, e0, e1);
// length 9.
func PointEdgeDistanceGradient(p, e0, e1 r3.Vector) []float64 {
	t := segmentParam(e0, e1, p)
	c := e0.Add(e1.Sub(e0).Mul(t))
	n := p.Sub(c)
	grad := make([]float64, 9)
	accumulate(grad, 0, 2, n)
	accumulate(grad, 3, -2*(1-t), n)
	accumulate(grad, 6, -2*t, n)
	return grad
}

// PointTriangleDistanceGradient returns the gradient of the squared distance
// from p to triangle (t0, t1, t2) with respect to the stacked coordinates
// (p, t0, t1, t2); length 12.
func PointTriangleDistanceGradient(p, t0, t1, t2 r3.Vector) []float64 {
	c, w := closestPointTriangleWithWeights(p, t0, t1, t2)
	n := p.Sub(c)
	grad := make([]float64, 12)
	accumulate(grad, 0, 2, n)
	for i := 0; i < 3; i++ {
		accumulate(grad, 3+3*i, -2*w[i], n)
	}
	return grad
}

// EdgeEdgeDistanceGradient returns the gradient of the squared distance
// between segments [ea0, ea1] and [eb0, eb1] with respect to the stacked
// coordinates (ea0, ea1, eb0, eb1); length 12.
func EdgeEdgeDistanceGradient(ea0, ea1, eb0, eb1 r3.Vector) []float64 {
	s, t := closestParamsSegmentSegment(ea0, ea1, eb0, eb1)
	ca := ea0.Add(ea1.Sub(ea0).Mul(s))
	cb := eb0.Add(eb1.Sub(eb0).Mul(t))
	n := ca.Sub(cb)
	grad := make([]float64, 12)
	accumulate(grad, 0, 2*(1-s), n)
	accumulate(grad, 3, 2*s, n)
	accumulate(grad, 6, -2*(1-t), n)
	accumulate(grad, 9, -2*t, n)
	return grad
}
