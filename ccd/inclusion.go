package ccd

import (
	"math"

	"github.com/golang/geo/r3"
)

// The narrow-phase kernel treats every primitive pair as one of two inclusion
// problems over the parameter domain (t, u, v):
//
//	edge-edge:    F(t,u,v) = ((1-u)*ea0(t) + u*ea1(t)) - ((1-v)*eb0(t) + v*eb1(t))
//	vertex-face:  F(t,u,v) = p(t) - ((1-u-v)*f0(t) + u*f1(t) + v*f2(t))
//
// with every vertex moving linearly from its t=0 to its t=1 position. A pair
// is within the minimum separation at time t iff F(t,u,v) lies in the box
// [-ms, ms]^3 for some admissible (u, v). F is multilinear in (t, u, v), so
// over any parameter box its exact per-axis range is spanned by the eight
// corner evaluations. The solver bisects the domain, always descending into
// the earlier-t half first, prunes boxes whose range cannot reach the target
// box, and returns the t lower bound of the first box that can no longer be
// excluded once its image is smaller than the tolerance. That lower bound is
// conservative: no root can exist before it.

// evalSlack bounds the floating-point error of one corner evaluation,
// proportional to the coordinate magnitude per axis.
const evalSlack = 1e-13

type interval struct{ lo, hi float64 }

func (i interval) mid() float64   { return 0.5 * (i.lo + i.hi) }
func (i interval) width() float64 { return i.hi - i.lo }

type paramBox struct{ t, u, v interval }

type gapFunction struct {
	// x0[i] and x1[i] are the positions of vertex i at t=0 and t=1:
	// (ea0, ea1, eb0, eb1) for edge-edge, (p, f0, f1, f2) for vertex-face.
	x0, x1     [4]r3.Vector
	vertexFace bool
}

func (g *gapFunction) position(i int, t float64) r3.Vector {
	return g.x0[i].Mul(1 - t).Add(g.x1[i].Mul(t))
}

func (g *gapFunction) eval(t, u, v float64) r3.Vector {
	p0 := g.position(0, t)
	p1 := g.position(1, t)
	p2 := g.position(2, t)
	p3 := g.position(3, t)
	if g.vertexFace {
		return p0.Sub(p1.Mul(1 - u - v).Add(p2.Mul(u)).Add(p3.Mul(v)))
	}
	return p0.Mul(1 - u).Add(p1.Mul(u)).Sub(p2.Mul(1 - v).Add(p3.Mul(v)))
}

// errorBound returns a per-axis slack covering rounding error of corner
// evaluations.
func (g *gapFunction) errorBound() r3.Vector {
	var m r3.Vector
	for i := 0; i < 4; i++ {
		m.X = math.Max(m.X, math.Max(math.Abs(g.x0[i].X), math.Abs(g.x1[i].X)))
		m.Y = math.Max(m.Y, math.Max(math.Abs(g.x0[i].Y), math.Abs(g.x1[i].Y)))
		m.Z = math.Max(m.Z, math.Max(math.Abs(g.x0[i].Z), math.Abs(g.x1[i].Z)))
	}
	return m.Mul(evalSlack)
}

// bounds returns the per-axis inclusion range of the gap over a parameter
// box, spanned by the eight corner evaluations.
func (g *gapFunction) bounds(b paramBox) (lo, hi r3.Vector) {
	lo = r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = lo.Mul(-1)
	for _, t := range [2]float64{b.t.lo, b.t.hi} {
		for _, u := range [2]float64{b.u.lo, b.u.hi} {
			for _, v := range [2]float64{b.v.lo, b.v.hi} {
				c := g.eval(t, u, v)
				lo.X = math.Min(lo.X, c.X)
				lo.Y = math.Min(lo.Y, c.Y)
				lo.Z = math.Min(lo.Z, c.Z)
				hi.X = math.Max(hi.X, c.X)
				hi.Y = math.Max(hi.Y, c.Y)
				hi.Z = math.Max(hi.Z, c.Z)
			}
		}
	}
	return lo, hi
}

// solve runs the bisection search. It reports whether an impact may occur in
// [0, TMax] and, if so, a conservative lower bound on its time.
func (g *gapFunction) solve(opts Options) (bool, float64) {
	ms := opts.MinDistance
	slack := g.errorBound()

	stack := make([]paramBox, 0, 64)
	stack = append(stack, paramBox{
		t: interval{0, opts.TMax},
		u: interval{0, 1},
		v: interval{0, 1},
	})

	iterations := 0
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if g.vertexFace && b.u.lo+b.v.lo > 1 {
			continue
		}

		lo, hi := g.bounds(b)
		if lo.X > ms+slack.X || hi.X < -ms-slack.X ||
			lo.Y > ms+slack.Y || hi.Y < -ms-slack.Y ||
			lo.Z > ms+slack.Z || hi.Z < -ms-slack.Z {
			continue
		}

		width := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z))
		if width <= opts.Tolerance {
			if b.t.lo > 0 || !opts.NoZeroTOI {
				return true, b.t.lo
			}
			// NoZeroTOI: a converged box still touching t=0 may not
			// terminate the search. Keep splitting it; once the domain
			// resolution bottoms out, drop it and let a later root (if
			// any) produce a positive bound.
			if b.t.width() < 1e-14 && b.u.width() < 1e-14 && b.v.width() < 1e-14 {
				continue
			}
		} else {
			iterations++
			if iterations >= opts.MaxIterations && (b.t.lo > 0 || !opts.NoZeroTOI) {
				// Out of budget. This box is the earliest candidate that
				// could not be excluded, so its lower bound remains a
				// conservative answer.
				return true, b.t.lo
			}
		}

		// Split the widest dimension. For t-splits push the upper half
		// first so the stack pops the earlier half next.
		switch {
		case b.t.width() >= b.u.width() && b.t.width() >= b.v.width():
			mid := b.t.mid()
			stack = append(stack,
				paramBox{t: interval{mid, b.t.hi}, u: b.u, v: b.v},
				paramBox{t: interval{b.t.lo, mid}, u: b.u, v: b.v})
		case b.u.width() >= b.v.width():
			mid := b.u.mid()
			stack = append(stack,
				paramBox{t: b.t, u: interval{mid, b.u.hi}, v: b.v},
				paramBox{t: b.t, u: interval{b.u.lo, mid}, v: b.v})
		default:
			mid := b.v.mid()
			stack = append(stack,
				paramBox{t: b.t, u: b.u, v: interval{mid, b.v.hi}},
				paramBox{t: b.t, u: b.u, v: interval{b.v.lo, mid}})
		}
	}
	return false, 0
}

// edgeEdgeInclusion is the raw kernel for two moving edges. Point-point and
// point-edge queries reuse it with duplicated endpoints.
func edgeEdgeInclusion(
	ea0T0, ea1T0, eb0T0, eb1T0,
	ea0T1, ea1T1, eb0T1, eb1T1 r3.Vector,
	opts Options,
) (bool, float64) {
	g := gapFunction{
		x0: [4]r3.Vector{ea0T0, ea1T0, eb0T0, eb1T0},
		x1: [4]r3.Vector{ea0T1, ea1T1, eb0T1, eb1T1},
	}
	return g.solve(opts)
}

// vertexFaceInclusion is the raw kernel for a moving point against a moving
// triangle.
func vertexFaceInclusion(
	pT0, f0T0, f1T0, f2T0,
	pT1, f0T1, f1T1, f2T1 r3.Vector,
	opts Options,
) (bool, float64) {
	g := gapFunction{
		x0:         [4]r3.Vector{pT0, f0T0, f1T0, f2T0},
		x1:         [4]r3.Vector{pT1, f0T1, f1T1, f2T1},
		vertexFace: true,
	}
	return g.solve(opts)
}
