// Package ccd implements conservative continuous collision detection for the
// four primitive pairs of a surface mesh: point-point, point-edge,
// edge-edge, and point-triangle.
//
// Each public query wraps the inclusion kernel in a strategy that (1)
// inflates the minimum separation so the reported time of impact preserves a
// fraction of the initial gap, and (2) retries near-zero impact times without
// the inflation so a pair that starts inside the inflation band cannot stall
// the caller at t=0.
//
// 2D queries pass vectors with z = 0; the kernels need no dedicated 2D path.
package ccd

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/ipc-sim/ipctk/geometry"
)

// Defaults used by Options fields left at their zero value.
const (
	DefaultTolerance             = 1e-6
	DefaultMaxIterations         = 1e6
	DefaultConservativeRescaling = 0.8
)

// smallTOI is the threshold below which an impact time triggers the
// zero-TOI retry.
const smallTOI = 1e-6

// Logger receives the degenerate initial-distance warning. Replace it to
// route warnings elsewhere.
var Logger = golog.Global()

// Options configures a CCD query. The zero value of every field selects its
// default: TMax=1, Tolerance=1e-6, MaxIterations=1e6, MinDistance=0,
// ConservativeRescaling=0.8.
type Options struct {
	// TMax is the largest fraction of the step to check, in [0, 1].
	TMax float64
	// Tolerance is the absolute co-domain convergence tolerance.
	Tolerance float64
	// MaxIterations caps the kernel's search before it returns its best
	// conservative bound.
	MaxIterations int
	// MinDistance is the minimum separation to maintain.
	MinDistance float64
	// NoZeroTOI forbids the kernel from reporting an impact at exactly t=0.
	NoZeroTOI bool
	// ConservativeRescaling r, in (0, 1], sets the separation band: a
	// reported time of impact keeps at least the fraction 1-r of the initial
	// gap above MinDistance, and a retried impact time is multiplied by r.
	ConservativeRescaling float64
}

// DefaultOptions returns an Options with every default made explicit.
func DefaultOptions() Options {
	return Options{
		TMax:                  1,
		Tolerance:             DefaultTolerance,
		MaxIterations:         DefaultMaxIterations,
		ConservativeRescaling: DefaultConservativeRescaling,
	}
}

func (o Options) withDefaults() Options {
	if o.TMax <= 0 {
		o.TMax = 1
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ConservativeRescaling <= 0 {
		o.ConservativeRescaling = DefaultConservativeRescaling
	}
	return o
}

type kernelFunc func(minDistance float64, noZeroTOI bool) (bool, float64)

// strategy drives a raw kernel with the conservative-rescaling band and the
// zero-TOI retry. initialDistance is the unsquared distance at t=0;
// minDistance is the caller's required separation floor.
func strategy(kernel kernelFunc, initialDistance, minDistance, conservativeRescaling float64) (bool, float64) {
	if initialDistance <= minDistance {
		Logger.Warnf(
			"initial distance %g is less than or equal to the minimum separation %g, returning toi=0",
			initialDistance, minDistance)
		return true, 0
	}

	inflated := minDistance + (1-conservativeRescaling)*(initialDistance-minDistance)
	isImpacting, toi := kernel(inflated, false)

	if isImpacting && toi < smallTOI {
		isImpacting, toi = kernel(minDistance, true)
		if isImpacting {
			toi *= conservativeRescaling
		}
	}

	return isImpacting, toi
}

// PointPointCCD computes a conservative time of impact between two moving
// points. It reports whether the pair impacts within [0, TMax] and, if so,
// a lower bound on the impact time.
func PointPointCCD(p0T0, p1T0, p0T1, p1T1 r3.Vector, opts Options) (bool, float64) {
	opts = opts.withDefaults()
	kernel := func(ms float64, noZero bool) (bool, float64) {
		ko := opts
		ko.MinDistance, ko.NoZeroTOI = ms, noZero
		// degenerate edge-edge
		return edgeEdgeInclusion(p0T0, p0T0, p1T0, p1T0, p0T1, p0T1, p1T1, p1T1, ko)
	}
	d0 := math.Sqrt(geometry.PointPointDistance(p0T0, p1T0))
	return strategy(kernel, d0, opts.MinDistance, opts.ConservativeRescaling)
}

// PointEdgeCCD computes a conservative time of impact between a moving point
// and a moving edge.
func PointEdgeCCD(pT0, e0T0, e1T0, pT1, e0T1, e1T1 r3.Vector, opts Options) (bool, float64) {
	opts = opts.withDefaults()
	kernel := func(ms float64, noZero bool) (bool, float64) {
		ko := opts
		ko.MinDistance, ko.NoZeroTOI = ms, noZero
		// degenerate edge-edge
		return edgeEdgeInclusion(pT0, pT0, e0T0, e1T0, pT1, pT1, e0T1, e1T1, ko)
	}
	d0 := math.Sqrt(geometry.PointEdgeDistance(pT0, e0T0, e1T0))
	return strategy(kernel, d0, opts.MinDistance, opts.ConservativeRescaling)
}

// EdgeEdgeCCD computes a conservative time of impact between two moving
// edges.
func EdgeEdgeCCD(
	ea0T0, ea1T0, eb0T0, eb1T0,
	ea0T1, ea1T1, eb0T1, eb1T1 r3.Vector,
	opts Options,
) (bool, float64) {
	opts = opts.withDefaults()
	kernel := func(ms float64, noZero bool) (bool, float64) {
		ko := opts
		ko.MinDistance, ko.NoZeroTOI = ms, noZero
		return edgeEdgeInclusion(
			ea0T0, ea1T0, eb0T0, eb1T0,
			ea0T1, ea1T1, eb0T1, eb1T1, ko)
	}
	d0 := math.Sqrt(geometry.EdgeEdgeDistance(ea0T0, ea1T0, eb0T0, eb1T0))
	return strategy(kernel, d0, opts.MinDistance, opts.ConservativeRescaling)
}

// PointTriangleCCD computes a conservative time of impact between a moving
// point and a moving triangle.
func PointTriangleCCD(
	pT0, t0T0, t1T0, t2T0,
	pT1, t0T1, t1T1, t2T1 r3.Vector,
	opts Options,
) (bool, float64) {
	opts = opts.withDefaults()
	kernel := func(ms float64, noZero bool) (bool, float64) {
		ko := opts
		ko.MinDistance, ko.NoZeroTOI = ms, noZero
		return vertexFaceInclusion(
			pT0, t0T0, t1T0, t2T0,
			pT1, t0T1, t1T1, t2T1, ko)
	}
	d0 := math.Sqrt(geometry.PointTriangleDistance(pT0, t0T0, t1T0, t2T0))
	return strategy(kernel, d0, opts.MinDistance, opts.ConservativeRescaling)
}
