package ipctk

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/broadphase"
	"github.com/ipc-sim/ipctk/ccd"
	"github.com/ipc-sim/ipctk/collision"
	"github.com/ipc-sim/ipctk/geometry"
	"github.com/ipc-sim/ipctk/matrix"
	"github.com/ipc-sim/ipctk/mesh"
	"github.com/ipc-sim/ipctk/utils"
)

// assertPositions aborts on a position table whose shape does not match the
// mesh. Shape mismatches are caller bugs, not runtime conditions.
func assertPositions(m *mesh.CollisionMesh, v *mat.Dense, name string) {
	rows, cols := v.Dims()
	if rows != m.NumVertices() || cols != m.Dim() {
		panic(errors.Errorf("%s is %dx%d but the mesh expects %dx%d",
			name, rows, cols, m.NumVertices(), m.Dim()))
	}
}

// ComputeBarrierPotential sums the weighted barrier potential over the
// constraint set at activation distance dhat. An empty set yields 0.
func ComputeBarrierPotential(
	m *mesh.CollisionMesh, v *mat.Dense, constraints collision.Constraints, dhat float64,
) float64 {
	assertPositions(m, v, "V")
	if len(constraints) == 0 {
		return 0
	}
	edges, faces := m.Edges(), m.Faces()

	var mu sync.Mutex
	potential := 0.0
	utils.GroupWorkParallel(
		len(constraints),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			local := 0.0
			return func(memberNum, workNum int) {
					// quadrature weights are premultiplied by Potential
					local += constraints[workNum].Potential(v, edges, faces, dhat)
				}, func() {
					mu.Lock()
					potential += local
					mu.Unlock()
				}
		},
	)
	return potential
}

// ComputeBarrierPotentialGradient assembles the gradient of the barrier
// potential over the global degrees of freedom. An empty set yields the zero
// vector.
func ComputeBarrierPotentialGradient(
	m *mesh.CollisionMesh, v *mat.Dense, constraints collision.Constraints, dhat float64,
) *mat.VecDense {
	assertPositions(m, v, "V")
	n := m.NDOF()
	if len(constraints) == 0 {
		return mat.NewVecDense(n, nil)
	}
	edges, faces := m.Edges(), m.Faces()
	dim := m.Dim()

	var mu sync.Mutex
	global := make([]float64, n)
	utils.GroupWorkParallel(
		len(constraints),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			local := make([]float64, n)
			return func(memberNum, workNum int) {
					c := constraints[workNum]
					collision.LocalGradientToGlobal(
						c.PotentialGradient(v, edges, faces, dhat),
						c.VertexIndices(edges, faces), dim, local)
				}, func() {
					mu.Lock()
					for i, x := range local {
						global[i] += x
					}
					mu.Unlock()
				}
		},
	)
	return mat.NewVecDense(n, global)
}

// ComputeBarrierPotentialHessian assembles the Hessian of the barrier
// potential as a sparse matrix over the global degrees of freedom. With
// projectToPSD, every local Hessian is clamped to the positive-semidefinite
// cone before scatter. An empty set yields an empty matrix.
func ComputeBarrierPotentialHessian(
	m *mesh.CollisionMesh, v *mat.Dense, constraints collision.Constraints, dhat float64, projectToPSD bool,
) *matrix.Sparse {
	assertPositions(m, v, "V")
	n := m.NDOF()
	if len(constraints) == 0 {
		return matrix.NewSparse(n, n)
	}
	edges, faces := m.Edges(), m.Faces()
	dim := m.Dim()

	var mu sync.Mutex
	var triplets []matrix.Triplet
	utils.GroupWorkParallel(
		len(constraints),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			var local []matrix.Triplet
			return func(memberNum, workNum int) {
					c := constraints[workNum]
					collision.LocalHessianToGlobalTriplets(
						c.PotentialHessian(v, edges, faces, dhat, projectToPSD),
						c.VertexIndices(edges, faces), dim, &local)
				}, func() {
					mu.Lock()
					triplets = append(triplets, local...)
					mu.Unlock()
				}
		},
	)
	return matrix.NewSparseFromTriplets(n, n, triplets)
}

// ComputeBarrierShapeDerivative assembles the shape derivative of the barrier
// potential: the unprojected Hessian plus, for every constraint, the rank
// update (S^T grad / w) * (dw/dV)^T built from the constraint's weight
// gradient.
func ComputeBarrierShapeDerivative(
	m *mesh.CollisionMesh, v *mat.Dense, constraints collision.Constraints, dhat float64,
) *matrix.Sparse {
	shape := ComputeBarrierPotentialHessian(m, v, constraints, dhat, false)
	edges, faces := m.Edges(), m.Faces()
	n := m.NDOF()
	dim := m.Dim()

	for _, c := range constraints {
		weightGrad := c.WeightGradient()
		if weightGrad == nil {
			continue
		}
		if weightGrad.Len() != n {
			panic(errors.Errorf("weight gradient has length %d, want %d", weightGrad.Len(), n))
		}
		weight := c.Weight()

		local := c.PotentialGradient(v, edges, faces, dhat)
		for i := range local {
			local[i] /= weight
		}
		barrierGrad := matrix.NewSparseVector(n)
		collision.LocalGradientToGlobalSparse(local, c.VertexIndices(edges, faces), dim, barrierGrad)

		barrierGrad.DoNonZero(func(i int, gi float64) {
			weightGrad.DoNonZero(func(j int, wj float64) {
				shape.Add(i, j, gi*wj)
			})
		})
	}
	return shape
}

var errCollision = errors.New("step is not collision free")

// IsStepCollisionFree runs a broad phase over the linear step from v0 to v1
// and reports whether no candidate pair impacts within the whole step.
func IsStepCollisionFree(
	m *mesh.CollisionMesh, v0, v1 *mat.Dense, method broadphase.Method, opts ccd.Options,
) bool {
	assertPositions(m, v0, "V0")
	assertPositions(m, v1, "V1")
	candidates := broadphase.NewForStep(method, m, v0, v1, 0).DetectCollisionCandidates()
	return IsStepCollisionFreeWithCandidates(candidates, m, v0, v1, opts)
}

// IsStepCollisionFreeWithCandidates is the narrow phase of
// IsStepCollisionFree over a precomputed candidate set. Workers stop at the
// first impact found.
func IsStepCollisionFreeWithCandidates(
	candidates collision.Candidates, m *mesh.CollisionMesh, v0, v1 *mat.Dense, opts ccd.Options,
) bool {
	assertPositions(m, v0, "V0")
	assertPositions(m, v1, "V1")
	if len(candidates) == 0 {
		return true
	}
	edges, faces := m.Edges(), m.Faces()
	opts.TMax = 1

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(utils.ParallelFactor)
	for i := range candidates {
		candidate := candidates[i]
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if hit, _ := candidate.CCD(v0, v1, edges, faces, opts); hit {
				return errCollision
			}
			return nil
		})
	}
	return group.Wait() == nil
}

// ComputeCollisionFreeStepsize runs a broad phase over the linear step from
// v0 to v1 and returns the largest step fraction in [0, 1] free of impacts.
func ComputeCollisionFreeStepsize(
	m *mesh.CollisionMesh, v0, v1 *mat.Dense, method broadphase.Method, opts ccd.Options,
) float64 {
	assertPositions(m, v0, "V0")
	assertPositions(m, v1, "V1")
	candidates := broadphase.NewForStep(method, m, v0, v1, 0).DetectCollisionCandidates()
	return ComputeCollisionFreeStepsizeWithCandidates(candidates, m, v0, v1, opts)
}

// ComputeCollisionFreeStepsizeWithCandidates reduces the earliest time of
// impact over a precomputed candidate set. The running minimum is fed back as
// tmax into later queries so already-discovered impacts prune the remaining
// work; a stale read only costs extra work, never correctness.
func ComputeCollisionFreeStepsizeWithCandidates(
	candidates collision.Candidates, m *mesh.CollisionMesh, v0, v1 *mat.Dense, opts ccd.Options,
) float64 {
	assertPositions(m, v0, "V0")
	assertPositions(m, v1, "V1")
	if len(candidates) == 0 {
		return 1 // no possible collisions, so the full step can be taken
	}
	edges, faces := m.Edges(), m.Faces()

	var mu sync.RWMutex
	earliestTOI := 1.0
	utils.GroupWorkParallel(
		len(candidates),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				mu.RLock()
				tmax := earliestTOI
				mu.RUnlock()

				o := opts
				o.TMax = tmax
				hit, toi := candidates[workNum].CCD(v0, v1, edges, faces, o)
				if !hit {
					return
				}
				mu.Lock()
				if toi < earliestTOI {
					earliestTOI = toi
				}
				mu.Unlock()
			}, nil
		},
	)
	if earliestTOI < 0 || earliestTOI > 1 {
		panic(errors.Errorf("earliest toi %g is outside [0, 1]", earliestTOI))
	}
	return earliestTOI
}

// ComputeMinimumDistance returns the minimum over the constraint set of the
// pairwise distance, or +Inf for an empty set. The returned scalar is a
// squared distance.
func ComputeMinimumDistance(
	m *mesh.CollisionMesh, v *mat.Dense, constraints collision.Constraints,
) float64 {
	assertPositions(m, v, "V")
	if len(constraints) == 0 {
		return math.Inf(1)
	}
	edges, faces := m.Edges(), m.Faces()

	var mu sync.Mutex
	minDist := math.Inf(1)
	utils.GroupWorkParallel(
		len(constraints),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			local := math.Inf(1)
			return func(memberNum, workNum int) {
					if d := constraints[workNum].Distance(v, edges, faces); d < local {
						local = d
					}
				}, func() {
					mu.Lock()
					minDist = math.Min(minDist, local)
					mu.Unlock()
				}
		},
	)
	return minDist
}

func vertex2(v *mat.Dense, i int) r2.Point {
	return r2.Point{X: v.At(i, 0), Y: v.At(i, 1)}
}

// HasIntersections reports whether the configuration self-intersects. The
// broad phase is inflated by 1% of the world bounding-box diagonal; the
// narrow phase tests edge-edge pairs in 2D and edge-face pairs in 3D.
func HasIntersections(m *mesh.CollisionMesh, v *mat.Dense, method broadphase.Method) bool {
	assertPositions(m, v, "V")

	conservativeInflationRadius := 1e-2 * mesh.WorldBBoxDiagonal(v)
	bp := broadphase.New(method, m, v, conservativeInflationRadius)
	edges, faces := m.Edges(), m.Faces()

	if m.Dim() == 2 {
		for _, c := range bp.DetectEdgeEdgeCandidates() {
			ea, eb := edges[c.Edge0], edges[c.Edge1]
			if geometry.SegmentSegmentIntersect(
				vertex2(v, ea[0]), vertex2(v, ea[1]),
				vertex2(v, eb[0]), vertex2(v, eb[1])) {
				return true
			}
		}
		return false
	}

	for _, c := range bp.DetectEdgeFaceCandidates() {
		e, f := edges[c.Edge], faces[c.Face]
		if geometry.SegmentTriangleIntersect(
			mesh.Vertex(v, e[0]), mesh.Vertex(v, e[1]),
			mesh.Vertex(v, f[0]), mesh.Vertex(v, f[1]), mesh.Vertex(v, f[2])) {
			return true
		}
	}
	return false
}
