package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/barrier"
	"github.com/ipc-sim/ipctk/geometry"
	"github.com/ipc-sim/ipctk/matrix"
	"github.com/ipc-sim/ipctk/mesh"
)

// Constraint is an active primitive pair contributing to the barrier
// potential. On top of its Candidate identity it carries a quadrature weight
// and evaluates the local potential, gradient, and Hessian.
//
// Distances are squared throughout, and the activation distance dhat is
// squared internally to match.
type Constraint interface {
	Candidate
	// Weight returns the quadrature weight folded into the potential.
	Weight() float64
	// WeightGradient returns the gradient of the weight with respect to the
	// global degrees of freedom; may be nil when the weight is constant.
	WeightGradient() *matrix.SparseVector
	// Distance returns the pair's squared distance.
	Distance(v *mat.Dense, edges []mesh.Edge, faces []mesh.Face) float64
	// Potential returns the weighted barrier potential.
	Potential(v *mat.Dense, edges []mesh.Edge, faces []mesh.Face, dhat float64) float64
	// PotentialGradient returns the local gradient of the weighted potential,
	// stacked per vertex with dim components each.
	PotentialGradient(v *mat.Dense, edges []mesh.Edge, faces []mesh.Face, dhat float64) []float64
	// PotentialHessian returns the local Hessian of the weighted potential,
	// optionally projected to the positive-semidefinite cone.
	PotentialHessian(v *mat.Dense, edges []mesh.Edge, faces []mesh.Face, dhat float64, projectToPSD bool) *mat.SymDense
}

// Constraints is a set of constraints with no ordering requirement.
type Constraints []Constraint

// ConstraintAttributes holds the quadrature data shared by all constraint
// variants. The zero value is an unweighted constraint.
type ConstraintAttributes struct {
	// QuadratureWeight scales the pair's potential; zero means 1.
	QuadratureWeight float64
	// QuadratureWeightGradient is ∂weight/∂V over the global dofs; nil means
	// the weight is constant.
	QuadratureWeightGradient *matrix.SparseVector
}

// Weight returns the quadrature weight.
func (a ConstraintAttributes) Weight() float64 {
	if a.QuadratureWeight == 0 {
		return 1
	}
	return a.QuadratureWeight
}

// WeightGradient returns the weight gradient; may be nil.
func (a ConstraintAttributes) WeightGradient() *matrix.SparseVector {
	return a.QuadratureWeightGradient
}

// localPair bundles a pair's stacked vertex positions with its squared
// distance function and analytic gradient.
type localPair struct {
	points   []r3.Vector
	distance func([]r3.Vector) float64
	gradient func([]r3.Vector) []float64
}

// compress drops the z components of a 3D-stacked local vector when the
// problem is 2D.
func compress(g []float64, numPoints, dim int) []float64 {
	if dim == 3 {
		return g
	}
	out := make([]float64, numPoints*dim)
	for k := 0; k < numPoints; k++ {
		for j := 0; j < dim; j++ {
			out[k*dim+j] = g[k*3+j]
		}
	}
	return out
}

func (p localPair) potential(weight, dhat float64) float64 {
	return weight * barrier.Barrier(p.distance(p.points), dhat*dhat)
}

func (p localPair) potentialGradient(weight, dhat float64, dim int) []float64 {
	d := p.distance(p.points)
	db := barrier.FirstDerivative(d, dhat*dhat)
	grad := compress(p.gradient(p.points), len(p.points), dim)
	for i := range grad {
		grad[i] *= weight * db
	}
	return grad
}

// fdStep scales the finite-difference step to the coordinate magnitude.
func (p localPair) fdStep() float64 {
	scale := 1.0
	for _, pt := range p.points {
		scale = math.Max(scale, math.Max(math.Abs(pt.X), math.Max(math.Abs(pt.Y), math.Abs(pt.Z))))
	}
	return 1e-7 * scale
}

// distanceHessian approximates the Hessian of the squared distance by central
// differences of the analytic gradient, symmetrized.
func (p localPair) distanceHessian() *mat.Dense {
	n := 3 * len(p.points)
	h := p.fdStep()
	hess := mat.NewDense(n, n, nil)
	moved := make([]r3.Vector, len(p.points))
	for col := 0; col < n; col++ {
		k, j := col/3, col%3
		eval := func(sign float64) []float64 {
			copy(moved, p.points)
			switch j {
			case 0:
				moved[k].X += sign * h
			case 1:
				moved[k].Y += sign * h
			case 2:
				moved[k].Z += sign * h
			}
			return p.gradient(moved)
		}
		plus, minus := eval(1), eval(-1)
		for row := 0; row < n; row++ {
			hess.Set(row, col, (plus[row]-minus[row])/(2*h))
		}
	}
	// symmetrize
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := 0.5 * (hess.At(i, j) + hess.At(j, i))
			hess.Set(i, j, avg)
			hess.Set(j, i, avg)
		}
	}
	return hess
}

func (p localPair) potentialHessian(weight, dhat float64, dim int, toPSD bool) *mat.SymDense {
	d := p.distance(p.points)
	db := barrier.FirstDerivative(d, dhat*dhat)
	d2b := barrier.SecondDerivative(d, dhat*dhat)
	grad := compress(p.gradient(p.points), len(p.points), dim)

	distHess := p.distanceHessian()
	n := len(p.points) * dim
	hess := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ki, ji := i/dim, i%dim
		for j := i; j < n; j++ {
			kj, jj := j/dim, j%dim
			v := weight * (d2b*grad[i]*grad[j] + db*distHess.At(ki*3+ji, kj*3+jj))
			hess.SetSym(i, j, v)
		}
	}
	if toPSD {
		return ProjectToPSD(hess)
	}
	return hess
}

// ProjectToPSD clamps the negative eigenvalues of a symmetric matrix to zero.
func ProjectToPSD(h *mat.SymDense) *mat.SymDense {
	var eig mat.EigenSym
	if !eig.Factorize(h, true) {
		return h
	}
	vals := eig.Values(nil)
	negative := false
	for _, v := range vals {
		if v < 0 {
			negative = true
			break
		}
	}
	if !negative {
		return h
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	n := h.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for k, lambda := range vals {
		if lambda <= 0 {
			continue
		}
		for i := 0; i < n; i++ {
			qi := vecs.At(i, k)
			for j := i; j < n; j++ {
				out.SetSym(i, j, out.At(i, j)+lambda*qi*vecs.At(j, k))
			}
		}
	}
	return out
}

// VertexVertexConstraint is an active vertex-vertex pair.
type VertexVertexConstraint struct {
	VertexVertexCandidate
	ConstraintAttributes
}

func (c VertexVertexConstraint) pair(v *mat.Dense) localPair {
	return localPair{
		points: []r3.Vector{mesh.Vertex(v, c.Vertex0), mesh.Vertex(v, c.Vertex1)},
		distance: func(p []r3.Vector) float64 {
			return geometry.PointPointDistance(p[0], p[1])
		},
		gradient: func(p []r3.Vector) []float64 {
			return geometry.PointPointDistanceGradient(p[0], p[1])
		},
	}
}

// Distance returns the pair's squared distance.
func (c VertexVertexConstraint) Distance(v *mat.Dense, _ []mesh.Edge, _ []mesh.Face) float64 {
	p := c.pair(v)
	return p.distance(p.points)
}

// Potential returns the weighted barrier potential.
func (c VertexVertexConstraint) Potential(v *mat.Dense, _ []mesh.Edge, _ []mesh.Face, dhat float64) float64 {
	return c.pair(v).potential(c.Weight(), dhat)
}

// PotentialGradient returns the local gradient of the weighted potential.
func (c VertexVertexConstraint) PotentialGradient(v *mat.Dense, _ []mesh.Edge, _ []mesh.Face, dhat float64) []float64 {
	return c.pair(v).potentialGradient(c.Weight(), dhat, mesh.Dim(v))
}

// PotentialHessian returns the local Hessian of the weighted potential.
func (c VertexVertexConstraint) PotentialHessian(
	v *mat.Dense, _ []mesh.Edge, _ []mesh.Face, dhat float64, projectToPSD bool,
) *mat.SymDense {
	return c.pair(v).potentialHessian(c.Weight(), dhat, mesh.Dim(v), projectToPSD)
}

// EdgeVertexConstraint is an active vertex-edge pair.
type EdgeVertexConstraint struct {
	EdgeVertexCandidate
	ConstraintAttributes
}

func (c EdgeVertexConstraint) pair(v *mat.Dense, edges []mesh.Edge) localPair {
	e := edges[c.Edge]
	return localPair{
		points: []r3.Vector{mesh.Vertex(v, c.Vertex), mesh.Vertex(v, e[0]), mesh.Vertex(v, e[1])},
		distance: func(p []r3.Vector) float64 {
			return geometry.PointEdgeDistance(p[0], p[1], p[2])
		},
		gradient: func(p []r3.Vector) []float64 {
			return geometry.PointEdgeDistanceGradient(p[0], p[1], p[2])
		},
	}
}

// Distance returns the pair's squared distance.
func (c EdgeVertexConstraint) Distance(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face) float64 {
	p := c.pair(v, edges)
	return p.distance(p.points)
}

// Potential returns the weighted barrier potential.
func (c EdgeVertexConstraint) Potential(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64) float64 {
	return c.pair(v, edges).potential(c.Weight(), dhat)
}

// PotentialGradient returns the local gradient of the weighted potential.
func (c EdgeVertexConstraint) PotentialGradient(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64) []float64 {
	return c.pair(v, edges).potentialGradient(c.Weight(), dhat, mesh.Dim(v))
}

// PotentialHessian returns the local Hessian of the weighted potential.
func (c EdgeVertexConstraint) PotentialHessian(
	v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64, projectToPSD bool,
) *mat.SymDense {
	return c.pair(v, edges).potentialHessian(c.Weight(), dhat, mesh.Dim(v), projectToPSD)
}

// EdgeEdgeConstraint is an active edge-edge pair.
type EdgeEdgeConstraint struct {
	EdgeEdgeCandidate
	ConstraintAttributes
}

func (c EdgeEdgeConstraint) pair(v *mat.Dense, edges []mesh.Edge) localPair {
	ea, eb := edges[c.Edge0], edges[c.Edge1]
	return localPair{
		points: []r3.Vector{
			mesh.Vertex(v, ea[0]), mesh.Vertex(v, ea[1]),
			mesh.Vertex(v, eb[0]), mesh.Vertex(v, eb[1]),
		},
		distance: func(p []r3.Vector) float64 {
			return geometry.EdgeEdgeDistance(p[0], p[1], p[2], p[3])
		},
		gradient: func(p []r3.Vector) []float64 {
			return geometry.EdgeEdgeDistanceGradient(p[0], p[1], p[2], p[3])
		},
	}
}

// Distance returns the pair's squared distance.
func (c EdgeEdgeConstraint) Distance(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face) float64 {
	p := c.pair(v, edges)
	return p.distance(p.points)
}

// Potential returns the weighted barrier potential.
func (c EdgeEdgeConstraint) Potential(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64) float64 {
	return c.pair(v, edges).potential(c.Weight(), dhat)
}

// PotentialGradient returns the local gradient of the weighted potential.
func (c EdgeEdgeConstraint) PotentialGradient(v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64) []float64 {
	return c.pair(v, edges).potentialGradient(c.Weight(), dhat, mesh.Dim(v))
}

// PotentialHessian returns the local Hessian of the weighted potential.
func (c EdgeEdgeConstraint) PotentialHessian(
	v *mat.Dense, edges []mesh.Edge, _ []mesh.Face, dhat float64, projectToPSD bool,
) *mat.SymDense {
	return c.pair(v, edges).potentialHessian(c.Weight(), dhat, mesh.Dim(v), projectToPSD)
}

// FaceVertexConstraint is an active vertex-triangle pair.
type FaceVertexConstraint struct {
	FaceVertexCandidate
	ConstraintAttributes
}

func (c FaceVertexConstraint) pair(v *mat.Dense, faces []mesh.Face) localPair {
	f := faces[c.Face]
	return localPair{
		points: []r3.Vector{
			mesh.Vertex(v, c.Vertex),
			mesh.Vertex(v, f[0]), mesh.Vertex(v, f[1]), mesh.Vertex(v, f[2]),
		},
		distance: func(p []r3.Vector) float64 {
			return geometry.PointTriangleDistance(p[0], p[1], p[2], p[3])
		},
		gradient: func(p []r3.Vector) []float64 {
			return geometry.PointTriangleDistanceGradient(p[0], p[1], p[2], p[3])
		},
	}
}

// Distance returns the pair's squared distance.
func (c FaceVertexConstraint) Distance(v *mat.Dense, _ []mesh.Edge, faces []mesh.Face) float64 {
	p := c.pair(v, faces)
	return p.distance(p.points)
}

// Potential returns the weighted barrier potential.
func (c FaceVertexConstraint) Potential(v *mat.Dense, _ []mesh.Edge, faces []mesh.Face, dhat float64) float64 {
	return c.pair(v, faces).potential(c.Weight(), dhat)
}

// PotentialGradient returns the local gradient of the weighted potential.
func (c FaceVertexConstraint) PotentialGradient(v *mat.Dense, _ []mesh.Edge, faces []mesh.Face, dhat float64) []float64 {
	return c.pair(v, faces).potentialGradient(c.Weight(), dhat, mesh.Dim(v))
}

// PotentialHessian returns the local Hessian of the weighted potential.
func (c FaceVertexConstraint) PotentialHessian(
	v *mat.Dense, _ []mesh.Edge, faces []mesh.Face, dhat float64, projectToPSD bool,
) *mat.SymDense {
	return c.pair(v, faces).potentialHessian(c.Weight(), dhat, mesh.Dim(v), projectToPSD)
}
