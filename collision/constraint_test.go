package collision

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/barrier"
	"github.com/ipc-sim/ipctk/mesh"
)

const testDhat = 1e-1

// faceVertexFixture is a triangle in the xy-plane with a vertex hovering
// above its interior, close enough to activate the barrier.
func faceVertexFixture(height float64) (*mat.Dense, []mesh.Edge, []mesh.Face, FaceVertexConstraint) {
	v := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		0.2, 0.2, height,
	})
	edges := []mesh.Edge{{0, 1}, {1, 2}, {2, 0}}
	faces := []mesh.Face{{0, 1, 2}}
	c := FaceVertexConstraint{FaceVertexCandidate: FaceVertexCandidate{Face: 0, Vertex: 3}}
	return v, edges, faces, c
}

func TestConstraintPotential(t *testing.T) {
	t.Run("matches the barrier of the squared distance", func(t *testing.T) {
		height := testDhat / 2
		v, edges, faces, c := faceVertexFixture(height)
		d := c.Distance(v, edges, faces)
		test.That(t, d, test.ShouldAlmostEqual, height*height, 1e-12)
		want := barrier.Barrier(d, testDhat*testDhat)
		test.That(t, c.Potential(v, edges, faces, testDhat), test.ShouldAlmostEqual, want, 1e-12)
		test.That(t, want, test.ShouldBeGreaterThan, 0.0)
	})

	t.Run("quadrature weight scales the potential", func(t *testing.T) {
		v, edges, faces, c := faceVertexFixture(testDhat / 2)
		weighted := c
		weighted.QuadratureWeight = 2.5
		test.That(t, weighted.Potential(v, edges, faces, testDhat),
			test.ShouldAlmostEqual, 2.5*c.Potential(v, edges, faces, testDhat), 1e-12)
	})

	t.Run("zero beyond the activation distance", func(t *testing.T) {
		v, edges, faces, c := faceVertexFixture(2 * testDhat)
		test.That(t, c.Potential(v, edges, faces, testDhat), test.ShouldEqual, 0.0)
	})
}

func TestConstraintGradient(t *testing.T) {
	perturbed := func(v *mat.Dense, row, col int, h float64) *mat.Dense {
		out := mat.DenseCopyOf(v)
		out.Set(row, col, out.At(row, col)+h)
		return out
	}

	assertMatchesFiniteDifference := func(t *testing.T, v *mat.Dense, edges []mesh.Edge, faces []mesh.Face, c Constraint) {
		t.Helper()
		const h = 1e-7
		grad := c.PotentialGradient(v, edges, faces, testDhat)
		idx := c.VertexIndices(edges, faces)
		dim := mesh.Dim(v)
		test.That(t, len(grad), test.ShouldEqual, len(idx)*dim)
		for k, vi := range idx {
			for j := 0; j < dim; j++ {
				plus := c.Potential(perturbed(v, vi, j, h), edges, faces, testDhat)
				minus := c.Potential(perturbed(v, vi, j, -h), edges, faces, testDhat)
				fd := (plus - minus) / (2 * h)
				tol := 1e-4*math.Abs(fd) + 1e-6
				test.That(t, grad[k*dim+j], test.ShouldAlmostEqual, fd, tol)
			}
		}
	}

	t.Run("face-vertex", func(t *testing.T) {
		v, edges, faces, c := faceVertexFixture(testDhat / 2)
		assertMatchesFiniteDifference(t, v, edges, faces, c)
	})

	t.Run("vertex-vertex in 2D", func(t *testing.T) {
		v := mat.NewDense(2, 2, []float64{0, 0, testDhat / 2, 0.01})
		c := VertexVertexConstraint{VertexVertexCandidate: VertexVertexCandidate{Vertex0: 0, Vertex1: 1}}
		assertMatchesFiniteDifference(t, v, nil, nil, c)
	})

	t.Run("edge-vertex in 2D", func(t *testing.T) {
		v := mat.NewDense(3, 2, []float64{-1, 0, 1, 0, 0.1, testDhat / 2})
		edges := []mesh.Edge{{0, 1}}
		c := EdgeVertexConstraint{EdgeVertexCandidate: EdgeVertexCandidate{Edge: 0, Vertex: 2}}
		assertMatchesFiniteDifference(t, v, edges, nil, c)
	})

	t.Run("edge-edge", func(t *testing.T) {
		v := mat.NewDense(4, 3, []float64{
			-1, 0.02, 0,
			1, -0.03, 0,
			0.1, -1, testDhat / 2,
			-0.2, 1, testDhat / 2,
		})
		edges := []mesh.Edge{{0, 1}, {2, 3}}
		c := EdgeEdgeConstraint{EdgeEdgeCandidate: EdgeEdgeCandidate{Edge0: 0, Edge1: 1}}
		assertMatchesFiniteDifference(t, v, edges, nil, c)
	})
}

func TestConstraintHessian(t *testing.T) {
	t.Run("projected Hessian is positive semidefinite", func(t *testing.T) {
		// A pair deep inside the barrier band has an indefinite exact
		// Hessian; the projected one must have no negative eigenvalues.
		v, edges, faces, c := faceVertexFixture(testDhat / 3)
		hess := c.PotentialHessian(v, edges, faces, testDhat, true)

		var eig mat.EigenSym
		test.That(t, eig.Factorize(hess, false), test.ShouldBeTrue)
		for _, lambda := range eig.Values(nil) {
			test.That(t, lambda, test.ShouldBeGreaterThanOrEqualTo, -1e-9)
		}
	})

	t.Run("unprojected Hessian matches finite differences of the gradient", func(t *testing.T) {
		v, edges, faces, c := faceVertexFixture(testDhat / 2)
		hess := c.PotentialHessian(v, edges, faces, testDhat, false)
		idx := c.VertexIndices(edges, faces)
		dim := mesh.Dim(v)

		const h = 1e-6
		for k, vi := range idx {
			for j := 0; j < dim; j++ {
				plus := mat.DenseCopyOf(v)
				plus.Set(vi, j, plus.At(vi, j)+h)
				minus := mat.DenseCopyOf(v)
				minus.Set(vi, j, minus.At(vi, j)-h)
				gp := c.PotentialGradient(plus, edges, faces, testDhat)
				gm := c.PotentialGradient(minus, edges, faces, testDhat)
				for row := 0; row < len(gp); row++ {
					fd := (gp[row] - gm[row]) / (2 * h)
					tol := 1e-3*math.Abs(fd) + 1e-2
					test.That(t, hess.At(row, k*dim+j), test.ShouldAlmostEqual, fd, tol)
				}
			}
		}
	})
}

func TestProjectToPSD(t *testing.T) {
	t.Run("indefinite matrix is clamped", func(t *testing.T) {
		h := mat.NewSymDense(2, []float64{1, 0, 0, -2})
		p := ProjectToPSD(h)
		test.That(t, p.At(0, 0), test.ShouldAlmostEqual, 1.0, 1e-12)
		test.That(t, p.At(1, 1), test.ShouldAlmostEqual, 0.0, 1e-12)
	})

	t.Run("positive semidefinite matrix is unchanged", func(t *testing.T) {
		h := mat.NewSymDense(2, []float64{2, 1, 1, 2})
		p := ProjectToPSD(h)
		test.That(t, mat.EqualApprox(p, h, 1e-12), test.ShouldBeTrue)
	})
}

func TestCandidateVertexIndices(t *testing.T) {
	edges := []mesh.Edge{{4, 5}, {6, 7}}
	faces := []mesh.Face{{1, 2, 3}}

	test.That(t, VertexVertexCandidate{Vertex0: 0, Vertex1: 9}.VertexIndices(edges, faces),
		test.ShouldResemble, []int{0, 9})
	test.That(t, EdgeVertexCandidate{Edge: 1, Vertex: 0}.VertexIndices(edges, faces),
		test.ShouldResemble, []int{0, 6, 7})
	test.That(t, EdgeEdgeCandidate{Edge0: 0, Edge1: 1}.VertexIndices(edges, faces),
		test.ShouldResemble, []int{4, 5, 6, 7})
	test.That(t, FaceVertexCandidate{Face: 0, Vertex: 8}.VertexIndices(edges, faces),
		test.ShouldResemble, []int{8, 1, 2, 3})
}
