package broadphase

import (
	"math/rand"
	"sort"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/collision"
	"github.com/ipc-sim/ipctk/mesh"
)

var allMethods = []Method{BruteForce, HashGrid, SpatialHash, BVHTree, SweepAndPrune, SweepAndTiniestQueueGPU}

// randomCloudMesh builds a codimensional point cloud with positions drawn
// from a fixed seed.
func randomCloudMesh(t *testing.T, n int) (*mesh.CollisionMesh, *mat.Dense) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	v := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			v.Set(i, j, rng.Float64())
		}
	}
	m, err := mesh.New(n, 3, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	return m, v
}

func sortedVertexPairs(cs []collision.VertexVertexCandidate) [][2]int {
	out := make([][2]int, len(cs))
	for i, c := range cs {
		out[i] = [2]int{c.Vertex0, c.Vertex1}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a][0] != out[b][0] {
			return out[a][0] < out[b][0]
		}
		return out[a][1] < out[b][1]
	})
	return out
}

func TestFindersAgree(t *testing.T) {
	m, v := randomCloudMesh(t, 60)
	reference := sortedVertexPairs(New(BruteForce, m, v, 0.1).DetectVertexVertexCandidates())
	test.That(t, len(reference), test.ShouldBeGreaterThan, 0)

	for _, method := range allMethods[1:] {
		got := sortedVertexPairs(New(method, m, v, 0.1).DetectVertexVertexCandidates())
		test.That(t, got, test.ShouldResemble, reference)
	}
}

func TestIncidentPairsAreSkipped(t *testing.T) {
	// two triangles sharing an edge, all boxes overlapping
	v := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	})
	m, err := mesh.New(4, 3,
		[]mesh.Edge{{0, 1}, {1, 2}, {2, 0}, {1, 3}, {3, 2}},
		[]mesh.Face{{0, 1, 2}, {1, 3, 2}})
	test.That(t, err, test.ShouldBeNil)

	b := New(BruteForce, m, v, 1.0)

	for _, c := range b.DetectEdgeEdgeCandidates() {
		ea, eb := m.Edges()[c.Edge0], m.Edges()[c.Edge1]
		for _, va := range ea {
			for _, vb := range eb {
				test.That(t, va, test.ShouldNotEqual, vb)
			}
		}
	}
	for _, c := range b.DetectFaceVertexCandidates() {
		f := m.Faces()[c.Face]
		test.That(t, c.Vertex, test.ShouldNotBeIn, f[0], f[1], f[2])
	}
	for _, c := range b.DetectEdgeFaceCandidates() {
		f := m.Faces()[c.Face]
		for _, ev := range m.Edges()[c.Edge] {
			test.That(t, ev, test.ShouldNotBeIn, f[0], f[1], f[2])
		}
	}
}

func TestSweptBoxesCatchMovingPairs(t *testing.T) {
	// vertices far apart at t=0 and t=1 but crossing mid-step
	v0 := mat.NewDense(2, 3, []float64{0, 0, 0, 10, 0, 0})
	v1 := mat.NewDense(2, 3, []float64{10, 0, 0, 0, 0, 0})
	m, err := mesh.New(2, 3, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	static := New(BruteForce, m, v0, 0)
	test.That(t, len(static.DetectVertexVertexCandidates()), test.ShouldEqual, 0)

	swept := NewForStep(BruteForce, m, v0, v1, 0)
	test.That(t, len(swept.DetectVertexVertexCandidates()), test.ShouldEqual, 1)
}

func TestCanCollideMask(t *testing.T) {
	m, v := randomCloudMesh(t, 10)
	m.SetCanCollide(func(a, b int) bool { return false })
	b := New(BruteForce, m, v, 1.0)
	test.That(t, len(b.DetectVertexVertexCandidates()), test.ShouldEqual, 0)
}

func TestDetectCollisionCandidates(t *testing.T) {
	t.Run("point cloud yields vertex-vertex", func(t *testing.T) {
		m, v := randomCloudMesh(t, 5)
		cands := NewForStep(BruteForce, m, v, v, 1.0).DetectCollisionCandidates()
		test.That(t, len(cands), test.ShouldEqual, 5*4/2)
		_, ok := cands[0].(collision.VertexVertexCandidate)
		test.That(t, ok, test.ShouldBeTrue)
	})

	t.Run("2D mesh yields edge-vertex", func(t *testing.T) {
		v := mat.NewDense(3, 2, []float64{-1, 0, 1, 0, 0, 0.5})
		m, err := mesh.New(3, 2, []mesh.Edge{{0, 1}}, nil)
		test.That(t, err, test.ShouldBeNil)
		cands := NewForStep(BruteForce, m, v, v, 1.0).DetectCollisionCandidates()
		test.That(t, len(cands), test.ShouldBeGreaterThan, 0)
		_, ok := cands[0].(collision.EdgeVertexCandidate)
		test.That(t, ok, test.ShouldBeTrue)
	})

	t.Run("3D mesh yields edge-edge and face-vertex", func(t *testing.T) {
		v := mat.NewDense(4, 3, []float64{
			0, 0, 0,
			1, 0, 0,
			0, 1, 0,
			0.2, 0.2, 0.1,
		})
		m, err := mesh.New(4, 3, []mesh.Edge{{0, 1}, {1, 2}, {2, 0}}, []mesh.Face{{0, 1, 2}})
		test.That(t, err, test.ShouldBeNil)
		cands := NewForStep(BruteForce, m, v, v, 1.0).DetectCollisionCandidates()
		foundFV := false
		for _, c := range cands {
			if _, ok := c.(collision.FaceVertexCandidate); ok {
				foundFV = true
			}
		}
		test.That(t, foundFV, test.ShouldBeTrue)
	})
}
