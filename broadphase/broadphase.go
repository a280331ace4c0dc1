// Package broadphase culls primitive pairs by axis-aligned bounding box
// overlap before the narrow phase. Boxes can be built from a single position
// snapshot (static queries such as the intersection test) or from the swept
// extent of two snapshots (continuous queries), optionally inflated by a
// radius.
//
// Several interchangeable pair-finding algorithms are provided; all of them
// produce the same candidate sets.
package broadphase

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/collision"
	"github.com/ipc-sim/ipctk/mesh"
)

// Method selects the broad-phase algorithm.
type Method int

const (
	// BruteForce tests every pair of boxes.
	BruteForce Method = iota
	// HashGrid buckets boxes into a uniform grid.
	HashGrid
	// SpatialHash is an alias of HashGrid in this implementation.
	SpatialHash
	// BVHTree queries a static axis-aligned box tree.
	BVHTree
	// SweepAndPrune sweeps boxes sorted along the x axis.
	SweepAndPrune
	// SweepAndTiniestQueueGPU has no GPU backing here and falls back to
	// SweepAndPrune on the CPU.
	SweepAndTiniestQueueGPU
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max r3.Vector
}

// Intersects reports whether two boxes overlap, boundaries included.
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// Union returns the smallest box containing both inputs.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: r3.Vector{
			X: math.Min(a.Min.X, b.Min.X),
			Y: math.Min(a.Min.Y, b.Min.Y),
			Z: math.Min(a.Min.Z, b.Min.Z),
		},
		Max: r3.Vector{
			X: math.Max(a.Max.X, b.Max.X),
			Y: math.Max(a.Max.Y, b.Max.Y),
			Z: math.Max(a.Max.Z, b.Max.Z),
		},
	}
}

func (a AABB) inflate(r float64) AABB {
	d := r3.Vector{X: r, Y: r, Z: r}
	return AABB{Min: a.Min.Sub(d), Max: a.Max.Add(d)}
}

func pointAABB(p r3.Vector) AABB { return AABB{Min: p, Max: p} }

// pairFinder enumerates overlapping box pairs between two sets. When the two
// sets are the same slice, only i < j pairs are emitted.
type pairFinder interface {
	pairs(a, b []AABB, same bool, emit func(i, j int))
}

// BroadPhase is a built broad phase over one mesh and its position
// snapshot(s). It is read-only after construction.
type BroadPhase struct {
	mesh   *mesh.CollisionMesh
	finder pairFinder

	vertexBoxes []AABB
	edgeBoxes   []AABB
	faceBoxes   []AABB
}

func finderFor(method Method) pairFinder {
	switch method {
	case HashGrid, SpatialHash:
		return &hashGridFinder{}
	case BVHTree:
		return &bvhFinder{}
	case SweepAndPrune, SweepAndTiniestQueueGPU:
		return &sweepAndPruneFinder{}
	default:
		return bruteForceFinder{}
	}
}

// New builds a broad phase over a single position snapshot with the given
// inflation radius.
func New(method Method, m *mesh.CollisionMesh, v *mat.Dense, inflationRadius float64) *BroadPhase {
	return build(method, m, v, nil, inflationRadius)
}

// NewForStep builds a broad phase over the swept extent of a linear step from
// v0 to v1.
func NewForStep(method Method, m *mesh.CollisionMesh, v0, v1 *mat.Dense, inflationRadius float64) *BroadPhase {
	return build(method, m, v0, v1, inflationRadius)
}

func build(method Method, m *mesh.CollisionMesh, v0, v1 *mat.Dense, inflationRadius float64) *BroadPhase {
	b := &BroadPhase{mesh: m, finder: finderFor(method)}

	b.vertexBoxes = make([]AABB, m.NumVertices())
	for i := range b.vertexBoxes {
		box := pointAABB(mesh.Vertex(v0, i))
		if v1 != nil {
			box = box.Union(pointAABB(mesh.Vertex(v1, i)))
		}
		b.vertexBoxes[i] = box.inflate(inflationRadius)
	}
	b.edgeBoxes = make([]AABB, len(m.Edges()))
	for i, e := range m.Edges() {
		b.edgeBoxes[i] = b.vertexBoxes[e[0]].Union(b.vertexBoxes[e[1]])
	}
	b.faceBoxes = make([]AABB, len(m.Faces()))
	for i, f := range m.Faces() {
		b.faceBoxes[i] = b.vertexBoxes[f[0]].Union(b.vertexBoxes[f[1]]).Union(b.vertexBoxes[f[2]])
	}
	return b
}

func (b *BroadPhase) canVerticesCollide(vi, vj int) bool {
	return b.mesh.CanCollide(vi, vj)
}

// DetectVertexVertexCandidates returns overlapping vertex pairs.
func (b *BroadPhase) DetectVertexVertexCandidates() []collision.VertexVertexCandidate {
	var out []collision.VertexVertexCandidate
	b.finder.pairs(b.vertexBoxes, b.vertexBoxes, true, func(i, j int) {
		if !b.canVerticesCollide(i, j) {
			return
		}
		out = append(out, collision.VertexVertexCandidate{Vertex0: i, Vertex1: j})
	})
	return out
}

// DetectEdgeVertexCandidates returns overlapping edge-vertex pairs, skipping
// vertices incident to the edge.
func (b *BroadPhase) DetectEdgeVertexCandidates() []collision.EdgeVertexCandidate {
	edges := b.mesh.Edges()
	var out []collision.EdgeVertexCandidate
	b.finder.pairs(b.edgeBoxes, b.vertexBoxes, false, func(ei, vi int) {
		e := edges[ei]
		if vi == e[0] || vi == e[1] {
			return
		}
		if !b.canVerticesCollide(vi, e[0]) && !b.canVerticesCollide(vi, e[1]) {
			return
		}
		out = append(out, collision.EdgeVertexCandidate{Edge: ei, Vertex: vi})
	})
	return out
}

// DetectEdgeEdgeCandidates returns overlapping edge pairs that share no
// vertex.
func (b *BroadPhase) DetectEdgeEdgeCandidates() []collision.EdgeEdgeCandidate {
	edges := b.mesh.Edges()
	var out []collision.EdgeEdgeCandidate
	b.finder.pairs(b.edgeBoxes, b.edgeBoxes, true, func(i, j int) {
		ea, eb := edges[i], edges[j]
		if ea[0] == eb[0] || ea[0] == eb[1] || ea[1] == eb[0] || ea[1] == eb[1] {
			return
		}
		if !b.canVerticesCollide(ea[0], eb[0]) && !b.canVerticesCollide(ea[0], eb[1]) &&
			!b.canVerticesCollide(ea[1], eb[0]) && !b.canVerticesCollide(ea[1], eb[1]) {
			return
		}
		out = append(out, collision.EdgeEdgeCandidate{Edge0: i, Edge1: j})
	})
	return out
}

// DetectFaceVertexCandidates returns overlapping face-vertex pairs, skipping
// vertices incident to the face.
func (b *BroadPhase) DetectFaceVertexCandidates() []collision.FaceVertexCandidate {
	faces := b.mesh.Faces()
	var out []collision.FaceVertexCandidate
	b.finder.pairs(b.faceBoxes, b.vertexBoxes, false, func(fi, vi int) {
		f := faces[fi]
		if vi == f[0] || vi == f[1] || vi == f[2] {
			return
		}
		if !b.canVerticesCollide(vi, f[0]) && !b.canVerticesCollide(vi, f[1]) &&
			!b.canVerticesCollide(vi, f[2]) {
			return
		}
		out = append(out, collision.FaceVertexCandidate{Face: fi, Vertex: vi})
	})
	return out
}

// DetectEdgeFaceCandidates returns overlapping edge-face pairs that share no
// vertex; used by the intersection test.
func (b *BroadPhase) DetectEdgeFaceCandidates() []collision.EdgeFaceCandidate {
	edges := b.mesh.Edges()
	faces := b.mesh.Faces()
	var out []collision.EdgeFaceCandidate
	b.finder.pairs(b.edgeBoxes, b.faceBoxes, false, func(ei, fi int) {
		e, f := edges[ei], faces[fi]
		for _, ev := range e {
			if ev == f[0] || ev == f[1] || ev == f[2] {
				return
			}
		}
		out = append(out, collision.EdgeFaceCandidate{Edge: ei, Face: fi})
	})
	return out
}

// DetectCollisionCandidates returns the candidate families the narrow phase
// tests in the mesh's dimension: edge-vertex in 2D, edge-edge plus
// face-vertex in 3D, and vertex-vertex for codimensional point clouds.
func (b *BroadPhase) DetectCollisionCandidates() collision.Candidates {
	var out collision.Candidates
	if len(b.mesh.Edges()) == 0 && len(b.mesh.Faces()) == 0 {
		for _, c := range b.DetectVertexVertexCandidates() {
			out = append(out, c)
		}
		return out
	}
	if b.mesh.Dim() == 2 {
		for _, c := range b.DetectEdgeVertexCandidates() {
			out = append(out, c)
		}
		return out
	}
	for _, c := range b.DetectEdgeEdgeCandidates() {
		out = append(out, c)
	}
	for _, c := range b.DetectFaceVertexCandidates() {
		out = append(out, c)
	}
	return out
}
