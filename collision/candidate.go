// Package collision defines the primitive-pair records the engine reduces
// over: Candidates, ephemeral pairs produced by a broad phase and consumed by
// the narrow-phase CCD, and Constraints, active pairs that additionally carry
// a quadrature weight and evaluate the barrier potential and its local
// derivatives. The local-to-global scatter between per-pair and global
// degrees of freedom also lives here.
package collision

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/ccd"
	"github.com/ipc-sim/ipctk/mesh"
)

// Candidate identifies a primitive pair to test for continuous collision.
// Candidates are produced per step by a broad phase, consumed once, and
// never mutated.
type Candidate interface {
	// VertexIndices returns the ordered global vertex indices involved,
	// matching the stacking order of the pair's local derivatives.
	VertexIndices(edges []mesh.Edge, faces []mesh.Face) []int
	// CCD runs conservative CCD between the pair's positions in v0 (t=0)
	// and v1 (t=1).
	CCD(v0, v1 *mat.Dense, edges []mesh.Edge, faces []mesh.Face, opts ccd.Options) (bool, float64)
}

// Candidates is a set of candidates with no ordering requirement.
type Candidates []Candidate

// VertexVertexCandidate is a pair of vertices.
type VertexVertexCandidate struct {
	Vertex0, Vertex1 int
}

// VertexIndices returns the two vertex indices.
func (c VertexVertexCandidate) VertexIndices([]mesh.Edge, []mesh.Face) []int {
	return []int{c.Vertex0, c.Vertex1}
}

// CCD runs point-point CCD on the pair.
func (c VertexVertexCandidate) CCD(
	v0, v1 *mat.Dense, edges []mesh.Edge, faces []mesh.Face, opts ccd.Options,
) (bool, float64) {
	return ccd.PointPointCCD(
		mesh.Vertex(v0, c.Vertex0), mesh.Vertex(v0, c.Vertex1),
		mesh.Vertex(v1, c.Vertex0), mesh.Vertex(v1, c.Vertex1),
		opts)
}

// EdgeVertexCandidate is a vertex against an edge.
type EdgeVertexCandidate struct {
	Edge, Vertex int
}

// VertexIndices returns the vertex followed by the edge endpoints.
func (c EdgeVertexCandidate) VertexIndices(edges []mesh.Edge, _ []mesh.Face) []int {
	e := edges[c.Edge]
	return []int{c.Vertex, e[0], e[1]}
}

// CCD runs point-edge CCD on the pair.
func (c EdgeVertexCandidate) CCD(
	v0, v1 *mat.Dense, edges []mesh.Edge, faces []mesh.Face, opts ccd.Options,
) (bool, float64) {
	e := edges[c.Edge]
	return ccd.PointEdgeCCD(
		mesh.Vertex(v0, c.Vertex), mesh.Vertex(v0, e[0]), mesh.Vertex(v0, e[1]),
		mesh.Vertex(v1, c.Vertex), mesh.Vertex(v1, e[0]), mesh.Vertex(v1, e[1]),
		opts)
}

// EdgeEdgeCandidate is a pair of edges.
type EdgeEdgeCandidate struct {
	Edge0, Edge1 int
}

// VertexIndices returns the endpoints of the first edge followed by the
// second.
func (c EdgeEdgeCandidate) VertexIndices(edges []mesh.Edge, _ []mesh.Face) []int {
	ea, eb := edges[c.Edge0], edges[c.Edge1]
	return []int{ea[0], ea[1], eb[0], eb[1]}
}

// CCD runs edge-edge CCD on the pair.
func (c EdgeEdgeCandidate) CCD(
	v0, v1 *mat.Dense, edges []mesh.Edge, faces []mesh.Face, opts ccd.Options,
) (bool, float64) {
	ea, eb := edges[c.Edge0], edges[c.Edge1]
	return ccd.EdgeEdgeCCD(
		mesh.Vertex(v0, ea[0]), mesh.Vertex(v0, ea[1]),
		mesh.Vertex(v0, eb[0]), mesh.Vertex(v0, eb[1]),
		mesh.Vertex(v1, ea[0]), mesh.Vertex(v1, ea[1]),
		mesh.Vertex(v1, eb[0]), mesh.Vertex(v1, eb[1]),
		opts)
}

// FaceVertexCandidate is a vertex against a triangle.
type FaceVertexCandidate struct {
	Face, Vertex int
}

// VertexIndices returns the vertex followed by the face corners.
func (c FaceVertexCandidate) VertexIndices(_ []mesh.Edge, faces []mesh.Face) []int {
	f := faces[c.Face]
	return []int{c.Vertex, f[0], f[1], f[2]}
}

// CCD runs point-triangle CCD on the pair.
func (c FaceVertexCandidate) CCD(
	v0, v1 *mat.Dense, edges []mesh.Edge, faces []mesh.Face, opts ccd.Options,
) (bool, float64) {
	f := faces[c.Face]
	return ccd.PointTriangleCCD(
		mesh.Vertex(v0, c.Vertex),
		mesh.Vertex(v0, f[0]), mesh.Vertex(v0, f[1]), mesh.Vertex(v0, f[2]),
		mesh.Vertex(v1, c.Vertex),
		mesh.Vertex(v1, f[0]), mesh.Vertex(v1, f[1]), mesh.Vertex(v1, f[2]),
		opts)
}

// EdgeFaceCandidate is an edge against a triangle. It is only produced for
// the intersection test and has no CCD.
type EdgeFaceCandidate struct {
	Edge, Face int
}
