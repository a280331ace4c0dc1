// Package mesh holds the surface topology the contact queries run against:
// edge and face index tables over a vertex position table.
//
// Positions are not stored here. Every query takes a gonum *mat.Dense with
// one row per vertex and one column per coordinate (2 or 3), so the same
// topology can be evaluated against any number of position snapshots.
package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// Edge is an ordered pair of vertex indices identifying a surface edge.
type Edge [2]int

// Face is an ordered triple of vertex indices identifying a surface triangle.
type Face [3]int

// CollisionMesh is the static topology of a surface mesh used for contact
// queries. Its topology is fixed at construction and safe for concurrent
// reads; SetCanCollide replaces the vertex-pair filter without
// synchronization.
type CollisionMesh struct {
	numVertices int
	dim         int
	edges       []Edge
	faces       []Face

	// canCollide filters vertex pairs in the broad phase. Nil means every
	// pair may collide.
	canCollide func(vertex0, vertex1 int) bool
}

// New validates the topology and returns a CollisionMesh. dim must be 2 or 3;
// faces are only allowed in 3D; all indices must reference valid vertices and
// no edge or face may repeat a vertex.
func New(numVertices, dim int, edges []Edge, faces []Face) (*CollisionMesh, error) {
	var err error
	if numVertices < 0 {
		err = multierr.Append(err, errors.Errorf("negative vertex count %d", numVertices))
	}
	if dim != 2 && dim != 3 {
		err = multierr.Append(err, errors.Errorf("dimension must be 2 or 3, got %d", dim))
	}
	if dim == 2 && len(faces) > 0 {
		err = multierr.Append(err, errors.New("faces are not allowed on a 2D mesh"))
	}
	for i, e := range edges {
		if e[0] < 0 || e[0] >= numVertices || e[1] < 0 || e[1] >= numVertices {
			err = multierr.Append(err, errors.Errorf("edge %d references out-of-range vertex", i))
		} else if e[0] == e[1] {
			err = multierr.Append(err, errors.Errorf("edge %d repeats vertex %d", i, e[0]))
		}
	}
	for i, f := range faces {
		if f[0] < 0 || f[0] >= numVertices || f[1] < 0 || f[1] >= numVertices || f[2] < 0 || f[2] >= numVertices {
			err = multierr.Append(err, errors.Errorf("face %d references out-of-range vertex", i))
		} else if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			err = multierr.Append(err, errors.Errorf("face %d repeats a vertex", i))
		}
	}
	if err != nil {
		return nil, err
	}
	return &CollisionMesh{
		numVertices: numVertices,
		dim:         dim,
		edges:       edges,
		faces:       faces,
	}, nil
}

// NumVertices returns the number of vertices the topology references.
func (m *CollisionMesh) NumVertices() int { return m.numVertices }

// Dim returns the ambient dimension (2 or 3).
func (m *CollisionMesh) Dim() int { return m.dim }

// NDOF returns the size of the global degree-of-freedom vector.
func (m *CollisionMesh) NDOF() int { return m.numVertices * m.dim }

// Edges returns the edge table. The returned slice must not be mutated.
func (m *CollisionMesh) Edges() []Edge { return m.edges }

// Faces returns the face table. The returned slice must not be mutated.
func (m *CollisionMesh) Faces() []Face { return m.faces }

// SetCanCollide installs a vertex-pair filter applied by the broad phase.
func (m *CollisionMesh) SetCanCollide(fn func(vertex0, vertex1 int) bool) {
	m.canCollide = fn
}

// CanCollide reports whether the pair of vertices is allowed to collide.
func (m *CollisionMesh) CanCollide(vertex0, vertex1 int) bool {
	if m.canCollide == nil {
		return true
	}
	return m.canCollide(vertex0, vertex1)
}

// Vertex reads row i of a position table as an r3 vector. Two-column tables
// are lifted to 3D with z = 0.
func Vertex(v *mat.Dense, i int) r3.Vector {
	_, cols := v.Dims()
	if cols == 2 {
		return r3.Vector{X: v.At(i, 0), Y: v.At(i, 1)}
	}
	return r3.Vector{X: v.At(i, 0), Y: v.At(i, 1), Z: v.At(i, 2)}
}

// Dim returns the number of coordinate columns of a position table.
func Dim(v *mat.Dense) int {
	_, cols := v.Dims()
	return cols
}

// WorldBBoxDiagonal returns the length of the diagonal of the axis-aligned
// bounding box of all vertices.
func WorldBBoxDiagonal(v *mat.Dense) float64 {
	rows, cols := v.Dims()
	if rows == 0 {
		return 0
	}
	sum := 0.0
	for j := 0; j < cols; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < rows; i++ {
			x := v.At(i, j)
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		sum += (hi - lo) * (hi - lo)
	}
	return math.Sqrt(sum)
}
