// Package matrix provides the small sparse containers used to assemble
// global derivatives: a triplet-backed sparse matrix and a sparse vector.
package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Triplet is a single (row, col, value) contribution to a sparse matrix.
// Duplicate coordinates are summed on assembly.
type Triplet struct {
	Row, Col int
	Value    float64
}

// Sparse is a sparse matrix assembled from triplets. It implements mat.Matrix
// so it can interoperate with gonum.
type Sparse struct {
	rows, cols int
	values     map[[2]int]float64
}

// NewSparse returns an empty r x c sparse matrix.
func NewSparse(r, c int) *Sparse {
	return &Sparse{rows: r, cols: c, values: map[[2]int]float64{}}
}

// NewSparseFromTriplets assembles an r x c sparse matrix, summing duplicate
// coordinates.
func NewSparseFromTriplets(r, c int, triplets []Triplet) *Sparse {
	s := NewSparse(r, c)
	s.AddTriplets(triplets)
	return s
}

// Dims returns the dimensions of the matrix.
func (s *Sparse) Dims() (int, int) { return s.rows, s.cols }

// At returns the value at (i, j).
func (s *Sparse) At(i, j int) float64 {
	if i < 0 || i >= s.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= s.cols {
		panic(mat.ErrColAccess)
	}
	return s.values[[2]int{i, j}]
}

// T returns the transpose of the matrix.
func (s *Sparse) T() mat.Matrix { return mat.Transpose{Matrix: s} }

// NNZ returns the number of stored entries.
func (s *Sparse) NNZ() int { return len(s.values) }

// Add accumulates v at (i, j).
func (s *Sparse) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	s.values[[2]int{i, j}] += v
}

// AddTriplets accumulates all given triplets.
func (s *Sparse) AddTriplets(triplets []Triplet) {
	for _, t := range triplets {
		s.Add(t.Row, t.Col, t.Value)
	}
}

// AddSparse accumulates another sparse matrix of the same shape.
func (s *Sparse) AddSparse(other *Sparse) {
	for k, v := range other.values {
		s.Add(k[0], k[1], v)
	}
}

// DoNonZero calls fn for each stored entry in row-major order.
func (s *Sparse) DoNonZero(fn func(i, j int, v float64)) {
	keys := make([][2]int, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, k := range keys {
		fn(k[0], k[1], s.values[k])
	}
}

// ToDense expands the matrix into a gonum dense matrix.
func (s *Sparse) ToDense() *mat.Dense {
	d := mat.NewDense(s.rows, s.cols, nil)
	for k, v := range s.values {
		d.Set(k[0], k[1], v)
	}
	return d
}

// SparseVector is a sparse column vector. It implements mat.Vector.
type SparseVector struct {
	n      int
	values map[int]float64
}

// NewSparseVector returns an empty sparse vector of length n.
func NewSparseVector(n int) *SparseVector {
	return &SparseVector{n: n, values: map[int]float64{}}
}

// Len returns the length of the vector.
func (v *SparseVector) Len() int { return v.n }

// Dims returns the dimensions of the vector viewed as an n x 1 matrix.
func (v *SparseVector) Dims() (int, int) { return v.n, 1 }

// AtVec returns the i-th element.
func (v *SparseVector) AtVec(i int) float64 {
	if i < 0 || i >= v.n {
		panic(mat.ErrRowAccess)
	}
	return v.values[i]
}

// At returns the element at (i, j); j must be 0.
func (v *SparseVector) At(i, j int) float64 {
	if j != 0 {
		panic(mat.ErrColAccess)
	}
	return v.AtVec(i)
}

// T returns the transpose of the vector.
func (v *SparseVector) T() mat.Matrix { return mat.Transpose{Matrix: v} }

// SetVec sets the i-th element to val.
func (v *SparseVector) SetVec(i int, val float64) {
	if i < 0 || i >= v.n {
		panic(mat.ErrRowAccess)
	}
	if val == 0 {
		delete(v.values, i)
		return
	}
	v.values[i] = val
}

// AddVec accumulates val into the i-th element.
func (v *SparseVector) AddVec(i int, val float64) {
	v.SetVec(i, v.values[i]+val)
}

// NNZ returns the number of stored entries.
func (v *SparseVector) NNZ() int { return len(v.values) }

// DoNonZero calls fn for each stored entry in index order.
func (v *SparseVector) DoNonZero(fn func(i int, val float64)) {
	keys := make([]int, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		fn(k, v.values[k])
	}
}
