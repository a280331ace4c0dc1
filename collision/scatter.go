package collision

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ipc-sim/ipctk/matrix"
)

// LocalGradientToGlobal scatters a local gradient of length len(vertexIndices)*dim
// into a global degree-of-freedom vector: local row k*dim+j lands on global
// row vertexIndices[k]*dim+j.
func LocalGradientToGlobal(local []float64, vertexIndices []int, dim int, global []float64) {
	for k, vi := range vertexIndices {
		for j := 0; j < dim; j++ {
			global[vi*dim+j] += local[k*dim+j]
		}
	}
}

// LocalGradientToGlobalSparse is LocalGradientToGlobal targeting a sparse
// vector.
func LocalGradientToGlobalSparse(local []float64, vertexIndices []int, dim int, global *matrix.SparseVector) {
	for k, vi := range vertexIndices {
		for j := 0; j < dim; j++ {
			global.AddVec(vi*dim+j, local[k*dim+j])
		}
	}
}

// LocalHessianToGlobalTriplets appends the triplets of a local Hessian
// scattered to global coordinates, applying the same index map symmetrically
// to rows and columns.
func LocalHessianToGlobalTriplets(local mat.Symmetric, vertexIndices []int, dim int, triplets *[]matrix.Triplet) {
	for ki, vi := range vertexIndices {
		for kj, vj := range vertexIndices {
			for di := 0; di < dim; di++ {
				for dj := 0; dj < dim; dj++ {
					val := local.At(ki*dim+di, kj*dim+dj)
					if val == 0 {
						continue
					}
					*triplets = append(*triplets, matrix.Triplet{
						Row:   vi*dim + di,
						Col:   vj*dim + dj,
						Value: val,
					})
				}
			}
		}
	}
}
