package broadphase

import "math"

// hashGridFinder buckets the second box set into a uniform grid sized from
// the average box extent, then queries each box of the first set against the
// cells it covers.
type hashGridFinder struct{}

type gridCell [3]int

func cellRange(box AABB, origin [3]float64, cellSize float64) (lo, hi gridCell) {
	mins := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	maxs := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	for axis := 0; axis < 3; axis++ {
		lo[axis] = int(math.Floor((mins[axis] - origin[axis]) / cellSize))
		hi[axis] = int(math.Floor((maxs[axis] - origin[axis]) / cellSize))
	}
	return lo, hi
}

func (hashGridFinder) pairs(a, b []AABB, same bool, emit func(i, j int)) {
	if len(a) == 0 || len(b) == 0 {
		return
	}

	// Size cells to the average box extent so most boxes cover O(1) cells.
	origin := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	extent := 0.0
	count := 0
	for _, set := range [2][]AABB{a, b} {
		for _, box := range set {
			origin[0] = math.Min(origin[0], box.Min.X)
			origin[1] = math.Min(origin[1], box.Min.Y)
			origin[2] = math.Min(origin[2], box.Min.Z)
			d := box.Max.Sub(box.Min)
			extent += math.Max(d.X, math.Max(d.Y, d.Z))
			count++
		}
		if same {
			break
		}
	}
	cellSize := extent / float64(count)
	if cellSize <= 0 {
		cellSize = 1
	}

	grid := make(map[gridCell][]int, len(b))
	for j, box := range b {
		lo, hi := cellRange(box, origin, cellSize)
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					c := gridCell{x, y, z}
					grid[c] = append(grid[c], j)
				}
			}
		}
	}

	// stamp array to avoid emitting a pair once per shared cell
	seen := make([]int, len(b))
	for j := range seen {
		seen[j] = -1
	}

	for i, box := range a {
		lo, hi := cellRange(box, origin, cellSize)
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					for _, j := range grid[gridCell{x, y, z}] {
						if same && j <= i {
							continue
						}
						if seen[j] == i {
							continue
						}
						seen[j] = i
						if box.Intersects(b[j]) {
							emit(i, j)
						}
					}
				}
			}
		}
	}
}
