package broadphase

import "sort"

// sweepAndPruneFinder sorts boxes along the x axis and sweeps, keeping an
// active list of boxes whose x intervals overlap the sweep position.
type sweepAndPruneFinder struct{}

type sweepEntry struct {
	set int
	idx int
	box AABB
}

func (sweepAndPruneFinder) pairs(a, b []AABB, same bool, emit func(i, j int)) {
	items := make([]sweepEntry, 0, len(a)+len(b))
	for i, box := range a {
		items = append(items, sweepEntry{set: 0, idx: i, box: box})
	}
	if !same {
		for j, box := range b {
			items = append(items, sweepEntry{set: 1, idx: j, box: box})
		}
	}
	sort.Slice(items, func(x, y int) bool { return items[x].box.Min.X < items[y].box.Min.X })

	var active []sweepEntry
	for _, it := range items {
		keep := active[:0]
		for _, ac := range active {
			if ac.box.Max.X < it.box.Min.X {
				continue
			}
			keep = append(keep, ac)

			// x overlap is implied by the sweep; check the remaining axes.
			if ac.box.Min.Y > it.box.Max.Y || it.box.Min.Y > ac.box.Max.Y ||
				ac.box.Min.Z > it.box.Max.Z || it.box.Min.Z > ac.box.Max.Z {
				continue
			}

			switch {
			case same && ac.set == it.set:
				i, j := ac.idx, it.idx
				if i > j {
					i, j = j, i
				}
				emit(i, j)
			case !same && ac.set != it.set:
				if ac.set == 0 {
					emit(ac.idx, it.idx)
				} else {
					emit(it.idx, ac.idx)
				}
			}
		}
		active = append(keep, it)
	}
}
