package wfc

// LowestEntropy returns the indices of every unresolved cell that shares the
// smallest candidate count, in ascending order. Resolved cells are skipped.
// An empty result means the grid is finished.
func LowestEntropy(g *Grid) []int {
	lowest := 0
	var indices []int
	for i, s := range g.cells {
		n := s.Count()
		if n == 0 {
			panic(ErrEmptyCandidates)
		}
		if n == 1 {
			continue
		}
		switch {
		case lowest == 0 || n < lowest:
			lowest = n
			indices = append(indices[:0], i)
		case n == lowest:
			indices = append(indices, i)
		}
	}
	return indices
}
