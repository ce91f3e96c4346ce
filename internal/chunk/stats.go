package chunk

// Summary aggregates the per-chunk telemetry of a split.
type Summary struct {
	Count      int                  `json:"count"`
	TotalSize  int                  `json:"total_size"`
	MinSize    int                  `json:"min_size"`
	MaxSize    int                  `json:"max_size"`
	ByBoundary map[BoundaryType]int `json:"by_boundary"`
}

// Stats summarizes chunks.
func Stats(chunks []Chunk) Summary {
	s := Summary{ByBoundary: make(map[BoundaryType]int)}
	for i, c := range chunks {
		n := c.Len()
		if i == 0 || n < s.MinSize {
			s.MinSize = n
		}
		if n > s.MaxSize {
			s.MaxSize = n
		}
		s.TotalSize += n
		s.ByBoundary[c.Boundary]++
	}
	s.Count = len(chunks)
	return s
}
