package trace

import "sort"

// Summary aggregates notice counts.
type Summary struct {
	Total  int
	ByKind map[Kind]int
	// FirstStep is the earliest step per kind; absent for kinds raised outside a simulation.
	FirstStep map[Kind]int
}

// Summarize computes aggregate statistics from a slice of notices.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(notices []Notice) *Summary {
	s := &Summary{
		ByKind:    make(map[Kind]int),
		FirstStep: make(map[Kind]int),
	}
	for _, n := range notices {
		s.Total++
		s.ByKind[n.Kind]++
		if n.Step < 0 {
			continue
		}
		if first, ok := s.FirstStep[n.Kind]; !ok || n.Step < first {
			s.FirstStep[n.Kind] = n.Step
		}
	}
	return s
}

// Kinds returns the kinds present, sorted for stable output.
func (s *Summary) Kinds() []Kind {
	kinds := make([]Kind, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
