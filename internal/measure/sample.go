package measure

import "github.com/sanspareilsmyn/tensorlens/internal/tensor"

// Sample is one data unit: a mapping from tensor identifier to tensor, plus
// an opaque identifier used only for traceability. Producers must not mutate
// a Sample after handing it to the engine.
type Sample struct {
	ID   string
	Data map[string]*tensor.Tensor
}

// Tensor looks up a tensor by identifier.
func (s *Sample) Tensor(id string) (*tensor.Tensor, bool) {
	t, ok := s.Data[id]
	return t, ok
}

// Values maps measures to their evaluated results.
type Values map[Measure]*tensor.Tensor

// Merge copies every entry of other into v and returns v.
func (v Values) Merge(other Values) Values {
	for m, t := range other {
		v[m] = t
	}
	return v
}
