// Package message defines the JSON wire format for samples and
// dataset-measure snapshots, and the codec between that format and the
// engine's in-memory types.
package message

// TensorPayload is the wire form of a named-axis tensor. Data is row-major.
type TensorPayload struct {
	Dims  []string  `json:"dims"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// SamplePayload is the wire form of one sample: an opaque identifier plus a
// tensor per identifier.
type SamplePayload struct {
	ID      string                   `json:"id"`
	Tensors map[string]TensorPayload `json:"tensors"`
}

// SnapshotEntry is one precomputed dataset measure: the descriptor fields
// plus its value. A null axes field means "all axes"; Rank is present for
// percentile entries only.
type SnapshotEntry struct {
	Scope    string        `json:"scope"`
	Kind     string        `json:"kind"`
	TensorID string        `json:"tensor_id"`
	Axes     *[]string     `json:"axes"`
	Rank     *float64      `json:"rank,omitempty"`
	Value    TensorPayload `json:"value"`
}

// SnapshotPayload is the wire form of a precomputed dataset-measure
// snapshot.
type SnapshotPayload struct {
	Measures []SnapshotEntry `json:"measures"`
}
