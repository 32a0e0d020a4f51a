package message

import (
	"encoding/json"
	"fmt"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// ParseSample decodes a JSON-encoded sample. It returns
// ErrJSONUnmarshalFailed (wrapping the original error) if unmarshalling
// fails, ErrInvalidTensor if a tensor payload is malformed.
func ParseSample(data []byte) (*measure.Sample, error) {
	var payload SamplePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	s := &measure.Sample{
		ID:   payload.ID,
		Data: make(map[string]*tensor.Tensor, len(payload.Tensors)),
	}
	for id, tp := range payload.Tensors {
		t, err := decodeTensor(tp)
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %q in sample %q: %w", ErrInvalidTensor, id, payload.ID, err)
		}
		s.Data[id] = t
	}
	return s, nil
}

// EncodeSample encodes a sample into its JSON wire form.
func EncodeSample(s *measure.Sample) ([]byte, error) {
	payload := SamplePayload{
		ID:      s.ID,
		Tensors: make(map[string]TensorPayload, len(s.Data)),
	}
	for id, t := range s.Data {
		payload.Tensors[id] = encodeTensor(t)
	}
	return json.Marshal(payload)
}

// ParseSnapshot decodes a precomputed dataset-measure snapshot into the
// map the stats coordinator accepts at construction. Every entry must be
// dataset-scope.
func ParseSnapshot(data []byte) (measure.Values, error) {
	var payload SnapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	values := make(measure.Values, len(payload.Measures))
	for i, entry := range payload.Measures {
		m, err := decodeMeasure(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidSnapshot, i, err)
		}
		t, err := decodeTensor(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %w", ErrInvalidSnapshot, i, m, err)
		}
		values[m] = t
	}
	return values, nil
}

// EncodeSnapshot encodes dataset-scope measures into the snapshot wire
// form. Entries are emitted in unspecified order.
func EncodeSnapshot(values measure.Values) ([]byte, error) {
	payload := SnapshotPayload{Measures: make([]SnapshotEntry, 0, len(values))}
	for m, t := range values {
		if m.Scope != measure.ScopeDataset {
			return nil, fmt.Errorf("%w: %s", ErrNotDatasetScope, m)
		}
		entry := SnapshotEntry{
			Scope:    m.Scope.String(),
			Kind:     m.Kind.String(),
			TensorID: m.TensorID,
			Value:    encodeTensor(t),
		}
		if axes := m.Axes.Axes(); axes != nil {
			names := make([]string, len(axes))
			for i, a := range axes {
				names[i] = string(a)
			}
			entry.Axes = &names
		}
		if m.Kind == measure.Percentile {
			rank := m.Rank
			entry.Rank = &rank
		}
		payload.Measures = append(payload.Measures, entry)
	}
	return json.Marshal(payload)
}

func decodeTensor(tp TensorPayload) (*tensor.Tensor, error) {
	dims := make([]tensor.Axis, len(tp.Dims))
	for i, d := range tp.Dims {
		dims[i] = tensor.Axis(d)
	}
	return tensor.New(dims, tp.Shape, tp.Data)
}

func encodeTensor(t *tensor.Tensor) TensorPayload {
	dims := make([]string, len(t.Dims()))
	for i, d := range t.Dims() {
		dims[i] = string(d)
	}
	return TensorPayload{Dims: dims, Shape: t.Shape(), Data: t.Data()}
}

func decodeMeasure(entry SnapshotEntry) (measure.Measure, error) {
	scope, err := measure.ParseScope(entry.Scope)
	if err != nil {
		return measure.Measure{}, err
	}
	if scope != measure.ScopeDataset {
		return measure.Measure{}, fmt.Errorf("%w: scope %q", ErrNotDatasetScope, entry.Scope)
	}
	kind, err := measure.ParseKind(entry.Kind)
	if err != nil {
		return measure.Measure{}, err
	}
	var axes []tensor.Axis
	if entry.Axes != nil {
		axes = make([]tensor.Axis, len(*entry.Axes))
		for i, a := range *entry.Axes {
			axes[i] = tensor.Axis(a)
		}
	}
	m := measure.Measure{Scope: scope, Kind: kind, TensorID: entry.TensorID, Axes: measure.KeyOf(axes)}
	if kind == measure.Percentile {
		if entry.Rank == nil {
			return measure.Measure{}, fmt.Errorf("percentile entry for %q has no rank", entry.TensorID)
		}
		if *entry.Rank < 0 || *entry.Rank > 100 {
			return measure.Measure{}, fmt.Errorf("percentile rank %g outside [0,100]", *entry.Rank)
		}
		m.Rank = *entry.Rank
	}
	return m, nil
}
