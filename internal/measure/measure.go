// Package measure defines the descriptors for requested statistics and the
// sample unit they are computed over. A Measure is pure data: two measures
// with identical fields are the same statistic and the same map key.
package measure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// Scope distinguishes per-sample statistics from statistics accumulated
// across an entire dataset stream.
type Scope uint8

const (
	ScopeSample Scope = iota
	ScopeDataset
)

func (s Scope) String() string {
	switch s {
	case ScopeSample:
		return "sample"
	case ScopeDataset:
		return "dataset"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// Kind is the closed set of supported statistic kinds. The planner matches
// exhaustively over it; a value outside the set is a programming error.
type Kind uint8

const (
	Mean Kind = iota
	Variance
	Std
	Percentile
)

func (k Kind) String() string {
	switch k {
	case Mean:
		return "mean"
	case Variance:
		return "var"
	case Std:
		return "std"
	case Percentile:
		return "percentile"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	ErrUnknownScope = errors.New("unknown measure scope")
	ErrUnknownKind  = errors.New("unknown measure kind")
)

// ParseScope maps the wire/config spelling of a scope onto its value.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "sample":
		return ScopeSample, nil
	case "dataset":
		return ScopeDataset, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScope, s)
	}
}

// ParseKind maps the wire/config spelling of a kind onto its value.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "mean":
		return Mean, nil
	case "var", "variance":
		return Variance, nil
	case "std", "stddev":
		return Std, nil
	case "percentile":
		return Percentile, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// AxesKey is the canonical, comparable form of a reduction-axis set.
// AllAxes stands for "reduce over every axis"; the empty key reduces
// nothing. Axis names must not contain commas.
type AxesKey string

// AllAxes marks a full reduction to a scalar.
const AllAxes AxesKey = "*"

// KeyOf canonicalizes an axis list. A nil list means all axes.
func KeyOf(axes []tensor.Axis) AxesKey {
	if axes == nil {
		return AllAxes
	}
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = string(a)
	}
	return AxesKey(strings.Join(parts, ","))
}

// Axes decodes the key back into an axis list; AllAxes yields nil.
func (k AxesKey) Axes() []tensor.Axis {
	if k == AllAxes {
		return nil
	}
	if k == "" {
		return []tensor.Axis{}
	}
	parts := strings.Split(string(k), ",")
	axes := make([]tensor.Axis, len(parts))
	for i, p := range parts {
		axes[i] = tensor.Axis(p)
	}
	return axes
}

func (k AxesKey) String() string {
	if k == AllAxes {
		return "all axes"
	}
	if k == "" {
		return "no axes"
	}
	return "[" + string(k) + "]"
}

// Measure describes one requested statistic. It is comparable and used as a
// map key throughout the engine. Rank is meaningful for Percentile only and
// must lie in [0,100].
type Measure struct {
	Scope    Scope
	Kind     Kind
	TensorID string
	Axes     AxesKey
	Rank     float64
}

func (m Measure) String() string {
	s := fmt.Sprintf("%s %s of %q over %s", m.Scope, m.Kind, m.TensorID, m.Axes)
	if m.Kind == Percentile {
		s += fmt.Sprintf(" at rank %g", m.Rank)
	}
	return s
}

// SampleMean describes the per-sample mean of tensorID over axes
// (nil axes: all).
func SampleMean(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeSample, Kind: Mean, TensorID: tensorID, Axes: KeyOf(axes)}
}

// DatasetMean describes the dataset-wide mean of tensorID over axes.
func DatasetMean(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeDataset, Kind: Mean, TensorID: tensorID, Axes: KeyOf(axes)}
}

// SampleVar describes the per-sample population variance of tensorID over axes.
func SampleVar(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeSample, Kind: Variance, TensorID: tensorID, Axes: KeyOf(axes)}
}

// DatasetVar describes the dataset-wide population variance of tensorID over axes.
func DatasetVar(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeDataset, Kind: Variance, TensorID: tensorID, Axes: KeyOf(axes)}
}

// SampleStd describes the per-sample standard deviation of tensorID over axes.
func SampleStd(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeSample, Kind: Std, TensorID: tensorID, Axes: KeyOf(axes)}
}

// DatasetStd describes the dataset-wide standard deviation of tensorID over axes.
func DatasetStd(tensorID string, axes []tensor.Axis) Measure {
	return Measure{Scope: ScopeDataset, Kind: Std, TensorID: tensorID, Axes: KeyOf(axes)}
}

// SamplePercentile describes the per-sample rank-percentile of tensorID over
// axes. It panics if rank lies outside [0,100]; the set of valid ranks is a
// contract of the caller, not runtime input.
func SamplePercentile(tensorID string, axes []tensor.Axis, rank float64) Measure {
	mustValidRank(rank)
	return Measure{Scope: ScopeSample, Kind: Percentile, TensorID: tensorID, Axes: KeyOf(axes), Rank: rank}
}

// DatasetPercentile describes the dataset-wide rank-percentile of tensorID
// over axes. It panics if rank lies outside [0,100].
func DatasetPercentile(tensorID string, axes []tensor.Axis, rank float64) Measure {
	mustValidRank(rank)
	return Measure{Scope: ScopeDataset, Kind: Percentile, TensorID: tensorID, Axes: KeyOf(axes), Rank: rank}
}

func mustValidRank(rank float64) {
	if rank < 0 || rank > 100 {
		panic(fmt.Sprintf("percentile rank %g outside [0,100]", rank))
	}
}
