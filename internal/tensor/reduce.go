package tensor

import (
	"fmt"
	"math"
	"sort"
)

// reducePlan describes how a reduction over a set of axes maps input
// elements onto output cells. A nil axis set reduces every axis; an empty,
// non-nil set reduces nothing.
type reducePlan struct {
	outDims   []Axis
	outShape  []int
	outSize   int
	groupSize int
	// cellOf[i] is the output cell of input element i.
	cellOf []int
}

func (t *Tensor) planReduce(axes []Axis) (*reducePlan, error) {
	reduced := make(map[Axis]bool, len(t.dims))
	if axes == nil {
		for _, d := range t.dims {
			reduced[d] = true
		}
	} else {
		for _, a := range axes {
			if reduced[a] {
				return nil, fmt.Errorf("%w: duplicate reduction axis %q", ErrBadShape, a)
			}
			found := false
			for _, d := range t.dims {
				if d == a {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: %q not in %v", ErrUnknownAxis, a, t.dims)
			}
			reduced[a] = true
		}
	}

	p := &reducePlan{outSize: 1, groupSize: 1}
	for i, d := range t.dims {
		if reduced[d] {
			p.groupSize *= t.shape[i]
		} else {
			p.outDims = append(p.outDims, d)
			p.outShape = append(p.outShape, t.shape[i])
			p.outSize *= t.shape[i]
		}
	}

	// Row-major strides of the output, aligned to the input dimensions.
	// Reduced dimensions contribute stride zero.
	outStride := make([]int, len(t.dims))
	stride := 1
	for i := len(t.dims) - 1; i >= 0; i-- {
		if !reduced[t.dims[i]] {
			outStride[i] = stride
			stride *= t.shape[i]
		}
	}

	p.cellOf = make([]int, len(t.data))
	idx := make([]int, len(t.dims))
	for flat := range t.data {
		cell := 0
		for i := range idx {
			cell += idx[i] * outStride[i]
		}
		p.cellOf[flat] = cell
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < t.shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return p, nil
}

func (p *reducePlan) newOutput() *Tensor {
	return &Tensor{
		dims:  append([]Axis(nil), p.outDims...),
		shape: append([]int(nil), p.outShape...),
		data:  make([]float64, p.outSize),
	}
}

// Mean reduces the given axes to their per-cell arithmetic mean.
// A nil axis set reduces over every axis, yielding a scalar.
func (t *Tensor) Mean(axes []Axis) (*Tensor, error) {
	p, err := t.planReduce(axes)
	if err != nil {
		return nil, err
	}
	if p.groupSize == 0 {
		return nil, fmt.Errorf("%w: mean over %v of %s", ErrEmptyReduction, axes, t)
	}
	out := p.newOutput()
	for i, v := range t.data {
		out.data[p.cellOf[i]] += v
	}
	inv := 1.0 / float64(p.groupSize)
	for i := range out.data {
		out.data[i] *= inv
	}
	return out, nil
}

// SumSqDev reduces the given axes to the per-cell sum of squared deviations
// from mean, which must have the reduction's output layout.
func (t *Tensor) SumSqDev(mean *Tensor, axes []Axis) (*Tensor, error) {
	p, err := t.planReduce(axes)
	if err != nil {
		return nil, err
	}
	out := p.newOutput()
	if !out.SameLayout(mean) {
		return nil, fmt.Errorf("%w: deviations of %s against %s", ErrLayoutMismatch, t, mean)
	}
	for i, v := range t.data {
		d := v - mean.data[p.cellOf[i]]
		out.data[p.cellOf[i]] += d * d
	}
	return out, nil
}

// Groups collects the reduced-away elements of every output cell. The
// returned dims/shape describe the reduction output; groups[c] holds the
// members of cell c in arrival order.
func (t *Tensor) Groups(axes []Axis) ([]Axis, []int, [][]float64, error) {
	p, err := t.planReduce(axes)
	if err != nil {
		return nil, nil, nil, err
	}
	groups := make([][]float64, p.outSize)
	for c := range groups {
		groups[c] = make([]float64, 0, p.groupSize)
	}
	for i, v := range t.data {
		groups[p.cellOf[i]] = append(groups[p.cellOf[i]], v)
	}
	return p.outDims, p.outShape, groups, nil
}

// Quantiles reduces the given axes to the per-cell quantiles at fractions
// qs (each in [0,1]), using linear interpolation between order statistics.
// Fractions 0 and 1 return the exact group minimum and maximum. One tensor
// is returned per requested fraction, in order.
func (t *Tensor) Quantiles(qs []float64, axes []Axis) ([]*Tensor, error) {
	p, err := t.planReduce(axes)
	if err != nil {
		return nil, err
	}
	if p.groupSize == 0 {
		return nil, fmt.Errorf("%w: quantiles over %v of %s", ErrEmptyReduction, axes, t)
	}

	sorted := make([][]float64, p.outSize)
	for c := range sorted {
		sorted[c] = make([]float64, 0, p.groupSize)
	}
	for i, v := range t.data {
		sorted[p.cellOf[i]] = append(sorted[p.cellOf[i]], v)
	}
	for c := range sorted {
		sort.Float64s(sorted[c])
	}

	outs := make([]*Tensor, len(qs))
	for qi, q := range qs {
		out := p.newOutput()
		for c, g := range sorted {
			out.data[c] = interpolate(g, q)
		}
		outs[qi] = out
	}
	return outs, nil
}

// interpolate evaluates the q-quantile of a sorted, non-empty slice with
// linear interpolation (position q*(n-1)).
func interpolate(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
