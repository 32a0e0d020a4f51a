// Package tensor implements the named-axis numeric arrays the statistics
// engine aggregates over. Every tensor carries its values as float64; inputs
// of lower precision are upcast once at construction and never downcast.
package tensor

import (
	"fmt"
	"strings"
)

// Axis is a named dimension of a tensor, e.g. "x" or "channel".
type Axis string

// Tensor is a multi-dimensional array with one name per dimension.
// Reductions address dimensions by axis name, never by position.
type Tensor struct {
	dims  []Axis
	shape []int
	data  []float64
}

// New builds a tensor over the given axes. len(dims) must equal len(shape),
// axis names must be unique, and len(data) must equal the shape's product.
// The tensor takes ownership of data.
func New(dims []Axis, shape []int, data []float64) (*Tensor, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%w: %d axes for %d dimensions", ErrBadShape, len(dims), len(shape))
	}
	seen := make(map[Axis]struct{}, len(dims))
	size := 1
	for i, d := range dims {
		if _, dup := seen[d]; dup {
			return nil, fmt.Errorf("%w: duplicate axis %q", ErrBadShape, d)
		}
		seen[d] = struct{}{}
		if shape[i] < 0 {
			return nil, fmt.Errorf("%w: negative size %d on axis %q", ErrBadShape, shape[i], d)
		}
		size *= shape[i]
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %d values for shape of size %d", ErrBadShape, len(data), size)
	}
	return &Tensor{dims: dims, shape: shape, data: data}, nil
}

// NewFromFloat32 upcasts float32 values to the engine's float64 working
// precision before constructing the tensor.
func NewFromFloat32(dims []Axis, shape []int, data []float32) (*Tensor, error) {
	wide := make([]float64, len(data))
	for i, v := range data {
		wide[i] = float64(v)
	}
	return New(dims, shape, wide)
}

// Scalar wraps a single value as a zero-dimensional tensor.
func Scalar(v float64) *Tensor {
	return &Tensor{data: []float64{v}}
}

// Full builds a tensor with every element set to v.
func Full(dims []Axis, shape []int, v float64) (*Tensor, error) {
	size := 1
	for _, s := range shape {
		size *= s
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = v
	}
	return New(dims, shape, data)
}

// Dims returns the tensor's axis names in dimension order.
func (t *Tensor) Dims() []Axis { return t.dims }

// Shape returns the size per dimension.
func (t *Tensor) Shape() []int { return t.shape }

// Data exposes the backing values in row-major order.
func (t *Tensor) Data() []float64 { return t.data }

// Size is the total element count.
func (t *Tensor) Size() int { return len(t.data) }

// IsScalar reports whether the tensor has no remaining axes.
func (t *Tensor) IsScalar() bool { return len(t.dims) == 0 }

// Item returns the value of a fully reduced tensor.
func (t *Tensor) Item() (float64, error) {
	if len(t.data) != 1 {
		return 0, fmt.Errorf("%w: Item on tensor of size %d", ErrBadShape, len(t.data))
	}
	return t.data[0], nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		dims:  append([]Axis(nil), t.dims...),
		shape: append([]int(nil), t.shape...),
		data:  append([]float64(nil), t.data...),
	}
}

// SameLayout reports whether o has identical axis names and sizes.
func (t *Tensor) SameLayout(o *Tensor) bool {
	if len(t.dims) != len(o.dims) {
		return false
	}
	for i := range t.dims {
		if t.dims[i] != o.dims[i] || t.shape[i] != o.shape[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	parts := make([]string, len(t.dims))
	for i, d := range t.dims {
		parts[i] = fmt.Sprintf("%s:%d", d, t.shape[i])
	}
	return "tensor(" + strings.Join(parts, ",") + ")"
}
