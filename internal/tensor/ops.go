package tensor

import (
	"fmt"
	"math"
)

func (t *Tensor) zip(o *Tensor, op string, f func(a, b float64) float64) (*Tensor, error) {
	if !t.SameLayout(o) {
		return nil, fmt.Errorf("%w: %s of %s and %s", ErrLayoutMismatch, op, t, o)
	}
	out := t.Clone()
	for i := range out.data {
		out.data[i] = f(out.data[i], o.data[i])
	}
	return out, nil
}

// Add returns the elementwise sum of two tensors with identical layout.
func (t *Tensor) Add(o *Tensor) (*Tensor, error) {
	return t.zip(o, "add", func(a, b float64) float64 { return a + b })
}

// Sub returns the elementwise difference of two tensors with identical layout.
func (t *Tensor) Sub(o *Tensor) (*Tensor, error) {
	return t.zip(o, "sub", func(a, b float64) float64 { return a - b })
}

// Mul returns the elementwise product of two tensors with identical layout.
func (t *Tensor) Mul(o *Tensor) (*Tensor, error) {
	return t.zip(o, "mul", func(a, b float64) float64 { return a * b })
}

// Scale returns a copy with every element multiplied by f.
func (t *Tensor) Scale(f float64) *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] *= f
	}
	return out
}

// Sqrt returns a copy with every element replaced by its square root.
func (t *Tensor) Sqrt() *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] = math.Sqrt(out.data[i])
	}
	return out
}
