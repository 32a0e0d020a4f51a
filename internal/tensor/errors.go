package tensor

import "errors"

var (
	ErrBadShape       = errors.New("invalid tensor shape")
	ErrUnknownAxis    = errors.New("axis not present in tensor")
	ErrEmptyReduction = errors.New("reduction group has no elements")
	ErrLayoutMismatch = errors.New("tensor layouts do not match")
)
