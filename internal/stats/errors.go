package stats

import "errors"

var (
	ErrMissingTensor     = errors.New("sample does not contain requested tensor")
	ErrEmptySampleStream = errors.New("sample stream yielded no samples")
	ErrUpdateFailed      = errors.New("dataset calculator update failed")
	ErrFinalizeFailed    = errors.New("dataset calculator finalize failed")
	ErrComputeFailed     = errors.New("sample calculator compute failed")
)
