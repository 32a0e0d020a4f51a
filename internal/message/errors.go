package message

import "errors"

var (
	ErrJSONUnmarshalFailed = errors.New("failed to unmarshal JSON payload")
	ErrInvalidTensor       = errors.New("invalid tensor payload")
	ErrInvalidSnapshot     = errors.New("invalid snapshot payload")
	ErrNotDatasetScope     = errors.New("snapshot entry is not dataset-scope")
)
