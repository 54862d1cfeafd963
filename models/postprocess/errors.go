package postprocess

import (
	"github.com/nvr-ai/go-rknn/quant"
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidOutputCount is returned when the outputs cannot be grouped into three branches
	// of at least three tensors each, or the buffer count does not match the descriptors.
	ErrInvalidOutputCount = errors.New("invalid output count")
	// ErrUnsupportedDflLength is returned when the box tensor carries a multi-bin distribution.
	ErrUnsupportedDflLength = errors.New("unsupported dfl length")
	// ErrInvalidGrid is returned when the grid height or stride derived from the box tensor is zero.
	ErrInvalidGrid = errors.New("invalid anchor grid")

	// ErrUnsupportedQuantType is quant.ErrUnsupportedQuantType.
	ErrUnsupportedQuantType = quant.ErrUnsupportedQuantType
	// ErrIndexOutOfRange is tensor.ErrIndexOutOfRange.
	ErrIndexOutOfRange = tensor.ErrIndexOutOfRange
)
