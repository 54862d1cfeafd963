// Package inference - Inference engine contract and implementations.
package inference

import (
	"context"
	"errors"

	"github.com/nvr-ai/go-rknn/tensor"
)

var (
	// ErrEngineClosed is returned by every engine call made after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrNoSuchTensor is returned when a tensor attribute is requested for an index the model
	// does not have.
	ErrNoSuchTensor = errors.New("no such tensor")
)

// TensorKind selects between model inputs and outputs.
type TensorKind int

const (
	// TensorKindInput selects model inputs.
	TensorKindInput TensorKind = iota
	// TensorKindOutput selects model outputs.
	TensorKindOutput
)

// String returns the lower case name of the kind.
func (k TensorKind) String() string {
	switch k {
	case TensorKindInput:
		return "input"
	case TensorKindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Engine is a loaded model that accepts one input buffer and produces int8 outputs.
//
// Buffers returned by Outputs are owned by the engine and stay valid only until the next
// SetInput, Run or Close. Implementations are not required to be safe for concurrent use.
type Engine interface {
	// IOCounts returns the number of model inputs and outputs.
	IOCounts() (nInput, nOutput int, err error)
	// TensorAttr describes one input or output tensor.
	TensorAttr(kind TensorKind, index int) (tensor.Descriptor, error)
	// SetInput copies data into the first model input.
	SetInput(data []byte) error
	// Run executes the model on the current input.
	Run(ctx context.Context) error
	// Outputs returns the output buffers ordered by output index.
	Outputs() ([]tensor.Buffer, error)
	// Close releases the engine. Further calls return ErrEngineClosed.
	Close() error
}

// OutputDescriptors collects the attributes of every output of e.
//
// Arguments:
//   - e: The engine to query.
//
// Returns:
//   - []tensor.Descriptor: One descriptor per output, ordered by index.
//   - error: The first error reported by the engine.
func OutputDescriptors(e Engine) ([]tensor.Descriptor, error) {
	_, nOutput, err := e.IOCounts()
	if err != nil {
		return nil, err
	}
	descs := make([]tensor.Descriptor, nOutput)
	for i := range descs {
		if descs[i], err = e.TensorAttr(TensorKindOutput, i); err != nil {
			return nil, err
		}
	}
	return descs, nil
}
