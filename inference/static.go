package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvr-ai/go-rknn/tensor"
)

// StaticEngine is an in-memory Engine that replays fixed output buffers on every Run.
//
// It stands in for the NPU when post-processing captured outputs offline and in tests.
type StaticEngine struct {
	mu      sync.Mutex
	inputs  []tensor.Descriptor
	outputs []tensor.Descriptor
	bufs    []tensor.Buffer
	input   []byte
	runs    int
	closed  bool
}

// NewStaticEngine creates an engine that reports inputs and outputs as its tensors and
// returns bufs from Outputs.
//
// Arguments:
//   - inputs: Input descriptors. SetInput checks the data length against the first one.
//   - outputs: Output descriptors.
//   - bufs: Output buffers, one per output descriptor.
//
// Returns:
//   - *StaticEngine: The engine.
//   - error: If the buffer count does not match the output count.
func NewStaticEngine(inputs, outputs []tensor.Descriptor, bufs []tensor.Buffer) (*StaticEngine, error) {
	if len(bufs) != len(outputs) {
		return nil, fmt.Errorf("static engine: %d buffers for %d outputs", len(bufs), len(outputs))
	}
	return &StaticEngine{inputs: inputs, outputs: outputs, bufs: bufs}, nil
}

// IOCounts returns the number of configured inputs and outputs.
func (e *StaticEngine) IOCounts() (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, 0, ErrEngineClosed
	}
	return len(e.inputs), len(e.outputs), nil
}

// TensorAttr returns the configured descriptor.
func (e *StaticEngine) TensorAttr(kind TensorKind, index int) (tensor.Descriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tensor.Descriptor{}, ErrEngineClosed
	}

	var descs []tensor.Descriptor
	switch kind {
	case TensorKindInput:
		descs = e.inputs
	case TensorKindOutput:
		descs = e.outputs
	default:
		return tensor.Descriptor{}, fmt.Errorf("%w: kind %d", ErrNoSuchTensor, kind)
	}
	if index < 0 || index >= len(descs) {
		return tensor.Descriptor{}, fmt.Errorf("%w: %s %d", ErrNoSuchTensor, kind, index)
	}
	return descs[index], nil
}

// SetInput records a copy of data.
func (e *StaticEngine) SetInput(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if len(e.inputs) > 0 {
		if want := e.inputs[0].ElementCount(); want != len(data) {
			return fmt.Errorf("static engine: input has %d bytes, want %d", len(data), want)
		}
	}
	e.input = append(e.input[:0], data...)
	return nil
}

// Run counts the call. The outputs never change.
func (e *StaticEngine) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.runs++
	return nil
}

// Outputs returns the configured buffers.
func (e *StaticEngine) Outputs() ([]tensor.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.bufs, nil
}

// Close marks the engine closed. Closing twice is a no-op.
func (e *StaticEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Runs returns the number of successful Run calls.
func (e *StaticEngine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// LastInput returns a copy of the data passed to the last SetInput.
func (e *StaticEngine) LastInput() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.input...)
}
