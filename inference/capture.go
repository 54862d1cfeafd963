package inference

import (
	"fmt"
	"io"

	"github.com/nvr-ai/go-rknn/tensor"
	"gopkg.in/yaml.v3"
)

// Capture is a recorded set of engine tensors: the descriptors of every input and output and
// the output contents of one run. JSON captures decode too.
type Capture struct {
	Inputs  []tensor.Descriptor `json:"inputs" yaml:"inputs"`
	Outputs []tensor.Descriptor `json:"outputs" yaml:"outputs"`
	Buffers [][]int8            `json:"buffers" yaml:"buffers,flow"`
}

// Record captures the descriptors and current outputs of e.
//
// Arguments:
//   - e: An engine that has completed a Run.
//
// Returns:
//   - *Capture: Copies of the descriptors and output buffers.
//   - error: The first engine error.
func Record(e Engine) (*Capture, error) {
	nIn, _, err := e.IOCounts()
	if err != nil {
		return nil, err
	}
	c := &Capture{Inputs: make([]tensor.Descriptor, nIn)}
	for i := range c.Inputs {
		if c.Inputs[i], err = e.TensorAttr(TensorKindInput, i); err != nil {
			return nil, err
		}
	}
	if c.Outputs, err = OutputDescriptors(e); err != nil {
		return nil, err
	}
	bufs, err := e.Outputs()
	if err != nil {
		return nil, err
	}
	c.Buffers = make([][]int8, len(bufs))
	for i, b := range bufs {
		c.Buffers[i] = append([]int8(nil), b.Data...)
	}
	return c, nil
}

// ReadCapture decodes a YAML or JSON capture.
func ReadCapture(r io.Reader) (*Capture, error) {
	var c Capture
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	return &c, nil
}

// Write encodes the capture as YAML.
func (c *Capture) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	return enc.Close()
}

// Engine returns a StaticEngine replaying the capture.
func (c *Capture) Engine() (*StaticEngine, error) {
	bufs := make([]tensor.Buffer, len(c.Buffers))
	for i, data := range c.Buffers {
		bufs[i] = tensor.Buffer{Index: i, Data: data}
	}
	return NewStaticEngine(c.Inputs, c.Outputs, bufs)
}
