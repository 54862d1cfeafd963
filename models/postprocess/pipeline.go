package postprocess

import (
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/pkg/errors"
)

// DefaultConfidenceThreshold is the minimum class score kept by default.
const DefaultConfidenceThreshold = 0.5

// Options configures a Pipeline.
type Options struct {
	// InputHeight is the model input height in pixels; strides derive from it.
	InputHeight uint32 `json:"input_height" yaml:"input_height"`
	// ConfidenceThreshold is the minimum class score.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMS configures suppression.
	NMS NMSConfig `json:"nms" yaml:"nms"`
}

// DefaultOptions returns options for a 640x640 model input.
func DefaultOptions() Options {
	return Options{
		InputHeight:         640,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		NMS:                 DefaultNMSConfig(),
	}
}

// Pipeline turns output descriptors and buffers into final detections with fixed options.
//
// A Pipeline holds no per-call state and may be shared between goroutines, provided each
// call is given its own buffers.
type Pipeline struct {
	options Options
}

// NewPipeline validates opts and returns a Pipeline.
//
// Arguments:
//   - opts: The pipeline options.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: If the input height is zero or a threshold is outside [0, 1].
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.InputHeight == 0 {
		return nil, errors.New("input height must be greater than zero")
	}
	if opts.ConfidenceThreshold < 0 || opts.ConfidenceThreshold > 1 {
		return nil, errors.Errorf("confidence threshold %f outside [0, 1]", opts.ConfidenceThreshold)
	}
	if opts.NMS.IoUThreshold < 0 || opts.NMS.IoUThreshold > 1 {
		return nil, errors.Errorf("iou threshold %f outside [0, 1]", opts.NMS.IoUThreshold)
	}
	if opts.NMS.MaxDetections < 0 {
		return nil, errors.Errorf("max detections %d is negative", opts.NMS.MaxDetections)
	}
	return &Pipeline{options: opts}, nil
}

// Options returns the pipeline options.
func (p *Pipeline) Options() Options {
	return p.options
}

// Process decodes all three heads, sorts and suppresses the result.
func (p *Pipeline) Process(descs []tensor.Descriptor, bufs []tensor.Buffer) ([]Detection, error) {
	return process(descs, bufs, p.options.InputHeight, p.options.ConfidenceThreshold, &p.options.NMS)
}

// Run converts raw output buffers into the final detection set.
//
// Arguments:
//   - descs: Output descriptors reported by the engine, one per buffer.
//   - bufs: Output buffers, ordered by output index. They are only read during the call.
//   - inputHeight: Model input height in pixels.
//   - confThreshold: Minimum class confidence.
//   - iouThreshold: Same-class overlap above which the lower-confidence box is dropped.
//
// Returns:
//   - []Detection: Surviving detections in descending confidence order.
//   - error: ErrInvalidOutputCount, ErrUnsupportedQuantType, ErrUnsupportedDflLength,
//     ErrInvalidGrid or ErrIndexOutOfRange. No partial result is returned on error.
func Run(
	descs []tensor.Descriptor,
	bufs []tensor.Buffer,
	inputHeight uint32,
	confThreshold float32,
	iouThreshold float32,
) ([]Detection, error) {
	return process(descs, bufs, inputHeight, confThreshold, &NMSConfig{IoUThreshold: iouThreshold})
}

func process(
	descs []tensor.Descriptor,
	bufs []tensor.Buffer,
	inputHeight uint32,
	confThreshold float32,
	nms *NMSConfig,
) ([]Detection, error) {
	branches, err := Branches(len(descs))
	if err != nil {
		return nil, err
	}
	if len(bufs) != len(descs) {
		return nil, errors.Wrapf(ErrInvalidOutputCount, "%d buffers for %d descriptors", len(bufs), len(descs))
	}

	detections := make([]Detection, 0)
	for _, b := range branches {
		detections, err = DecodeBranch(detections, b, descs, bufs, inputHeight, confThreshold)
		if err != nil {
			return nil, err
		}
	}

	if len(detections) == 0 {
		return detections, nil
	}

	SortByConfidence(detections)
	return ApplyNMS(detections, nms), nil
}
