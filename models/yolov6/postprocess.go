// Package yolov6 - postprocess YOLOv6 model outputs.
package yolov6

import (
	"github.com/nvr-ai/go-rknn/models/postprocess"
	"github.com/nvr-ai/go-rknn/tensor"
)

// PostProcess decodes the three output branches and suppresses overlapping boxes.
//
// Arguments:
//   - descs: The output descriptors reported by the engine.
//   - bufs: The output buffers, one per descriptor.
//
// Returns:
//   - Detections in descending confidence order.
//   - An error if the outputs do not match the YOLOv6 layout.
func (m *YOLOv6) PostProcess(descs []tensor.Descriptor, bufs []tensor.Buffer) ([]postprocess.Detection, error) {
	return m.pipeline.Process(descs, bufs)
}
