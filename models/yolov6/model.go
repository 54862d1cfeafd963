// Package yolov6 - YOLOv6 model.
package yolov6

import (
	"fmt"

	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/nvr-ai/go-rknn/models/postprocess"
)

// YOLOv6 is the instance of the YOLOv6 model.
type YOLOv6 struct {
	options  model.NewModelArgs
	pipeline *postprocess.Pipeline
}

// Options returns the options the model was created with, defaults filled in.
//
// Returns:
//   - The options for the YOLOv6 model.
func (m *YOLOv6) Options() model.NewModelArgs {
	return m.options
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
//   - An error if the input height is missing or a threshold is out of range.
func NewModel(args model.NewModelArgs) (*YOLOv6, error) {
	if args.InputHeight == 0 {
		return nil, fmt.Errorf("NewModel requires the input height to be set")
	}

	opts := postprocess.DefaultOptions()
	opts.InputHeight = args.InputHeight
	if args.ConfidenceThreshold > 0 {
		opts.ConfidenceThreshold = args.ConfidenceThreshold
	}
	if args.NMS != nil {
		opts.NMS = *args.NMS
	}

	pipeline, err := postprocess.NewPipeline(opts)
	if err != nil {
		return nil, fmt.Errorf("yolov6: %w", err)
	}

	args.Name = model.ModelNameYOLOv6
	if args.Family == "" {
		args.Family = model.ModelFamilyYOLO
	}
	args.ConfidenceThreshold = opts.ConfidenceThreshold
	nms := opts.NMS
	args.NMS = &nms

	return &YOLOv6{options: args, pipeline: pipeline}, nil
}
