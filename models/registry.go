// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/nvr-ai/go-rknn/models/yolov6"
)

// NewModel creates a new detection model instance based on the specified model type.
//
// Arguments:
//   - args: Configuration parameters specifying the model type, input geometry and thresholds.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if the model type is unsupported or validation fails.
//
// Example:
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name:        model.ModelNameYOLOv6,
//	    Path:        "/models/yolov6n.rknn",
//	    InputHeight: 640,
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLOv6, "":
		m, err := yolov6.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
