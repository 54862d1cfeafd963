// Package model - Shared model identifiers and the model contract.
package model

import (
	"github.com/nvr-ai/go-rknn/models/postprocess"
	"github.com/nvr-ai/go-rknn/tensor"
)

// Family is the label set a model was trained on.
type Family string

const (
	// ModelFamilyCOCO is the 80 COCO classes plus background at index 0.
	ModelFamilyCOCO Family = "coco"
	// ModelFamilyYOLO is the 80 COCO classes indexed from zero.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv6 is the three-branch anchor-free YOLOv6 head.
	ModelNameYOLOv6 Name = "yolov6"
)

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name   Name   `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Family Family `json:"family" yaml:"family"`
	// InputHeight is the model input height in pixels.
	InputHeight uint32 `json:"input_height" yaml:"input_height"`
	// ConfidenceThreshold is the minimum class confidence. Zero uses the model default.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMS configures suppression. Nil uses the model default.
	NMS *postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// Model turns raw engine outputs into detections.
type Model interface {
	Options() NewModelArgs
	PostProcess(descs []tensor.Descriptor, bufs []tensor.Buffer) ([]postprocess.Detection, error)
}
