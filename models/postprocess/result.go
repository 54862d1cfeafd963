// Package postprocess - Decoding and suppression of quantized detector outputs.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-rknn/images"
)

// Detection represents a single detection result.
type Detection struct {
	// The predicted class index.
	ClassID int `json:"class_id"`
	// The dequantized class score.
	Confidence float32 `json:"confidence"`
	// The box in input-image pixels.
	Box images.Rect `json:"box"`
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (confidence %f): %s", d.ClassID, d.Confidence, d.Box)
}
