// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-rknn/images"
)

// DefaultIoUThreshold is the overlap above which same-class boxes are merged.
const DefaultIoUThreshold = 0.5

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the lower-confidence box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// MaxDetections caps the number of kept boxes. Zero keeps all.
	MaxDetections int `json:"max_detections" yaml:"max_detections"`
}

// DefaultNMSConfig returns the thresholds the exported models were tuned with.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

// SortByConfidence orders detections by descending confidence.
//
// The sort is stable: detections with equal confidence keep their decode order (branch, then
// grid row, then grid column), so suppression is reproducible across runs and platforms.
func SortByConfidence(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
}

// ApplyNMS performs greedy, class-aware Non-Maximum Suppression.
//
// Each detection that has not been suppressed is kept, and every later detection of the same
// class whose IoU with it exceeds the threshold is suppressed. Detections of different classes
// never suppress each other.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: NMS configuration. Nil uses DefaultNMSConfig.
//
// Returns:
//   - Filtered slice of detections in input order. If no detections are provided, returns nil.
func ApplyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}
	if config == nil {
		cfg := DefaultNMSConfig()
		config = &cfg
	}

	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		if config.MaxDetections > 0 && len(filtered) >= config.MaxDetections {
			break
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] || detections[j].ClassID != anchor.ClassID {
				continue
			}

			if images.CalculateIoU(anchor.Box, detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
