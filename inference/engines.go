// Package inference - Inference engine interface and implementations
package inference

import "fmt"

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library
	EngineONNX EngineType = "onnx"
	// EngineStatic replays captured output tensors without running a model
	EngineStatic EngineType = "static"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNX, EngineStatic}

// ParseEngineType validates s against the supported engines.
func ParseEngineType(s string) (EngineType, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unsupported engine type %q", s)
}
