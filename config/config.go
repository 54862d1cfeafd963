// Package config - Detector configuration loaded from YAML, .env files and the environment.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/nvr-ai/go-rknn/inference"
	"github.com/nvr-ai/go-rknn/logging"
	"github.com/nvr-ai/go-rknn/models"
	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/nvr-ai/go-rknn/models/postprocess"
	"github.com/nvr-ai/go-rknn/quant"
	"gopkg.in/yaml.v3"
)

// Config is the complete detector configuration.
type Config struct {
	Model      ModelConfig      `json:"model" yaml:"model"`
	Thresholds ThresholdsConfig `json:"thresholds" yaml:"thresholds"`
	// Outputs holds per-output quantization parameters, in output order. Engines that report
	// them natively ignore this section.
	Outputs []OutputConfig `json:"outputs" yaml:"outputs" validate:"dive"`
	Runtime RuntimeConfig  `json:"runtime" yaml:"runtime"`
	Log     logging.Config `json:"log" yaml:"log"`
}

// ModelConfig selects the model file and its geometry.
type ModelConfig struct {
	Name   string `json:"name" yaml:"name" validate:"omitempty,oneof=yolov6"`
	Path   string `json:"path" yaml:"path" validate:"required"`
	Family string `json:"family" yaml:"family" validate:"omitempty,oneof=yolo coco"`
	// InputHeight is the model input height. Zero reads it from the engine.
	InputHeight uint32 `json:"input_height" yaml:"input_height"`
	// Labels is an optional label file with one class name per line.
	Labels string `json:"labels" yaml:"labels"`
}

// ThresholdsConfig holds the post-processing thresholds.
type ThresholdsConfig struct {
	Confidence    float32 `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	IoU           float32 `json:"iou" yaml:"iou" validate:"gte=0,lte=1"`
	MaxDetections int     `json:"max_detections" yaml:"max_detections" validate:"gte=0"`
}

// OutputConfig is the quantization of one model output.
type OutputConfig struct {
	ZeroPoint        int32   `json:"zero_point" yaml:"zero_point" validate:"gte=-128,lte=127"`
	Scale            float32 `json:"scale" yaml:"scale" validate:"gte=0"`
	FractionalLength int8    `json:"fl" yaml:"fl"`
	Kind             string  `json:"kind" yaml:"kind" validate:"omitempty,oneof=none dfp symmetric_dfp affine affine_asymmetric"`
}

// RuntimeConfig selects and tunes the engine.
type RuntimeConfig struct {
	Engine            string `json:"engine" yaml:"engine" validate:"oneof=onnx static"`
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	IntraOpThreads    int    `json:"intra_op_threads" yaml:"intra_op_threads" validate:"gte=0"`
	// Capture is the recorded tensor file the static engine replays.
	Capture string `json:"capture" yaml:"capture" validate:"required_if=Engine static"`
}

// DefaultConfig returns a configuration with the thresholds the exported models were tuned with.
//
// Returns:
//   - Config: Defaults for every field except the model path and outputs.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Name:   string(model.ModelNameYOLOv6),
			Family: string(model.ModelFamilyYOLO),
		},
		Thresholds: ThresholdsConfig{
			Confidence: postprocess.DefaultConfidenceThreshold,
			IoU:        postprocess.DefaultIoUThreshold,
		},
		Runtime: RuntimeConfig{Engine: string(inference.EngineONNX)},
		Log:     logging.DefaultConfig(),
	}
}

// Load reads the YAML file at path over DefaultConfig, loads envFiles (or ".env" when none
// are given and it exists), applies RKNN_* environment overrides and validates the result.
//
// Arguments:
//   - path: The YAML configuration file. Empty skips the file.
//   - envFiles: Optional dotenv files. Variables already set in the environment win.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: If a file cannot be read or parsed, or validation fails.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Runtime.Engine == string(inference.EngineONNX) && len(c.Outputs) == 0 {
		return fmt.Errorf("invalid config: the onnx engine needs quantization parameters for every output")
	}
	return nil
}

// ModelArgs returns the model arguments for models.NewModel.
func (c *Config) ModelArgs() model.NewModelArgs {
	return model.NewModelArgs{
		Name:                model.Name(c.Model.Name),
		Path:                c.Model.Path,
		Family:              model.Family(c.Model.Family),
		InputHeight:         c.Model.InputHeight,
		ConfidenceThreshold: c.Thresholds.Confidence,
		NMS: &postprocess.NMSConfig{
			IoUThreshold:  c.Thresholds.IoU,
			MaxDetections: c.Thresholds.MaxDetections,
		},
	}
}

// ONNXConfig returns the onnxruntime engine configuration.
func (c *Config) ONNXConfig() (inference.ONNXConfig, error) {
	outputs := make([]inference.OutputQuant, len(c.Outputs))
	for i, o := range c.Outputs {
		kind, err := quant.ParseKind(o.Kind)
		if err != nil {
			return inference.ONNXConfig{}, fmt.Errorf("output %d: %w", i, err)
		}
		outputs[i] = inference.OutputQuant{
			ZeroPoint:        o.ZeroPoint,
			Scale:            o.Scale,
			FractionalLength: o.FractionalLength,
			Kind:             kind,
		}
	}
	return inference.ONNXConfig{
		ModelPath:         c.Model.Path,
		SharedLibraryPath: c.Runtime.SharedLibraryPath,
		IntraOpThreads:    c.Runtime.IntraOpThreads,
		Outputs:           outputs,
	}, nil
}

// Labels reads the configured label file. It returns nil when none is configured.
func (c *Config) Labels() ([]string, error) {
	if c.Model.Labels == "" {
		return nil, nil
	}
	f, err := os.Open(c.Model.Labels)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return models.LoadLabels(f)
}
