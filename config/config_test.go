package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-rknn/inference"
	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/nvr-ai/go-rknn/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
model:
  path: /models/yolov6n.onnx
  input_height: 640
thresholds:
  confidence: 0.45
  iou: 0.6
  max_detections: 100
outputs:
  - {zero_point: -56, scale: 0.1, kind: affine}
  - {zero_point: -128, scale: 0.0039, kind: affine}
  - {fl: 3, kind: dfp}
runtime:
  intra_op_threads: 2
log:
  level: debug
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, "detector.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "/models/yolov6n.onnx", cfg.Model.Path)
	assert.Equal(t, "yolov6", cfg.Model.Name)
	assert.Equal(t, uint32(640), cfg.Model.InputHeight)
	assert.Equal(t, float32(0.45), cfg.Thresholds.Confidence)
	assert.Equal(t, 100, cfg.Thresholds.MaxDetections)
	assert.Equal(t, "onnx", cfg.Runtime.Engine)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Outputs, 3)

	args := cfg.ModelArgs()
	assert.Equal(t, model.ModelNameYOLOv6, args.Name)
	assert.Equal(t, model.ModelFamilyYOLO, args.Family)
	require.NotNil(t, args.NMS)
	assert.Equal(t, float32(0.6), args.NMS.IoUThreshold)
	assert.Equal(t, 100, args.NMS.MaxDetections)

	onnx, err := cfg.ONNXConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, onnx.IntraOpThreads)
	assert.Equal(t, inference.OutputQuant{ZeroPoint: -56, Scale: 0.1, Kind: quant.KindAffineAsymmetric}, onnx.Outputs[0])
	assert.Equal(t, inference.OutputQuant{FractionalLength: 3, Kind: quant.KindSymmetricDFP}, onnx.Outputs[2])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvModelPath, "/override.onnx")
	t.Setenv(EnvConfidence, "0.3")
	t.Setenv(EnvMaxDetections, "5")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeFile(t, "detector.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, "/override.onnx", cfg.Model.Path)
	assert.Equal(t, float32(0.3), cfg.Thresholds.Confidence)
	assert.Equal(t, 5, cfg.Thresholds.MaxDetections)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	env := writeFile(t, "detector.env", "RKNN_ENGINE=static\nRKNN_CAPTURE=/c.yaml\nRKNN_INPUT_HEIGHT=320\n")
	t.Cleanup(func() {
		os.Unsetenv(EnvEngine)
		os.Unsetenv(EnvCapture)
		os.Unsetenv(EnvInputHeight)
	})

	cfg, err := Load(writeFile(t, "detector.yaml", "model:\n  path: /m.onnx\n"), env)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Runtime.Engine)
	assert.Equal(t, "/c.yaml", cfg.Runtime.Capture)
	assert.Equal(t, uint32(320), cfg.Model.InputHeight)
	assert.Empty(t, cfg.Outputs)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing path", "runtime: {engine: static, capture: c}\n"},
		{"confidence above one", "model: {path: m}\nruntime: {engine: static, capture: c}\nthresholds: {confidence: 1.5}\n"},
		{"negative iou", "model: {path: m}\nruntime: {engine: static, capture: c}\nthresholds: {iou: -0.1}\n"},
		{"unknown engine", "model: {path: m}\nruntime: {engine: openvino}\n"},
		{"unknown model", "model: {path: m, name: yolov4}\nruntime: {engine: static, capture: c}\n"},
		{"onnx without outputs", "model: {path: m}\n"},
		{"static without capture", "model: {path: m}\nruntime: {engine: static}\n"},
		{"unknown quant kind", "model: {path: m}\noutputs: [{kind: float}]\n"},
		{"zero point out of range", "model: {path: m}\noutputs: [{zero_point: 300, kind: affine}]\n"},
		{"bad log level", "model: {path: m}\nruntime: {engine: static, capture: c}\nlog: {level: loud}\n"},
		{"not yaml", "model: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "detector.yaml", tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv_ParseErrors(t *testing.T) {
	for _, key := range []string{EnvInputHeight, EnvConfidence, EnvIoU, EnvMaxDetections, EnvIntraOpThreads} {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(func(k string) (string, bool) {
			if k == key {
				return "many", true
			}
			return "", false
		})
		assert.ErrorContains(t, err, key)
	}
}

func TestLabels(t *testing.T) {
	cfg := DefaultConfig()
	labels, err := cfg.Labels()
	require.NoError(t, err)
	assert.Nil(t, labels)

	cfg.Model.Labels = writeFile(t, "labels.txt", "person\nbicycle\n")
	labels, err = cfg.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle"}, labels)

	cfg.Model.Labels = filepath.Join(t.TempDir(), "missing.txt")
	_, err = cfg.Labels()
	assert.Error(t, err)
}
