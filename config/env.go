package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvModelPath      = "RKNN_MODEL_PATH"
	EnvModelName      = "RKNN_MODEL_NAME"
	EnvLabels         = "RKNN_LABELS"
	EnvInputHeight    = "RKNN_INPUT_HEIGHT"
	EnvConfidence     = "RKNN_CONFIDENCE"
	EnvIoU            = "RKNN_IOU"
	EnvMaxDetections  = "RKNN_MAX_DETECTIONS"
	EnvEngine         = "RKNN_ENGINE"
	EnvCapture        = "RKNN_CAPTURE"
	EnvSharedLibrary  = "RKNN_ORT_LIB"
	EnvIntraOpThreads = "RKNN_INTRA_OP_THREADS"
	EnvLogLevel       = "RKNN_LOG_LEVEL"
	EnvLogFile        = "RKNN_LOG_FILE"
)

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the variables lookup reports as set.
//
// Arguments:
//   - lookup: Usually os.LookupEnv.
//
// Returns:
//   - error: If a numeric variable does not parse.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str(EnvModelPath, &c.Model.Path)
	str(EnvModelName, &c.Model.Name)
	str(EnvLabels, &c.Model.Labels)
	str(EnvEngine, &c.Runtime.Engine)
	str(EnvCapture, &c.Runtime.Capture)
	str(EnvSharedLibrary, &c.Runtime.SharedLibraryPath)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFile, &c.Log.File)

	if v, ok := lookup(EnvInputHeight); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInputHeight, err)
		}
		c.Model.InputHeight = uint32(n)
	}
	if v, ok := lookup(EnvConfidence); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConfidence, err)
		}
		c.Thresholds.Confidence = float32(f)
	}
	if v, ok := lookup(EnvIoU); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIoU, err)
		}
		c.Thresholds.IoU = float32(f)
	}
	if v, ok := lookup(EnvMaxDetections); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDetections, err)
		}
		c.Thresholds.MaxDetections = n
	}
	if v, ok := lookup(EnvIntraOpThreads); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIntraOpThreads, err)
		}
		c.Runtime.IntraOpThreads = n
	}
	return nil
}
