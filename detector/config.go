package detector

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-rknn/config"
	"github.com/nvr-ai/go-rknn/inference"
	"github.com/nvr-ai/go-rknn/logging"
	"github.com/sirupsen/logrus"
)

// FromConfig builds the logger, engine and model described by cfg and returns a ready detector.
//
// Arguments:
//   - cfg: A validated configuration, usually from config.Load.
//
// Returns:
//   - *Detector: The detector. It owns the engine.
//   - error: If the logger, labels, engine or model cannot be built. The engine is closed on
//     failure.
func FromConfig(cfg *config.Config) (*Detector, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	labels, err := cfg.Labels()
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	d, err := New(engine, Options{Model: cfg.ModelArgs(), Labels: labels, Logger: log})
	if err != nil {
		if cerr := engine.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close engine")
		}
		return nil, err
	}
	return d, nil
}

// NewEngine creates the engine selected by cfg.Runtime.Engine.
//
// Arguments:
//   - cfg: The configuration.
//   - log: Logger handed to engines that log. Nil uses the logrus standard logger.
//
// Returns:
//   - inference.Engine: The engine.
//   - error: If the engine type is unknown or the engine cannot be created.
func NewEngine(cfg *config.Config, log logrus.FieldLogger) (inference.Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	typ, err := inference.ParseEngineType(cfg.Runtime.Engine)
	if err != nil {
		return nil, err
	}

	switch typ {
	case inference.EngineONNX:
		onnxCfg, err := cfg.ONNXConfig()
		if err != nil {
			return nil, err
		}
		e, err := inference.NewONNXEngine(onnxCfg, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	case inference.EngineStatic:
		if cfg.Runtime.Capture == "" {
			return nil, fmt.Errorf("static engine: capture path is required")
		}
		f, err := os.Open(cfg.Runtime.Capture)
		if err != nil {
			return nil, fmt.Errorf("open capture: %w", err)
		}
		defer f.Close()

		capture, err := inference.ReadCapture(f)
		if err != nil {
			return nil, err
		}
		e, err := capture.Engine()
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"capture": cfg.Runtime.Capture,
			"outputs": len(capture.Outputs),
		}).Info("replaying capture")
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported engine type %q", typ)
	}
}
