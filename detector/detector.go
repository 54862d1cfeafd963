// Package detector - Runs a quantized detector on an engine and reports labelled boxes.
package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nvr-ai/go-rknn/inference"
	"github.com/nvr-ai/go-rknn/models"
	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/nvr-ai/go-rknn/models/postprocess"
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/sirupsen/logrus"
)

// Options configures a Detector.
type Options struct {
	// Model selects the model and its thresholds. A zero InputHeight is read from the engine.
	Model model.NewModelArgs
	// Labels overrides the label set of the model family when non-empty.
	Labels []string
	// Logger receives per-inference debug messages. Nil uses the logrus standard logger.
	Logger logrus.FieldLogger
}

// Detection is a post-processed box with its class name.
type Detection struct {
	postprocess.Detection
	Label string `json:"label"`
}

// Result is the outcome of one Detect call.
type Result struct {
	Detections []Detection   `json:"detections"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Stats accumulates timing over all successful Detect calls.
type Stats struct {
	Inferences int64         `json:"inferences"`
	Detections int64         `json:"detections"`
	Total      time.Duration `json:"total"`
	Last       time.Duration `json:"last"`
}

// Average returns the mean latency per inference.
func (s Stats) Average() time.Duration {
	if s.Inferences == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Inferences)
}

// FPS returns the sustained inference rate.
func (s Stats) FPS() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Inferences) / s.Total.Seconds()
}

// Detector owns an engine and serializes inference and post-processing on it.
//
// Output buffers are borrowed from the engine, so each call holds the lock until
// post-processing has copied everything it needs.
type Detector struct {
	mu     sync.Mutex
	engine inference.Engine
	model  model.Model
	input  tensor.Descriptor
	descs  []tensor.Descriptor
	labels []string
	log    logrus.FieldLogger
	stats  Stats
}

// New queries the engine tensors and builds the model for them.
//
// Arguments:
//   - engine: The engine to run. The detector closes it on Close.
//   - opts: The detector options.
//
// Returns:
//   - *Detector: The detector.
//   - error: If the engine cannot be queried, the outputs do not form three branches, or the
//     model options are invalid.
func New(engine inference.Engine, opts Options) (*Detector, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	nIn, _, err := engine.IOCounts()
	if err != nil {
		return nil, fmt.Errorf("query engine: %w", err)
	}
	if nIn < 1 {
		return nil, fmt.Errorf("engine has no inputs")
	}
	input, err := engine.TensorAttr(inference.TensorKindInput, 0)
	if err != nil {
		return nil, fmt.Errorf("query input: %w", err)
	}
	descs, err := inference.OutputDescriptors(engine)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	if _, err := postprocess.Branches(len(descs)); err != nil {
		return nil, err
	}

	args := opts.Model
	if args.InputHeight == 0 {
		args.InputHeight = InputHeight(input)
	}
	if args.InputHeight == 0 {
		return nil, fmt.Errorf("cannot derive input height from %s", input)
	}
	m, err := models.NewModel(args)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		engine: engine,
		model:  m,
		input:  input,
		descs:  descs,
		labels: opts.Labels,
		log:    log.WithField("model", m.Options().Name),
	}

	attrs := d.log.WithFields(logrus.Fields{
		"input":        input.String(),
		"outputs":      len(descs),
		"input_height": args.InputHeight,
	})
	for _, desc := range descs {
		attrs.Debug(desc.String())
	}
	attrs.Info("detector ready")
	return d, nil
}

// InputHeight returns the image height of an input tensor laid out as NHWC, or NCHW when the
// second dimension looks like a channel count. It returns 0 for other ranks.
func InputHeight(desc tensor.Descriptor) uint32 {
	if len(desc.Dims) != 4 {
		return 0
	}
	if c := desc.Dims[1]; c == 1 || c == 3 {
		return desc.Dims[2]
	}
	return desc.Dims[1]
}

// Detect runs one inference on input and returns the labelled detections.
//
// Arguments:
//   - ctx: Checked before the engine is touched and passed on to the engine run.
//   - input: The raw input tensor bytes.
//
// Returns:
//   - *Result: The detections in descending confidence order and the elapsed time.
//   - error: Any engine or post-processing error. No partial result is returned.
func (d *Detector) Detect(ctx context.Context, input []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	if err := d.engine.SetInput(input); err != nil {
		return nil, fmt.Errorf("set input: %w", err)
	}
	if err := d.engine.Run(ctx); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	bufs, err := d.engine.Outputs()
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	raw, err := d.model.PostProcess(d.descs, bufs)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	res := &Result{Detections: make([]Detection, len(raw)), Elapsed: elapsed}
	for i, det := range raw {
		res.Detections[i] = Detection{Detection: det, Label: d.label(det.ClassID)}
	}

	d.stats.Inferences++
	d.stats.Detections += int64(len(raw))
	d.stats.Total += elapsed
	d.stats.Last = elapsed

	d.log.WithFields(logrus.Fields{
		"detections": len(raw),
		"elapsed":    elapsed,
	}).Debug("inference complete")
	return res, nil
}

func (d *Detector) label(classID int) string {
	if len(d.labels) > 0 {
		if classID >= 0 && classID < len(d.labels) {
			return d.labels[classID]
		}
		return ""
	}
	return models.LookupName(d.model.Options().Family, classID)
}

// Model returns the model the detector post-processes with.
func (d *Detector) Model() model.Model {
	return d.model
}

// Outputs returns the output descriptors queried at construction.
func (d *Detector) Outputs() []tensor.Descriptor {
	return append([]tensor.Descriptor(nil), d.descs...)
}

// Stats returns a snapshot of the accumulated statistics.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// ResetStats clears all counters.
func (d *Detector) ResetStats() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = Stats{}
}

// Close releases the engine.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Close()
}
