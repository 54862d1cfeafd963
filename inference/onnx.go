package inference

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nvr-ai/go-rknn/quant"
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// OutputQuant carries the quantization parameters of one model output.
//
// onnxruntime reports element types and shapes but not quantization metadata, so the values
// exported alongside the model are supplied here.
type OutputQuant struct {
	ZeroPoint        int32      `json:"zero_point" yaml:"zero_point"`
	Scale            float32    `json:"scale" yaml:"scale"`
	FractionalLength int8       `json:"fl" yaml:"fl"`
	Kind             quant.Kind `json:"kind" yaml:"kind"`
}

// ONNXConfig configures an ONNXEngine.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx file.
	ModelPath string
	// SharedLibraryPath overrides the onnxruntime library location.
	SharedLibraryPath string
	// IntraOpThreads limits the threads used inside one operator. Zero keeps the runtime default.
	IntraOpThreads int
	// Outputs holds one entry per model output, in output order.
	Outputs []OutputQuant
}

// ONNXEngine runs a quantized detector through onnxruntime.
//
// Tensors are allocated once at construction; SetInput copies into the input tensor and
// Outputs returns slices aliasing the output tensors.
type ONNXEngine struct {
	mu      sync.Mutex
	log     logrus.FieldLogger
	session *ort.AdvancedSession
	inputU8 *ort.Tensor[uint8]
	inputI8 *ort.Tensor[int8]
	outputs []*ort.Tensor[int8]
	inDesc  []tensor.Descriptor
	outDesc []tensor.Descriptor
	closed  bool
}

// NewONNXEngine loads cfg.ModelPath and binds tensors for its single uint8 or int8 input and
// its int8 outputs.
//
// Arguments:
//   - cfg: The engine configuration.
//   - log: Logger for lifecycle and timing messages. Nil uses the logrus standard logger.
//
// Returns:
//   - *ONNXEngine: The engine.
//   - error: If the runtime cannot be initialised or the model does not have the expected
//     input and output types.
func NewONNXEngine(cfg ONNXConfig, log logrus.FieldLogger) (*ONNXEngine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx engine: model path is required")
	}
	for i, o := range cfg.Outputs {
		if _, err := quant.ParamsFor(o.Kind, o.ZeroPoint, o.Scale, o.FractionalLength); err != nil {
			return nil, fmt.Errorf("onnx engine: output %d: %w", i, err)
		}
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx engine: %w", err)
	}

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model io info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx engine: model has %d inputs, want 1", len(inputs))
	}
	if len(cfg.Outputs) != len(outputs) {
		return nil, fmt.Errorf("onnx engine: %d quantization entries for %d outputs", len(cfg.Outputs), len(outputs))
	}

	e := &ONNXEngine{log: log.WithField("model", cfg.ModelPath)}
	if err := e.bind(inputs[0], outputs, cfg.Outputs); err != nil {
		e.destroy()
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			e.destroy()
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
	}

	inValues := []ort.Value{e.inputValue()}
	outValues := make([]ort.Value, len(e.outputs))
	outNames := make([]string, len(outputs))
	for i, t := range e.outputs {
		outValues[i] = t
		outNames[i] = outputs[i].Name
	}

	e.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		outNames,
		inValues,
		outValues,
		options,
	)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"input":   e.inDesc[0].String(),
		"outputs": len(e.outDesc),
	}).Info("onnx engine ready")
	return e, nil
}

func initEnvironment(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		var err error
		if libPath, err = GetSharedLibPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing ORT environment: %w", err)
	}
	return nil
}

func (e *ONNXEngine) bind(in ort.InputOutputInfo, outs []ort.InputOutputInfo, q []OutputQuant) error {
	inDims, err := staticDims(in)
	if err != nil {
		return err
	}
	shape := ort.NewShape(in.Dimensions...)
	switch in.DataType {
	case ort.TensorElementDataTypeUint8:
		e.inputU8, err = ort.NewEmptyTensor[uint8](shape)
	case ort.TensorElementDataTypeInt8:
		e.inputI8, err = ort.NewEmptyTensor[int8](shape)
	default:
		return fmt.Errorf("onnx engine: input %q has element type %v, want uint8 or int8", in.Name, in.DataType)
	}
	if err != nil {
		return fmt.Errorf("error creating input tensor: %w", err)
	}
	e.inDesc = []tensor.Descriptor{{Index: 0, Name: in.Name, Dims: inDims, Scale: 1, QuantKind: quant.KindNone}}

	for i, out := range outs {
		if out.DataType != ort.TensorElementDataTypeInt8 {
			return fmt.Errorf("onnx engine: output %q has element type %v, want int8", out.Name, out.DataType)
		}
		dims, err := staticDims(out)
		if err != nil {
			return err
		}
		t, err := ort.NewEmptyTensor[int8](ort.NewShape(out.Dimensions...))
		if err != nil {
			return fmt.Errorf("error creating output tensor %d: %w", i, err)
		}
		e.outputs = append(e.outputs, t)
		e.outDesc = append(e.outDesc, tensor.Descriptor{
			Index:            i,
			Name:             out.Name,
			Dims:             dims,
			ZeroPoint:        q[i].ZeroPoint,
			Scale:            q[i].Scale,
			FractionalLength: q[i].FractionalLength,
			QuantKind:        q[i].Kind,
		})
	}
	return nil
}

func staticDims(info ort.InputOutputInfo) ([]uint32, error) {
	dims := make([]uint32, len(info.Dimensions))
	for i, d := range info.Dimensions {
		if d <= 0 {
			return nil, fmt.Errorf("onnx engine: tensor %q has dynamic dimension %d", info.Name, i)
		}
		dims[i] = uint32(d)
	}
	return dims, nil
}

func (e *ONNXEngine) inputValue() ort.Value {
	if e.inputU8 != nil {
		return e.inputU8
	}
	return e.inputI8
}

// IOCounts returns the number of model inputs and outputs.
func (e *ONNXEngine) IOCounts() (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, 0, ErrEngineClosed
	}
	return len(e.inDesc), len(e.outDesc), nil
}

// TensorAttr describes one input or output tensor.
func (e *ONNXEngine) TensorAttr(kind TensorKind, index int) (tensor.Descriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tensor.Descriptor{}, ErrEngineClosed
	}
	descs := e.outDesc
	if kind == TensorKindInput {
		descs = e.inDesc
	}
	if index < 0 || index >= len(descs) {
		return tensor.Descriptor{}, fmt.Errorf("%w: %s %d", ErrNoSuchTensor, kind, index)
	}
	return descs[index], nil
}

// SetInput copies data into the input tensor. The length must match the input shape.
func (e *ONNXEngine) SetInput(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if want := e.inDesc[0].ElementCount(); len(data) != want {
		return fmt.Errorf("onnx engine: input has %d bytes, want %d", len(data), want)
	}
	if e.inputU8 != nil {
		copy(e.inputU8.GetData(), data)
		return nil
	}
	dst := e.inputI8.GetData()
	for i, b := range data {
		dst[i] = int8(b)
	}
	return nil
}

// Run executes the session.
func (e *ONNXEngine) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	start := time.Now()
	if err := e.session.Run(); err != nil {
		return fmt.Errorf("onnx engine: run: %w", err)
	}
	e.log.WithField("elapsed", time.Since(start)).Debug("onnx run")
	return nil
}

// Outputs returns buffers aliasing the output tensors.
func (e *ONNXEngine) Outputs() ([]tensor.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	bufs := make([]tensor.Buffer, len(e.outputs))
	for i, t := range e.outputs {
		bufs[i] = tensor.Buffer{Index: i, Data: t.GetData()}
	}
	return bufs, nil
}

// Close destroys the session and its tensors. The runtime environment stays initialised
// for other engines in the process.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.destroy()
	e.log.Info("onnx engine closed")
	return err
}

func (e *ONNXEngine) destroy() error {
	var err error
	if e.session != nil {
		if derr := e.session.Destroy(); derr != nil {
			err = fmt.Errorf("error destroying ORT session: %w", derr)
		}
		e.session = nil
	}
	if e.inputU8 != nil {
		e.inputU8.Destroy()
		e.inputU8 = nil
	}
	if e.inputI8 != nil {
		e.inputI8.Destroy()
		e.inputI8 = nil
	}
	for _, t := range e.outputs {
		t.Destroy()
	}
	e.outputs = nil
	return err
}
