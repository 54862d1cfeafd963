package inference

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nvr-ai/go-rknn/quant"
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatic(t *testing.T) *StaticEngine {
	t.Helper()
	inputs := []tensor.Descriptor{{Index: 0, Name: "images", Dims: []uint32{1, 2, 2, 3}}}
	outputs := []tensor.Descriptor{
		{Index: 0, Dims: []uint32{1, 4, 1, 1}, Scale: 1, QuantKind: quant.KindAffineAsymmetric},
		{Index: 1, Dims: []uint32{1, 1, 1, 1}, Scale: 1, QuantKind: quant.KindAffineAsymmetric},
	}
	bufs := []tensor.Buffer{{Index: 0, Data: []int8{1, 2, 3, 4}}, {Index: 1, Data: []int8{5}}}
	e, err := NewStaticEngine(inputs, outputs, bufs)
	require.NoError(t, err)
	return e
}

func TestStaticEngine(t *testing.T) {
	e := newStatic(t)
	var _ Engine = e

	nIn, nOut, err := e.IOCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, nIn)
	assert.Equal(t, 2, nOut)

	in, err := e.TensorAttr(TensorKindInput, 0)
	require.NoError(t, err)
	assert.Equal(t, "images", in.Name)

	_, err = e.TensorAttr(TensorKindOutput, 2)
	assert.ErrorIs(t, err, ErrNoSuchTensor)
	_, err = e.TensorAttr(TensorKindInput, -1)
	assert.ErrorIs(t, err, ErrNoSuchTensor)
	_, err = e.TensorAttr(TensorKind(9), 0)
	assert.ErrorIs(t, err, ErrNoSuchTensor)

	assert.Error(t, e.SetInput([]byte{1, 2, 3}))
	input := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	require.NoError(t, e.SetInput(input))
	input[0] = 99
	assert.Equal(t, byte(1), e.LastInput()[0])

	require.NoError(t, e.Run(context.Background()))
	bufs, err := e.Outputs()
	require.NoError(t, err)
	require.Len(t, bufs, 2)
	assert.Equal(t, []int8{1, 2, 3, 4}, bufs[0].Data)
	assert.Equal(t, 1, e.Runs())

	descs, err := OutputDescriptors(e)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, 1, descs[1].Index)
}

func TestStaticEngine_Cancelled(t *testing.T) {
	e := newStatic(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.Equal(t, 0, e.Runs())
}

func TestStaticEngine_Closed(t *testing.T) {
	e := newStatic(t)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, _, err := e.IOCounts()
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.TensorAttr(TensorKindOutput, 0)
	assert.ErrorIs(t, err, ErrEngineClosed)
	assert.ErrorIs(t, e.SetInput(nil), ErrEngineClosed)
	assert.ErrorIs(t, e.Run(context.Background()), ErrEngineClosed)
	_, err = e.Outputs()
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = OutputDescriptors(e)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestNewStaticEngine_Mismatch(t *testing.T) {
	_, err := NewStaticEngine(nil, []tensor.Descriptor{{Index: 0}}, nil)
	assert.Error(t, err)
}

func TestNewONNXEngine_Validation(t *testing.T) {
	_, err := NewONNXEngine(ONNXConfig{}, nil)
	assert.ErrorContains(t, err, "model path is required")

	_, err = NewONNXEngine(ONNXConfig{
		ModelPath: "yolov6n.onnx",
		Outputs:   []OutputQuant{{Kind: quant.Kind(42)}},
	}, nil)
	assert.ErrorIs(t, err, quant.ErrUnsupportedQuantType)

	_, err = NewONNXEngine(ONNXConfig{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")}, nil)
	assert.Error(t, err)
}

func TestGetSharedLibPath(t *testing.T) {
	path, err := GetSharedLibPath()
	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		if runtime.GOOS == "linux" && runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64" && runtime.GOARCH != "arm" {
			assert.Error(t, err)
			return
		}
		require.NoError(t, err)
		assert.NotEmpty(t, path)
		return
	}
	assert.Error(t, err)
}

func TestParseEngineType(t *testing.T) {
	e, err := ParseEngineType("onnx")
	require.NoError(t, err)
	assert.Equal(t, EngineONNX, e)

	_, err = ParseEngineType("openvino")
	assert.Error(t, err)
	assert.Equal(t, "output", TensorKindOutput.String())
}

func TestCapture(t *testing.T) {
	src := newStatic(t)
	require.NoError(t, src.Run(context.Background()))

	c, err := Record(src)
	require.NoError(t, err)
	require.Len(t, c.Buffers, 2)

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	assert.Contains(t, buf.String(), "quant_kind: affine")

	decoded, err := ReadCapture(&buf)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	replay, err := decoded.Engine()
	require.NoError(t, err)
	bufs, err := replay.Outputs()
	require.NoError(t, err)
	assert.Equal(t, []int8{1, 2, 3, 4}, bufs[0].Data)

	_, err = ReadCapture(strings.NewReader("outputs: {"))
	assert.Error(t, err)
}
