package postprocess

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-rknn/images"
	"github.com/nvr-ai/go-rknn/quant"
	"github.com/nvr-ai/go-rknn/tensor"
	"github.com/pkg/errors"
)

const (
	// BranchCount is the number of detection heads (large, medium and small stride).
	BranchCount = 3
	// MinTensorsPerBranch is box + score + score sum.
	MinTensorsPerBranch = 3
	// boxCoords is the number of regression values per cell (left, top, right, bottom).
	boxCoords = 4
)

// Branch holds the output indices of one detection head.
type Branch struct {
	Index    int
	Box      int
	Score    int
	ScoreSum int
}

// Branches groups outputCount outputs into the three detection heads.
//
// Arguments:
//   - outputCount: The number of output tensors reported by the engine.
//
// Returns:
//   - [BranchCount]Branch: The tensor indices of each head.
//   - error: ErrInvalidOutputCount if the outputs do not form three groups of at least three.
func Branches(outputCount int) ([BranchCount]Branch, error) {
	var branches [BranchCount]Branch
	if outputCount%BranchCount != 0 || outputCount/BranchCount < MinTensorsPerBranch {
		return branches, errors.Wrapf(ErrInvalidOutputCount, "%d outputs", outputCount)
	}

	perBranch := outputCount / BranchCount
	for b := range branches {
		box := b * perBranch
		branches[b] = Branch{Index: b, Box: box, Score: box + 1, ScoreSum: box + 2}
	}
	return branches, nil
}

// branchTensors are the views and quantization domains of one head.
type branchTensors struct {
	box, score, scoreSum                   *tensor.View
	boxParams, scoreParams, scoreSumParams quant.Params
}

func openTensor(descs []tensor.Descriptor, bufs []tensor.Buffer, idx int) (*tensor.View, quant.Params, error) {
	params, err := descs[idx].QuantParams()
	if err != nil {
		return nil, quant.Params{}, err
	}
	view, err := tensor.NewView(bufs[idx], descs[idx].Dims)
	if err != nil {
		return nil, quant.Params{}, err
	}
	return view, params, nil
}

func openBranch(b Branch, descs []tensor.Descriptor, bufs []tensor.Buffer) (*branchTensors, error) {
	if b.ScoreSum >= len(descs) || b.ScoreSum >= len(bufs) {
		return nil, errors.Wrapf(ErrInvalidOutputCount, "branch %d needs output %d, have %d descriptors and %d buffers",
			b.Index, b.ScoreSum, len(descs), len(bufs))
	}

	var (
		t   branchTensors
		err error
	)
	if t.box, t.boxParams, err = openTensor(descs, bufs, b.Box); err != nil {
		return nil, errors.Wrapf(err, "branch %d box", b.Index)
	}
	if t.score, t.scoreParams, err = openTensor(descs, bufs, b.Score); err != nil {
		return nil, errors.Wrapf(err, "branch %d score", b.Index)
	}
	if t.scoreSum, t.scoreSumParams, err = openTensor(descs, bufs, b.ScoreSum); err != nil {
		return nil, errors.Wrapf(err, "branch %d score sum", b.Index)
	}
	return &t, nil
}

// DecodeBranch walks the anchor grid of one head and appends every cell that passes both
// confidence filters to dst.
//
// A cell is dropped early when its score-sum value is below the threshold quantized into the
// score-sum domain. Otherwise the class with the highest score above the threshold (quantized
// into the score domain) wins, and its box is decoded from the four box channels:
//
//	x1 = (-b0 + j + 0.5) * stride    y1 = (-b1 + i + 0.5) * stride
//	x2 = ( b2 + j + 0.5) * stride    y2 = ( b3 + i + 0.5) * stride
//
// Arguments:
//   - dst: Detections decoded so far; the result is appended to it.
//   - b: The head to decode.
//   - descs: Output descriptors, indexed like bufs.
//   - bufs: Output buffers borrowed from the engine.
//   - inputHeight: Height of the model input in pixels.
//   - confThreshold: Minimum class confidence.
//
// Returns:
//   - []Detection: dst with this head's detections appended, in row-major cell order.
//   - error: ErrUnsupportedDflLength, ErrInvalidGrid, ErrUnsupportedQuantType or
//     ErrIndexOutOfRange.
func DecodeBranch(
	dst []Detection,
	b Branch,
	descs []tensor.Descriptor,
	bufs []tensor.Buffer,
	inputHeight uint32,
	confThreshold float32,
) ([]Detection, error) {
	t, err := openBranch(b, descs, bufs)
	if err != nil {
		return dst, err
	}

	boxDims := t.box.Dims()
	if boxDims[1]%boxCoords != 0 || boxDims[1]/boxCoords != 1 {
		return dst, errors.Wrapf(ErrUnsupportedDflLength, "branch %d box tensor has %d channels",
			b.Index, boxDims[1])
	}

	gridH, gridW := boxDims[2], boxDims[3]
	if gridH == 0 {
		return dst, errors.Wrapf(ErrInvalidGrid, "branch %d grid height is zero", b.Index)
	}
	stride := int(inputHeight) / gridH
	if stride == 0 {
		return dst, errors.Wrapf(ErrInvalidGrid, "branch %d input height %d smaller than grid height %d",
			b.Index, inputHeight, gridH)
	}
	classCount := t.score.Dims()[1]

	scoreSumThreshold := t.scoreSumParams.Quantize(confThreshold)
	scoreThreshold := t.scoreParams.Quantize(confThreshold)
	scoreFloor := quant.ClampZeroPoint(t.scoreParams.ZeroPoint)
	s := float32(stride)

	for i := 0; i < gridH; i++ {
		for j := 0; j < gridW; j++ {
			sum, err := t.scoreSum.At(0, 0, i, j)
			if err != nil {
				return dst, errors.Wrapf(err, "branch %d score sum", b.Index)
			}
			if sum < scoreSumThreshold {
				continue
			}

			maxScore, maxClass := scoreFloor, -1
			for c := 0; c < classCount; c++ {
				v, err := t.score.At(0, c, i, j)
				if err != nil {
					return dst, errors.Wrapf(err, "branch %d score", b.Index)
				}
				if v > scoreThreshold && v > maxScore {
					maxScore, maxClass = v, c
				}
			}
			if maxClass < 0 {
				continue
			}

			var box [boxCoords]float32
			for k := range box {
				q, err := t.box.At(0, k, i, j)
				if err != nil {
					return dst, errors.Wrapf(err, "branch %d box", b.Index)
				}
				box[k] = t.boxParams.Dequantize(q)
			}

			x1 := (-box[0] + float32(j) + 0.5) * s
			y1 := (-box[1] + float32(i) + 0.5) * s
			x2 := (box[2] + float32(j) + 0.5) * s
			y2 := (box[3] + float32(i) + 0.5) * s

			dst = append(dst, Detection{
				ClassID:    maxClass,
				Confidence: t.scoreParams.Dequantize(maxScore),
				Box: images.Rect{
					X:      toPixel(x1),
					Y:      toPixel(y1),
					Width:  toPixel(x2 - x1),
					Height: toPixel(y2 - y1),
				},
			})
		}
	}

	return dst, nil
}

// toPixel truncates toward zero to a non-negative pixel count, saturating at both ends.
func toPixel(v float32) int {
	switch {
	case math32.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(v)
	}
}
