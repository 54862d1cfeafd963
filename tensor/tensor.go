// Package tensor - Output tensor metadata and bounds-checked int8 views over engine buffers.
package tensor

import (
	"fmt"
	"math"

	"github.com/nvr-ai/go-rknn/quant"
	"github.com/pkg/errors"
)

// MaxDims is the highest rank a view supports (N, C, H, W).
const MaxDims = 4

// ErrIndexOutOfRange is returned when a coordinate or computed offset falls outside a tensor.
var ErrIndexOutOfRange = errors.New("tensor index out of range")

// Descriptor is the metadata an inference engine reports for one tensor.
//
// It is produced once per model and never modified afterwards.
type Descriptor struct {
	// Index is the position of the tensor in the engine's input or output list.
	Index int `json:"index" yaml:"index"`
	// Name is the tensor name reported by the model, if any.
	Name string `json:"name" yaml:"name"`
	// Dims is the shape in N, C, H, W order (up to 4 entries).
	Dims []uint32 `json:"dims" yaml:"dims"`
	// ZeroPoint is the affine zero point.
	ZeroPoint int32 `json:"zero_point" yaml:"zero_point"`
	// Scale is the affine scale.
	Scale float32 `json:"scale" yaml:"scale"`
	// FractionalLength is the dynamic fixed point exponent.
	FractionalLength int8 `json:"fl" yaml:"fl"`
	// QuantKind is how integer values map to real values.
	QuantKind quant.Kind `json:"quant_kind" yaml:"quant_kind"`
}

// QuantParams resolves the zero point / scale pair all comparisons against this tensor use.
func (d Descriptor) QuantParams() (quant.Params, error) {
	p, err := quant.ParamsFor(d.QuantKind, d.ZeroPoint, d.Scale, d.FractionalLength)
	if err != nil {
		return quant.Params{}, errors.Wrapf(err, "tensor %d", d.Index)
	}
	return p, nil
}

// Dim returns dimension i of the descriptor padded to 4 dims (missing leading dims are 1).
func (d Descriptor) Dim(i int) int {
	return padDims(d.Dims)[i]
}

// ElementCount returns the number of elements described by Dims.
func (d Descriptor) ElementCount() int {
	n := 1
	for _, v := range d.Dims {
		n *= int(v)
	}
	return n
}

func (d Descriptor) String() string {
	return fmt.Sprintf("tensor %d %q dims=%v kind=%s zp=%d scale=%g",
		d.Index, d.Name, d.Dims, d.QuantKind, d.ZeroPoint, d.Scale)
}

// Buffer is a raw int8 output region owned by the engine.
//
// The slice is borrowed for a single inference call; the engine may overwrite it on the next
// run, so it must not be kept past the call that returned it.
type Buffer struct {
	Index int
	Data  []int8
}

// View is a read-only row-major accessor over a Buffer.
type View struct {
	data []int8
	dims [MaxDims]int
}

// NewView wraps buf with the given shape. Missing leading dims are treated as size 1.
//
// Arguments:
//   - buf: The engine buffer. It is not copied.
//   - dims: The shape in N, C, H, W order, at most 4 entries.
//
// Returns:
//   - *View: The accessor.
//   - error: ErrIndexOutOfRange when dims has more than 4 entries, or describes more elements
//     than buf holds or an int can count.
func NewView(buf Buffer, dims []uint32) (*View, error) {
	if len(dims) > MaxDims {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "tensor %d has %d dims, at most %d supported",
			buf.Index, len(dims), MaxDims)
	}
	n, ok := checkedCount(dims)
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "tensor %d dims %v overflow", buf.Index, dims)
	}
	if n > len(buf.Data) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "tensor %d dims %v need %d elements, buffer has %d",
			buf.Index, dims, n, len(buf.Data))
	}
	return &View{data: buf.Data, dims: padDims(dims)}, nil
}

// checkedCount multiplies dims, reporting false if the product does not fit in an int.
func checkedCount(dims []uint32) (int, bool) {
	n := 1
	for _, d := range dims {
		if uint64(d) > math.MaxInt {
			return 0, false
		}
		v := int(d)
		if v != 0 && n > math.MaxInt/v {
			return 0, false
		}
		n *= v
	}
	return n, true
}

// Dims returns the padded N, C, H, W shape.
func (v *View) Dims() [MaxDims]int {
	return v.dims
}

// Len returns the number of elements in the underlying buffer.
func (v *View) Len() int {
	return len(v.data)
}

// At returns the element at (n, c, h, w).
func (v *View) At(n, c, h, w int) (int8, error) {
	coords := [MaxDims]int{n, c, h, w}
	for i, x := range coords {
		if x < 0 || x >= v.dims[i] {
			return 0, errors.Wrapf(ErrIndexOutOfRange, "coordinate %v exceeds dims %v", coords, v.dims)
		}
	}
	off := ((n*v.dims[1]+c)*v.dims[2]+h)*v.dims[3] + w
	if off < 0 || off >= len(v.data) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "offset %d exceeds buffer length %d", off, len(v.data))
	}
	return v.data[off], nil
}

func padDims(dims []uint32) [MaxDims]int {
	out := [MaxDims]int{1, 1, 1, 1}
	if len(dims) > MaxDims {
		dims = dims[len(dims)-MaxDims:]
	}
	lead := MaxDims - len(dims)
	for i, d := range dims {
		out[lead+i] = int(d)
	}
	return out
}
