package tensor

import (
	"github.com/pkg/errors"
	gtensor "gorgonia.org/tensor"
)

// FromDense exposes an int8 gorgonia tensor as an engine Buffer and Descriptor without copying.
//
// The quantization fields of meta are kept; its Dims are replaced by the dense shape.
//
// Arguments:
//   - d: A row-major int8 tensor of at most 4 dims.
//   - meta: Quantization metadata for the tensor.
//
// Returns:
//   - Buffer: A buffer aliasing the dense backing slice.
//   - Descriptor: meta with Dims taken from the dense shape.
//   - error: If the tensor is not int8, has too many dims, or is not contiguous.
func FromDense(d *gtensor.Dense, meta Descriptor) (Buffer, Descriptor, error) {
	if d == nil {
		return Buffer{}, Descriptor{}, errors.New("dense tensor is nil")
	}
	if d.Dtype() != gtensor.Int8 {
		return Buffer{}, Descriptor{}, errors.Errorf("dense tensor has dtype %v, want int8", d.Dtype())
	}

	shape := d.Shape()
	if len(shape) == 0 || len(shape) > MaxDims {
		return Buffer{}, Descriptor{}, errors.Wrapf(ErrIndexOutOfRange, "dense tensor has %d dims", len(shape))
	}

	// Strides of size-1 dims carry no information, so only the others are compared.
	strides := d.Strides()
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] > 1 && (i >= len(strides) || strides[i] != acc) {
			return Buffer{}, Descriptor{}, errors.Errorf("dense tensor strides %v are not row-major for shape %v",
				strides, shape)
		}
		acc *= shape[i]
	}

	data, ok := d.Data().([]int8)
	if !ok {
		return Buffer{}, Descriptor{}, errors.New("dense tensor backing is not []int8")
	}
	if len(data) < acc {
		return Buffer{}, Descriptor{}, errors.Wrapf(ErrIndexOutOfRange, "dense backing has %d elements, shape %v needs %d",
			len(data), shape, acc)
	}

	meta.Dims = make([]uint32, len(shape))
	for i, s := range shape {
		meta.Dims[i] = uint32(s)
	}
	return Buffer{Index: meta.Index, Data: data}, meta, nil
}
