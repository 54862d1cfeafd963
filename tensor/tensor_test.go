package tensor

import (
	"testing"

	"github.com/nvr-ai/go-rknn/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gtensor "gorgonia.org/tensor"
)

func sequence(n int) []int8 {
	data := make([]int8, n)
	for i := range data {
		data[i] = int8(i)
	}
	return data
}

func TestView_RowMajorOffsets(t *testing.T) {
	view, err := NewView(Buffer{Data: sequence(2 * 3 * 2 * 2)}, []uint32{2, 3, 2, 2})
	require.NoError(t, err)

	tests := []struct {
		n, c, h, w int
		expected   int8
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 1, 1},
		{0, 0, 1, 0, 2},
		{0, 1, 0, 0, 4},
		{0, 2, 1, 1, 11},
		{1, 0, 0, 0, 12},
		{1, 2, 1, 1, 23},
	}
	for _, tt := range tests {
		got, err := view.At(tt.n, tt.c, tt.h, tt.w)
		require.NoError(t, err)
		assert.Equalf(t, tt.expected, got, "At(%d,%d,%d,%d)", tt.n, tt.c, tt.h, tt.w)
	}
}

func TestView_PadsLeadingDims(t *testing.T) {
	view, err := NewView(Buffer{Data: sequence(6)}, []uint32{2, 3})
	require.NoError(t, err)
	assert.Equal(t, [MaxDims]int{1, 1, 2, 3}, view.Dims())

	got, err := view.At(0, 0, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int8(5), got)
}

func TestView_OutOfRange(t *testing.T) {
	view, err := NewView(Buffer{Data: sequence(8)}, []uint32{1, 2, 2, 2})
	require.NoError(t, err)

	for _, coords := range [][4]int{
		{1, 0, 0, 0},
		{0, 2, 0, 0},
		{0, 0, 2, 0},
		{0, 0, 0, 2},
		{-1, 0, 0, 0},
		{0, 0, 0, -1},
	} {
		_, err := view.At(coords[0], coords[1], coords[2], coords[3])
		assert.ErrorIsf(t, err, ErrIndexOutOfRange, "coords %v", coords)
	}
}

func TestView_ShortBuffer(t *testing.T) {
	// Dims claim 8 elements but the engine only handed back 5.
	_, err := NewView(Buffer{Data: sequence(5)}, []uint32{1, 2, 2, 2})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// A longer buffer is fine; the tail is never read.
	view, err := NewView(Buffer{Data: sequence(10)}, []uint32{1, 2, 2, 2})
	require.NoError(t, err)
	got, err := view.At(0, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int8(7), got)
}

func TestView_OverflowingDims(t *testing.T) {
	tests := []struct {
		name string
		dims []uint32
	}{
		{name: "product wraps", dims: []uint32{1, 2, 0xFFFFFFFF, 0xFFFFFFFF}},
		{name: "all max", dims: []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}},
		{name: "larger than buffer", dims: []uint32{1, 1, 0xFFFFFFFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var view *View
			var err error
			assert.NotPanics(t, func() {
				view, err = NewView(Buffer{Data: sequence(16)}, tt.dims)
			})
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
			assert.Nil(t, view)
		})
	}

	// A zero dim anywhere makes the product zero, even next to huge dims.
	view, err := NewView(Buffer{}, []uint32{1, 0, 0x7FFFFFFF, 0x7FFFFFFF})
	require.NoError(t, err)
	_, err = view.At(0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestView_TooManyDims(t *testing.T) {
	_, err := NewView(Buffer{Data: sequence(4)}, []uint32{1, 1, 1, 2, 2})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestView_DoesNotCopy(t *testing.T) {
	data := sequence(4)
	view, err := NewView(Buffer{Data: data}, []uint32{1, 1, 2, 2})
	require.NoError(t, err)

	data[3] = 99
	got, err := view.At(0, 0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int8(99), got)
}

func TestDescriptor(t *testing.T) {
	d := Descriptor{
		Index:     2,
		Dims:      []uint32{1, 80, 20, 20},
		ZeroPoint: -128,
		Scale:     0.0039,
		QuantKind: quant.KindAffineAsymmetric,
	}
	assert.Equal(t, 80, d.Dim(1))
	assert.Equal(t, 20, d.Dim(3))
	assert.Equal(t, 80*20*20, d.ElementCount())
	assert.Contains(t, d.String(), "affine")

	p, err := d.QuantParams()
	require.NoError(t, err)
	assert.Equal(t, quant.Params{ZeroPoint: -128, Scale: 0.0039}, p)

	d.QuantKind = quant.Kind(9)
	_, err = d.QuantParams()
	assert.ErrorIs(t, err, quant.ErrUnsupportedQuantType)
}

func TestFromDense(t *testing.T) {
	backing := sequence(1 * 2 * 3 * 3)
	dense := gtensor.New(gtensor.WithShape(1, 2, 3, 3), gtensor.WithBacking(backing))

	buf, desc, err := FromDense(dense, Descriptor{Index: 4, ZeroPoint: 3, Scale: 0.5, QuantKind: quant.KindAffineAsymmetric})
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Index)
	assert.Equal(t, []uint32{1, 2, 3, 3}, desc.Dims)
	assert.Equal(t, int32(3), desc.ZeroPoint)

	view, err := NewView(buf, desc.Dims)
	require.NoError(t, err)
	got, err := view.At(0, 1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int8(16), got)

	// The buffer aliases the dense backing.
	backing[16] = -7
	got, err = view.At(0, 1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int8(-7), got)
}

func TestFromDense_Rejects(t *testing.T) {
	_, _, err := FromDense(nil, Descriptor{})
	assert.Error(t, err)

	floats := gtensor.New(gtensor.WithShape(2, 2), gtensor.WithBacking([]float32{1, 2, 3, 4}))
	_, _, err = FromDense(floats, Descriptor{})
	assert.Error(t, err)

	wide := gtensor.New(gtensor.WithShape(1, 1, 1, 2, 2), gtensor.WithBacking(sequence(4)))
	_, _, err = FromDense(wide, Descriptor{})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
