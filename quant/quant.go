// Package quant - Affine int8 quantization used by NPU output tensors.
package quant

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ErrUnsupportedQuantType is returned when a tensor declares a quantization kind that is not
// one of the recognized kinds.
var ErrUnsupportedQuantType = errors.New("unsupported quantization type")

const (
	// MinInt8 is the lowest value of the quantized domain.
	MinInt8 = -128
	// MaxInt8 is the highest value of the quantized domain.
	MaxInt8 = 127
)

// Kind identifies how a tensor maps its integer values to real values.
type Kind int

const (
	// KindNone means the tensor values are used as-is (zero point 0, scale 1).
	KindNone Kind = iota
	// KindSymmetricDFP is dynamic fixed point: value = q * 2^-fl.
	KindSymmetricDFP
	// KindAffineAsymmetric is value = (q - zp) * scale.
	KindAffineAsymmetric
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSymmetricDFP:
		return "dfp"
	case KindAffineAsymmetric:
		return "affine"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindNone, KindSymmetricDFP, KindAffineAsymmetric:
		return []byte(k.String()), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedQuantType, "kind %d", int(k))
	}
}

// UnmarshalText decodes a kind name accepted by ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind parses the configuration name of a kind ("none", "dfp", "affine").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return KindNone, nil
	case "dfp", "symmetric_dfp":
		return KindSymmetricDFP, nil
	case "affine", "affine_asymmetric":
		return KindAffineAsymmetric, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedQuantType, "kind %q", s)
	}
}

// Params is the zero point / scale pair of one tensor.
type Params struct {
	ZeroPoint int32
	Scale     float32
}

// ParamsFor resolves the affine parameters for a tensor of the given kind.
//
// Arguments:
//   - kind: The quantization kind declared by the tensor.
//   - zp: The declared zero point (affine only).
//   - scale: The declared scale (affine only).
//   - fl: The fractional length (dynamic fixed point only).
//
// Returns:
//   - Params: The affine pair every comparison for this tensor must use.
//   - error: ErrUnsupportedQuantType for an unrecognized kind.
func ParamsFor(kind Kind, zp int32, scale float32, fl int8) (Params, error) {
	switch kind {
	case KindNone:
		return Params{ZeroPoint: 0, Scale: 1}, nil
	case KindSymmetricDFP:
		return Params{ZeroPoint: 0, Scale: math32.Pow(2, -float32(fl))}, nil
	case KindAffineAsymmetric:
		return Params{ZeroPoint: zp, Scale: scale}, nil
	default:
		return Params{}, errors.Wrapf(ErrUnsupportedQuantType, "kind %d", int(kind))
	}
}

// Quantize maps v into this tensor's int8 domain.
func (p Params) Quantize(v float32) int8 {
	return Quantize(v, p.ZeroPoint, p.Scale)
}

// Dequantize maps q back to a real value.
func (p Params) Dequantize(q int8) float32 {
	return Dequantize(q, p.ZeroPoint, p.Scale)
}

// Quantize computes v/scale + zp, clips it to [-128, 127] and truncates toward zero.
// NaN maps to the clipped zero point.
func Quantize(v float32, zp int32, scale float32) int8 {
	dst := v/scale + float32(zp)
	if math32.IsNaN(dst) {
		dst = float32(zp)
	}
	return int8(Clip(dst))
}

// Dequantize computes (q - zp) * scale.
func Dequantize(q int8, zp int32, scale float32) float32 {
	return (float32(q) - float32(zp)) * scale
}

// Clip clamps v to the int8 domain.
func Clip(v float32) float32 {
	return math32.Min(math32.Max(v, MinInt8), MaxInt8)
}

// ClampZeroPoint narrows a zero point to int8, saturating at the domain bounds.
func ClampZeroPoint(zp int32) int8 {
	switch {
	case zp < MinInt8:
		return MinInt8
	case zp > MaxInt8:
		return MaxInt8
	default:
		return int8(zp)
	}
}
