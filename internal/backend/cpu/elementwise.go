package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/deepspeech/internal/tensor"
)

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
)

func (op binaryOp) String() string {
	switch op {
	case opAdd:
		return "add"
	case opSub:
		return "sub"
	case opMul:
		return "mul"
	default:
		return "div"
	}
}

func applyBinary[T tensor.Float](op binaryOp, x, y T) T {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	default:
		return x / y
	}
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opMul, a, b)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opDiv, a, b)
}

func (cpu *CPUBackend) binary(op binaryOp, a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	requireFloat(op.String(), a)

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	result := cpu.newResult(op.String(), outShape, a.DType())

	switch a.DType() {
	case tensor.Float32:
		binaryKernel(op, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape)
	case tensor.Float64:
		binaryKernel(op, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape)
	}
	return result
}

func binaryKernel[T tensor.Float](op binaryOp, dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	switch {
	case aShape.Equal(outShape) && bShape.Equal(outShape):
		for i := range dst {
			dst[i] = applyBinary(op, a[i], b[i])
		}
	case aShape.Equal(outShape) && isTrailingSuffix(bShape, outShape):
		// b repeats every len(b) elements, e.g. [..., F] op [F].
		n := len(b)
		for i := range dst {
			dst[i] = applyBinary(op, a[i], b[i%n])
		}
	default:
		broadcastKernel(op, dst, a, b, aShape, bShape, outShape)
	}
}

// broadcastKernel walks the output in row-major order, advancing the
// source offsets like an odometer so no per-element division is needed.
func broadcastKernel[T tensor.Float](op binaryOp, dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	nd := len(outShape)
	aStrides := tensor.BroadcastStrides(aShape, outShape)
	bStrides := tensor.BroadcastStrides(bShape, outShape)
	idx := make([]int, nd)

	aOff, bOff := 0, 0
	for i := range dst {
		dst[i] = applyBinary(op, a[aOff], b[bOff])

		for d := nd - 1; d >= 0; d-- {
			idx[d]++
			aOff += aStrides[d]
			bOff += bStrides[d]
			if idx[d] < outShape[d] {
				break
			}
			aOff -= aStrides[d] * outShape[d]
			bOff -= bStrides[d] * outShape[d]
			idx[d] = 0
		}
	}
}

// isTrailingSuffix reports whether s, ignoring leading ones, equals the
// trailing dimensions of out.
func isTrailingSuffix(s, out tensor.Shape) bool {
	for len(s) > 0 && s[0] == 1 {
		s = s[1:]
	}
	if len(s) == 0 || len(s) > len(out) {
		return false
	}
	return s.Equal(out[len(out)-len(s):])
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalar(opMul, x, scalar)
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalar(opAdd, x, scalar)
}

func (cpu *CPUBackend) scalar(op binaryOp, x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	name := op.String() + "_scalar"
	requireFloat(name, x)
	s := toFloat64(name, scalar)
	result := cpu.newResult(name, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		scalarKernel(op, result.AsFloat32(), x.AsFloat32(), float32(s))
	case tensor.Float64:
		scalarKernel(op, result.AsFloat64(), x.AsFloat64(), s)
	}
	return result
}

func scalarKernel[T tensor.Float](op binaryOp, dst, src []T, s T) {
	for i := range src {
		dst[i] = applyBinary(op, src[i], s)
	}
}

func toFloat64(op string, scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}

type unaryOp int

const (
	opRsqrt unaryOp = iota
	opSigmoid
	opTanh
	opGELU
)

func (op unaryOp) String() string {
	switch op {
	case opRsqrt:
		return "rsqrt"
	case opSigmoid:
		return "sigmoid"
	case opTanh:
		return "tanh"
	default:
		return "gelu"
	}
}

// Rsqrt computes 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(opRsqrt, x)
}

func (cpu *CPUBackend) unary(op unaryOp, x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat(op.String(), x)
	result := cpu.newResult(op.String(), x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		unaryKernel(op, result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		unaryKernel(op, result.AsFloat64(), x.AsFloat64())
	}
	return result
}

func unaryKernel[T tensor.Float](op unaryOp, dst, src []T) {
	for i, v := range src {
		x := float64(v)
		var y float64
		switch op {
		case opRsqrt:
			y = 1 / math.Sqrt(x)
		case opSigmoid:
			y = sigmoid(x)
		case opTanh:
			y = math.Tanh(x)
		default:
			y = 0.5 * x * (1 + math.Erf(x/math.Sqrt2))
		}
		dst[i] = T(y)
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
