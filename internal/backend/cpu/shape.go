package cpu

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// Reshape returns a view of t with a new shape. At most one dimension may
// be -1, in which case it is inferred from the element count.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape := inferShape(t.NumElements(), newShape)
	view, err := t.View(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

func inferShape(numElements int, shape tensor.Shape) tensor.Shape {
	inferred := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if inferred >= 0 {
				panic(fmt.Sprintf("reshape: only one dimension can be -1, got %v", shape))
			}
			inferred = i
			continue
		}
		known *= d
	}
	if inferred < 0 {
		return shape
	}
	if known <= 0 || numElements%known != 0 {
		panic(fmt.Sprintf("reshape: cannot infer dimension of %v for %d elements", shape, numElements))
	}
	out := shape.Clone()
	out[inferred] = numElements / known
	return out
}

// Transpose permutes dimensions. Empty axes reverses all dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	perm := validatePermutation(shape, axes)

	outShape := make(tensor.Shape, ndim)
	for i, ax := range perm {
		outShape[i] = shape[ax]
	}
	result := cpu.newResult("transpose", outShape, t.DType())

	inStrides := t.Strides()
	srcStrides := make([]int, ndim)
	for i, ax := range perm {
		srcStrides[i] = inStrides[ax]
	}

	switch t.DType().Size() {
	case 4:
		permute(words32(result), words32(t), outShape, srcStrides)
	case 8:
		permute(words64(result), words64(t), outShape, srcStrides)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

func validatePermutation(shape tensor.Shape, axes []int) []int {
	ndim := len(shape)
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}
	perm := make([]int, ndim)
	seen := make([]bool, ndim)
	for i, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v for rank %d", axes, ndim))
		}
		seen[ax] = true
		perm[i] = ax
	}
	return perm
}

// permute copies src into dst in dst's row-major order, reading src through
// the permuted strides.
func permute[E any](dst, src []E, outShape tensor.Shape, srcStrides []int) {
	nd := len(outShape)
	idx := make([]int, nd)
	off := 0
	for i := range dst {
		dst[i] = src[off]
		for d := nd - 1; d >= 0; d-- {
			idx[d]++
			off += srcStrides[d]
			if idx[d] < outShape[d] {
				break
			}
			off -= srcStrides[d] * outShape[d]
			idx[d] = 0
		}
	}
}

//nolint:gosec // reinterpreting the element buffer, length bounded by the byte size
func words32(r *tensor.RawTensor) []uint32 {
	data := r.Data()
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

//nolint:gosec // reinterpreting the element buffer, length bounded by the byte size
func words64(r *tensor.RawTensor) []uint64 {
	data := r.Data()
	return unsafe.Slice((*uint64)(unsafe.Pointer(&data[0])), len(data)/8)
}

// Narrow returns a copy of the slice [start, start+length) along dim.
func (cpu *CPUBackend) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := t.Shape()
	dim = shape.NormalizeDim(dim)
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d of size %d",
			start, start+length, dim, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := cpu.newResult("narrow", outShape, t.DType())

	outer, size, inner := splitAt(shape, dim)
	rowBytes := inner * t.DType().Size()
	src, dst := t.Data(), result.Data()
	chunk := length * rowBytes
	for o := 0; o < outer; o++ {
		from := (o*size + start) * rowBytes
		copy(dst[o*chunk:(o+1)*chunk], src[from:from+chunk])
	}
	return result
}

// Cat concatenates tensors along dim. All inputs must share dtype, rank and
// every dimension except dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	first := tensors[0]
	shape := first.Shape()
	dim = shape.NormalizeDim(dim)

	total := 0
	for i, t := range tensors {
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), first.DType()))
		}
		s := t.Shape()
		if len(s) != len(shape) {
			panic(fmt.Sprintf("cat: tensor %d has rank %d, expected %d", i, len(s), len(shape)))
		}
		for d := range s {
			if d != dim && s[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d has shape %v, incompatible with %v along dim %d", i, s, shape, d))
			}
		}
		total += s[dim]
	}

	outShape := shape.Clone()
	outShape[dim] = total
	result := cpu.newResult("cat", outShape, first.DType())

	outer, _, inner := splitAt(shape, dim)
	rowBytes := inner * first.DType().Size()
	dst := result.Data()
	off := 0
	for o := 0; o < outer; o++ {
		for _, t := range tensors {
			chunk := t.Shape()[dim] * rowBytes
			copy(dst[off:off+chunk], t.Data()[o*chunk:(o+1)*chunk])
			off += chunk
		}
	}
	return result
}
