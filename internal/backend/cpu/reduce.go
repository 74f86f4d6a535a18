package cpu

import (
	"github.com/born-ml/deepspeech/internal/tensor"
)

// MeanDim computes the mean along dim. With keepDim the reduced dimension
// stays as size 1, otherwise it is removed.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	requireFloat("mean_dim", x)

	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	outer, size, inner := splitAt(shape, dim)

	outShape := make(tensor.Shape, 0, len(shape))
	outShape = append(outShape, shape[:dim]...)
	if keepDim {
		outShape = append(outShape, 1)
	}
	outShape = append(outShape, shape[dim+1:]...)

	result := cpu.newResult("mean_dim", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		meanKernel(result.AsFloat32(), x.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		meanKernel(result.AsFloat64(), x.AsFloat64(), outer, size, inner)
	}
	return result
}

func meanKernel[T tensor.Float](dst, src []T, outer, size, inner int) {
	inv := 1 / float64(size)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var sum float64
			for d := 0; d < size; d++ {
				sum += float64(src[(o*size+d)*inner+i])
			}
			dst[o*inner+i] = T(sum * inv)
		}
	}
}

// splitAt factors shape into the element counts before, at and after dim.
func splitAt(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	for _, d := range shape[dim+1:] {
		inner *= d
	}
	return outer, shape[dim], inner
}
