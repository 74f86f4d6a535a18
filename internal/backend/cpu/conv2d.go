package cpu

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/parallel"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// conv2dGeometry holds the validated dimensions of a convolution.
type conv2dGeometry struct {
	n, cIn, h, w    int
	cOut, kH, kW    int
	stride, padding int
	outH, outW      int
}

// Conv2D performs 2D convolution (cross-correlation).
//
// Input:  [N, C_in, H, W]
// Kernel: [C_out, C_in, K_h, K_w]
// Output: [N, C_out, H_out, W_out]
//
//	H_out = (H + 2*padding - K_h) / stride + 1
//	W_out = (W + 2*padding - K_w) / stride + 1
//
// Each output position gathers its receptive field into a patch (im2col)
// and then takes one dot product per output channel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv2d: dtype mismatch %s vs %s", input.DType(), kernel.DType()))
	}
	requireFloat("conv2d", input)

	g := validateConv2D(input.Shape(), kernel.Shape(), stride, padding)
	result := cpu.newResult("conv2d", tensor.Shape{g.n, g.cOut, g.outH, g.outW}, input.DType())

	switch input.DType() {
	case tensor.Float32:
		conv2dKernel(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), g, cpu.par)
	case tensor.Float64:
		conv2dKernel(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), g, cpu.par)
	}
	return result
}

func validateConv2D(inShape, kShape tensor.Shape, stride, padding int) conv2dGeometry {
	if len(inShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N, C, H, W], got %v", inShape))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out, C_in, K_h, K_w], got %v", kShape))
	}
	if inShape[1] != kShape[1] {
		panic(fmt.Sprintf("conv2d: channel mismatch: input has %d channels, kernel expects %d", inShape[1], kShape[1]))
	}
	if stride < 1 {
		panic(fmt.Sprintf("conv2d: stride must be positive, got %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: padding must be non-negative, got %d", padding))
	}

	g := conv2dGeometry{
		n: inShape[0], cIn: inShape[1], h: inShape[2], w: inShape[3],
		cOut: kShape[0], kH: kShape[2], kW: kShape[3],
		stride: stride, padding: padding,
	}
	if g.h+2*padding < g.kH || g.w+2*padding < g.kW {
		panic(fmt.Sprintf("conv2d: kernel %dx%d larger than padded input %dx%d",
			g.kH, g.kW, g.h+2*padding, g.w+2*padding))
	}
	g.outH = (g.h+2*padding-g.kH)/stride + 1
	g.outW = (g.w+2*padding-g.kW)/stride + 1
	return g
}

func conv2dKernel[T tensor.Float](dst, in, k []T, g conv2dGeometry, par parallel.Config) {
	patchSize := g.cIn * g.kH * g.kW
	plane := g.outH * g.outW

	parallel.ForRange(g.n*plane, func(start, end int) {
		col := make([]T, patchSize)
		for pos := start; pos < end; pos++ {
			b := pos / plane
			oh := (pos % plane) / g.outW
			ow := pos % g.outW

			idx := 0
			for c := 0; c < g.cIn; c++ {
				base := (b*g.cIn + c) * g.h
				for i := 0; i < g.kH; i++ {
					ih := oh*g.stride - g.padding + i
					for j := 0; j < g.kW; j++ {
						iw := ow*g.stride - g.padding + j
						if ih >= 0 && ih < g.h && iw >= 0 && iw < g.w {
							col[idx] = in[(base+ih)*g.w+iw]
						} else {
							col[idx] = 0
						}
						idx++
					}
				}
			}

			for co := 0; co < g.cOut; co++ {
				kRow := k[co*patchSize : (co+1)*patchSize]
				var sum T
				for q, v := range col {
					sum += kRow[q] * v
				}
				dst[((b*g.cOut+co)*g.outH+oh)*g.outW+ow] = sum
			}
		}
	}, par)
}
