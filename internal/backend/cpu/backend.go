// Package cpu implements the pure Go CPU backend.
//
// Arithmetic kernels support float32 and float64; layout operations
// (reshape, transpose, narrow, cat) work for every tensor dtype. Hot loops
// (im2col, convolution, matrix multiplication) are split across goroutines
// by output row, so results are identical to sequential execution.
package cpu

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/parallel"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend using all available cores.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Parallelism returns the backend's parallel execution settings.
func (cpu *CPUBackend) Parallelism() parallel.Config {
	return cpu.par
}

// newResult allocates an output tensor, panicking with the operation name
// on an invalid shape.
func (cpu *CPUBackend) newResult(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

// requireFloat panics unless x holds float32 or float64 data.
func requireFloat(op string, x *tensor.RawTensor) {
	if !x.DType().IsFloat() {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}
}
