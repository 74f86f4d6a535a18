// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Kernels support float32 and float64 with NumPy-compatible broadcasting.
// Convolutions use im2col; convolution and matrix multiplication are split
// across goroutines by output position, with results identical to
// sequential execution.
//
// Example:
//
//	backend := cpu.New()
//	model, err := deepspeech.New(deepspeech.DefaultConfig(), backend)
package cpu

import (
	internalcpu "github.com/born-ml/deepspeech/internal/backend/cpu"
	"github.com/born-ml/deepspeech/internal/parallel"
	"github.com/born-ml/deepspeech/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend using every available core.
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend limited to n goroutines; 1 runs
// sequentially and 0 uses every core.
func NewWithWorkers(n int) *Backend {
	return internalcpu.NewWithConfig(parallel.DefaultConfig().WithWorkers(n))
}
