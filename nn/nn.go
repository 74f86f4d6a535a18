// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network layers the acoustic model is
// built from.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, LayerNorm, GRU, BiGRU
//   - Activations: GELU, Sigmoid, Tanh
//   - Regularization: Dropout
//   - Utilities: Sequential, Module interface, Parameter, SetTraining
//   - Initialization: Xavier, Uniform
//
// Every parameterized layer exposes StateDict/LoadStateDict with PyTorch
// parameter names.
//
// # Basic Usage
//
//	backend := cpu.New()
//	head := nn.NewSequential[*cpu.Backend](
//	    nn.NewLinear(1024, 512, backend),
//	    nn.NewGELU[*cpu.Backend](),
//	    nn.NewDropout[*cpu.Backend](0.1),
//	    nn.NewLinear(512, 29, backend),
//	)
//	nn.SetTraining(head, false)
package nn

import (
	"math/rand"

	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/tensor"
)

// Module is the interface every layer implements.
type Module[B tensor.Backend] = nn.Module[B]

// Trainable is implemented by modules whose behavior depends on the mode.
type Trainable = nn.Trainable

// Parameter is a named learnable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Option configures layer construction.
type Option = nn.Option

// Layer types.
type (
	Linear[B tensor.Backend]     = nn.Linear[B]
	Conv2D[B tensor.Backend]     = nn.Conv2D[B]
	LayerNorm[B tensor.Backend]  = nn.LayerNorm[B]
	GELU[B tensor.Backend]       = nn.GELU[B]
	Dropout[B tensor.Backend]    = nn.Dropout[B]
	GRU[B tensor.Backend]        = nn.GRU[B]
	BiGRU[B tensor.Backend]      = nn.BiGRU[B]
	Sequential[B tensor.Backend] = nn.Sequential[B]
)

// Errors returned by LoadStateDict.
var (
	ErrMissingParameter = nn.ErrMissingParameter
	ErrShapeMismatch    = nn.ErrShapeMismatch
	ErrDTypeMismatch    = nn.ErrDTypeMismatch
)

// DefaultLayerNormEps is the LayerNorm epsilon used throughout the model.
const DefaultLayerNormEps = nn.DefaultLayerNormEps

// WithRand draws initial weights and dropout masks from rng.
func WithRand(rng *rand.Rand) Option {
	return nn.WithRand(rng)
}

// NewLinear creates a fully connected layer y = x W^T + b.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...Option) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend, opts...)
}

// NewConv2D creates a square-kernel 2D convolution.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B, opts ...Option) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, backend, opts...)
}

// NewLayerNorm normalizes over a trailing axis of size normalizedShape.
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	return nn.NewLayerNorm(normalizedShape, epsilon, backend)
}

// NewGELU creates the exact (erf) GELU activation.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return nn.NewGELU[B]()
}

// NewDropout creates an inverted dropout unit, initially in training mode.
func NewDropout[B tensor.Backend](p float32, opts ...Option) *Dropout[B] {
	return nn.NewDropout[B](p, opts...)
}

// NewGRU creates a single-direction GRU over [time, batch, features].
func NewGRU[B tensor.Backend](inputSize, hiddenSize int, reverse bool, backend B, opts ...Option) *GRU[B] {
	return nn.NewGRU(inputSize, hiddenSize, reverse, backend, opts...)
}

// NewBiGRU creates a bidirectional single-layer GRU.
func NewBiGRU[B tensor.Backend](inputSize, hiddenSize int, backend B, opts ...Option) *BiGRU[B] {
	return nn.NewBiGRU(inputSize, hiddenSize, backend, opts...)
}

// NewSequential chains modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Sigmoid applies the logistic function.
func Sigmoid[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Sigmoid(x)
}

// Tanh applies the hyperbolic tangent.
func Tanh[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Tanh(x)
}

// Xavier returns Xavier/Glorot uniform initial weights.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, rng, backend)
}

// Uniform returns weights drawn from U(-bound, bound).
func Uniform[B tensor.Backend](bound float64, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.Uniform(bound, shape, rng, backend)
}

// SetTraining switches m, and every child it propagates to, between
// training and evaluation mode.
func SetTraining(m any, training bool) {
	nn.SetTraining(m, training)
}

// CountParameters returns the number of scalar parameters of m.
func CountParameters[B tensor.Backend](m Module[B]) int {
	return nn.CountParameters(m)
}
