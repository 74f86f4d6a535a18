// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package deepspeech provides the public API of the DeepSpeech2-style
// acoustic model.
//
// The model maps a spectrogram [batch, 1, n_feats, time] to per-frame
// class logits [batch, time', n_class], where time' = ceil(time/2) for the
// default stride. Decoding the logits (greedy, CTC beam search) is left to
// the caller.
//
// Example:
//
//	backend := cpu.New()
//	model, err := deepspeech.New(deepspeech.DefaultConfig(), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.Eval()
//
//	x := tensor.Zeros[float32](tensor.Shape{2, 1, 128, 300}, backend)
//	logits := model.Forward(x) // [2, 150, 29]
//
//	err = deepspeech.SaveCheckpoint("model.safetensors", model)
package deepspeech

import (
	"github.com/born-ml/deepspeech/internal/deepspeech"
	"github.com/born-ml/deepspeech/tensor"
)

// Config holds the architecture hyperparameters.
type Config = deepspeech.Config

// Model is the full acoustic model.
type Model[B tensor.Backend] = deepspeech.SpeechRecognitionModel[B]

// Building blocks, exposed for custom architectures.
type (
	CNNLayerNorm[B tensor.Backend]     = deepspeech.CNNLayerNorm[B]
	ResidualCNN[B tensor.Backend]      = deepspeech.ResidualCNN[B]
	BidirectionalGRU[B tensor.Backend] = deepspeech.BidirectionalGRU[B]
)

// ConvChannels is the channel width of the convolutional front end.
const ConvChannels = deepspeech.ConvChannels

// Errors returned by construction and checkpoint loading.
var (
	ErrInvalidConfig       = deepspeech.ErrInvalidConfig
	ErrFeatureMismatch     = deepspeech.ErrFeatureMismatch
	ErrUnexpectedParameter = deepspeech.ErrUnexpectedParameter
	ErrInvalidCheckpoint   = deepspeech.ErrInvalidCheckpoint
)

// DefaultConfig returns the reference hyperparameters: 3 residual blocks,
// 5 BiGRU blocks, rnn_dim 512, 29 classes, 128 features, stride 2,
// dropout 0.1.
func DefaultConfig() Config {
	return deepspeech.DefaultConfig()
}

// New builds a model in training mode.
func New[B tensor.Backend](cfg Config, backend B) (*Model[B], error) {
	return deepspeech.NewSpeechRecognitionModel(cfg, backend)
}

// SaveCheckpoint writes weights and hyperparameters in SafeTensors format.
func SaveCheckpoint[B tensor.Backend](path string, m *Model[B]) error {
	return deepspeech.SaveCheckpoint(path, m)
}

// LoadCheckpoint rebuilds a model saved by SaveCheckpoint, in evaluation mode.
func LoadCheckpoint[B tensor.Backend](path string, backend B) (*Model[B], error) {
	return deepspeech.LoadCheckpoint(path, backend)
}

// LoadWeights loads a SafeTensors state dict into an existing model.
func LoadWeights[B tensor.Backend](path string, m *Model[B]) error {
	return deepspeech.LoadWeights(path, m)
}
