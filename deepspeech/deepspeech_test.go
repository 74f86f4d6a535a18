// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package deepspeech_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepspeech/backend/cpu"
	"github.com/born-ml/deepspeech/deepspeech"
	"github.com/born-ml/deepspeech/tensor"
)

func TestPublicAPI(t *testing.T) {
	cfg := deepspeech.DefaultConfig()
	cfg.NCNNLayers = 1
	cfg.NRNNLayers = 1
	cfg.RNNDim = 16
	cfg.NFeats = 32
	cfg.Seed = 11

	backend := cpu.New()
	model, err := deepspeech.New(cfg, backend)
	require.NoError(t, err)
	assert.True(t, model.Training())
	model.Eval()

	x := tensor.Zeros[float32](tensor.Shape{2, 1, 32, 9}, backend)
	logits := model.Forward(x)
	assert.Equal(t, tensor.Shape{2, 5, 29}, logits.Shape())

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, deepspeech.SaveCheckpoint(path, model))

	restored, err := deepspeech.LoadCheckpoint(path, backend)
	require.NoError(t, err)
	assert.Equal(t, logits.Data(), restored.Forward(x).Data())
}

func TestPublicErrors(t *testing.T) {
	cfg := deepspeech.DefaultConfig()
	cfg.Stride = 3
	_, err := deepspeech.New(cfg, cpu.New())
	assert.ErrorIs(t, err, deepspeech.ErrFeatureMismatch)

	cfg = deepspeech.DefaultConfig()
	cfg.RNNDim = 0
	_, err = deepspeech.New(cfg, cpu.New())
	assert.ErrorIs(t, err, deepspeech.ErrInvalidConfig)
}
