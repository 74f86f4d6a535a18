package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/deepspeech/internal/tensor"
)

func TestMatMul(t *testing.T) {
	a := raw32(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := raw32(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	out := New().MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestMatMul_ParallelMatchesSequential(t *testing.T) {
	a := raw32(t, tensor.Shape{37, 19})
	b := raw32(t, tensor.Shape{19, 23})
	for i := range a.AsFloat32() {
		a.AsFloat32()[i] = float32(i%7) - 3
	}
	for i := range b.AsFloat32() {
		b.AsFloat32()[i] = float32(i%11) * 0.5
	}

	assert.Equal(t, newSequential().MatMul(a, b).AsFloat32(), newParallel().MatMul(a, b).AsFloat32())
}

func TestMatMul_ShapeErrors(t *testing.T) {
	assert.Panics(t, func() {
		New().MatMul(raw32(t, tensor.Shape{2, 3}), raw32(t, tensor.Shape{2, 3}))
	})
	assert.Panics(t, func() {
		New().MatMul(raw32(t, tensor.Shape{2, 3, 1}), raw32(t, tensor.Shape{3, 2}))
	})
}
