package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepspeech/internal/tensor"
)

func TestReshape(t *testing.T) {
	x := raw32(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	out := New().Reshape(x, tensor.Shape{3, -1})
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, x.AsFloat32(), out.AsFloat32())

	assert.Panics(t, func() { New().Reshape(x, tensor.Shape{4, 2}) })
	assert.Panics(t, func() { New().Reshape(x, tensor.Shape{-1, -1}) })
}

func TestTranspose(t *testing.T) {
	tests := []struct {
		name     string
		shape    tensor.Shape
		axes     []int
		outShape tensor.Shape
		expected []float32
	}{
		{"2d default", tensor.Shape{2, 3}, nil, tensor.Shape{3, 2}, []float32{0, 3, 1, 4, 2, 5}},
		{"swap last two", tensor.Shape{1, 2, 3}, []int{0, 2, 1}, tensor.Shape{1, 3, 2}, []float32{0, 3, 1, 4, 2, 5}},
		{"negative axes", tensor.Shape{2, 3}, []int{-1, -2}, tensor.Shape{3, 2}, []float32{0, 3, 1, 4, 2, 5}},
		{"time first", tensor.Shape{2, 2, 2}, []int{1, 0, 2}, tensor.Shape{2, 2, 2}, []float32{0, 1, 4, 5, 2, 3, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := raw32(t, tt.shape)
			for i := range x.AsFloat32() {
				x.AsFloat32()[i] = float32(i)
			}
			out := New().Transpose(x, tt.axes...)
			assert.Equal(t, tt.outShape, out.Shape())
			assert.Equal(t, tt.expected, out.AsFloat32())
		})
	}
}

func TestTranspose_Int64(t *testing.T) {
	x, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)
	copy(x.AsInt64(), []int64{1, 2, 3, 4})

	out := New().Transpose(x)
	assert.Equal(t, []int64{1, 3, 2, 4}, out.AsInt64())
}

func TestTranspose_InvalidPermutation(t *testing.T) {
	x := raw32(t, tensor.Shape{2, 3})
	assert.Panics(t, func() { New().Transpose(x, 0, 0) })
	assert.Panics(t, func() { New().Transpose(x, 0) })
}

func TestNarrow(t *testing.T) {
	x := raw32(t, tensor.Shape{2, 4}, 0, 1, 2, 3, 4, 5, 6, 7)

	out := New().Narrow(x, 1, 1, 2)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 5, 6}, out.AsFloat32())

	rows := New().Narrow(x, 0, 1, 1)
	assert.Equal(t, []float32{4, 5, 6, 7}, rows.AsFloat32())

	assert.Panics(t, func() { New().Narrow(x, 1, 3, 2) })
}

func TestCat(t *testing.T) {
	a := raw32(t, tensor.Shape{2, 1}, 1, 2)
	b := raw32(t, tensor.Shape{2, 2}, 3, 4, 5, 6)

	out := New().Cat([]*tensor.RawTensor{a, b}, -1)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{1, 3, 4, 2, 5, 6}, out.AsFloat32())

	rows := New().Cat([]*tensor.RawTensor{b, b}, 0)
	assert.Equal(t, []float32{3, 4, 5, 6, 3, 4, 5, 6}, rows.AsFloat32())
}

func TestCat_Errors(t *testing.T) {
	a := raw32(t, tensor.Shape{2, 1})
	b := raw32(t, tensor.Shape{3, 1})
	assert.Panics(t, func() { New().Cat([]*tensor.RawTensor{a, b}, 1) })
	assert.Panics(t, func() { New().Cat(nil, 0) })
}

func TestMeanDim(t *testing.T) {
	x := raw32(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	last := New().MeanDim(x, -1, true)
	assert.Equal(t, tensor.Shape{2, 1}, last.Shape())
	assert.Equal(t, []float32{2, 5}, last.AsFloat32())

	first := New().MeanDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, first.Shape())
	assert.Equal(t, []float32{2.5, 3.5, 4.5}, first.AsFloat32())
}
