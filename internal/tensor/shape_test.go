package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_Basics(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(s.Clone()))
	assert.False(t, s.Equal(Shape{2, 3}))
	assert.NoError(t, s.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
}

func TestShape_NormalizeDim(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 2, s.NormalizeDim(-1))
	assert.Equal(t, 0, s.NormalizeDim(-3))
	assert.Equal(t, 1, s.NormalizeDim(1))
	assert.Panics(t, func() { s.NormalizeDim(3) })
	assert.Panics(t, func() { s.NormalizeDim(-4) })
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		expected  Shape
		broadcast bool
		wantErr   bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{2, 32, 64, 150}, Shape{150}, Shape{2, 32, 64, 150}, true, false},
		{Shape{1, 32, 1, 1}, Shape{2, 32, 64, 150}, Shape{2, 32, 64, 150}, true, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		out, broadcast, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			assert.Error(t, err, "%v vs %v", tt.a, tt.b)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out)
		assert.Equal(t, tt.broadcast, broadcast)
	}
}

func TestBroadcastStrides(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0, 0}, BroadcastStrides(Shape{1, 32, 1, 1}, Shape{2, 32, 4, 4}))
	assert.Equal(t, []int{0, 0, 1}, BroadcastStrides(Shape{5}, Shape{2, 3, 5}))
	assert.Equal(t, []int{3, 1}, BroadcastStrides(Shape{2, 3}, Shape{2, 3}))
}

func TestRawTensor_ViewAndClone(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	view, err := raw.View(Shape{3, 2})
	require.NoError(t, err)
	view.AsFloat32()[0] = 42
	assert.Equal(t, float32(42), raw.AsFloat32()[0], "views share storage")

	clone := raw.Clone()
	clone.AsFloat32()[1] = -1
	assert.Equal(t, float32(2), raw.AsFloat32()[1], "clones do not share storage")

	_, err = raw.View(Shape{4})
	assert.Error(t, err)
}

func TestNewRawFromBytes(t *testing.T) {
	_, err := NewRawFromBytes(Shape{2}, Float64, CPU, make([]byte, 8))
	assert.Error(t, err)

	raw, err := NewRawFromBytes(Shape{2}, Int32, CPU, []byte{1, 0, 0, 0, 2, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, raw.AsInt32())
	assert.Panics(t, func() { raw.AsFloat32() })
}

func TestDataType(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Int64.Size())
	assert.True(t, Float64.IsFloat())
	assert.False(t, Int32.IsFloat())
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, Float64, inferDataType[float64]())
}
