package tensor_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepspeech/internal/backend/cpu"
	"github.com/born-ml/deepspeech/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))
	assert.Equal(t, tensor.Float32, x.DType())

	x.Set(9, 0, 1)
	assert.Equal(t, float32(9), x.Data()[1])
	assert.Panics(t, func() { x.At(2, 0) })

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, backend)
	assert.Error(t, err)
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	assert.Equal(t, []float64{0, 0}, tensor.Zeros[float64](tensor.Shape{2}, backend).Data())
	assert.Equal(t, []float32{1, 1, 1}, tensor.Ones[float32](tensor.Shape{3}, backend).Data())
	assert.Equal(t, []int32{7, 7}, tensor.Full[int32](tensor.Shape{2}, 7, backend).Data())
}

func TestUniform_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := tensor.Uniform[float32](tensor.Shape{1000}, -0.5, 0.5, rng, cpu.New())
	for _, v := range u.Data() {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestRandn_Statistics(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := tensor.Randn[float64](tensor.Shape{20001}, rng, cpu.New())

	var sum, sq float64
	for _, v := range x.Data() {
		sum += v
		sq += v * v
	}
	n := float64(x.NumElements())
	mean := sum / n
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, math.Sqrt(sq/n-mean*mean), 0.05)
}

func TestRandn_Deterministic(t *testing.T) {
	a := tensor.Randn[float32](tensor.Shape{8}, rand.New(rand.NewSource(3)), cpu.New())
	b := tensor.Randn[float32](tensor.Shape{8}, rand.New(rand.NewSource(3)), cpu.New())
	assert.Equal(t, a.Data(), b.Data())
}

func TestChunk(t *testing.T) {
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 6}, cpu.New())
	require.NoError(t, err)

	parts := x.Chunk(3, -1)
	require.Len(t, parts, 3)
	assert.Equal(t, []float32{1, 2}, parts[0].Data())
	assert.Equal(t, []float32{5, 6}, parts[2].Data())

	assert.Panics(t, func() { x.Chunk(4, -1) })
}

func TestUnsqueezeAndCat(t *testing.T) {
	backend := cpu.New()
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	stacked := tensor.Cat([]*tensor.Tensor[float32, *cpu.CPUBackend]{a.Unsqueeze(0), b.Unsqueeze(0)}, 0)
	assert.Equal(t, tensor.Shape{2, 2}, stacked.Shape())
	assert.Equal(t, tensor.Shape{2, 1}, a.Unsqueeze(-1).Shape())
	assert.Equal(t, []float32{1, 3, 2, 4}, stacked.T().Data())
}

func TestMeanDimAndRsqrt(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{1, 3, 2, 6}, tensor.Shape{2, 2}, cpu.New())

	mean := x.MeanDim(-1, true)
	assert.Equal(t, []float32{2, 4}, mean.Data())

	centered := x.Sub(mean)
	assert.Equal(t, []float32{-1, 1, -2, 2}, centered.Data())

	r := centered.Mul(centered).AddScalar(3).Rsqrt()
	assert.InDelta(t, 0.5, r.Data()[0], 1e-6)
}

func TestString(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2, 3}, cpu.New())
	assert.Equal(t, "Tensor[float32][2 3] on CPU", x.String())
}
