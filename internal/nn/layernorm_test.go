package nn

import (
	"math"
	"testing"

	"github.com/born-ml/deepspeech/internal/backend/cpu"
	"github.com/born-ml/deepspeech/internal/tensor"
)

func TestLayerNorm_Basic(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(3, DefaultLayerNormEps, backend)

	input, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("Failed to create input: %v", err)
	}

	output := layernorm.Forward(input)

	// Row [1, 2, 3]: mean 2, variance 2/3, normalized [-1.2247, 0, 1.2247].
	// The second row is a shifted copy and normalizes identically.
	expected := []float32{-1.2247, 0, 1.2247, -1.2247, 0, 1.2247}
	for i, exp := range expected {
		if got := output.Data()[i]; math.Abs(float64(got-exp)) > 1e-3 {
			t.Errorf("element %d: got %v, expected %v", i, got, exp)
		}
	}

	if !output.Shape().Equal(input.Shape()) {
		t.Errorf("LayerNorm changed shape: input %v -> output %v", input.Shape(), output.Shape())
	}
}

func TestLayerNorm_WeightAndBias(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(2, DefaultLayerNormEps, backend)
	copy(layernorm.Weight().Tensor().Data(), []float32{2, 3})
	copy(layernorm.Bias().Tensor().Data(), []float32{10, 20})

	input, _ := tensor.FromSlice([]float32{0, 2}, tensor.Shape{1, 1, 2}, backend)
	output := layernorm.Forward(input).Data()

	// Normalized [-1, 1] (up to eps), then scaled and shifted.
	if math.Abs(float64(output[0]-8)) > 1e-3 || math.Abs(float64(output[1]-23)) > 1e-3 {
		t.Errorf("got %v, expected [8 23]", output)
	}
}

func TestLayerNorm_ConstantInput(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(4, DefaultLayerNormEps, backend)

	input := tensor.Full[float32](tensor.Shape{3, 4}, 7, backend)
	for i, v := range layernorm.Forward(input).Data() {
		if v != 0 {
			t.Errorf("element %d: constant rows must normalize to 0, got %v", i, v)
		}
	}
}

func TestLayerNorm_StateDictNames(t *testing.T) {
	layernorm := NewLayerNorm(4, DefaultLayerNormEps, cpu.New())
	sd := layernorm.StateDict()
	if _, ok := sd["weight"]; !ok {
		t.Error("missing weight")
	}
	if _, ok := sd["bias"]; !ok {
		t.Error("missing bias")
	}
}
