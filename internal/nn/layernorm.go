package nn

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// DefaultLayerNormEps is the epsilon used when none is given.
const DefaultLayerNormEps = 1e-5

// LayerNorm applies Layer Normalization over the last dimension.
//
// Formula: Y = weight * (X - mean(X)) / sqrt(var(X) + eps) + bias
//
// Mean and biased variance are computed along the last dimension. The
// weight starts at ones and the bias at zeros.
type LayerNorm[B tensor.Backend] struct {
	normalizedShape int
	weight          *Parameter[B] // [normalized_shape]
	bias            *Parameter[B] // [normalized_shape]
	epsilon         float32
	backend         B
}

// NewLayerNorm creates a new LayerNorm layer.
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	if normalizedShape <= 0 {
		panic(fmt.Sprintf("layernorm: invalid normalized shape %d", normalizedShape))
	}
	return &LayerNorm[B]{
		normalizedShape: normalizedShape,
		weight:          NewParameter("weight", Ones(tensor.Shape{normalizedShape}, backend)),
		bias:            NewParameter("bias", Zeros(tensor.Shape{normalizedShape}, backend)),
		epsilon:         epsilon,
		backend:         backend,
	}
}

// Forward normalizes x over its trailing axis.
//
// Shapes:
//   - input: [..., normalized_shape]
//   - output: [..., normalized_shape]
func (l *LayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != l.normalizedShape {
		panic(fmt.Sprintf("layernorm: expected trailing dimension %d, got shape %v", l.normalizedShape, shape))
	}

	mean := x.MeanDim(-1, true)
	centered := x.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)
	inv := variance.AddScalar(l.epsilon).Rsqrt()

	// [..., F] * [F] broadcasts over the leading axes.
	return centered.Mul(inv).Mul(l.weight.Tensor()).Add(l.bias.Tensor())
}

// Parameters returns [weight, bias].
func (l *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the scale parameter.
func (l *LayerNorm[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the shift parameter.
func (l *LayerNorm[B]) Bias() *Parameter[B] {
	return l.bias
}

// StateDict returns {"weight", "bias"}.
func (l *LayerNorm[B]) StateDict() map[string]*tensor.RawTensor {
	return ParamsStateDict(l.weight, l.bias)
}

// LoadStateDict loads weight and bias, validating shape and dtype.
func (l *LayerNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParams(stateDict, l.weight, l.bias)
}

// String returns a string representation of the layer.
func (l *LayerNorm[B]) String() string {
	return fmt.Sprintf("LayerNorm((%d,), eps=%g)", l.normalizedShape, l.epsilon)
}
