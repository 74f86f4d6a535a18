package nn

import (
	"github.com/born-ml/deepspeech/internal/tensor"
)

// SigmoidBackend is an interface for backends that support Sigmoid activation.
type SigmoidBackend interface {
	Sigmoid(*tensor.RawTensor) *tensor.RawTensor
}

// TanhBackend is an interface for backends that support Tanh activation.
type TanhBackend interface {
	Tanh(*tensor.RawTensor) *tensor.RawTensor
}

// GELUBackend is an interface for backends that support the exact GELU.
type GELUBackend interface {
	GELU(*tensor.RawTensor) *tensor.RawTensor
}

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
// Panics if the backend does not implement SigmoidBackend.
func Sigmoid[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b, ok := any(x.Backend()).(SigmoidBackend)
	if !ok {
		panic("sigmoid: backend must implement Sigmoid operation")
	}
	return tensor.New[float32, B](b.Sigmoid(x.Raw()), x.Backend())
}

// Tanh applies the hyperbolic tangent element-wise.
// Panics if the backend does not implement TanhBackend.
func Tanh[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b, ok := any(x.Backend()).(TanhBackend)
	if !ok {
		panic("tanh: backend must implement Tanh operation")
	}
	return tensor.New[float32, B](b.Tanh(x.Raw()), x.Backend())
}

// GELU is the Gaussian Error Linear Unit activation module.
//
// Applies the exact form f(x) = 0.5 * x * (1 + erf(x / sqrt(2))), not the
// tanh approximation.
type GELU[B tensor.Backend] struct{}

// NewGELU creates a new GELU activation module.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return &GELU[B]{}
}

// Forward applies GELU activation.
func (g *GELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b, ok := any(input.Backend()).(GELUBackend)
	if !ok {
		panic("gelu: backend must implement GELU operation")
	}
	return tensor.New[float32, B](b.GELU(input.Raw()), input.Backend())
}

// Parameters returns nil (GELU has no learned parameters).
func (g *GELU[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty state dict.
func (g *GELU[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op.
func (g *GELU[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// String returns a string representation of the module.
func (g *GELU[B]) String() string {
	return "GELU()"
}
