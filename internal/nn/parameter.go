package nn

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// Parameter represents a learned tensor of a neural network layer.
//
// The name is the parameter's key inside its owning module's state dict
// ("weight", "bias", "weight_ih_l0", ...). Containers add their own
// prefixes when they merge child state dicts.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a new parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Load copies raw into the parameter after checking dtype and shape.
func (p *Parameter[B]) Load(raw *tensor.RawTensor) error {
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%w: %s: expected float32, got %v", ErrDTypeMismatch, p.name, raw.DType())
	}
	if !raw.Shape().Equal(p.tensor.Shape()) {
		return fmt.Errorf("%w: %s: expected %v, got %v", ErrShapeMismatch, p.name, p.tensor.Shape(), raw.Shape())
	}
	copy(p.tensor.Data(), raw.AsFloat32())
	return nil
}
