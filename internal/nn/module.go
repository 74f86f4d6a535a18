// Package nn implements the neural network layers used by the acoustic model.
//
// This package provides building blocks for constructing networks:
//   - Module interface: base interface for all NN components
//   - Parameter: named learned tensors
//   - Linear, Conv2D: affine and convolutional layers
//   - LayerNorm: normalization over the trailing axis
//   - GELU, Sigmoid, Tanh: activations
//   - Dropout: inverted dropout with a training switch
//   - GRU, BiGRU: gated recurrent layers over time-major sequences
//   - Sequential: container for stacking layers
//
// Parameter names follow PyTorch state_dict conventions so checkpoints
// trained elsewhere load without renaming.
package nn

import (
	"github.com/born-ml/deepspeech/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build larger architectures:
//
//	head := nn.NewSequential[B](
//	    nn.NewLinear(1024, 512, backend),
//	    nn.NewGELU[B](),
//	    nn.NewDropout[B](0.1),
//	    nn.NewLinear(512, 29, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all learned parameters of this module, including
	// those of nested modules. Parameter-free modules return nil.
	Parameters() []*Parameter[B]

	// StateDict returns the module's parameters keyed by their
	// state_dict names. The tensors are shared, not copied.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies matching entries into the module's parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Trainable is implemented by modules whose forward pass differs between
// training and evaluation.
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches m between training and evaluation mode when it
// implements Trainable; other values are ignored.
func SetTraining(m any, training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}

// CountParameters returns the total number of scalar parameters in m.
func CountParameters[B tensor.Backend](m Module[B]) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}
