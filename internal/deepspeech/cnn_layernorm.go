package deepspeech

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// CNNLayerNorm normalizes a convolutional feature map over its frequency
// axis.
//
// Input and output are [batch, channel, feature, time]. The feature and
// time axes are swapped so LayerNorm sees features last, then swapped back.
type CNNLayerNorm[B tensor.Backend] struct {
	layerNorm *nn.LayerNorm[B]
}

// NewCNNLayerNorm creates a normalization over nFeats frequency bins.
func NewCNNLayerNorm[B tensor.Backend](nFeats int, backend B) *CNNLayerNorm[B] {
	return &CNNLayerNorm[B]{
		layerNorm: nn.NewLayerNorm(nFeats, nn.DefaultLayerNormEps, backend),
	}
}

// Forward normalizes x [B, C, F, T] over F and returns the same shape.
func (c *CNNLayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(x.Shape()) != 4 {
		panic(fmt.Sprintf("cnn layer norm: expected 4D input [B,C,F,T], got %v", x.Shape()))
	}
	x = x.Transpose(0, 1, 3, 2) // [B, C, T, F]
	x = c.layerNorm.Forward(x)
	return x.Transpose(0, 1, 3, 2)
}

// Parameters returns the LayerNorm weight and bias.
func (c *CNNLayerNorm[B]) Parameters() []*nn.Parameter[B] {
	return c.layerNorm.Parameters()
}

// StateDict returns {"layer_norm.weight", "layer_norm.bias"}.
func (c *CNNLayerNorm[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	nn.MergePrefixed(sd, c.layerNorm.StateDict(), "layer_norm")
	return sd
}

// LoadStateDict loads the wrapped LayerNorm.
func (c *CNNLayerNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return nn.LoadChild(stateDict, "layer_norm", c.layerNorm)
}
