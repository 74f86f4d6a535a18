package deepspeech

import (
	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// ResidualCNN is a pre-activation residual block:
//
//	x -> norm1 -> gelu -> dropout1 -> cnn1 -> norm2 -> gelu -> dropout2 -> cnn2 -> + x
//
// Padding is kernel/2, so spatial dimensions are preserved when stride is
// 1. Any other stride makes the residual addition panic on shape mismatch.
type ResidualCNN[B tensor.Backend] struct {
	cnn1       *nn.Conv2D[B]
	cnn2       *nn.Conv2D[B]
	dropout1   *nn.Dropout[B]
	dropout2   *nn.Dropout[B]
	layerNorm1 *CNNLayerNorm[B]
	layerNorm2 *CNNLayerNorm[B]
	gelu       *nn.GELU[B]
}

// NewResidualCNN creates a residual block. nFeats is the frequency width of
// the feature maps it normalizes.
func NewResidualCNN[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride int,
	dropout float32,
	nFeats int,
	backend B,
	opts ...nn.Option,
) *ResidualCNN[B] {
	return &ResidualCNN[B]{
		cnn1:       nn.NewConv2D(inChannels, outChannels, kernel, stride, kernel/2, backend, opts...),
		cnn2:       nn.NewConv2D(outChannels, outChannels, kernel, stride, kernel/2, backend, opts...),
		dropout1:   nn.NewDropout[B](dropout, opts...),
		dropout2:   nn.NewDropout[B](dropout, opts...),
		layerNorm1: NewCNNLayerNorm(nFeats, backend),
		layerNorm2: NewCNNLayerNorm(nFeats, backend),
		gelu:       nn.NewGELU[B](),
	}
}

// Forward applies both stages and adds the input back. x is [B, C, F, T].
func (r *ResidualCNN[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	residual := x

	x = r.layerNorm1.Forward(x)
	x = r.gelu.Forward(x)
	x = r.dropout1.Forward(x)
	x = r.cnn1.Forward(x)

	x = r.layerNorm2.Forward(x)
	x = r.gelu.Forward(x)
	x = r.dropout2.Forward(x)
	x = r.cnn2.Forward(x)

	return x.Add(residual)
}

// SetTraining switches both dropout units.
func (r *ResidualCNN[B]) SetTraining(training bool) {
	r.dropout1.SetTraining(training)
	r.dropout2.SetTraining(training)
}

// Parameters returns the block's parameters in state dict order.
func (r *ResidualCNN[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, r.cnn1.Parameters()...)
	params = append(params, r.cnn2.Parameters()...)
	params = append(params, r.layerNorm1.Parameters()...)
	params = append(params, r.layerNorm2.Parameters()...)
	return params
}

// StateDict returns cnn1.*, cnn2.*, layer_norm1.layer_norm.* and
// layer_norm2.layer_norm.*.
func (r *ResidualCNN[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	nn.MergePrefixed(sd, r.cnn1.StateDict(), "cnn1")
	nn.MergePrefixed(sd, r.cnn2.StateDict(), "cnn2")
	nn.MergePrefixed(sd, r.layerNorm1.StateDict(), "layer_norm1")
	nn.MergePrefixed(sd, r.layerNorm2.StateDict(), "layer_norm2")
	return sd
}

// LoadStateDict loads all four parameterized children.
func (r *ResidualCNN[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	children := []struct {
		prefix string
		module nn.Module[B]
	}{
		{"cnn1", r.cnn1},
		{"cnn2", r.cnn2},
		{"layer_norm1", r.layerNorm1},
		{"layer_norm2", r.layerNorm2},
	}
	for _, c := range children {
		if err := nn.LoadChild(stateDict, c.prefix, c.module); err != nil {
			return err
		}
	}
	return nil
}
