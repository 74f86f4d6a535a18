package deepspeech

import (
	"fmt"

	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// BidirectionalGRU is one recurrent block:
//
//	x -> layer_norm -> gelu -> BiGRU -> dropout
//
// With batchFirst the input is [batch, time, rnnDim], otherwise
// [time, batch, rnnDim]. The output keeps the layout and has
// 2*hiddenSize features, forward direction first.
type BidirectionalGRU[B tensor.Backend] struct {
	biGRU      *nn.BiGRU[B]
	layerNorm  *nn.LayerNorm[B]
	dropout    *nn.Dropout[B]
	gelu       *nn.GELU[B]
	batchFirst bool
	hiddenSize int
}

// NewBidirectionalGRU creates a recurrent block.
func NewBidirectionalGRU[B tensor.Backend](
	rnnDim, hiddenSize int,
	dropout float32,
	batchFirst bool,
	backend B,
	opts ...nn.Option,
) *BidirectionalGRU[B] {
	return &BidirectionalGRU[B]{
		biGRU:      nn.NewBiGRU(rnnDim, hiddenSize, backend, opts...),
		layerNorm:  nn.NewLayerNorm(rnnDim, nn.DefaultLayerNormEps, backend),
		dropout:    nn.NewDropout[B](dropout, opts...),
		gelu:       nn.NewGELU[B](),
		batchFirst: batchFirst,
		hiddenSize: hiddenSize,
	}
}

// Forward runs the block over a 3D sequence tensor.
func (b *BidirectionalGRU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(x.Shape()) != 3 {
		panic(fmt.Sprintf("bidirectional gru: expected 3D input, got %v", x.Shape()))
	}

	x = b.layerNorm.Forward(x)
	x = b.gelu.Forward(x)

	if b.batchFirst {
		x = b.biGRU.Forward(x.Transpose(1, 0, 2)).Transpose(1, 0, 2)
	} else {
		x = b.biGRU.Forward(x)
	}

	return b.dropout.Forward(x)
}

// OutputSize returns the feature width of the block's output.
func (b *BidirectionalGRU[B]) OutputSize() int {
	return 2 * b.hiddenSize
}

// BatchFirst reports whether the block expects [batch, time, features].
func (b *BidirectionalGRU[B]) BatchFirst() bool {
	return b.batchFirst
}

// SetTraining switches the dropout unit.
func (b *BidirectionalGRU[B]) SetTraining(training bool) {
	b.dropout.SetTraining(training)
}

// Parameters returns the GRU parameters followed by the LayerNorm's.
func (b *BidirectionalGRU[B]) Parameters() []*nn.Parameter[B] {
	return append(b.biGRU.Parameters(), b.layerNorm.Parameters()...)
}

// StateDict returns BiGRU.* and layer_norm.*.
func (b *BidirectionalGRU[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	nn.MergePrefixed(sd, b.biGRU.StateDict(), "BiGRU")
	nn.MergePrefixed(sd, b.layerNorm.StateDict(), "layer_norm")
	return sd
}

// LoadStateDict loads the GRU and the LayerNorm.
func (b *BidirectionalGRU[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := nn.LoadChild(stateDict, "BiGRU", b.biGRU); err != nil {
		return err
	}
	return nn.LoadChild(stateDict, "layer_norm", b.layerNorm)
}
