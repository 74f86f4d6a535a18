// Package deepspeech implements a DeepSpeech2-style acoustic model: a
// strided convolution, residual CNN blocks, a projection, bidirectional GRU
// blocks and a classification head that turn a spectrogram
// [batch, 1, n_feats, time] into per-frame class logits
// [batch, time', n_class].
//
// State dict names match the PyTorch reference model, so checkpoints
// converted from it load directly.
package deepspeech

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// SpeechRecognitionModel is the full acoustic model.
//
// New models start in training mode; call Eval before inference.
// Forward is not safe for concurrent use in training mode because the
// dropout units share one random source.
type SpeechRecognitionModel[B tensor.Backend] struct {
	cfg      Config
	backend  B
	training bool

	cnn            *nn.Conv2D[B]
	rescnnLayers   []*ResidualCNN[B]
	fullyConnected *nn.Linear[B]
	birnnLayers    []*BidirectionalGRU[B]
	classifier     *nn.Sequential[B]
}

// NewSpeechRecognitionModel builds a model from cfg.
//
// It returns ErrInvalidConfig for out-of-range hyperparameters and
// ErrFeatureMismatch when the initial convolution would not produce exactly
// n_feats/2 frequency bins (any stride other than 2, for example).
func NewSpeechRecognitionModel[B tensor.Backend](cfg Config, backend B) (*SpeechRecognitionModel[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // G404: weight init and dropout masks are not security-sensitive
	opt := nn.WithRand(rand.New(rand.NewSource(seed)))

	nFeats := cfg.NFeats / 2
	m := &SpeechRecognitionModel[B]{
		cfg:      cfg,
		backend:  backend,
		training: true,
		cnn:      nn.NewConv2D(1, ConvChannels, 3, cfg.Stride, 1, backend, opt),
	}

	for i := 0; i < cfg.NCNNLayers; i++ {
		m.rescnnLayers = append(m.rescnnLayers,
			NewResidualCNN(ConvChannels, ConvChannels, 3, 1, cfg.Dropout, nFeats, backend, opt))
	}

	m.fullyConnected = nn.NewLinear(ConvChannels*nFeats, cfg.RNNDim, backend, opt)

	// Only the first block is batch-first; later blocks are time-first and
	// treat the leading axis of their input as time.
	for i := 0; i < cfg.NRNNLayers; i++ {
		inDim := cfg.RNNDim
		if i > 0 {
			inDim = 2 * cfg.RNNDim
		}
		m.birnnLayers = append(m.birnnLayers,
			NewBidirectionalGRU(inDim, cfg.RNNDim, cfg.Dropout, i == 0, backend, opt))
	}

	m.classifier = nn.NewSequential[B](
		nn.NewLinear(2*cfg.RNNDim, cfg.RNNDim, backend, opt),
		nn.NewGELU[B](),
		nn.NewDropout[B](cfg.Dropout, opt),
		nn.NewLinear(cfg.RNNDim, cfg.NClass, backend, opt),
	)

	return m, nil
}

// Forward maps x [batch, 1, n_feats, time] to logits
// [batch, OutputFrames(time), n_class].
func (m *SpeechRecognitionModel[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = m.cnn.Forward(x)
	for _, layer := range m.rescnnLayers {
		x = layer.Forward(x)
	}

	// [B, C, F, T] -> [B, C*F, T] -> [B, T, C*F]
	shape := x.Shape()
	x = x.Reshape(shape[0], shape[1]*shape[2], shape[3]).Transpose(0, 2, 1)
	x = m.fullyConnected.Forward(x)

	for _, layer := range m.birnnLayers {
		x = layer.Forward(x)
	}
	return m.classifier.Forward(x)
}

// Train switches every dropout unit to training mode.
func (m *SpeechRecognitionModel[B]) Train() {
	m.setTraining(true)
}

// Eval switches every dropout unit to evaluation mode (identity).
func (m *SpeechRecognitionModel[B]) Eval() {
	m.setTraining(false)
}

// Training reports whether the model is in training mode.
func (m *SpeechRecognitionModel[B]) Training() bool {
	return m.training
}

func (m *SpeechRecognitionModel[B]) setTraining(training bool) {
	m.training = training
	for _, layer := range m.rescnnLayers {
		layer.SetTraining(training)
	}
	for _, layer := range m.birnnLayers {
		layer.SetTraining(training)
	}
	m.classifier.SetTraining(training)
}

// Config returns the hyperparameters the model was built with.
func (m *SpeechRecognitionModel[B]) Config() Config {
	return m.cfg
}

// Device returns the device holding the model's parameters.
func (m *SpeechRecognitionModel[B]) Device() tensor.Device {
	return m.backend.Device()
}

// Parameters returns every learned parameter in module order.
func (m *SpeechRecognitionModel[B]) Parameters() []*nn.Parameter[B] {
	params := m.cnn.Parameters()
	for _, layer := range m.rescnnLayers {
		params = append(params, layer.Parameters()...)
	}
	params = append(params, m.fullyConnected.Parameters()...)
	for _, layer := range m.birnnLayers {
		params = append(params, layer.Parameters()...)
	}
	return append(params, m.classifier.Parameters()...)
}

// NumParameters returns the total number of scalar parameters.
func (m *SpeechRecognitionModel[B]) NumParameters() int {
	return nn.CountParameters[B](m)
}

// children lists the parameterized submodules under their state dict
// prefixes.
func (m *SpeechRecognitionModel[B]) children() []namedModule[B] {
	out := []namedModule[B]{{"cnn", m.cnn}}
	for i, layer := range m.rescnnLayers {
		out = append(out, namedModule[B]{"rescnn_layers." + strconv.Itoa(i), layer})
	}
	out = append(out, namedModule[B]{"fully_connected", m.fullyConnected})
	for i, layer := range m.birnnLayers {
		out = append(out, namedModule[B]{"birnn_layers." + strconv.Itoa(i), layer})
	}
	return append(out, namedModule[B]{"classifier", m.classifier})
}

type namedModule[B tensor.Backend] struct {
	prefix string
	module nn.Module[B]
}

// StateDict returns every parameter under its PyTorch state_dict name,
// e.g. "rescnn_layers.0.layer_norm1.layer_norm.weight" or
// "birnn_layers.1.BiGRU.weight_hh_l0_reverse". Tensors are shared.
func (m *SpeechRecognitionModel[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for _, c := range m.children() {
		nn.MergePrefixed(sd, c.module.StateDict(), c.prefix)
	}
	return sd
}

// LoadStateDict copies a complete state dict into the model. Missing keys,
// unknown keys, shape and dtype mismatches are errors; on error the model
// may be partially updated.
func (m *SpeechRecognitionModel[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	own := m.StateDict()
	var unexpected []string
	for key := range stateDict {
		if _, ok := own[key]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("%w: %s", ErrUnexpectedParameter, strings.Join(unexpected, ", "))
	}

	for _, c := range m.children() {
		if err := nn.LoadChild(stateDict, c.prefix, c.module); err != nil {
			return err
		}
	}
	return nil
}

// String describes the architecture in PyTorch's module print format.
func (m *SpeechRecognitionModel[B]) String() string {
	var sb strings.Builder
	sb.WriteString("SpeechRecognitionModel(\n")
	fmt.Fprintf(&sb, "  (cnn): %s\n", m.cnn)
	fmt.Fprintf(&sb, "  (rescnn_layers): %d x ResidualCNN(\n", len(m.rescnnLayers))
	if len(m.rescnnLayers) > 0 {
		r := m.rescnnLayers[0]
		fmt.Fprintf(&sb, "    (cnn1): %s\n    (cnn2): %s\n", r.cnn1, r.cnn2)
		fmt.Fprintf(&sb, "    (dropout1): %s\n    (dropout2): %s\n", r.dropout1, r.dropout2)
		fmt.Fprintf(&sb, "    (layer_norm1): CNNLayerNorm(%s)\n", r.layerNorm1.layerNorm)
		fmt.Fprintf(&sb, "    (layer_norm2): CNNLayerNorm(%s)\n", r.layerNorm2.layerNorm)
	}
	sb.WriteString("  )\n")
	fmt.Fprintf(&sb, "  (fully_connected): %s\n", m.fullyConnected)
	sb.WriteString("  (birnn_layers): [\n")
	for i, b := range m.birnnLayers {
		fmt.Fprintf(&sb, "    (%d): BidirectionalGRU(%s, %s, batch_first=%t, %s)\n",
			i, b.biGRU, b.layerNorm, b.batchFirst, b.dropout)
	}
	sb.WriteString("  ]\n  (classifier): Sequential(\n")
	for i := 0; i < m.classifier.Len(); i++ {
		fmt.Fprintf(&sb, "    (%d): %v\n", i, m.classifier.Module(i))
	}
	sb.WriteString("  )\n)")
	return sb.String()
}
