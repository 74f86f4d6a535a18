package deepspeech_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepspeech/internal/backend/cpu"
	"github.com/born-ml/deepspeech/internal/deepspeech"
	"github.com/born-ml/deepspeech/internal/nn"
	"github.com/born-ml/deepspeech/internal/tensor"
)

type backend = *cpu.CPUBackend

func smallConfig() deepspeech.Config {
	return deepspeech.Config{
		NCNNLayers: 1,
		NRNNLayers: 2,
		RNNDim:     8,
		NClass:     5,
		NFeats:     8,
		Stride:     2,
		Dropout:    0.1,
		Seed:       1,
	}
}

func randn(shape ...int) *tensor.Tensor[float32, backend] {
	return tensor.Randn[float32](tensor.Shape(shape), rand.New(rand.NewSource(99)), cpu.New())
}

func newModel(t *testing.T, cfg deepspeech.Config) *deepspeech.SpeechRecognitionModel[backend] {
	t.Helper()
	m, err := deepspeech.NewSpeechRecognitionModel(cfg, cpu.New())
	require.NoError(t, err)
	return m
}

func TestCNNLayerNorm_NormalizesFeatureAxis(t *testing.T) {
	norm := deepspeech.NewCNNLayerNorm(4, cpu.New())
	x := randn(2, 3, 4, 5)

	out := norm.Forward(x)
	require.Equal(t, x.Shape(), out.Shape())

	// Statistics over F at every (b, c, t) are mean 0 and variance 1.
	for b := 0; b < 2; b++ {
		for c := 0; c < 3; c++ {
			for ti := 0; ti < 5; ti++ {
				var sum, sq float64
				for f := 0; f < 4; f++ {
					v := float64(out.At(b, c, f, ti))
					sum += v
					sq += v * v
				}
				assert.InDelta(t, 0, sum/4, 1e-5)
				assert.InDelta(t, 1, sq/4, 1e-2)
			}
		}
	}
}

func TestCNNLayerNorm_StateDictNames(t *testing.T) {
	norm := deepspeech.NewCNNLayerNorm(4, cpu.New())
	assert.ElementsMatch(t, []string{"layer_norm.weight", "layer_norm.bias"}, keys(norm.StateDict()))
}

func TestResidualCNN_PreservesShape(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		feats    int
		frames   int
	}{
		{"single frame", 2, 4, 1},
		{"square", 4, 6, 6},
		{"long sequence", 3, 5, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := deepspeech.NewResidualCNN(tt.channels, tt.channels, 3, 1, 0.1, tt.feats, cpu.New())
			x := randn(2, tt.channels, tt.feats, tt.frames)
			assert.Equal(t, x.Shape(), block.Forward(x).Shape())
		})
	}
}

func TestResidualCNN_StrideTwoPanics(t *testing.T) {
	block := deepspeech.NewResidualCNN(2, 2, 3, 2, 0, 8, cpu.New())
	assert.Panics(t, func() { block.Forward(randn(1, 2, 8, 8)) })
}

func TestResidualCNN_SkipConnection(t *testing.T) {
	block := deepspeech.NewResidualCNN(2, 2, 3, 1, 0.5, 4, cpu.New())
	sd := block.StateDict()
	for _, name := range []string{"cnn2.weight", "cnn2.bias"} {
		data := sd[name].AsFloat32()
		for i := range data {
			data[i] = 0
		}
	}

	// With the last convolution zeroed only the residual path remains,
	// whatever dropout does upstream.
	x := randn(1, 2, 4, 3)
	assert.Equal(t, x.Data(), block.Forward(x).Data())
}

func TestResidualCNN_StateDictNames(t *testing.T) {
	block := deepspeech.NewResidualCNN(2, 2, 3, 1, 0.1, 4, cpu.New())
	assert.ElementsMatch(t, []string{
		"cnn1.weight", "cnn1.bias", "cnn2.weight", "cnn2.bias",
		"layer_norm1.layer_norm.weight", "layer_norm1.layer_norm.bias",
		"layer_norm2.layer_norm.weight", "layer_norm2.layer_norm.bias",
	}, keys(block.StateDict()))
}

func TestBidirectionalGRU_OutputWidth(t *testing.T) {
	tests := []struct {
		name       string
		batchFirst bool
		input      []int
		expected   tensor.Shape
	}{
		{"batch first", true, []int{2, 7, 6}, tensor.Shape{2, 7, 10}},
		{"time first", false, []int{7, 2, 6}, tensor.Shape{7, 2, 10}},
		{"single step", true, []int{3, 1, 6}, tensor.Shape{3, 1, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := deepspeech.NewBidirectionalGRU(6, 5, 0.1, tt.batchFirst, cpu.New())
			out := block.Forward(randn(tt.input...))
			assert.Equal(t, tt.expected, out.Shape())
			assert.Equal(t, 10, block.OutputSize())
		})
	}
}

func TestBidirectionalGRU_LayoutsAgree(t *testing.T) {
	batchFirst := deepspeech.NewBidirectionalGRU(4, 3, 0.1, true, cpu.New())
	timeFirst := deepspeech.NewBidirectionalGRU(4, 3, 0.1, false, cpu.New())
	require.NoError(t, timeFirst.LoadStateDict(batchFirst.StateDict()))
	batchFirst.SetTraining(false)
	timeFirst.SetTraining(false)

	x := randn(2, 5, 4) // [B, T, F]
	a := batchFirst.Forward(x)
	b := timeFirst.Forward(x.Transpose(1, 0, 2)).Transpose(1, 0, 2)
	assert.InDeltaSlice(t, a.Data(), b.Data(), 1e-6)
}

func TestBidirectionalGRU_StateDictNames(t *testing.T) {
	block := deepspeech.NewBidirectionalGRU(4, 3, 0.1, true, cpu.New())
	assert.ElementsMatch(t, []string{
		"BiGRU.weight_ih_l0", "BiGRU.weight_hh_l0", "BiGRU.bias_ih_l0", "BiGRU.bias_hh_l0",
		"BiGRU.weight_ih_l0_reverse", "BiGRU.weight_hh_l0_reverse",
		"BiGRU.bias_ih_l0_reverse", "BiGRU.bias_hh_l0_reverse",
		"layer_norm.weight", "layer_norm.bias",
	}, keys(block.StateDict()))
}

// Blocks after the first run time-first on batch-first activations, so
// with more than one BiGRU block the samples of a batch interact.
func TestModel_LaterBlocksRecurOverBatch(t *testing.T) {
	for _, tc := range []struct {
		layers int
		mixes  bool
	}{
		{layers: 1, mixes: false},
		{layers: 2, mixes: true},
	} {
		cfg := smallConfig()
		cfg.NRNNLayers = tc.layers
		m := newModel(t, cfg)
		m.Eval()

		x := randn(2, 1, 8, 6)
		y := x.Clone()
		for f := 0; f < 8; f++ {
			for tt := 0; tt < 6; tt++ {
				y.Set(y.At(1, 0, f, tt)+1, 1, 0, f, tt)
			}
		}

		a := m.Forward(x).Data()
		b := m.Forward(y).Data()
		first := len(a) / 2 // sample 0
		if tc.mixes {
			assert.NotEqual(t, a[:first], b[:first], "layers=%d", tc.layers)
		} else {
			assert.Equal(t, a[:first], b[:first], "layers=%d", tc.layers)
		}
	}
}

func TestModel_PreservesBatch(t *testing.T) {
	m := newModel(t, smallConfig())
	m.Eval()

	for _, batch := range []int{1, 2, 3} {
		out := m.Forward(randn(batch, 1, 8, 6))
		assert.Equal(t, tensor.Shape{batch, 3, 5}, out.Shape(), "batch %d", batch)
	}
}

func TestModel_OutputFrames(t *testing.T) {
	cfg := smallConfig()
	assert.Equal(t, 150, cfg.OutputFrames(300))
	assert.Equal(t, 151, cfg.OutputFrames(301))
	assert.Equal(t, 1, cfg.OutputFrames(1))

	m := newModel(t, cfg)
	m.Eval()
	assert.Equal(t, tensor.Shape{1, 4, 5}, m.Forward(randn(1, 1, 8, 7)).Shape())
}

func TestModel_EvalIsDeterministic(t *testing.T) {
	m := newModel(t, smallConfig())
	m.Eval()
	assert.False(t, m.Training())

	x := randn(2, 1, 8, 6)
	assert.Equal(t, m.Forward(x).Data(), m.Forward(x).Data())
}

func TestModel_TrainingUsesDropout(t *testing.T) {
	m := newModel(t, smallConfig())
	assert.True(t, m.Training(), "new models start in training mode")

	x := randn(2, 1, 8, 6)
	assert.NotEqual(t, m.Forward(x).Data(), m.Forward(x).Data())

	m.Eval()
	m.Train()
	assert.True(t, m.Training())
	assert.NotEqual(t, m.Forward(x).Data(), m.Forward(x).Data())
}

func TestModel_ZeroDropoutTrainingIsDeterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Dropout = 0
	m := newModel(t, cfg)
	require.True(t, m.Training())

	x := randn(2, 1, 8, 6)
	assert.Equal(t, m.Forward(x).Data(), m.Forward(x).Data())
}

func TestModel_SeedReproducible(t *testing.T) {
	a := newModel(t, smallConfig())
	b := newModel(t, smallConfig())
	a.Eval()
	b.Eval()

	x := randn(1, 1, 8, 4)
	assert.Equal(t, a.Forward(x).Data(), b.Forward(x).Data())
}

func TestModel_FeatureGuard(t *testing.T) {
	tests := []struct {
		name   string
		nFeats int
		stride int
	}{
		{"stride one", 128, 1},
		{"stride three", 128, 3},
		{"odd feature count", 129, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			cfg.NFeats = tt.nFeats
			cfg.Stride = tt.stride
			_, err := deepspeech.NewSpeechRecognitionModel(cfg, cpu.New())
			assert.ErrorIs(t, err, deepspeech.ErrFeatureMismatch)
		})
	}
}

func TestModel_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*deepspeech.Config)
	}{
		{"negative cnn layers", func(c *deepspeech.Config) { c.NCNNLayers = -1 }},
		{"no rnn layers", func(c *deepspeech.Config) { c.NRNNLayers = 0 }},
		{"zero rnn dim", func(c *deepspeech.Config) { c.RNNDim = 0 }},
		{"zero classes", func(c *deepspeech.Config) { c.NClass = 0 }},
		{"zero stride", func(c *deepspeech.Config) { c.Stride = 0 }},
		{"dropout one", func(c *deepspeech.Config) { c.Dropout = 1 }},
		{"negative dropout", func(c *deepspeech.Config) { c.Dropout = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := deepspeech.NewSpeechRecognitionModel(cfg, cpu.New())
			assert.ErrorIs(t, err, deepspeech.ErrInvalidConfig)
		})
	}
}

func TestModel_NoResidualBlocks(t *testing.T) {
	cfg := smallConfig()
	cfg.NCNNLayers = 0
	m := newModel(t, cfg)
	m.Eval()
	assert.Equal(t, tensor.Shape{2, 3, 5}, m.Forward(randn(2, 1, 8, 6)).Shape())
}

func TestDefaultConfig(t *testing.T) {
	cfg := deepspeech.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.ConvFeatures())
	assert.Equal(t, 29, cfg.NClass)
	assert.Equal(t, float32(0.1), cfg.Dropout)
}

func TestModel_StateDict(t *testing.T) {
	m := newModel(t, smallConfig())
	sd := m.StateDict()

	// cnn 2 + rescnn 8 + fully_connected 2 + birnn 2*10 + classifier 4
	assert.Len(t, sd, 36)
	for _, name := range []string{
		"cnn.weight",
		"rescnn_layers.0.cnn1.bias",
		"rescnn_layers.0.layer_norm2.layer_norm.weight",
		"fully_connected.weight",
		"birnn_layers.0.BiGRU.weight_ih_l0",
		"birnn_layers.1.BiGRU.weight_hh_l0_reverse",
		"birnn_layers.1.layer_norm.bias",
		"classifier.0.weight",
		"classifier.3.bias",
	} {
		assert.Contains(t, sd, name)
	}

	assert.Equal(t, tensor.Shape{8, 32 * 4}, sd["fully_connected.weight"].Shape())
	assert.Equal(t, tensor.Shape{24, 16}, sd["birnn_layers.1.BiGRU.weight_ih_l0"].Shape())
	assert.Equal(t, tensor.Shape{24, 8}, sd["birnn_layers.0.BiGRU.weight_ih_l0"].Shape())
	assert.Equal(t, tensor.Shape{5}, sd["classifier.3.bias"].Shape())

	total := 0
	for _, raw := range sd {
		total += raw.NumElements()
	}
	assert.Equal(t, total, m.NumParameters())
}

func TestModel_LoadStateDict(t *testing.T) {
	cfg := smallConfig()
	src := newModel(t, cfg)
	cfg.Seed = 2
	dst := newModel(t, cfg)
	src.Eval()
	dst.Eval()

	x := randn(1, 1, 8, 5)
	require.NotEqual(t, src.Forward(x).Data(), dst.Forward(x).Data())

	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}

func TestModel_LoadStateDictErrors(t *testing.T) {
	m := newModel(t, smallConfig())

	extra := m.StateDict()
	extra["decoder.weight"] = extra["cnn.weight"]
	assert.ErrorIs(t, m.LoadStateDict(extra), deepspeech.ErrUnexpectedParameter)

	missing := m.StateDict()
	delete(missing, "birnn_layers.1.BiGRU.bias_hh_l0_reverse")
	err := m.LoadStateDict(missing)
	assert.ErrorIs(t, err, nn.ErrMissingParameter)
	assert.Contains(t, err.Error(), "birnn_layers.1")

	wrongShape := m.StateDict()
	wrongShape["classifier.3.bias"] = tensor.Zeros[float32](tensor.Shape{7}, cpu.New()).Raw()
	assert.ErrorIs(t, m.LoadStateDict(wrongShape), nn.ErrShapeMismatch)
}

func TestModel_String(t *testing.T) {
	m := newModel(t, smallConfig())
	s := m.String()
	assert.Contains(t, s, "(cnn): Conv2d(1, 32, kernel_size=(3, 3), stride=(2, 2), padding=(1, 1))")
	assert.Contains(t, s, "(fully_connected): Linear(in_features=128, out_features=8, bias=True)")
	assert.Contains(t, s, "batch_first=false")
}

func TestModel_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size forward pass")
	}

	cfg := deepspeech.Config{
		NCNNLayers: 3,
		NRNNLayers: 2,
		RNNDim:     256,
		NClass:     29,
		NFeats:     128,
		Stride:     2,
		Dropout:    0.1,
		Seed:       7,
	}
	m := newModel(t, cfg)
	m.Eval()

	out := m.Forward(randn(2, 1, 128, 300))
	require.Equal(t, tensor.Shape{2, 150, 29}, out.Shape())
	for _, v := range out.Data() {
		require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
	}
}

func keys(m map[string]*tensor.RawTensor) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
