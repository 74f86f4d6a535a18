package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// GRU is a single-layer, single-direction gated recurrent unit over a
// time-major sequence.
//
// For each step t (PyTorch gate order r, z, n):
//
//	r = sigmoid(W_ir x_t + b_ir + W_hr h + b_hr)
//	z = sigmoid(W_iz x_t + b_iz + W_hz h + b_hz)
//	n = tanh(W_in x_t + b_in + r * (W_hn h + b_hn))
//	h = (1 - z) * n + z * h
//
// The hidden state starts at zero on every Forward call. A reverse GRU
// walks the sequence from the last step to the first and writes each
// output at its original time index.
//
// Weights are drawn from U(-1/sqrt(hidden), 1/sqrt(hidden)).
type GRU[B tensor.Backend] struct {
	inputSize  int
	hiddenSize int
	reverse    bool

	weightIH *Parameter[B] // [3*hidden, input]
	weightHH *Parameter[B] // [3*hidden, hidden]
	biasIH   *Parameter[B] // [3*hidden]
	biasHH   *Parameter[B] // [3*hidden]

	backend B
}

// NewGRU creates a GRU. Parameter names follow PyTorch's layer-0 names
// ("weight_ih_l0", ...), with a "_reverse" suffix for the reverse direction.
func NewGRU[B tensor.Backend](inputSize, hiddenSize int, reverse bool, backend B, opts ...Option) *GRU[B] {
	if inputSize <= 0 || hiddenSize <= 0 {
		panic(fmt.Sprintf("gru: invalid sizes input=%d, hidden=%d", inputSize, hiddenSize))
	}
	o := buildOptions(opts)

	suffix := "_l0"
	if reverse {
		suffix += "_reverse"
	}
	bound := 1 / math.Sqrt(float64(hiddenSize))
	gates := 3 * hiddenSize

	return &GRU[B]{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		reverse:    reverse,
		weightIH:   NewParameter("weight_ih"+suffix, Uniform(bound, tensor.Shape{gates, inputSize}, o.rng, backend)),
		weightHH:   NewParameter("weight_hh"+suffix, Uniform(bound, tensor.Shape{gates, hiddenSize}, o.rng, backend)),
		biasIH:     NewParameter("bias_ih"+suffix, Uniform(bound, tensor.Shape{gates}, o.rng, backend)),
		biasHH:     NewParameter("bias_hh"+suffix, Uniform(bound, tensor.Shape{gates}, o.rng, backend)),
		backend:    backend,
	}
}

// Forward runs the recurrence over x [time, batch, input] and returns the
// hidden state at every step, [time, batch, hidden].
func (g *GRU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != g.inputSize {
		panic(fmt.Sprintf("gru: expected input [time, batch, %d], got %v", g.inputSize, shape))
	}
	steps, batch := shape[0], shape[1]

	// Input projections for all steps at once: [time*batch, 3*hidden].
	gi := g.project(x.Reshape(steps*batch, g.inputSize), g.weightIH, g.biasIH)
	h := tensor.Zeros[float32](tensor.Shape{batch, g.hiddenSize}, g.backend)

	outputs := make([]*tensor.Tensor[float32, B], steps)
	for s := 0; s < steps; s++ {
		t := s
		if g.reverse {
			t = steps - 1 - s
		}
		h = g.step(gi.Narrow(0, t*batch, batch), h)
		outputs[t] = h.Unsqueeze(0)
	}
	return tensor.Cat(outputs, 0)
}

// step advances the hidden state by one time step given the precomputed
// input projection gi [batch, 3*hidden].
func (g *GRU[B]) step(gi, h *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	gh := g.project(h, g.weightHH, g.biasHH)

	i := gi.Chunk(3, -1)
	hh := gh.Chunk(3, -1)

	r := Sigmoid(i[0].Add(hh[0]))
	z := Sigmoid(i[1].Add(hh[1]))
	n := Tanh(i[2].Add(r.Mul(hh[2])))

	// (1 - z) * n + z * h == n + z * (h - n)
	return n.Add(z.Mul(h.Sub(n)))
}

func (g *GRU[B]) project(x *tensor.Tensor[float32, B], w, b *Parameter[B]) *tensor.Tensor[float32, B] {
	return x.MatMul(w.Tensor().T()).Add(b.Tensor())
}

// Parameters returns [weight_ih, weight_hh, bias_ih, bias_hh].
func (g *GRU[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{g.weightIH, g.weightHH, g.biasIH, g.biasHH}
}

// StateDict returns the four GRU tensors under their PyTorch names.
func (g *GRU[B]) StateDict() map[string]*tensor.RawTensor {
	return ParamsStateDict(g.Parameters()...)
}

// LoadStateDict loads the four GRU tensors, validating shape and dtype.
func (g *GRU[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParams(stateDict, g.Parameters()...)
}

// HiddenSize returns the size of the hidden state.
func (g *GRU[B]) HiddenSize() int {
	return g.hiddenSize
}

// Reverse reports whether the GRU runs backwards in time.
func (g *GRU[B]) Reverse() bool {
	return g.reverse
}

// BiGRU runs a forward and a reverse GRU over the same time-major sequence
// and concatenates their outputs on the feature axis.
//
// Input:  [time, batch, input]
// Output: [time, batch, 2*hidden], forward direction first.
type BiGRU[B tensor.Backend] struct {
	forward  *GRU[B]
	backward *GRU[B]
}

// NewBiGRU creates a bidirectional single-layer GRU.
func NewBiGRU[B tensor.Backend](inputSize, hiddenSize int, backend B, opts ...Option) *BiGRU[B] {
	return &BiGRU[B]{
		forward:  NewGRU(inputSize, hiddenSize, false, backend, opts...),
		backward: NewGRU(inputSize, hiddenSize, true, backend, opts...),
	}
}

// Forward returns both directions' outputs concatenated on the last axis.
func (b *BiGRU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.Cat([]*tensor.Tensor[float32, B]{b.forward.Forward(x), b.backward.Forward(x)}, -1)
}

// Parameters returns the forward direction's parameters, then the reverse's.
func (b *BiGRU[B]) Parameters() []*Parameter[B] {
	return append(b.forward.Parameters(), b.backward.Parameters()...)
}

// StateDict returns all eight tensors; the reverse direction's names carry
// the "_reverse" suffix.
func (b *BiGRU[B]) StateDict() map[string]*tensor.RawTensor {
	return ParamsStateDict(b.Parameters()...)
}

// LoadStateDict loads both directions.
func (b *BiGRU[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParams(stateDict, b.Parameters()...)
}

// HiddenSize returns the per-direction hidden size.
func (b *BiGRU[B]) HiddenSize() int {
	return b.forward.hiddenSize
}

// String returns a string representation of the layer.
func (b *BiGRU[B]) String() string {
	return fmt.Sprintf("GRU(%d, %d, bidirectional=True)", b.forward.inputSize, b.forward.hiddenSize)
}
