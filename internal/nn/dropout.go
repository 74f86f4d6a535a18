package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// Dropout randomly zeroes elements with probability p during training and
// scales the survivors by 1/(1-p), so evaluation needs no rescaling.
//
// In evaluation mode, or with p = 0, Forward returns its input unchanged.
// Every call in training mode draws a fresh mask.
//
// New Dropout modules start in training mode.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	rng      *rand.Rand
}

// NewDropout creates a dropout module. Panics unless 0 <= p <= 1.
func NewDropout[B tensor.Backend](p float32, opts ...Option) *Dropout[B] {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1], got %v", p))
	}
	o := buildOptions(opts)
	return &Dropout[B]{
		p:        p,
		training: true,
		rng:      o.rng,
	}
}

// Forward applies dropout in training mode and is the identity otherwise.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		return input
	}

	mask := tensor.Zeros[float32](input.Shape(), input.Backend())
	if d.p < 1 {
		scale := 1 / (1 - d.p)
		data := mask.Data()
		for i := range data {
			if d.draw() >= d.p {
				data[i] = scale
			}
		}
	}
	return input.Mul(mask)
}

func (d *Dropout[B]) draw() float32 {
	if d.rng == nil {
		return rand.Float32() //nolint:gosec // G404: dropout masks are not security-sensitive
	}
	return d.rng.Float32()
}

// SetTraining switches between training (masking) and evaluation (identity).
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Training reports whether the module is in training mode.
func (d *Dropout[B]) Training() bool {
	return d.training
}

// P returns the drop probability.
func (d *Dropout[B]) P() float32 {
	return d.p
}

// Parameters returns nil (Dropout has no learned parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty state dict.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op.
func (d *Dropout[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// String returns a string representation of the module.
func (d *Dropout[B]) String() string {
	return fmt.Sprintf("Dropout(p=%g)", d.p)
}
