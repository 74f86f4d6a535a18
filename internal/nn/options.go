package nn

import "math/rand"

type options struct {
	rng *rand.Rand
}

// Option configures layer construction.
type Option func(*options)

// WithRand makes a layer draw its initial weights and dropout masks from
// rng. Layers sharing one rng consume it in construction and call order,
// so a fixed seed reproduces the same model.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
