package deepspeech

import "fmt"

// ConvChannels is the channel width of the initial convolution and of every
// residual block.
const ConvChannels = 32

// Config holds the architecture hyperparameters. They are fixed at
// construction time.
type Config struct {
	NCNNLayers int     `yaml:"n_cnn_layers" json:"n_cnn_layers"`
	NRNNLayers int     `yaml:"n_rnn_layers" json:"n_rnn_layers"`
	RNNDim     int     `yaml:"rnn_dim" json:"rnn_dim"`
	NClass     int     `yaml:"n_class" json:"n_class"`
	NFeats     int     `yaml:"n_feats" json:"n_feats"`
	Stride     int     `yaml:"stride" json:"stride"`
	Dropout    float32 `yaml:"dropout" json:"dropout"`

	// Seed drives weight initialization and dropout masks. Zero picks a
	// time-based seed.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the hyperparameters of the reference training run.
func DefaultConfig() Config {
	return Config{
		NCNNLayers: 3,
		NRNNLayers: 5,
		RNNDim:     512,
		NClass:     29,
		NFeats:     128,
		Stride:     2,
		Dropout:    0.1,
	}
}

// Validate checks every hyperparameter range and the feature-halving
// assumption of the normalization layers.
func (c Config) Validate() error {
	switch {
	case c.NCNNLayers < 0:
		return fmt.Errorf("%w: n_cnn_layers must be >= 0, got %d", ErrInvalidConfig, c.NCNNLayers)
	case c.NRNNLayers < 1:
		return fmt.Errorf("%w: n_rnn_layers must be >= 1, got %d", ErrInvalidConfig, c.NRNNLayers)
	case c.RNNDim < 1:
		return fmt.Errorf("%w: rnn_dim must be >= 1, got %d", ErrInvalidConfig, c.RNNDim)
	case c.NClass < 1:
		return fmt.Errorf("%w: n_class must be >= 1, got %d", ErrInvalidConfig, c.NClass)
	case c.NFeats < 2:
		return fmt.Errorf("%w: n_feats must be >= 2, got %d", ErrInvalidConfig, c.NFeats)
	case c.Stride < 1:
		return fmt.Errorf("%w: stride must be >= 1, got %d", ErrInvalidConfig, c.Stride)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("%w: dropout must be in [0, 1), got %v", ErrInvalidConfig, c.Dropout)
	}

	if got, want := c.ConvFeatures(), c.NFeats/2; got != want {
		return fmt.Errorf("%w: n_feats=%d with stride %d yields %d bins, normalization expects %d",
			ErrFeatureMismatch, c.NFeats, c.Stride, got, want)
	}
	return nil
}

// ConvFeatures returns the frequency width produced by the initial
// convolution (kernel 3, padding 1).
func (c Config) ConvFeatures() int {
	return convOut(c.NFeats, c.Stride)
}

// OutputFrames returns the number of output time steps for an input with
// the given number of frames.
func (c Config) OutputFrames(frames int) int {
	return convOut(frames, c.Stride)
}

func convOut(n, stride int) int {
	return (n+2*1-3)/stride + 1
}
