package deepspeech

import "errors"

// Sentinel errors returned by model construction and checkpoint loading.
var (
	// ErrInvalidConfig is returned for out-of-range hyperparameters.
	ErrInvalidConfig = errors.New("invalid model config")

	// ErrFeatureMismatch is returned when the initial convolution does not
	// produce exactly n_feats/2 frequency bins, which every normalization
	// layer after it assumes.
	ErrFeatureMismatch = errors.New("initial convolution does not halve the feature axis")

	// ErrUnexpectedParameter is returned when a state dict holds a key the
	// model does not own.
	ErrUnexpectedParameter = errors.New("unexpected parameter in state dict")

	// ErrInvalidCheckpoint is returned for checkpoints without model metadata.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
)
