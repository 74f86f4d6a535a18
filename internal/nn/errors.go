package nn

import "errors"

// State dict loading errors.
var (
	ErrMissingParameter = errors.New("missing parameter in state dict")
	ErrShapeMismatch    = errors.New("parameter shape mismatch")
	ErrDTypeMismatch    = errors.New("parameter dtype mismatch")
)
