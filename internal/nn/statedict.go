package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// ParamsStateDict builds a state dict from parameters keyed by their names.
func ParamsStateDict[B tensor.Backend](params ...*Parameter[B]) map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		stateDict[p.Name()] = p.Tensor().Raw()
	}
	return stateDict
}

// LoadParams loads every parameter from stateDict by name.
func LoadParams[B tensor.Backend](stateDict map[string]*tensor.RawTensor, params ...*Parameter[B]) error {
	for _, p := range params {
		raw, ok := stateDict[p.Name()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, p.Name())
		}
		if err := p.Load(raw); err != nil {
			return err
		}
	}
	return nil
}

// MergePrefixed copies src into dst with every key prefixed by prefix and
// a dot, e.g. "weight" under "cnn" becomes "cnn.weight".
func MergePrefixed(dst, src map[string]*tensor.RawTensor, prefix string) {
	for name, raw := range src {
		dst[prefix+"."+name] = raw
	}
}

// SubStateDict returns the entries of stateDict under prefix with the
// prefix and its dot stripped.
func SubStateDict(stateDict map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	p := prefix + "."
	sub := make(map[string]*tensor.RawTensor)
	for key, raw := range stateDict {
		if name, ok := strings.CutPrefix(key, p); ok && name != "" {
			sub[name] = raw
		}
	}
	return sub
}

// LoadChild loads the entries under prefix into child, wrapping any error
// with the prefix.
func LoadChild[B tensor.Backend](stateDict map[string]*tensor.RawTensor, prefix string, child Module[B]) error {
	if err := child.LoadStateDict(SubStateDict(stateDict, prefix)); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}
