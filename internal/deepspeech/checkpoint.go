package deepspeech

import (
	"encoding/json"
	"fmt"

	"github.com/born-ml/deepspeech/internal/serialization"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// Checkpoint metadata keys.
const (
	MetadataArch   = "deepspeech.arch"
	MetadataConfig = "deepspeech.config"

	archName = "deepspeech2"
)

// SaveCheckpoint writes the model's state dict and hyperparameters to path
// in SafeTensors format.
func SaveCheckpoint[B tensor.Backend](path string, m *SpeechRecognitionModel[B]) error {
	cfgJSON, err := json.Marshal(m.Config())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	metadata := map[string]string{
		MetadataArch:   archName,
		MetadataConfig: string(cfgJSON),
	}
	if err := serialization.WriteFile(path, m.StateDict(), metadata); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint rebuilds a model from a checkpoint written by
// SaveCheckpoint. The returned model is in evaluation mode.
func LoadCheckpoint[B tensor.Backend](path string, backend B) (*SpeechRecognitionModel[B], error) {
	f, err := serialization.ReadFile(path, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cfg, err := ConfigFromMetadata(f.Metadata)
	if err != nil {
		return nil, err
	}

	m, err := NewSpeechRecognitionModel(cfg, backend)
	if err != nil {
		return nil, err
	}
	if err := m.LoadStateDict(f.Tensors); err != nil {
		return nil, fmt.Errorf("failed to load checkpoint weights: %w", err)
	}
	m.Eval()
	return m, nil
}

// LoadWeights copies the tensors of a SafeTensors file into an existing
// model, for weights exported without model metadata.
func LoadWeights[B tensor.Backend](path string, m *SpeechRecognitionModel[B]) error {
	f, err := serialization.ReadFile(path, m.Device())
	if err != nil {
		return fmt.Errorf("failed to load weights: %w", err)
	}
	return m.LoadStateDict(f.Tensors)
}

// ConfigFromMetadata decodes the hyperparameters stored by SaveCheckpoint.
func ConfigFromMetadata(metadata map[string]string) (Config, error) {
	if arch, ok := metadata[MetadataArch]; ok && arch != archName {
		return Config{}, fmt.Errorf("%w: architecture %q", ErrInvalidCheckpoint, arch)
	}
	raw, ok := metadata[MetadataConfig]
	if !ok {
		return Config{}, fmt.Errorf("%w: missing %s metadata", ErrInvalidCheckpoint, MetadataConfig)
	}

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidCheckpoint, err)
	}
	return cfg, nil
}
