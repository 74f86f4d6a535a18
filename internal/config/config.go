// Package config loads the YAML configuration of the deepspeech command:
// model hyperparameters, label vocabulary, NATS bus, telemetry and the
// scoring service. Values come from Default, then the YAML file, then
// DEEPSPEECH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/deepspeech/internal/deepspeech"
	"github.com/born-ml/deepspeech/internal/tokenizer"
)

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	Model       ModelConfig     `yaml:"model"`
	Vocabulary  string          `yaml:"vocabulary"`
	Backend     BackendConfig   `yaml:"backend"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Service     ServiceConfig   `yaml:"service"`
}

// ModelConfig holds the architecture plus an optional checkpoint. When
// Checkpoint is set its stored hyperparameters take precedence.
type ModelConfig struct {
	deepspeech.Config `yaml:",inline"`
	Checkpoint        string `yaml:"checkpoint"`
}

type BackendConfig struct {
	// Workers bounds the CPU backend's goroutines; 0 uses every core and 1
	// runs sequentially.
	Workers int `yaml:"workers"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type TelemetryConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`     // json, text
	TraceExporter string `yaml:"trace_exporter"` // none, stdout, otlp
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	OTLPInsecure  bool   `yaml:"otlp_insecure"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	Subject        string   `yaml:"subject"`
	Queue          string   `yaml:"queue"`
}

type ServiceConfig struct {
	MaxBatch  int `yaml:"max_batch"`
	MaxFrames int `yaml:"max_frames"`
}

func Default() Config {
	return Config{
		ServiceName: "deepspeech",
		Environment: "development",
		Model: ModelConfig{
			Config: deepspeech.DefaultConfig(),
		},
		Vocabulary: tokenizer.CharVocabularyName,
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 9090,
		},
		Telemetry: TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			TraceExporter: "none",
			OTLPInsecure:  true,
		},
		Bus: BusConfig{
			Embedded:       false,
			Host:           "127.0.0.1",
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			Subject:        "asr.acoustic.score",
			Queue:          "deepspeech",
		},
		Service: ServiceConfig{
			MaxBatch:  16,
			MaxFrames: 3000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // G304: config path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadVocabulary resolves the configured label vocabulary.
func (c Config) LoadVocabulary() (tokenizer.Vocabulary, error) {
	vocab, err := tokenizer.Load(c.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	return vocab, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "DEEPSPEECH_SERVICE_NAME")
	overrideString(&cfg.Environment, "DEEPSPEECH_ENVIRONMENT")
	overrideInt(&cfg.Model.NCNNLayers, "DEEPSPEECH_MODEL_N_CNN_LAYERS")
	overrideInt(&cfg.Model.NRNNLayers, "DEEPSPEECH_MODEL_N_RNN_LAYERS")
	overrideInt(&cfg.Model.RNNDim, "DEEPSPEECH_MODEL_RNN_DIM")
	overrideInt(&cfg.Model.NClass, "DEEPSPEECH_MODEL_N_CLASS")
	overrideInt(&cfg.Model.NFeats, "DEEPSPEECH_MODEL_N_FEATS")
	overrideInt(&cfg.Model.Stride, "DEEPSPEECH_MODEL_STRIDE")
	overrideFloat32(&cfg.Model.Dropout, "DEEPSPEECH_MODEL_DROPOUT")
	overrideInt64(&cfg.Model.Seed, "DEEPSPEECH_MODEL_SEED")
	overrideString(&cfg.Model.Checkpoint, "DEEPSPEECH_MODEL_CHECKPOINT")
	overrideString(&cfg.Vocabulary, "DEEPSPEECH_VOCABULARY")
	overrideInt(&cfg.Backend.Workers, "DEEPSPEECH_BACKEND_WORKERS")
	overrideString(&cfg.HTTP.Bind, "DEEPSPEECH_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "DEEPSPEECH_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "DEEPSPEECH_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFormat, "DEEPSPEECH_TELEMETRY_LOG_FORMAT")
	overrideString(&cfg.Telemetry.TraceExporter, "DEEPSPEECH_TELEMETRY_TRACE_EXPORTER")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DEEPSPEECH_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DEEPSPEECH_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "DEEPSPEECH_BUS_EMBEDDED")
	overrideString(&cfg.Bus.Host, "DEEPSPEECH_BUS_HOST")
	overrideInt(&cfg.Bus.Port, "DEEPSPEECH_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "DEEPSPEECH_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "DEEPSPEECH_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "DEEPSPEECH_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "DEEPSPEECH_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "DEEPSPEECH_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "DEEPSPEECH_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.Subject, "DEEPSPEECH_BUS_SUBJECT")
	overrideString(&cfg.Bus.Queue, "DEEPSPEECH_BUS_QUEUE")
	overrideInt(&cfg.Service.MaxBatch, "DEEPSPEECH_SERVICE_MAX_BATCH")
	overrideInt(&cfg.Service.MaxFrames, "DEEPSPEECH_SERVICE_MAX_FRAMES")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat32(target *float32, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			*target = float32(parsed)
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.Model.Checkpoint == "" {
		if err := cfg.Model.Validate(); err != nil {
			return fmt.Errorf("model: %w", err)
		}
		vocab, err := cfg.LoadVocabulary()
		if err != nil {
			return err
		}
		if cfg.Model.NClass != vocab.NumClasses() {
			return fmt.Errorf("model.n_class %d does not match vocabulary %s with %d classes",
				cfg.Model.NClass, vocab.Name(), vocab.NumClasses())
		}
	}
	if cfg.Backend.Workers < 0 {
		return errors.New("backend.workers must be >= 0")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch cfg.Telemetry.LogFormat {
	case "json", "text":
	default:
		return errors.New("telemetry.log_format must be one of json|text")
	}
	switch cfg.Telemetry.TraceExporter {
	case "none", "stdout":
	case "otlp":
		if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
			return errors.New("telemetry.otlp_endpoint must be set when trace_exporter=otlp")
		}
	default:
		return errors.New("telemetry.trace_exporter must be one of none|stdout|otlp")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else if len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when embedded mode is disabled")
	}
	if cfg.Bus.Subject == "" {
		return errors.New("bus.subject must not be empty")
	}
	if cfg.Bus.ConnectTimeout <= 0 {
		return errors.New("bus.connect_timeout_ms must be positive")
	}
	if cfg.Service.MaxBatch <= 0 {
		return errors.New("service.max_batch must be >= 1")
	}
	if cfg.Service.MaxFrames <= 0 {
		return errors.New("service.max_frames must be >= 1")
	}
	return nil
}
