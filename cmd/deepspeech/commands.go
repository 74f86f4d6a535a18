package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/deepspeech/internal/backend/cpu"
	"github.com/born-ml/deepspeech/internal/config"
	"github.com/born-ml/deepspeech/internal/deepspeech"
	"github.com/born-ml/deepspeech/internal/parallel"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// newFlagSet returns a flag set with the shared -config flag.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	return fs, configPath
}

func newBackend(cfg config.Config) *cpu.CPUBackend {
	return cpu.NewWithConfig(parallel.DefaultConfig().WithWorkers(cfg.Backend.Workers))
}

// loadModel restores model.checkpoint when set, otherwise builds a fresh
// model from the configured hyperparameters.
func loadModel(cfg config.Config, backend *cpu.CPUBackend) (*deepspeech.SpeechRecognitionModel[*cpu.CPUBackend], error) {
	if cfg.Model.Checkpoint == "" {
		return deepspeech.NewSpeechRecognitionModel(cfg.Model.Config, backend)
	}

	m, err := deepspeech.LoadCheckpoint(cfg.Model.Checkpoint, backend)
	if err != nil {
		return nil, err
	}
	vocab, err := cfg.LoadVocabulary()
	if err != nil {
		return nil, err
	}
	if n := m.Config().NClass; n != vocab.NumClasses() {
		return nil, fmt.Errorf("checkpoint %s has n_class %d, vocabulary %s has %d classes",
			cfg.Model.Checkpoint, n, vocab.Name(), vocab.NumClasses())
	}
	return m, nil
}

func runSummary(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("summary", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	m, err := loadModel(cfg, newBackend(cfg))
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, m)
	fmt.Fprintf(stdout, "Parameters: %d\n", m.NumParameters())
	fmt.Fprintf(stdout, "Tensors: %d\n", len(m.StateDict()))
	return nil
}

func runInit(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("init", stderr)
	out := fs.String("out", "deepspeech.safetensors", "Checkpoint path to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	m, err := deepspeech.NewSpeechRecognitionModel(cfg.Model.Config, newBackend(cfg))
	if err != nil {
		return err
	}
	if err := deepspeech.SaveCheckpoint(*out, m); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %s (%d parameters)\n", *out, m.NumParameters())
	return nil
}

func runForward(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("forward", stderr)
	batch := fs.Int("batch", 1, "Batch size")
	frames := fs.Int("frames", 300, "Input time frames")
	zeros := fs.Bool("zeros", false, "Use an all-zero input instead of Gaussian noise")
	seed := fs.Int64("seed", 1, "Input noise seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batch < 1 || *frames < 1 {
		return fmt.Errorf("batch and frames must be positive")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	backend := newBackend(cfg)
	m, err := loadModel(cfg, backend)
	if err != nil {
		return err
	}
	m.Eval()

	shape := tensor.Shape{*batch, 1, m.Config().NFeats, *frames}
	var x *tensor.Tensor[float32, *cpu.CPUBackend]
	if *zeros {
		x = tensor.Zeros[float32](shape, backend)
	} else {
		//nolint:gosec // G404: synthetic benchmark input
		x = tensor.Randn[float32](shape, rand.New(rand.NewSource(*seed)), backend)
	}

	start := time.Now()
	y := m.Forward(x)
	elapsed := time.Since(start)

	fmt.Fprintf(stdout, "input:  %v\n", x.Shape())
	fmt.Fprintf(stdout, "output: %v\n", y.Shape())
	fmt.Fprintf(stdout, "latency: %s\n", elapsed.Round(time.Microsecond))
	return nil
}

func runLabels(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("labels", stderr)
	decode := fs.Bool("decode", false, "Decode comma-separated label ids instead of encoding text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	vocab, err := cfg.LoadVocabulary()
	if err != nil {
		return err
	}
	input := strings.Join(fs.Args(), " ")

	if *decode {
		var labels []int32
		for _, field := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' }) {
			id, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return fmt.Errorf("label %q: %w", field, err)
			}
			labels = append(labels, int32(id))
		}
		text, err := vocab.Decode(labels)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, text)
		return nil
	}

	labels, err := vocab.Encode(input)
	if err != nil {
		return err
	}
	ids := make([]string, len(labels))
	for i, id := range labels {
		ids[i] = strconv.Itoa(int(id))
	}
	fmt.Fprintln(stdout, strings.Join(ids, ","))
	return nil
}
