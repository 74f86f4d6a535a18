// Package main provides the deepspeech command: inspect, initialize, run
// and serve the acoustic model.
package main

import (
	"fmt"
	"io"
	"os"
)

var version = "v0.1.0-dev"

type command struct {
	name  string
	usage string
	run   func(args []string, stdout, stderr io.Writer) error
}

func commands() []command {
	return []command{
		{"version", "Show version", runVersion},
		{"summary", "Print the architecture and parameter count", runSummary},
		{"init", "Write a freshly initialized checkpoint", runInit},
		{"forward", "Run one forward pass on synthetic input and report latency", runForward},
		{"labels", "Encode a transcript to label ids (or decode ids)", runLabels},
		{"serve", "Serve the model over NATS with Prometheus /metrics", runServe},
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return 0
	}

	for _, cmd := range commands() {
		if cmd.name != args[0] {
			continue
		}
		if err := cmd.run(args[1:], stdout, stderr); err != nil {
			fmt.Fprintf(stderr, "deepspeech %s: %v\n", cmd.name, err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "DeepSpeech2 acoustic model")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Usage: deepspeech <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.usage)
	}
}

func runVersion(_ []string, stdout, _ io.Writer) error {
	fmt.Fprintf(stdout, "deepspeech %s\n", version)
	return nil
}
