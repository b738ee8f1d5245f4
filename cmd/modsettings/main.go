// Copyright 2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command modsettings converts a game's binary mod-settings.dat file to
// JSON or TOML for editing, and encodes edited documents back.
//
// Usage:
//
//	modsettings [flags] INPUT [OUTPUT]
//
// INPUT may be "-" to read standard input. Without OUTPUT the result is
// written to standard output. The mode and format are inferred from the
// file extensions when not given.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bufbuild/modsettings"
	"github.com/spf13/pflag"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var modeFlag, formatFlag string
	var verbose, help bool
	flagSet := pflag.NewFlagSet("modsettings", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&modeFlag, "mode", "m", "", "encode or decode (e, d); inferred from the output, then the input extension")
	flagSet.StringVarP(&formatFlag, "format", "f", "", "text format, toml or json (t, j); inferred from the text side's extension")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log progress to standard error")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if help {
		printHelp(stderr, flagSet)
		return 0
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts, err := resolveOptions(modeFlag, formatFlag, flagSet.Args())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	logger.Debug("resolved options",
		slog.String("mode", opts.mode.String()),
		slog.String("input_format", opts.inputFormat().String()),
		slog.String("output_format", opts.outputFormat().String()),
	)
	if err := convert(opts, stdin, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return exitUsage
		}
		return exitFailure
	}
	return 0
}

// convert reads the whole input, converts it in memory and only then
// creates the output, so a failure never leaves partial output behind.
func convert(opts *options, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	input, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}
	logger.Debug("read input", slog.String("path", opts.input), slog.Int("bytes", len(input)))

	converter, err := newConverter(opts)
	if err != nil {
		return err
	}
	output, err := converter.Convert(input)
	if err != nil {
		return err
	}

	if opts.output == "" {
		if _, err := stdout.Write(output); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(opts.output, output, 0644); err != nil { //nolint:gosec // settings files are not secret
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Debug("wrote output", slog.String("path", opts.output), slog.Int("bytes", len(output)))
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == stdio {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return data, nil
}

func newConverter(opts *options) (*modsettings.Converter, error) {
	inputFormat, err := modsettings.InputFormatFor(opts.inputFormat())
	if err != nil {
		return nil, &usageError{err: err}
	}
	outputFormat, err := modsettings.OutputFormatFor(opts.outputFormat())
	if err != nil {
		return nil, &usageError{err: err}
	}
	return &modsettings.Converter{
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
	}, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `modsettings converts mod-settings.dat to JSON or TOML and back.

Usage:
  modsettings [flags] INPUT [OUTPUT]

INPUT may be "-" for standard input. OUTPUT defaults to standard output
and is overwritten if present.

Examples:
  modsettings mod-settings.dat settings.toml
  modsettings settings.json mod-settings.dat
  modsettings --mode decode --format json - < mod-settings.dat

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
