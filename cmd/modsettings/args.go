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

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bufbuild/modsettings"
)

// stdio names standard input when given as the input path.
const stdio = "-"

type mode int

const (
	modeDecode mode = iota + 1
	modeEncode
)

func (m mode) String() string {
	switch m {
	case modeDecode:
		return "decode"
	case modeEncode:
		return "encode"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func parseMode(name string) (mode, error) {
	switch strings.ToLower(name) {
	case "decode", "d":
		return modeDecode, nil
	case "encode", "e":
		return modeEncode, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want encode, decode, e or d)", name)
	}
}

// usageError is reported for bad arguments and failed inference.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// options is a fully resolved command line.
type options struct {
	mode mode
	// textFormat is the format of the text side: the output when
	// decoding, the input when encoding.
	textFormat modsettings.Format
	input      string
	// output is empty for standard output.
	output string
}

func (o *options) inputFormat() modsettings.Format {
	if o.mode == modeEncode {
		return o.textFormat
	}
	return modsettings.FormatBinary
}

func (o *options) outputFormat() modsettings.Format {
	if o.mode == modeEncode {
		return modsettings.FormatBinary
	}
	return o.textFormat
}

// resolveOptions validates the arguments and infers whatever the flags left
// out. The mode comes from the output extension first, then the input
// extension. The text format comes from the extension of the text side.
func resolveOptions(modeFlag, formatFlag string, positional []string) (*options, error) {
	if len(positional) == 0 {
		return nil, usagef("missing input path")
	}
	if len(positional) > 2 {
		return nil, usagef("unexpected argument %q", positional[2])
	}
	opts := &options{input: positional[0]}
	if len(positional) == 2 {
		opts.output = positional[1]
	}
	if opts.input == "" {
		return nil, usagef("input path cannot be empty")
	}

	if modeFlag != "" {
		m, err := parseMode(modeFlag)
		if err != nil {
			return nil, &usageError{err: err}
		}
		opts.mode = m
	} else {
		m, err := inferMode(opts.input, opts.output)
		if err != nil {
			return nil, err
		}
		opts.mode = m
	}

	if formatFlag != "" {
		format, err := modsettings.ParseFormat(formatFlag)
		if err != nil {
			return nil, &usageError{err: err}
		}
		if !format.IsText() {
			return nil, usagef("format must be toml or json, not %v", format)
		}
		opts.textFormat = format
		return opts, nil
	}
	textSide, role := opts.output, "output"
	if opts.mode == modeEncode {
		textSide, role = opts.input, "input"
	}
	format, ok := pathFormat(textSide)
	if !ok || !format.IsText() {
		if textSide == "" || textSide == stdio {
			return nil, usagef("cannot infer the format of standard %s; use --format", role)
		}
		return nil, usagef("cannot infer a text format from %s %q; use --format", role, textSide)
	}
	opts.textFormat = format
	return opts, nil
}

func inferMode(input, output string) (mode, error) {
	if format, ok := pathFormat(output); ok {
		if format.IsText() {
			return modeDecode, nil
		}
		return modeEncode, nil
	}
	if format, ok := pathFormat(input); ok {
		if format.IsText() {
			return modeEncode, nil
		}
		return modeDecode, nil
	}
	return 0, &usageError{err: errors.New("cannot infer whether to encode or decode from the file extensions; use --mode")}
}

func pathFormat(path string) (modsettings.Format, bool) {
	if path == "" || path == stdio {
		return 0, false
	}
	return modsettings.FormatForPath(filepath.Base(path))
}
