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

package modsettings

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bufbuild/modsettings/propertytree"
)

// Format identifies one of the supported settings encodings.
type Format int

const (
	// FormatBinary is the game's own property tree encoding, as found in
	// mod-settings.dat.
	FormatBinary Format = iota + 1
	FormatJSON
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// IsText reports whether f is one of the text formats.
func (f Format) IsText() bool {
	return f == FormatJSON || f == FormatTOML
}

// ParseFormat returns the format with the given name. Besides the names
// returned by String, the short forms "b", "j" and "t" and the file
// extension "dat" are accepted. Matching is case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "binary", "b", "dat":
		return FormatBinary, nil
	case "json", "j":
		return FormatJSON, nil
	case "toml", "t":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("unknown format %q", name)
	}
}

// FormatForPath infers a format from the extension of path: ".dat" is
// binary, ".json" is JSON and ".toml" is TOML.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat":
		return FormatBinary, true
	case ".json":
		return FormatJSON, true
	case ".toml":
		return FormatTOML, true
	default:
		return 0, false
	}
}

// InputFormat reads settings from bytes.
type InputFormat interface {
	Unmarshal(data []byte) (*SimpleSettings, error)
}

// OutputFormat renders settings as bytes.
type OutputFormat interface {
	Marshal(settings *SimpleSettings) ([]byte, error)
}

// InputFormatFor returns the input format for f with default options.
func InputFormatFor(f Format) (InputFormat, error) {
	switch f {
	case FormatBinary:
		return BinaryInputFormat(propertytree.DecodeOptions{}), nil
	case FormatJSON:
		return JSONInputFormat(), nil
	case FormatTOML:
		return TOMLInputFormat(), nil
	default:
		return nil, fmt.Errorf("unsupported input format %v", f)
	}
}

// OutputFormatFor returns the output format for f.
func OutputFormatFor(f Format) (OutputFormat, error) {
	switch f {
	case FormatBinary:
		return BinaryOutputFormat(), nil
	case FormatJSON:
		return JSONOutputFormat(), nil
	case FormatTOML:
		return TOMLOutputFormat(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %v", f)
	}
}

type binaryInputFormat struct {
	propertytree.DecodeOptions
}

// BinaryInputFormat decodes a property tree and projects it onto settings.
func BinaryInputFormat(options propertytree.DecodeOptions) InputFormat {
	return binaryInputFormat{DecodeOptions: options}
}

func (x binaryInputFormat) Unmarshal(data []byte) (*SimpleSettings, error) {
	tree, err := x.DecodeOptions.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return ToSimple(tree)
}

func (binaryInputFormat) String() string { return FormatBinary.String() }

type binaryOutputFormat struct{}

// BinaryOutputFormat builds a property tree from settings and encodes it.
func BinaryOutputFormat() OutputFormat {
	return binaryOutputFormat{}
}

func (binaryOutputFormat) Marshal(settings *SimpleSettings) ([]byte, error) {
	return propertytree.Marshal(FromSimple(settings))
}

func (binaryOutputFormat) String() string { return FormatBinary.String() }

// JSONInputFormat reads documents written by JSONOutputFormat.
func JSONInputFormat() InputFormat {
	return InputFormatFunc{Name: FormatJSON.String(), Func: UnmarshalJSON}
}

// JSONOutputFormat writes indented JSON. See MarshalJSON.
func JSONOutputFormat() OutputFormat {
	return OutputFormatFunc{Name: FormatJSON.String(), Func: MarshalJSON}
}

// TOMLInputFormat reads documents written by TOMLOutputFormat.
func TOMLInputFormat() InputFormat {
	return InputFormatFunc{Name: FormatTOML.String(), Func: UnmarshalTOML}
}

// TOMLOutputFormat writes TOML. See MarshalTOML.
func TOMLOutputFormat() OutputFormat {
	return OutputFormatFunc{Name: FormatTOML.String(), Func: MarshalTOML}
}

// InputFormatFunc adapts a function to InputFormat. Name is used in error
// messages.
type InputFormatFunc struct {
	Name string
	Func func([]byte) (*SimpleSettings, error)
}

func (x InputFormatFunc) Unmarshal(data []byte) (*SimpleSettings, error) {
	return x.Func(data)
}

func (x InputFormatFunc) String() string { return x.Name }

// OutputFormatFunc adapts a function to OutputFormat. Name is used in error
// messages.
type OutputFormatFunc struct {
	Name string
	Func func(*SimpleSettings) ([]byte, error)
}

func (x OutputFormatFunc) Marshal(settings *SimpleSettings) ([]byte, error) {
	return x.Func(settings)
}

func (x OutputFormatFunc) String() string { return x.Name }
