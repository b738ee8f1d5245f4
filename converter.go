// Copyright 2023-2026 Buf Technologies, Inc.
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

	"github.com/pkg/errors"
)

// Converter converts settings from one format to another, for example from
// mod-settings.dat to TOML.
type Converter struct {
	// InputFormat reads the input data. See [InputFormatFor] and the
	// constructors for each format. You can also supply your own format that
	// implements the [InputFormat] interface.
	InputFormat InputFormat
	// OutputFormat renders the converted settings. See [OutputFormatFor].
	OutputFormat OutputFormat
	// Filters are a set of user-supplied actions which will be performed on a
	// [Convert] call before the output is rendered, meaning the output value
	// can be modified according to some set of rules.
	Filters Filters
}

// Convert decodes inputData with the input format, applies the filters and
// renders the result with the output format. The output is only returned
// once it is complete.
func (c *Converter) Convert(inputData []byte) ([]byte, error) {
	if c.InputFormat == nil || c.OutputFormat == nil {
		return nil, fmt.Errorf("converter needs both an input and an output format")
	}
	settings, err := c.InputFormat.Unmarshal(inputData)
	if err != nil {
		return nil, fmt.Errorf("input_data cannot be unmarshaled from %s: %w", formatName(c.InputFormat), err)
	}

	// apply filters
	settings = c.Filters.do(settings)

	data, err := c.OutputFormat.Marshal(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "settings cannot be marshaled to %s", formatName(c.OutputFormat))
	}
	return data, nil
}

func formatName(format any) string {
	if stringer, ok := format.(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprintf("%T", format)
}
