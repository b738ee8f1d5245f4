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
	"math"
	"testing"

	"github.com/bufbuild/modsettings/propertytree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()
	settings := sampleSettings()

	formats := []struct {
		name         string
		outputFormat OutputFormat
		inputFormat  InputFormat
	}{
		{
			name:         "binary",
			outputFormat: BinaryOutputFormat(),
			inputFormat:  BinaryInputFormat(propertytree.DecodeOptions{}),
		},
		{
			name:         "json",
			outputFormat: JSONOutputFormat(),
			inputFormat:  JSONInputFormat(),
		},
		{
			name:         "toml",
			outputFormat: TOMLOutputFormat(),
			inputFormat:  TOMLInputFormat(),
		},
		{
			name:         "custom",
			outputFormat: OutputFormatFunc{Name: "custom", Func: MarshalJSON},
			inputFormat:  InputFormatFunc{Name: "custom", Func: UnmarshalJSON},
		},
	}

	for _, inFormat := range formats {
		inputFormat := inFormat
		for _, outFormat := range formats {
			outputFormat := outFormat
			t.Run(fmt.Sprintf("%v_to_%v", inputFormat.name, outputFormat.name), func(t *testing.T) {
				t.Parallel()
				data, err := inputFormat.outputFormat.Marshal(settings)
				require.NoError(t, err)

				converter := Converter{
					InputFormat:  inputFormat.inputFormat,
					OutputFormat: outputFormat.outputFormat,
				}
				resp, err := converter.Convert(data)
				require.NoError(t, err)
				clone, err := outputFormat.inputFormat.Unmarshal(resp)
				require.NoError(t, err)
				diff := cmp.Diff(settings, clone, compareSections)
				if diff != "" {
					t.Errorf("round-trip failure (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestConverter_Filters(t *testing.T) {
	t.Parallel()
	data, err := BinaryOutputFormat().Marshal(sampleSettings())
	require.NoError(t, err)
	converter := Converter{
		InputFormat:  BinaryInputFormat(propertytree.DecodeOptions{}),
		OutputFormat: JSONOutputFormat(),
		Filters: Filters{
			Redact(InSection(SectionRuntimePerUser)),
			Redact(HasType(TypeColor)),
		},
	}
	resp, err := converter.Convert(data)
	require.NoError(t, err)
	got, err := UnmarshalJSON(resp)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RuntimePerUser.Len())
	assert.Equal(t, []string{"my.dotted*name?", "123"}, got.RuntimeGlobal.Names())
	assert.Equal(t, sampleSettings().Startup.Names(), got.Startup.Names())
}

func TestConverter_Errors(t *testing.T) {
	t.Parallel()
	t.Run("missing formats", func(t *testing.T) {
		t.Parallel()
		_, err := (&Converter{InputFormat: JSONInputFormat()}).Convert([]byte(`{}`))
		require.Error(t, err)
	})
	t.Run("bad input", func(t *testing.T) {
		t.Parallel()
		converter := Converter{InputFormat: BinaryInputFormat(propertytree.DecodeOptions{}), OutputFormat: JSONOutputFormat()}
		_, err := converter.Convert([]byte{1, 0})
		require.ErrorContains(t, err, "input_data cannot be unmarshaled from binary")
	})
	t.Run("unrepresentable output", func(t *testing.T) {
		t.Parallel()
		settings := NewSimpleSettings(formatVersion(1, 1, 82, 4))
		settings.Startup.Set("nan", NumberValue(math.NaN()))
		data, err := MarshalTOML(settings)
		require.NoError(t, err)
		converter := Converter{InputFormat: TOMLInputFormat(), OutputFormat: JSONOutputFormat()}
		resp, err := converter.Convert(data)
		require.ErrorContains(t, err, "settings cannot be marshaled to json")
		assert.Nil(t, resp)
	})
}
