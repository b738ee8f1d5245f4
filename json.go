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
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// MarshalJSON renders settings as an indented JSON document. Sections and
// settings are written in order. Numbers that are not finite cannot be
// represented in JSON and are reported as an error.
func MarshalJSON(settings *SimpleSettings) ([]byte, error) {
	if settings == nil {
		return nil, fmt.Errorf("json: nil settings")
	}
	version := []byte(`{}`)
	for _, field := range []struct {
		key   string
		value uint16
	}{
		{"major", settings.Version.Major},
		{"minor", settings.Version.Minor},
		{"patch", settings.Version.Patch},
		{"build", settings.Version.Build},
	} {
		var err error
		if version, err = sjson.SetBytes(version, field.key, field.value); err != nil {
			return nil, err
		}
	}
	doc, err := sjson.SetRawBytes([]byte(`{}`), versionKey, version)
	if err != nil {
		return nil, err
	}
	for _, name := range SectionNames() {
		section, err := sectionJSON(name, settings.Section(name))
		if err != nil {
			return nil, err
		}
		if doc, err = sjson.SetRawBytes(doc, name, section); err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(doc), nil
}

func sectionJSON(sectionName string, section *Section) ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	section.Range(func(name string, value SettingValue) bool {
		var entry []byte
		entry, err = entryJSON(sectionName+"/"+name, value)
		if err != nil {
			return false
		}
		doc, err = sjson.SetRawBytes(doc, escapeJSONPath(name), entry)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func entryJSON(path string, value SettingValue) ([]byte, error) {
	if value == nil {
		value = NoneValue{}
	}
	entry, err := sjson.SetBytes([]byte(`{}`), typeKey, string(value.Type()))
	if err != nil {
		return nil, err
	}
	switch value := value.(type) {
	case NoneValue:
		return entry, nil
	case BoolValue:
		return sjson.SetBytes(entry, valueKey, bool(value))
	case NumberValue:
		if err := checkFinite(path, float64(value)); err != nil {
			return nil, err
		}
		return sjson.SetBytes(entry, valueKey, float64(value))
	case IntegerValue:
		return sjson.SetBytes(entry, valueKey, int64(value))
	case StringValue:
		return sjson.SetBytes(entry, valueKey, string(value))
	case ColorValue:
		color := []byte(`{}`)
		for _, channel := range []struct {
			key   string
			value float64
		}{
			{"r", value.R},
			{"g", value.G},
			{"b", value.B},
			{"a", value.A},
		} {
			if err := checkFinite(path+"/"+channel.key, channel.value); err != nil {
				return nil, err
			}
			if color, err = sjson.SetBytes(color, channel.key, channel.value); err != nil {
				return nil, err
			}
		}
		return sjson.SetRawBytes(entry, valueKey, color)
	default:
		return nil, fmt.Errorf("json: %s: unsupported value %T", path, value)
	}
}

func checkFinite(path string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("json: %s: %v cannot be represented in JSON", path, f)
	}
	return nil
}

// escapeJSONPath escapes name so that it is read as a single key by sjson
// and gjson paths. The empty name is a lone backslash.
func escapeJSONPath(name string) string {
	if name == "" {
		return `\`
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x80 && !isJSONPathSafe(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONPathSafe(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

// UnmarshalJSON parses a JSON settings document. All three sections and the
// version are required; other top-level fields are ignored. Settings keep
// their document order.
func UnmarshalJSON(data []byte) (*SimpleSettings, error) {
	if !gjson.ValidBytes(data) {
		return nil, &DocumentError{Format: FormatJSON, Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &DocumentError{Format: FormatJSON, Reason: "document is not an object"}
	}
	doc := &textDocument{
		format: FormatJSON,
		fields: map[string]any{},
		order:  map[string][]string{},
	}
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		doc.fields[name] = jsonValue(value)
		if value.IsObject() {
			var names []string
			value.ForEach(func(key, _ gjson.Result) bool {
				names = append(names, key.String())
				return true
			})
			doc.order[name] = names
		}
		return true
	})
	return doc.settings()
}

// jsonValue converts a parsed JSON value to the generic form used by
// textDocument. Integer literals become int64 so that large integers keep
// their precision.
func jsonValue(value gjson.Result) any {
	switch value.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		// -0 parses as the integer 0 and would lose its sign
		if n, err := strconv.ParseInt(value.Raw, 10, 64); err == nil && !strings.HasPrefix(value.Raw, "-0") {
			return n
		}
		return value.Float()
	case gjson.String:
		return value.String()
	}
	if value.IsArray() {
		items := value.Array()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = jsonValue(item)
		}
		return list
	}
	fields := map[string]any{}
	value.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = jsonValue(value)
		return true
	})
	return fields
}
