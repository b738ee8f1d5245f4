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
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

type tomlVersion struct {
	Major uint16 `toml:"major"`
	Minor uint16 `toml:"minor"`
	Patch uint16 `toml:"patch"`
	Build uint16 `toml:"build"`
}

// tomlEntry is the body of a setting table. A nil Value is not written.
type tomlEntry struct {
	Type  ValueType `toml:"type"`
	Value any       `toml:"value"`
}

type tomlColor struct {
	R float64 `toml:"r"`
	G float64 `toml:"g"`
	B float64 `toml:"b"`
	A float64 `toml:"a"`
}

// MarshalTOML renders settings as a TOML document with one table per
// setting. Tables are written in order.
func MarshalTOML(settings *SimpleSettings) ([]byte, error) {
	if settings == nil {
		return nil, fmt.Errorf("toml: nil settings")
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	writeTable(&buf, toml.Key{versionKey})
	if err := enc.Encode(tomlVersion(settings.Version)); err != nil {
		return nil, err
	}
	for _, name := range SectionNames() {
		buf.WriteByte('\n')
		writeTable(&buf, toml.Key{name})
		var err error
		settings.Section(name).Range(func(settingName string, value SettingValue) bool {
			buf.WriteByte('\n')
			err = encodeTOMLEntry(&buf, enc, toml.Key{name, settingName}, value)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeTOMLEntry(buf *bytes.Buffer, enc *toml.Encoder, key toml.Key, value SettingValue) error {
	if value == nil {
		value = NoneValue{}
	}
	writeTable(buf, key)
	entry := tomlEntry{Type: value.Type()}
	switch value := value.(type) {
	case NoneValue:
	case BoolValue:
		entry.Value = bool(value)
	case NumberValue:
		entry.Value = float64(value)
	case IntegerValue:
		entry.Value = int64(value)
	case StringValue:
		entry.Value = string(value)
	case ColorValue:
		if err := enc.Encode(entry); err != nil {
			return err
		}
		writeTable(buf, append(key[:len(key):len(key)], valueKey))
		return enc.Encode(tomlColor(value))
	default:
		return fmt.Errorf("toml: %s: unsupported value %T", key, value)
	}
	return enc.Encode(entry)
}

// writeTable writes a table header, quoting key parts where needed.
func writeTable(buf *bytes.Buffer, key toml.Key) {
	buf.WriteByte('[')
	buf.WriteString(key.String())
	buf.WriteString("]\n")
}

// UnmarshalTOML parses a TOML settings document. All three sections and the
// version are required; other top-level keys are ignored. Settings keep
// their document order.
func UnmarshalTOML(data []byte) (*SimpleSettings, error) {
	fields := map[string]any{}
	md, err := toml.Decode(string(data), &fields)
	if err != nil {
		return nil, &DocumentError{Format: FormatTOML, Reason: err.Error()}
	}
	doc := &textDocument{
		format: FormatTOML,
		fields: fields,
		order:  map[string][]string{},
	}
	seen := map[string]map[string]struct{}{}
	for _, key := range md.Keys() {
		if len(key) < 2 {
			continue
		}
		section, name := key[0], key[1]
		if seen[section] == nil {
			seen[section] = map[string]struct{}{}
		}
		if _, ok := seen[section][name]; ok {
			continue
		}
		seen[section][name] = struct{}{}
		doc.order[section] = append(doc.order[section], name)
	}
	return doc.settings()
}
