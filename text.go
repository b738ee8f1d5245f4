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
	"sort"

	"github.com/bufbuild/modsettings/propertytree"
)

// Field names of the text documents.
const (
	versionKey = "factorio_version"
	typeKey    = "type"
	valueKey   = "value"
)

// DocumentError reports a JSON or TOML document that does not describe
// settings.
type DocumentError struct {
	Format Format
	// Path names the offending field, e.g. "startup/my-setting/value".
	Path   string
	Reason string
}

func (e *DocumentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v settings: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("%v settings: %s: %s", e.Format, e.Path, e.Reason)
}

// textDocument is a text document decoded into generic values: booleans,
// int64, float64, strings and map[string]any. order lists the entry names of
// each section in document order.
type textDocument struct {
	format Format
	fields map[string]any
	order  map[string][]string
}

func (d *textDocument) settings() (*SimpleSettings, error) {
	version, err := d.version()
	if err != nil {
		return nil, err
	}
	simple := &SimpleSettings{Version: version}
	for _, name := range SectionNames() {
		section, err := d.section(name)
		if err != nil {
			return nil, err
		}
		if err := simple.SetSection(name, section); err != nil {
			return nil, err
		}
	}
	return simple, nil
}

func (d *textDocument) errorf(path, format string, args ...any) error {
	return &DocumentError{Format: d.format, Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (d *textDocument) version() (propertytree.FormatVersion, error) {
	raw, ok := d.fields[versionKey]
	if !ok {
		return propertytree.FormatVersion{}, d.errorf(versionKey, "missing")
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return propertytree.FormatVersion{}, d.errorf(versionKey, "expected a table, got %s", describe(raw))
	}
	var parts [4]uint16
	for i, key := range [4]string{"major", "minor", "patch", "build"} {
		path := versionKey + "/" + key
		raw, ok := table[key]
		if !ok {
			return propertytree.FormatVersion{}, d.errorf(path, "missing")
		}
		n, ok := raw.(int64)
		if !ok || n < 0 || n > math.MaxUint16 {
			return propertytree.FormatVersion{}, d.errorf(path, "expected an integer between 0 and %d, got %s", math.MaxUint16, describe(raw))
		}
		parts[i] = uint16(n)
	}
	return propertytree.FormatVersion{Major: parts[0], Minor: parts[1], Patch: parts[2], Build: parts[3]}, nil
}

func (d *textDocument) section(name string) (*Section, error) {
	raw, ok := d.fields[name]
	if !ok {
		return nil, d.errorf(name, "missing section")
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, d.errorf(name, "expected a table, got %s", describe(raw))
	}
	names := d.order[name]
	if len(names) != len(table) {
		// fall back to sorted order for anything the decoder did not report
		seen := make(map[string]struct{}, len(names))
		for _, settingName := range names {
			seen[settingName] = struct{}{}
		}
		var rest []string
		for settingName := range table {
			if _, ok := seen[settingName]; !ok {
				rest = append(rest, settingName)
			}
		}
		sort.Strings(rest)
		names = append(names[:len(names):len(names)], rest...)
	}
	section := NewSection(len(names))
	for _, settingName := range names {
		path := name + "/" + settingName
		value, err := d.setting(path, table[settingName])
		if err != nil {
			return nil, err
		}
		if !section.Set(settingName, value) {
			return nil, d.errorf(path, "duplicate setting")
		}
	}
	return section, nil
}

func (d *textDocument) setting(path string, raw any) (SettingValue, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil, d.errorf(path, "expected a table, got %s", describe(raw))
	}
	typeName, ok := entry[typeKey].(string)
	if !ok {
		return nil, d.errorf(path+"/"+typeKey, "expected a type name, got %s", describe(entry[typeKey]))
	}
	value, present := entry[valueKey]
	valuePath := path + "/" + valueKey
	if !present && ValueType(typeName) != TypeNone {
		return nil, d.errorf(valuePath, "missing")
	}
	switch ValueType(typeName) {
	case TypeNone:
		if present && value != nil {
			return nil, d.errorf(valuePath, "type None takes no value")
		}
		return NoneValue{}, nil
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, d.errorf(valuePath, "expected a boolean, got %s", describe(value))
		}
		return BoolValue(b), nil
	case TypeNumber:
		f, ok := number(value)
		if !ok {
			return nil, d.errorf(valuePath, "expected a number, got %s", describe(value))
		}
		return NumberValue(f), nil
	case TypeInteger:
		n, ok := value.(int64)
		if !ok {
			return nil, d.errorf(valuePath, "expected an integer, got %s", describe(value))
		}
		return IntegerValue(n), nil
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, d.errorf(valuePath, "expected a string, got %s", describe(value))
		}
		return StringValue(s), nil
	case TypeColor:
		table, ok := value.(map[string]any)
		if !ok {
			return nil, d.errorf(valuePath, "expected a color table, got %s", describe(value))
		}
		var channels [4]float64
		for i, key := range [4]string{"r", "g", "b", "a"} {
			channel, ok := number(table[key])
			if !ok {
				return nil, d.errorf(valuePath+"/"+key, "expected a number, got %s", describe(table[key]))
			}
			channels[i] = channel
		}
		return ColorValue{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
	default:
		return nil, d.errorf(path+"/"+typeKey, "unknown type %q", typeName)
	}
}

// number accepts integers wherever a float is expected.
func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return "nothing"
	case bool:
		return "a boolean"
	case int64:
		return "an integer"
	case float64:
		return "a number"
	case string:
		return fmt.Sprintf("string %q", v)
	case map[string]any:
		return "a table"
	case []any:
		return "an array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
