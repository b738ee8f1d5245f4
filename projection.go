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

	"github.com/bufbuild/modsettings/propertytree"
)

// StructuralError reports a tree that decodes fine but does not have the
// shape of a settings file.
type StructuralError struct {
	// Path names the offending section or setting, e.g. "startup/my-setting".
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return "settings: " + e.Reason
	}
	return "settings: " + e.Path + ": " + e.Reason
}

// ToSimple projects a decoded property tree onto the three settings
// sections. The root must be a dictionary holding all three sections, each
// a dictionary whose entries are dictionaries with a "value" key. Entries
// keep their order. The result shares nothing with tree.
func ToSimple(tree *propertytree.Settings) (*SimpleSettings, error) {
	if tree == nil {
		return nil, &StructuralError{Reason: "no settings"}
	}
	root, ok := asDictionary(tree.Root)
	if !ok {
		return nil, &StructuralError{Reason: fmt.Sprintf("root is %v, not a dictionary", tree.Root.Kind())}
	}
	simple := &SimpleSettings{Version: tree.Version}
	for _, name := range SectionNames() {
		section, err := sectionToSimple(root, name)
		if err != nil {
			return nil, err
		}
		if err := simple.SetSection(name, section); err != nil {
			return nil, err
		}
	}
	return simple, nil
}

func sectionToSimple(root *propertytree.Dictionary, name string) (*Section, error) {
	prop, ok := root.Get(name)
	if !ok {
		return nil, &StructuralError{Path: name, Reason: "missing section"}
	}
	dict, ok := asDictionary(prop)
	if !ok {
		return nil, &StructuralError{Path: name, Reason: fmt.Sprintf("section is %v, not a dictionary", prop.Kind())}
	}
	section := NewSection(dict.Len())
	var err error
	dict.Range(func(key string, entry *propertytree.Property) bool {
		var value SettingValue
		value, err = entryToSimple(name+"/"+key, entry)
		if err != nil {
			return false
		}
		section.Set(key, value)
		return true
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

func entryToSimple(path string, entry *propertytree.Property) (SettingValue, error) {
	wrapper, ok := asDictionary(entry)
	if !ok {
		return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("setting is %v, not a dictionary", entry.Kind())}
	}
	leaf, ok := wrapper.Get("value")
	if !ok {
		return nil, &StructuralError{Path: path, Reason: "missing value property"}
	}
	switch value := leaf.Kind(); value {
	case propertytree.KindBool:
		return BoolValue(leaf.Value.(propertytree.Bool)), nil
	case propertytree.KindDouble:
		return NumberValue(leaf.Value.(propertytree.Double)), nil
	case propertytree.KindInteger:
		return IntegerValue(leaf.Value.(propertytree.Integer)), nil
	case propertytree.KindString:
		return StringValue(leaf.Value.(propertytree.String)), nil
	case propertytree.KindDictionary:
		return colorToSimple(path+"/value", leaf.Value.(*propertytree.Dictionary))
	default:
		return nil, &StructuralError{Path: path + "/value", Reason: fmt.Sprintf("unsupported value of kind %v", value)}
	}
}

// colorToSimple reads a dictionary value as a color. Each channel is looked
// up under its own key.
func colorToSimple(path string, dict *propertytree.Dictionary) (SettingValue, error) {
	var channels [4]float64
	for i, key := range [4]string{"r", "g", "b", "a"} {
		prop, ok := dict.Get(key)
		if !ok {
			return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("dictionary value is not a color: missing %q channel", key)}
		}
		var value propertytree.Value
		if prop != nil {
			value = prop.Value
		}
		switch channel := value.(type) {
		case propertytree.Double:
			channels[i] = float64(channel)
		case propertytree.Integer:
			channels[i] = float64(channel)
		default:
			return nil, &StructuralError{Path: path + "/" + key, Reason: fmt.Sprintf("color channel is %v, not a number", prop.Kind())}
		}
	}
	return ColorValue{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}

func asDictionary(prop *propertytree.Property) (*propertytree.Dictionary, bool) {
	if prop == nil {
		return nil, false
	}
	dict, ok := prop.Value.(*propertytree.Dictionary)
	return dict, ok && dict != nil
}

// FromSimple builds the property tree for simple. It cannot fail: a nil
// section is written as an empty one and every flag is false.
func FromSimple(simple *SimpleSettings) *propertytree.Settings {
	root := propertytree.NewDictionary(3)
	var version propertytree.FormatVersion
	if simple != nil {
		version = simple.Version
	}
	for _, name := range SectionNames() {
		var section *Section
		if simple != nil {
			section = simple.Section(name)
		}
		root.Set(name, &propertytree.Property{Value: sectionFromSimple(section)})
	}
	return &propertytree.Settings{
		Version: version,
		Root:    &propertytree.Property{Value: root},
	}
}

func sectionFromSimple(section *Section) *propertytree.Dictionary {
	dict := propertytree.NewDictionary(section.Len())
	section.Range(func(name string, value SettingValue) bool {
		wrapper := propertytree.NewDictionary(1)
		wrapper.Set("value", &propertytree.Property{Value: leafFromSimple(value)})
		dict.Set(name, &propertytree.Property{Value: wrapper})
		return true
	})
	return dict
}

func leafFromSimple(value SettingValue) propertytree.Value {
	switch value := value.(type) {
	case BoolValue:
		return propertytree.Bool(value)
	case NumberValue:
		return propertytree.Double(value)
	case IntegerValue:
		return propertytree.Integer(value)
	case StringValue:
		return propertytree.String(value)
	case ColorValue:
		color := propertytree.NewDictionary(4)
		color.Set("r", &propertytree.Property{Value: propertytree.Double(value.R)})
		color.Set("g", &propertytree.Property{Value: propertytree.Double(value.G)})
		color.Set("b", &propertytree.Property{Value: propertytree.Double(value.B)})
		color.Set("a", &propertytree.Property{Value: propertytree.Double(value.A)})
		return color
	default:
		// NoneValue and nil
		return propertytree.None{}
	}
}
