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

	"github.com/bufbuild/modsettings/internal/ordered"
	"github.com/bufbuild/modsettings/propertytree"
)

// Names of the three sections of a settings file.
const (
	SectionStartup        = "startup"
	SectionRuntimeGlobal  = "runtime-global"
	SectionRuntimePerUser = "runtime-per-user"
)

// SectionNames lists the section names in the order they are written.
func SectionNames() []string {
	return []string{SectionStartup, SectionRuntimeGlobal, SectionRuntimePerUser}
}

// SimpleSettings is the editable view of a settings file: a version plus the
// three sections, each mapping a setting name to its value.
type SimpleSettings struct {
	Version        propertytree.FormatVersion
	Startup        *Section
	RuntimeGlobal  *Section
	RuntimePerUser *Section
}

// NewSimpleSettings returns settings for the given version with three empty
// sections.
func NewSimpleSettings(version propertytree.FormatVersion) *SimpleSettings {
	return &SimpleSettings{
		Version:        version,
		Startup:        NewSection(0),
		RuntimeGlobal:  NewSection(0),
		RuntimePerUser: NewSection(0),
	}
}

// Section returns the section with the given name, or nil if name is not one
// of the three section names.
func (s *SimpleSettings) Section(name string) *Section {
	if ptr := s.sectionPtr(name); ptr != nil {
		return *ptr
	}
	return nil
}

// SetSection replaces the named section.
func (s *SimpleSettings) SetSection(name string, section *Section) error {
	ptr := s.sectionPtr(name)
	if ptr == nil {
		return fmt.Errorf("unknown section %q", name)
	}
	*ptr = section
	return nil
}

func (s *SimpleSettings) sectionPtr(name string) **Section {
	switch name {
	case SectionStartup:
		return &s.Startup
	case SectionRuntimeGlobal:
		return &s.RuntimeGlobal
	case SectionRuntimePerUser:
		return &s.RuntimePerUser
	default:
		return nil
	}
}

// Clone returns a deep copy of s. Nil sections are replaced by empty ones.
func (s *SimpleSettings) Clone() *SimpleSettings {
	if s == nil {
		return nil
	}
	return &SimpleSettings{
		Version:        s.Version,
		Startup:        s.Startup.Clone(),
		RuntimeGlobal:  s.RuntimeGlobal.Clone(),
		RuntimePerUser: s.RuntimePerUser.Clone(),
	}
}

// Section maps setting names to values, in the order they were added.
type Section struct {
	entries ordered.Map[SettingValue]
}

// NewSection returns an empty section with room for capacity settings.
func NewSection(capacity int) *Section {
	return &Section{entries: *ordered.New[SettingValue](capacity)}
}

func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return s.entries.Len()
}

func (s *Section) Get(name string) (SettingValue, bool) {
	if s == nil {
		return nil, false
	}
	return s.entries.Get(name)
}

// Set stores value under name. A new name goes to the end; an existing name
// keeps its position. It reports whether name was newly added.
func (s *Section) Set(name string, value SettingValue) bool {
	return s.entries.Set(name, value)
}

func (s *Section) Delete(name string) bool {
	if s == nil {
		return false
	}
	return s.entries.Delete(name)
}

// Names returns the setting names in order.
func (s *Section) Names() []string {
	if s == nil {
		return nil
	}
	return s.entries.Keys()
}

// Range calls fn for each setting in order until fn returns false.
func (s *Section) Range(fn func(name string, value SettingValue) bool) {
	if s == nil {
		return
	}
	s.entries.Range(fn)
}

// Clone returns a copy of s. A nil section clones to an empty one.
func (s *Section) Clone() *Section {
	clone := NewSection(s.Len())
	s.Range(func(name string, value SettingValue) bool {
		clone.Set(name, value)
		return true
	})
	return clone
}

// ValueType names the variant of a SettingValue. The names are the ones used
// by the text formats.
type ValueType string

const (
	TypeNone    ValueType = "None"
	TypeBool    ValueType = "Bool"
	TypeNumber  ValueType = "Number"
	TypeString  ValueType = "String"
	TypeColor   ValueType = "Color"
	TypeInteger ValueType = "Integer"
)

// SettingValue is implemented by exactly NoneValue, BoolValue, NumberValue,
// StringValue, ColorValue and IntegerValue. All of them are plain values, so
// copying a SettingValue never shares state.
type SettingValue interface {
	Type() ValueType
	isSettingValue()
}

type (
	NoneValue    struct{}
	BoolValue    bool
	NumberValue  float64
	StringValue  string
	IntegerValue int64
)

// ColorValue is a color with channels usually in the range [0, 1].
type ColorValue struct {
	R, G, B, A float64
}

func (NoneValue) Type() ValueType    { return TypeNone }
func (BoolValue) Type() ValueType    { return TypeBool }
func (NumberValue) Type() ValueType  { return TypeNumber }
func (StringValue) Type() ValueType  { return TypeString }
func (ColorValue) Type() ValueType   { return TypeColor }
func (IntegerValue) Type() ValueType { return TypeInteger }

func (NoneValue) isSettingValue()    {}
func (BoolValue) isSettingValue()    {}
func (NumberValue) isSettingValue()  {}
func (StringValue) isSettingValue()  {}
func (ColorValue) isSettingValue()   {}
func (IntegerValue) isSettingValue() {}
