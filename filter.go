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

import "strings"

// Filters is a list of filters applied in order.
type Filters []Filter

func (f Filters) do(settings *SimpleSettings) *SimpleSettings {
	for _, filter := range f {
		settings = filter(settings)
	}
	return settings
}

// Filter transforms settings. It may modify its argument in place and
// return it.
type Filter func(*SimpleSettings) *SimpleSettings

// Predicate selects a setting by its section, name and value.
type Predicate func(section, name string, value SettingValue) bool

// Redact returns a filter that removes every setting for which predicate
// returns true.
func Redact(predicate Predicate) Filter {
	return func(settings *SimpleSettings) *SimpleSettings {
		if settings == nil {
			return nil
		}
		for _, sectionName := range SectionNames() {
			redactSection(sectionName, settings.Section(sectionName), predicate)
		}
		return settings
	}
}

func redactSection(sectionName string, section *Section, predicate Predicate) {
	var redacted []string
	section.Range(func(name string, value SettingValue) bool {
		if predicate(sectionName, name, value) {
			redacted = append(redacted, name)
		}
		return true
	})
	for _, name := range redacted {
		section.Delete(name)
	}
}

// NamePrefix matches settings whose name starts with prefix. Mods usually
// prefix their setting names with the mod name, so this selects the
// settings of one mod.
func NamePrefix(prefix string) Predicate {
	return func(_, name string, _ SettingValue) bool {
		return strings.HasPrefix(name, prefix)
	}
}

// InSection matches every setting of the named section.
func InSection(section string) Predicate {
	return func(sectionName, _ string, _ SettingValue) bool {
		return sectionName == section
	}
}

// HasType matches settings whose value has one of the given types.
func HasType(types ...ValueType) Predicate {
	return func(_, _ string, value SettingValue) bool {
		if value == nil {
			return false
		}
		for _, valueType := range types {
			if value.Type() == valueType {
				return true
			}
		}
		return false
	}
}

// Not inverts predicate.
func Not(predicate Predicate) Predicate {
	return func(section, name string, value SettingValue) bool {
		return !predicate(section, name, value)
	}
}
