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

package propertytree

import (
	"fmt"

	"github.com/bufbuild/modsettings/internal/ordered"
)

// Kind is the wire tag identifying the variant of a property value.
type Kind uint8

const (
	KindNone       Kind = 0
	KindBool       Kind = 1
	KindDouble     Kind = 2
	KindString     Kind = 3
	KindList       Kind = 4
	KindDictionary Kind = 5
	// KindInteger only appears in files written by game versions 2.0 and
	// later. Older files use KindDouble for every number.
	KindInteger Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	case KindInteger:
		return "integer"
	default:
		return fmt.Sprintf("kind(%#x)", uint8(k))
	}
}

// Settings is a whole decoded file.
type Settings struct {
	Version FormatVersion
	Root    *Property
}

// Property is a node of the tree. AnyFlag is carried through unchanged; its
// meaning is not known.
type Property struct {
	AnyFlag bool
	Value   Value
}

// Kind returns the kind of p's value. A nil property or value is KindNone.
func (p *Property) Kind() Kind {
	if p == nil || p.Value == nil {
		return KindNone
	}
	return p.Value.Kind()
}

// Value is implemented by exactly None, Bool, Double, String, List,
// *Dictionary and Integer.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	None    struct{}
	Bool    bool
	Double  float64
	String  string
	List    []*Property
	Integer int64
)

func (None) Kind() Kind        { return KindNone }
func (Bool) Kind() Kind        { return KindBool }
func (Double) Kind() Kind      { return KindDouble }
func (String) Kind() Kind      { return KindString }
func (List) Kind() Kind        { return KindList }
func (*Dictionary) Kind() Kind { return KindDictionary }
func (Integer) Kind() Kind     { return KindInteger }

func (None) isValue()        {}
func (Bool) isValue()        {}
func (Double) isValue()      {}
func (String) isValue()      {}
func (List) isValue()        {}
func (*Dictionary) isValue() {}
func (Integer) isValue()     {}

// Dictionary maps keys to properties and remembers the order in which keys
// were added. The order is part of the encoding.
type Dictionary struct {
	entries ordered.Map[*Property]
}

// NewDictionary returns an empty dictionary with room for capacity entries.
func NewDictionary(capacity int) *Dictionary {
	return &Dictionary{entries: *ordered.New[*Property](capacity)}
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return d.entries.Len()
}

// Get returns the property stored under key.
func (d *Dictionary) Get(key string) (*Property, bool) {
	if d == nil {
		return nil, false
	}
	return d.entries.Get(key)
}

// Set stores prop under key. A new key goes to the end; an existing key is
// replaced in place.
func (d *Dictionary) Set(key string, prop *Property) {
	d.entries.Set(key, prop)
}

// Delete removes key and reports whether it was present.
func (d *Dictionary) Delete(key string) bool {
	if d == nil {
		return false
	}
	return d.entries.Delete(key)
}

// Keys returns the keys in order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	return d.entries.Keys()
}

// Range calls fn for each entry in order until fn returns false.
func (d *Dictionary) Range(fn func(key string, prop *Property) bool) {
	if d == nil {
		return
	}
	d.entries.Range(fn)
}
