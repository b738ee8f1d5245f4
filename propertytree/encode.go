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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Encode writes s to w. The output is built in memory first, so nothing is
// written to w if s cannot be encoded.
func Encode(w io.Writer, s *Settings) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal returns the encoding of s.
//
// Booleans are written as 0 or 1. Strings always start with the "not empty"
// marker followed by their length, even when they are empty; that is what
// the game writes, and what keeps decode followed by encode byte-identical.
// A nil property or value is written as None.
func Marshal(s *Settings) ([]byte, error) {
	if s == nil {
		return nil, errors.New("property tree: nil settings")
	}
	var e encoder
	e.version(s.Version)
	e.buf = append(e.buf, 0)
	e.property(s.Root)
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) version(v FormatVersion) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v.Major)
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v.Minor)
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v.Patch)
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v.Build)
}

func (e *encoder) property(p *Property) {
	if e.err != nil {
		return
	}
	var flag bool
	var value Value = None{}
	if p != nil {
		flag = p.AnyFlag
		if p.Value != nil {
			value = p.Value
		}
	}
	e.buf = append(e.buf, byte(value.Kind()), boolByte(flag))
	switch value := value.(type) {
	case None:
	case Bool:
		e.buf = append(e.buf, boolByte(bool(value)))
	case Double:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(float64(value)))
	case String:
		e.string(string(value))
	case List:
		e.length(len(value))
		for _, item := range value {
			e.property(item)
		}
	case *Dictionary:
		e.length(value.Len())
		value.Range(func(key string, child *Property) bool {
			e.string(key)
			e.property(child)
			return e.err == nil
		})
	case Integer:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(value))
	default:
		e.err = fmt.Errorf("property tree: unsupported value type %T", value)
	}
}

func (e *encoder) string(s string) {
	if uint64(len(s)) > math.MaxUint32 {
		e.err = fmt.Errorf("property tree: string of %d bytes is too long", len(s))
		return
	}
	e.buf = append(e.buf, 0)
	if n := uint32(len(s)); n < 0xff {
		e.buf = append(e.buf, byte(n))
	} else {
		e.buf = append(e.buf, 0xff)
		e.buf = binary.LittleEndian.AppendUint32(e.buf, n)
	}
	e.buf = append(e.buf, s...)
}

func (e *encoder) length(n int) {
	if uint64(n) > math.MaxUint32 {
		e.err = fmt.Errorf("property tree: %d entries is too many", n)
		return
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(n))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
