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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxDepth is the nesting limit used when DecodeOptions.MaxDepth is
// zero. Real settings files nest four levels deep.
const DefaultMaxDepth = 512

// Strings longer than this are read in chunks instead of being allocated up
// front, so a corrupt length prefix cannot force a huge allocation.
const maxStringPrealloc = 64 << 10

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// MaxDepth bounds how deeply lists and dictionaries may nest. The root
	// property is at depth zero. If zero, DefaultMaxDepth is used.
	MaxDepth int
}

// Decode reads a whole settings file from r using default options.
func Decode(r io.Reader) (*Settings, error) {
	return DecodeOptions{}.Decode(r)
}

// Unmarshal decodes a settings file held in memory using default options.
func Unmarshal(data []byte) (*Settings, error) {
	return DecodeOptions{}.Unmarshal(data)
}

// Unmarshal decodes a settings file held in memory.
func (o DecodeOptions) Unmarshal(data []byte) (*Settings, error) {
	return o.Decode(bytes.NewReader(data))
}

// Decode reads a settings file from r. Bytes following the root property are
// ignored. Any failure aborts the whole decode and no partial result is
// returned.
func (o DecodeOptions) Decode(r io.Reader) (*Settings, error) {
	maxDepth := o.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	d := &decoder{maxDepth: maxDepth}
	if br, ok := r.(io.ByteReader); ok {
		d.r = byteReader{Reader: r, ByteReader: br}
	} else {
		d.r = bufio.NewReader(r)
	}

	version, err := d.version()
	if err != nil {
		return nil, err
	}
	offset := d.offset
	reserved, err := d.readByte("header")
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, &FormatError{
			Path:   "header",
			Offset: offset,
			Detail: fmt.Sprintf("got %#x", reserved),
			Err:    ErrInvalidHeaderByte,
		}
	}
	root, err := d.property("root", 0)
	if err != nil {
		return nil, err
	}
	return &Settings{Version: version, Root: root}, nil
}

type reader interface {
	io.Reader
	io.ByteReader
}

type byteReader struct {
	io.Reader
	io.ByteReader
}

type decoder struct {
	r        reader
	offset   int64
	maxDepth int
	scratch  [8]byte
}

func (d *decoder) version() (FormatVersion, error) {
	buf, err := d.read(8, "header")
	if err != nil {
		return FormatVersion{}, err
	}
	return FormatVersion{
		Major: binary.LittleEndian.Uint16(buf[0:]),
		Minor: binary.LittleEndian.Uint16(buf[2:]),
		Patch: binary.LittleEndian.Uint16(buf[4:]),
		Build: binary.LittleEndian.Uint16(buf[6:]),
	}, nil
}

func (d *decoder) property(path string, depth int) (*Property, error) {
	if depth > d.maxDepth {
		return nil, &FormatError{Path: path, Offset: d.offset, Err: ErrMaxDepth}
	}
	start := d.offset
	head, err := d.read(2, path)
	if err != nil {
		return nil, err
	}
	kind, flag := Kind(head[0]), head[1]
	prop := &Property{AnyFlag: looseBool(flag)}
	switch kind {
	case KindNone:
		prop.Value = None{}
	case KindBool:
		b, err := d.readByte(path)
		if err != nil {
			return nil, err
		}
		prop.Value = Bool(looseBool(b))
	case KindDouble:
		buf, err := d.read(8, path)
		if err != nil {
			return nil, err
		}
		prop.Value = Double(math.Float64frombits(binary.LittleEndian.Uint64(buf)))
	case KindString:
		s, err := d.string(path)
		if err != nil {
			return nil, err
		}
		prop.Value = String(s)
	case KindList:
		list, err := d.list(path, depth)
		if err != nil {
			return nil, err
		}
		prop.Value = list
	case KindDictionary:
		dict, err := d.dictionary(path, depth)
		if err != nil {
			return nil, err
		}
		prop.Value = dict
	case KindInteger:
		buf, err := d.read(8, path)
		if err != nil {
			return nil, err
		}
		prop.Value = Integer(int64(binary.LittleEndian.Uint64(buf)))
	default:
		return nil, &FormatError{
			Path:   path,
			Offset: start,
			Detail: fmt.Sprintf("tag %#x", uint8(kind)),
			Err:    ErrUnknownTypeTag,
		}
	}
	return prop, nil
}

func (d *decoder) list(path string, depth int) (List, error) {
	count, err := d.readUint32(path)
	if err != nil {
		return nil, err
	}
	list := make(List, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		item, err := d.property(path+"["+strconv.FormatUint(uint64(i), 10)+"]", depth+1)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

func (d *decoder) dictionary(path string, depth int) (*Dictionary, error) {
	count, err := d.readUint32(path)
	if err != nil {
		return nil, err
	}
	dict := NewDictionary(int(min(count, 1024)))
	for i := uint32(0); i < count; i++ {
		keyOffset := d.offset
		key, err := d.string(path + "{" + strconv.FormatUint(uint64(i), 10) + "}")
		if err != nil {
			return nil, err
		}
		childPath := path + "/" + key
		if _, exists := dict.Get(key); exists {
			return nil, &FormatError{Path: childPath, Offset: keyOffset, Err: ErrDuplicateKey}
		}
		child, err := d.property(childPath, depth+1)
		if err != nil {
			return nil, err
		}
		dict.Set(key, child)
	}
	return dict, nil
}

func (d *decoder) string(path string) (string, error) {
	empty, err := d.readByte(path)
	if err != nil {
		return "", err
	}
	if looseBool(empty) {
		return "", nil
	}
	length, err := d.optimizedUint32(path)
	if err != nil {
		return "", err
	}
	start := d.offset
	var buf bytes.Buffer
	buf.Grow(int(min(length, maxStringPrealloc)))
	n, err := io.CopyN(&buf, d.r, int64(length))
	d.offset += n
	if err != nil {
		return "", d.readError(path, start, err)
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", &FormatError{Path: path, Offset: start, Err: ErrInvalidUTF8}
	}
	return buf.String(), nil
}

// optimizedUint32 reads a length stored in one byte when it is below 0xff,
// or as 0xff followed by a full uint32.
func (d *decoder) optimizedUint32(path string) (uint32, error) {
	b, err := d.readByte(path)
	if err != nil {
		return 0, err
	}
	if b != 0xff {
		return uint32(b), nil
	}
	return d.readUint32(path)
}

func (d *decoder) readUint32(path string) (uint32, error) {
	buf, err := d.read(4, path)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (d *decoder) readByte(path string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.readError(path, d.offset, err)
	}
	d.offset++
	return b, nil
}

// read returns the next n (at most 8) bytes. The returned slice is only
// valid until the next call.
func (d *decoder) read(n int, path string) ([]byte, error) {
	start := d.offset
	buf := d.scratch[:n]
	m, err := io.ReadFull(d.r, buf)
	d.offset += int64(m)
	if err != nil {
		return nil, d.readError(path, start, err)
	}
	return buf, nil
}

func (d *decoder) readError(path string, offset int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FormatError{Path: path, Offset: offset, Err: ErrTruncated}
	}
	return fmt.Errorf("property tree: reading %s at offset %d: %w", path, offset, err)
}

// looseBool reads a boolean the way the game does: only 1 is true.
func looseBool(b byte) bool {
	return b == 1
}
