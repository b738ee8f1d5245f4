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
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeaderByte is reported when the reserved byte following the
	// version header is not zero.
	ErrInvalidHeaderByte = errors.New("reserved header byte is not false")
	// ErrUnknownTypeTag is reported for a type tag outside of the known kinds.
	ErrUnknownTypeTag = errors.New("unknown type tag")
	// ErrTruncated is reported when the input ends in the middle of a value.
	ErrTruncated = errors.New("unexpected end of input")
	// ErrInvalidUTF8 is reported for a string or key that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string is not valid UTF-8")
	// ErrDuplicateKey is reported when a dictionary repeats a key. Such a
	// dictionary could not be re-encoded faithfully.
	ErrDuplicateKey = errors.New("duplicate dictionary key")
	// ErrMaxDepth is reported when properties nest deeper than the
	// configured limit.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)

// FormatError describes input that does not follow the property tree format.
// Err is one of the sentinel errors of this package.
type FormatError struct {
	// Path locates the failing field, e.g. "root/startup/my-setting/value".
	Path string
	// Offset is the byte offset at which the failing field starts.
	Offset int64
	// Detail optionally carries more information, such as the bad tag value.
	Detail string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("property tree: %s at offset %d", e.Path, e.Offset)
	if e.Detail != "" {
		return msg + ": " + e.Err.Error() + " (" + e.Detail + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
