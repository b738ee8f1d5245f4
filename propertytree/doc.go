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

// Package propertytree reads and writes the binary property tree format used
// by Factorio to persist mod settings (mod-settings.dat).
//
// A file is a [FormatVersion] header, one reserved byte that is always zero,
// and a single recursive [Property]. Each property is a type tag, an opaque
// flag and a payload. Everything is little-endian.
//
// Decoding is strict about structure (unknown tags, bad UTF-8 and truncated
// input are errors) but lenient about booleans: only the byte 1 reads as
// true. Encoding always writes canonical bytes, and any tree produced by
// [Decode] encodes back to exactly the bytes it was read from.
package propertytree
