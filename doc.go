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

// Package modsettings reads and writes the mod-settings.dat files a game
// keeps next to its mods, and converts them to and from editable JSON and
// TOML documents.
//
// The binary file holds a property tree, implemented by the [propertytree]
// package. This package projects that tree onto [SimpleSettings]: three
// sections ("startup", "runtime-global" and "runtime-per-user") mapping
// setting names to typed values. Setting order is preserved everywhere, so
// decoding a file and encoding it again gives back the same bytes.
//
// A [Converter] combines an [InputFormat] and an [OutputFormat], optionally
// applying [Filters] in between. A [SettingsWatcher] polls a settings file,
// or any other [SettingsPoller], in the background, and can keep the last
// good copy in a [Cache] so a restarted process has settings before its
// first successful poll. Cache implementations live under the cache
// directory.
//
// The modsettings command in cmd/modsettings wraps the converter for use
// from a shell.
//
// [propertytree]: https://pkg.go.dev/github.com/bufbuild/modsettings/propertytree
package modsettings
