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

import "fmt"

// FormatVersion is the game version recorded in a file header.
type FormatVersion struct {
	Major uint16
	Minor uint16
	Patch uint16
	Build uint16
}

// Compare returns -1, 0 or 1 depending on whether v sorts before, equal to,
// or after other. Fields are compared in the order major, minor, patch, build.
func (v FormatVersion) Compare(other FormatVersion) int {
	a := [4]uint16{v.Major, v.Minor, v.Patch, v.Build}
	b := [4]uint16{other.Major, other.Minor, other.Patch, other.Build}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v FormatVersion) Less(other FormatVersion) bool {
	return v.Compare(other) < 0
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}
