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
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/bufbuild/modsettings/propertytree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A file with a single string setting, as written by game version 1.1.82.
const simpleSettingsHex = "01 00 01 00 52 00 04 00 00 05 00 03 00 00 00 00 07 73 74 61 72 74 75 70 05 00 01 00 00 00 00 11 " +
	"6D 79 2D 73 74 72 69 6E 67 2D 73 65 74 74 69 6E 67 05 00 01 00 00 00 00 05 76 61 6C 75 65 03 00 00 08 64 65 61 64 " +
	"62 65 65 66 00 0E 72 75 6E 74 69 6D 65 2D 67 6C 6F 62 61 6C 05 00 00 00 00 00 00 10 72 75 6E 74 69 6D 65 2D 70 65 " +
	"72 2D 75 73 65 72 05 00 00 00 00 00"

func simpleSettingsData(t *testing.T) []byte {
	t.Helper()
	data, err := hex.DecodeString(strings.ReplaceAll(simpleSettingsHex, " ", ""))
	require.NoError(t, err)
	return data
}

func TestToSimple_SimpleSettings(t *testing.T) {
	t.Parallel()
	tree, err := propertytree.Unmarshal(simpleSettingsData(t))
	require.NoError(t, err)
	simple, err := ToSimple(tree)
	require.NoError(t, err)
	assert.Equal(t, formatVersion(1, 1, 82, 4), simple.Version)
	assert.Equal(t, []string{"my-string-setting"}, simple.Startup.Names())
	value, ok := simple.Startup.Get("my-string-setting")
	require.True(t, ok)
	assert.Equal(t, StringValue("deadbeef"), value)
	assert.Equal(t, 0, simple.RuntimeGlobal.Len())
	assert.Equal(t, 0, simple.RuntimePerUser.Len())

	// and back to the same bytes
	data, err := propertytree.Marshal(FromSimple(simple))
	require.NoError(t, err)
	assert.Equal(t, simpleSettingsData(t), data)
}

func TestProjectionRoundTrip(t *testing.T) {
	t.Parallel()
	settings := sampleSettings()
	tree := FromSimple(settings)
	data, err := propertytree.Marshal(tree)
	require.NoError(t, err)
	decoded, err := propertytree.Unmarshal(data)
	require.NoError(t, err)
	roundTrip, err := ToSimple(decoded)
	require.NoError(t, err)
	if diff := cmp.Diff(settings, roundTrip, compareSections); diff != "" {
		t.Errorf("projection round trip failed (-want +got):\n%s", diff)
	}
}

func TestToSimple_ColorChannelsAreIndependent(t *testing.T) {
	t.Parallel()
	color := propertytree.NewDictionary(4)
	// stored out of order, with an integer channel
	color.Set("a", &propertytree.Property{Value: propertytree.Double(0.4)})
	color.Set("b", &propertytree.Property{Value: propertytree.Double(0.3)})
	color.Set("g", &propertytree.Property{Value: propertytree.Integer(1)})
	color.Set("r", &propertytree.Property{Value: propertytree.Double(0.1)})
	tree := treeWithLeaf(t, &propertytree.Property{Value: color})
	simple, err := ToSimple(tree)
	require.NoError(t, err)
	value, ok := simple.Startup.Get("setting")
	require.True(t, ok)
	assert.Equal(t, ColorValue{R: 0.1, G: 1, B: 0.3, A: 0.4}, value)
}

func TestFromSimple(t *testing.T) {
	t.Parallel()
	settings := NewSimpleSettings(formatVersion(2, 0, 7, 0))
	settings.Startup.Set("color", ColorValue{R: 1, G: 2, B: 3, A: 4})
	settings.Startup.Set("nothing", NoneValue{})
	settings.RuntimePerUser = nil

	tree := FromSimple(settings)
	assert.Equal(t, settings.Version, tree.Version)
	assert.False(t, tree.Root.AnyFlag)
	root := tree.Root.Value.(*propertytree.Dictionary)
	assert.Equal(t, SectionNames(), root.Keys())

	startup, _ := root.Get(SectionStartup)
	startupDict := startup.Value.(*propertytree.Dictionary)
	assert.Equal(t, []string{"color", "nothing"}, startupDict.Keys())
	entry, _ := startupDict.Get("color")
	assert.False(t, entry.AnyFlag)
	leaf, _ := entry.Value.(*propertytree.Dictionary).Get("value")
	color := leaf.Value.(*propertytree.Dictionary)
	assert.Equal(t, []string{"r", "g", "b", "a"}, color.Keys())
	channel, _ := color.Get("b")
	assert.Equal(t, propertytree.Double(3), channel.Value)

	entry, _ = startupDict.Get("nothing")
	leaf, _ = entry.Value.(*propertytree.Dictionary).Get("value")
	assert.Equal(t, propertytree.None{}, leaf.Value)

	perUser, _ := root.Get(SectionRuntimePerUser)
	assert.Equal(t, 0, perUser.Value.(*propertytree.Dictionary).Len())

	empty := FromSimple(nil)
	assert.Equal(t, SectionNames(), empty.Root.Value.(*propertytree.Dictionary).Keys())
}

func TestToSimple_Errors(t *testing.T) {
	t.Parallel()
	validColor := func() *propertytree.Dictionary {
		color := propertytree.NewDictionary(4)
		for _, key := range []string{"r", "g", "b", "a"} {
			color.Set(key, &propertytree.Property{Value: propertytree.Double(1)})
		}
		return color
	}
	testCases := []struct {
		name         string
		tree         func(t *testing.T) *propertytree.Settings
		expectPath   string
		expectReason string
	}{
		{
			name: "root is not a dictionary",
			tree: func(*testing.T) *propertytree.Settings {
				return &propertytree.Settings{Root: &propertytree.Property{Value: propertytree.List{}}}
			},
			expectReason: "root is list, not a dictionary",
		},
		{
			name: "nil root",
			tree: func(*testing.T) *propertytree.Settings {
				return &propertytree.Settings{}
			},
			expectReason: "root is none, not a dictionary",
		},
		{
			name: "missing runtime-per-user",
			tree: func(t *testing.T) *propertytree.Settings {
				tree := treeWithLeaf(t, &propertytree.Property{Value: propertytree.Bool(true)})
				tree.Root.Value.(*propertytree.Dictionary).Delete(SectionRuntimePerUser)
				return tree
			},
			expectPath:   "runtime-per-user",
			expectReason: "missing section",
		},
		{
			name: "section is not a dictionary",
			tree: func(t *testing.T) *propertytree.Settings {
				tree := treeWithLeaf(t, &propertytree.Property{Value: propertytree.Bool(true)})
				tree.Root.Value.(*propertytree.Dictionary).Set(SectionRuntimeGlobal, &propertytree.Property{Value: propertytree.String("x")})
				return tree
			},
			expectPath:   "runtime-global",
			expectReason: "section is string, not a dictionary",
		},
		{
			name: "setting is not a dictionary",
			tree: func(t *testing.T) *propertytree.Settings {
				tree := treeWithLeaf(t, nil)
				startup, _ := tree.Root.Value.(*propertytree.Dictionary).Get(SectionStartup)
				startup.Value.(*propertytree.Dictionary).Set("setting", &propertytree.Property{Value: propertytree.Double(1)})
				return tree
			},
			expectPath:   "startup/setting",
			expectReason: "setting is double, not a dictionary",
		},
		{
			name: "missing value property",
			tree: func(t *testing.T) *propertytree.Settings {
				tree := treeWithLeaf(t, nil)
				startup, _ := tree.Root.Value.(*propertytree.Dictionary).Get(SectionStartup)
				startup.Value.(*propertytree.Dictionary).Set("setting", &propertytree.Property{Value: propertytree.NewDictionary(0)})
				return tree
			},
			expectPath:   "startup/setting",
			expectReason: "missing value property",
		},
		{
			name: "none value",
			tree: func(t *testing.T) *propertytree.Settings {
				return treeWithLeaf(t, &propertytree.Property{Value: propertytree.None{}})
			},
			expectPath:   "startup/setting/value",
			expectReason: "unsupported value of kind none",
		},
		{
			name: "list value",
			tree: func(t *testing.T) *propertytree.Settings {
				return treeWithLeaf(t, &propertytree.Property{Value: propertytree.List{}})
			},
			expectPath:   "startup/setting/value",
			expectReason: "unsupported value of kind list",
		},
		{
			name: "color missing blue",
			tree: func(t *testing.T) *propertytree.Settings {
				color := validColor()
				color.Delete("b")
				return treeWithLeaf(t, &propertytree.Property{Value: color})
			},
			expectPath:   "startup/setting/value",
			expectReason: `dictionary value is not a color: missing "b" channel`,
		},
		{
			name: "color channel is a string",
			tree: func(t *testing.T) *propertytree.Settings {
				color := validColor()
				color.Set("a", &propertytree.Property{Value: propertytree.String("opaque")})
				return treeWithLeaf(t, &propertytree.Property{Value: color})
			},
			expectPath:   "startup/setting/value/a",
			expectReason: "color channel is string, not a number",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			simple, err := ToSimple(testCase.tree(t))
			require.Error(t, err)
			assert.Nil(t, simple)
			var structuralErr *StructuralError
			require.True(t, errors.As(err, &structuralErr))
			assert.Equal(t, testCase.expectPath, structuralErr.Path)
			assert.Equal(t, testCase.expectReason, structuralErr.Reason)
			if testCase.expectPath != "" {
				assert.Contains(t, err.Error(), testCase.expectPath)
			}
		})
	}
}

// treeWithLeaf returns a tree whose startup section holds one setting named
// "setting" with the given value property. A nil leaf leaves the startup
// section empty.
func treeWithLeaf(t *testing.T, leaf *propertytree.Property) *propertytree.Settings {
	t.Helper()
	tree := FromSimple(NewSimpleSettings(formatVersion(1, 1, 0, 0)))
	if leaf == nil {
		return tree
	}
	wrapper := propertytree.NewDictionary(1)
	wrapper.Set("value", leaf)
	startup, ok := tree.Root.Value.(*propertytree.Dictionary).Get(SectionStartup)
	require.True(t, ok)
	startup.Value.(*propertytree.Dictionary).Set("setting", &propertytree.Property{Value: wrapper})
	return tree
}
