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

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bufbuild/modsettings/propertytree"
	"github.com/tidwall/gjson"
)

func ExampleConverter() {
	settings := NewSimpleSettings(propertytree.FormatVersion{Major: 1, Minor: 1, Patch: 110})
	settings.Startup.Set("my-mod-enabled", BoolValue(true))
	settings.RuntimeGlobal.Set("my-mod-tint", ColorValue{R: 1, G: 0.5, B: 0, A: 1})
	settings.RuntimePerUser.Set("my-mod-nickname", StringValue("engineer"))
	dat, err := BinaryOutputFormat().Marshal(settings)
	if err != nil {
		log.Fatalf("encoding settings: %v", err)
	}

	converter := &Converter{
		InputFormat:  BinaryInputFormat(propertytree.DecodeOptions{}),
		OutputFormat: JSONOutputFormat(),
		Filters:      Filters{Redact(InSection(SectionRuntimePerUser))},
	}
	doc, err := converter.Convert(dat)
	if err != nil {
		log.Fatalf("converting settings: %v", err)
	}
	fmt.Println(gjson.GetBytes(doc, "startup.my-mod-enabled.value"))
	fmt.Println(gjson.GetBytes(doc, "runtime-global.my-mod-tint.value.g"))
	fmt.Println(gjson.GetBytes(doc, "runtime-per-user.my-mod-nickname").Exists())
	// Output:
	// true
	// 0.5
	// false
}

func ExampleSettingsWatcher() {
	dir, err := os.MkdirTemp("", "modsettings-example")
	if err != nil {
		log.Fatalf("creating directory: %v", err)
	}
	defer os.RemoveAll(dir)
	settings := NewSimpleSettings(propertytree.FormatVersion{Major: 2, Patch: 28})
	settings.Startup.Set("my-mod-max-robots", IntegerValue(250))
	dat, err := BinaryOutputFormat().Marshal(settings)
	if err != nil {
		log.Fatalf("encoding settings: %v", err)
	}
	path := filepath.Join(dir, "mod-settings.dat")
	if err := os.WriteFile(path, dat, 0600); err != nil {
		log.Fatalf("writing settings: %v", err)
	}

	ctx := context.Background()
	watcher, err := NewSettingsWatcher(ctx, &SettingsWatcherConfig{
		SettingsPoller: NewFileSettingsPoller(path),
		PollingPeriod:  time.Minute,
	})
	if err != nil {
		log.Fatalf("failed to create settings watcher: %v", err)
	}
	defer watcher.Stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := watcher.AwaitReady(ctx); err != nil {
		log.Fatalf("settings watcher never became ready: %v", err)
	}
	current, err := watcher.Settings()
	if err != nil {
		log.Fatalf("getting settings: %v", err)
	}
	value, _ := current.Startup.Get("my-mod-max-robots")
	fmt.Printf("%s %v\n", value.Type(), value)
	// Output: Integer 250
}
