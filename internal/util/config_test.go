// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.ScriptsDir != "scripts" {
		t.Errorf("ScriptsDir = %q, want scripts", c.ScriptsDir)
	}
	if !c.LoadScripts {
		t.Error("LoadScripts should default to true")
	}
	if c.WatchScripts {
		t.Error("WatchScripts should default to false")
	}
	if c.Volume != 100 {
		t.Errorf("Volume = %v, want 100", c.Volume)
	}
}

func TestLoadConfigFromPathMissing(t *testing.T) {
	c, err := LoadConfigFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if c.ScriptsDir != "scripts" || c.Volume != 100 {
		t.Errorf("missing file did not yield defaults: %+v", c)
	}
}

func TestLoadConfigFromPath(t *testing.T) {
	path := writeConfig(t, `
scripts_dir: my-scripts
load_scripts: false
watch_scripts: true
volume: 80
script_opts:
  osc-scale: "2"
  theme: dark
js-backend: javascript
`)
	c, err := LoadConfigFromPath(path)
	if err != nil {
		t.Fatalf("LoadConfigFromPath: %v", err)
	}
	if c.ScriptsDir != "my-scripts" {
		t.Errorf("ScriptsDir = %q", c.ScriptsDir)
	}
	if c.LoadScripts || !c.WatchScripts {
		t.Errorf("LoadScripts = %v, WatchScripts = %v", c.LoadScripts, c.WatchScripts)
	}
	if c.Volume != 80 {
		t.Errorf("Volume = %v, want 80", c.Volume)
	}
	if c.ScriptOpts["osc-scale"] != "2" || c.ScriptOpts["theme"] != "dark" {
		t.Errorf("ScriptOpts = %v", c.ScriptOpts)
	}
	if c.Backends["js"] != "javascript" {
		t.Errorf("Backends = %v, want js -> javascript", c.Backends)
	}
}

func TestLoadConfigFromPathErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "volume out of range",
			content: "volume: 200\n",
			wantErr: "invalid volume",
		},
		{
			name:    "negative volume",
			content: "volume: -1\n",
			wantErr: "invalid volume",
		},
		{
			name:    "backend override not a string",
			content: "js-backend: [1, 2]\n",
			wantErr: "invalid value for js-backend",
		},
		{
			name:    "unparseable yaml",
			content: "volume: [\n",
			wantErr: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromPath(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigResolvesScriptsDir(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("scripts_dir: s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if want := filepath.Join(dataDir, "s"); c.ScriptsDir != want {
		t.Errorf("ScriptsDir = %q, want %q", c.ScriptsDir, want)
	}

	// An absolute scripts dir stays put.
	abs := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("scripts_dir: "+abs+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.ScriptsDir != abs {
		t.Errorf("absolute ScriptsDir = %q, want %q", c.ScriptsDir, abs)
	}
}

func TestGetConfigPath(t *testing.T) {
	if got := GetConfigPath(""); got != "" {
		t.Errorf("GetConfigPath(\"\") = %q, want empty", got)
	}
	if got, want := GetConfigPath("/data"), filepath.Join("/data", "config.yaml"); got != want {
		t.Errorf("GetConfigPath = %q, want %q", got, want)
	}
}
