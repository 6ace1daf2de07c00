// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds amp configuration settings.
type Config struct {
	ScriptsDir   string  `yaml:"scripts_dir" description:"Directory of scripts loaded at startup (relative to data dir)" default:"scripts"`
	LoadScripts  bool    `yaml:"load_scripts" description:"Load scripts from the scripts directory at startup" default:"true"`
	WatchScripts bool    `yaml:"watch_scripts" description:"Reload scripts in the scripts directory when their files change"`
	Volume       float64 `yaml:"volume" description:"Initial volume (0-130)" default:"100"`

	// Options forwarded to scripts through the script-opts property.
	ScriptOpts map[string]string `yaml:"script_opts" description:"Key/value options visible to scripts"`

	// Backend overrides collected from "<ext>-backend" keys, e.g.
	// "js-backend: javascript" forces the named backend for .js files.
	Backends map[string]string `yaml:"-"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		ScriptsDir:  "scripts",
		LoadScripts: true,
		Volume:      100,
	}
}

// GetConfigPath returns the path to the config file in the data
// directory. Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig loads configuration from config.yaml in the data
// directory. If dataDir is empty or the file doesn't exist, returns
// the default config. The scripts directory is resolved relative to
// the data directory.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	config.ScriptsDir = ResolvePath(config.ScriptsDir, dataDir)
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path. A
// missing file is not an error; defaults apply.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		// Other errors - log but return defaults
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Failed to read config file: %v\n", err)
		return DefaultConfig(), nil
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Volume < 0 || config.Volume > 130 {
		return Config{}, fmt.Errorf("invalid volume %v in config (must be 0-130)", config.Volume)
	}
	if config.ScriptsDir == "" {
		config.ScriptsDir = DefaultConfig().ScriptsDir
	}

	// Backend overrides are free-form keys, so they need a second
	// pass over the raw document.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		for key, val := range raw {
			ext, ok := strings.CutSuffix(key, "-backend")
			if !ok || ext == "" {
				continue
			}
			name, ok := val.(string)
			if !ok {
				return Config{}, fmt.Errorf("invalid value for %s in config (must be a backend name)", key)
			}
			if config.Backends == nil {
				config.Backends = make(map[string]string)
			}
			config.Backends[ext] = name
		}
	}

	return config, nil
}

// DisplayConfig prints the current configuration.
func DisplayConfig(dataDir string) {
	config, err := LoadConfig(dataDir)
	configPath := GetConfigPath(dataDir)

	fmt.Println("Current Configuration:")
	fmt.Println("=====================")
	fmt.Printf("Data dir:    %s\n", dataDir)
	fmt.Printf("Config file: %s\n", configPath)
	if err != nil {
		fmt.Printf("Error:       %v\n", err)
		fmt.Println()
		return
	}
	fmt.Printf("Scripts dir: %s\n", config.ScriptsDir)
	fmt.Printf("Load:        %v\n", config.LoadScripts)
	fmt.Printf("Watch:       %v\n", config.WatchScripts)
	fmt.Printf("Volume:      %v\n", config.Volume)
	for ext, name := range config.Backends {
		fmt.Printf("Backend:     .%s -> %s\n", ext, name)
	}
	if len(config.ScriptOpts) > 0 {
		fmt.Printf("Script opts: %d set\n", len(config.ScriptOpts))
	}
	fmt.Println()
}
