// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/amp-player/amp/internal/jsapi"
	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
	"github.com/amp-player/amp/internal/scripting"
	"github.com/amp-player/amp/internal/util"
	"github.com/amp-player/amp/internal/version"
)

// scriptList collects repeatable -script flags.
type scriptList []string

func (s *scriptList) String() string { return strings.Join(*s, ",") }
func (s *scriptList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	// Define all flags upfront before parsing
	var scripts scriptList
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.amp or AMP_DATA)")
	configPath := flag.String("config", "", "Config file (default: <datadir>/config.yaml)")
	flag.Var(&scripts, "script", "Load a script file (repeatable)")
	watchScripts := flag.Bool("watch", false, "Watch the scripts directory for new scripts")
	startTUI := flag.Bool("tui", false, "Start the dashboard instead of the console")
	flag.Parse()

	// Handle early-exit flags
	if *printVersion {
		fmt.Printf("amp %s\n", version.String())
		os.Exit(0)
	}

	// Resolve data directory: -d flag > AMP_DATA env var > ~/.amp
	resolvedDataDir := util.RequireDataDir(*dataDir)

	// Initialize logger (supports AMP_DEBUG environment variable)
	util.InitLogger()

	// Load config. A missing config file is fine, defaults apply.
	var config util.Config
	var err error
	if *configPath != "" {
		config, err = util.LoadConfigFromPath(*configPath)
		if err == nil {
			config.ScriptsDir = util.ResolvePath(config.ScriptsDir, resolvedDataDir)
		}
	} else {
		config, err = util.LoadConfig(resolvedDataDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	bus := msg.NewBus(util.Logger)
	core := player.NewCore(bus)
	core.SetScriptOpts(config.ScriptOpts)
	if err := core.SetProperty("volume", player.DoubleNode(config.Volume)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to apply configured volume: %v\n", err)
		os.Exit(1)
	}

	// Register script backends (must be called before creating the loader)
	jsapi.Register()

	loader := scripting.NewLoader(core, scripting.Options{
		Overrides: config.Backends,
	})

	// Load scripts: scripts dir from config, then -script flags, then
	// positional arguments.
	if config.LoadScripts {
		if err := loader.LoadDir(config.ScriptsDir); err != nil {
			core.Log().Warnf("scripts dir: %s", err)
		}
	}
	for _, path := range append([]string(scripts), flag.Args()...) {
		if _, err := loader.LoadScript(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if *watchScripts || config.WatchScripts {
		go func() {
			if err := loader.Watch(watchCtx, config.ScriptsDir); err != nil {
				core.Log().Warnf("script watch: %s", err)
			}
		}()
	}

	switch {
	case *startTUI:
		runTUI(core, loader)
	case term.IsTerminal(int(os.Stdin.Fd())):
		startREPL(core, loader, resolvedDataDir)
	default:
		waitForSignal(core)
	}

	shutdown(core, loader)
}

// waitForSignal blocks until SIGINT/SIGTERM or until the core shuts
// down on its own (e.g. a script issued the quit command).
func waitForSignal(core *player.Core) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-sig:
	case <-core.Done():
	}
}

// shutdown broadcasts the shutdown event and gives scripts a bounded
// window to leave their event loops before the process exits.
func shutdown(core *player.Core, loader *scripting.Loader) {
	core.Shutdown()
	done := make(chan struct{})
	go func() {
		loader.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		core.Log().Warnf("scripts did not exit in time")
	}
}
