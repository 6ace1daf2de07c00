// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-player/amp/internal/player"
	"github.com/amp-player/amp/internal/util"
)

// errExit signals the input loop to stop.
var errExit = errors.New("exit")

// Command is one parsed console line.
type Command struct {
	Name string
	Args []string
	Raw  string // the unparsed line, forwarded to the core for its commands
}

func parseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: fields[0], Args: fields[1:], Raw: strings.TrimSpace(line)}
}

type consoleCommand struct {
	usage string
	help  string
	run   func(*console, Command) error
}

// consoleCommands are the commands handled by the console itself.
// Anything else is forwarded to the player core.
var consoleCommands = map[string]consoleCommand{
	"help": {
		usage: "help",
		help:  "Show this help",
		run:   cmdHelp,
	},
	"quit": {
		usage: "quit",
		help:  "Exit the console and shut the player down",
		run:   func(*console, Command) error { return errExit },
	},
	"exit": {
		usage: "exit",
		help:  "Same as quit",
		run:   func(*console, Command) error { return errExit },
	},
	"status": {
		usage: "status",
		help:  "Show playback state",
		run:   cmdStatus,
	},
	"get": {
		usage: "get <property>",
		help:  "Print a property value",
		run:   cmdGet,
	},
	"set": {
		usage: "set <property> <value>",
		help:  "Set a property from its string form",
		run:   cmdSetProp,
	},
	"props": {
		usage: "props",
		help:  "List property names",
		run:   cmdProps,
	},
	"scripts": {
		usage: "scripts",
		help:  "List loaded scripts",
		run:   cmdScripts,
	},
	"load": {
		usage: "load <path>",
		help:  "Load a script file",
		run:   cmdLoad,
	},
	"stop-script": {
		usage: "stop-script <name>",
		help:  "Ask a script to exit",
		run:   cmdStopScript,
	},
	"config": {
		usage: "config",
		help:  "Show the active configuration",
		run:   cmdConfig,
	},
}

// executeCommand dispatches a console command, or forwards the line
// to the core's command table ("set pause yes", "seek 30", ...).
func (c *console) executeCommand(cmd Command) error {
	if cc, ok := consoleCommands[cmd.Name]; ok {
		return cc.run(c, cmd)
	}
	return c.client.CommandString(cmd.Raw)
}

// helpOrder fixes the listing order; maps would shuffle it.
var helpOrder = []string{"help", "quit", "exit", "status", "get", "set", "props", "scripts", "load", "stop-script", "config"}

func cmdHelp(c *console, _ Command) error {
	fmt.Println("Console commands:")
	for _, name := range helpOrder {
		cc := consoleCommands[name]
		fmt.Printf("  %-28s %s\n", cc.usage, cc.help)
	}
	fmt.Println("\nPlayer commands (forwarded to the core):")
	fmt.Printf("  %s\n", strings.Join(c.core.CommandNames(), ", "))
	return nil
}

func cmdStatus(c *console, _ Command) error {
	get := func(name string) string {
		v, err := c.client.GetProperty(name, player.FormatString)
		if err != nil {
			return "-"
		}
		return v.Str
	}
	path := get("path")
	if path == "" {
		fmt.Println("Nothing playing")
	} else {
		fmt.Printf("Playing: %s (%s)\n", get("media-title"), path)
		fmt.Printf("Position: %s / %s\n", fmtSeconds(get("time-pos")), fmtSeconds(get("duration")))
	}
	fmt.Printf("Paused: %s  Volume: %s  Mute: %s  Speed: %s\n",
		get("pause"), get("volume"), get("mute"), get("speed"))
	fmt.Printf("Playlist: %s of %s\n", get("playlist-pos"), get("playlist-count"))
	return nil
}

// fmtSeconds renders a seconds string as H:MM:SS, passing through
// values it cannot parse.
func fmtSeconds(s string) string {
	var sec float64
	if _, err := fmt.Sscanf(s, "%f", &sec); err != nil {
		return s
	}
	return util.FormatDuration(sec)
}

func cmdGet(c *console, cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("usage: get <property>")
	}
	v, err := c.client.GetProperty(cmd.Args[0], player.FormatString)
	if err != nil {
		return err
	}
	fmt.Println(v.Str)
	return nil
}

func cmdSetProp(c *console, cmd Command) error {
	if len(cmd.Args) < 2 {
		return fmt.Errorf("usage: set <property> <value>")
	}
	return c.client.SetPropertyString(cmd.Args[0], strings.Join(cmd.Args[1:], " "))
}

func cmdProps(c *console, _ Command) error {
	for _, name := range c.core.PropertyNames() {
		fmt.Println(name)
	}
	return nil
}

func cmdScripts(c *console, _ Command) error {
	handles := c.loader.Handles()
	if len(handles) == 0 {
		fmt.Println("No scripts loaded")
		return nil
	}
	for _, h := range handles {
		state := "running"
		color := util.ColorGreen
		select {
		case <-h.Done():
			if h.Err() != nil {
				state, color = "failed", util.ColorRed
			} else {
				state, color = "exited", util.ColorDim
			}
		default:
		}
		// Pad before coloring so the escape bytes do not skew the column.
		fmt.Printf("  %-20s %-10s %s %s\n", h.Name, h.Backend,
			util.Colorize(fmt.Sprintf("%-8s", state), color), h.Path)
	}
	return nil
}

func cmdLoad(c *console, cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("usage: load <path>")
	}
	h, err := c.loader.LoadScript(util.ExpandPath(cmd.Args[0]))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %s (%s)\n", h.Name, h.Backend)
	return nil
}

func cmdStopScript(c *console, cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("usage: stop-script <name>")
	}
	for _, h := range c.loader.Handles() {
		if h.Name == cmd.Args[0] {
			h.Stop()
			return nil
		}
	}
	return fmt.Errorf("no script named %q", cmd.Args[0])
}

func cmdConfig(c *console, _ Command) error {
	util.DisplayConfig(c.dataDir)
	return nil
}
