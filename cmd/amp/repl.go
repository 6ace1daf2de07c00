// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/amp-player/amp/internal/player"
	"github.com/amp-player/amp/internal/scripting"
)

// console is the interactive shell state. It talks to the core
// through its own client, the same way a script does.
type console struct {
	core    *player.Core
	loader  *scripting.Loader
	client  *player.Client
	dataDir string
	rl      *readline.Instance
}

func (c *console) prompt() string {
	ind := ""
	if v, err := c.client.GetProperty("pause", player.FormatFlag); err == nil && v.Flag {
		ind = " [paused]"
	}
	return fmt.Sprintf("\033[32mamp%s>\033[0m ", ind)
}

// drainEvents keeps the console client's event queue empty and echoes
// the events a console user cares about. Exits on shutdown, closing
// the readline instance so the input loop unblocks.
func (c *console) drainEvents() {
	for {
		ev := c.client.WaitEvent(1e20)
		switch ev.ID {
		case player.EventShutdown:
			fmt.Println("\nPlayer shut down")
			if c.rl != nil {
				_ = c.rl.Close()
			}
			return
		case player.EventClientMessage:
			fmt.Printf("[message] %s\n", strings.Join(ev.Args, " "))
		case player.EventEndFile:
			if ev.Reason != "" {
				fmt.Printf("[end-file] %s\n", ev.Reason)
			}
		}
	}
}

func startBasicREPL(c *console) {
	fmt.Println("Running in basic mode (no history/completion)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(c.prompt())
		if !scanner.Scan() {
			break
		}
		cmd := parseCommand(scanner.Text())
		if cmd.Name == "" {
			continue
		}
		if err := c.executeCommand(cmd); err != nil {
			if errors.Is(err, errExit) {
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func startREPL(core *player.Core, loader *scripting.Loader, dataDir string) {
	fmt.Println("amp console")
	fmt.Println("Type 'help' for available commands or 'quit' to exit")

	c := &console{
		core:    core,
		loader:  loader,
		client:  core.CreateClient("console"),
		dataDir: dataDir,
	}
	c.client.MarkInitialized()
	defer c.client.Destroy()
	go c.drainEvents()

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".amp_history")

	rlConfig := &readline.Config{
		Prompt:            c.prompt(),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      buildCompleter(core),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		startBasicREPL(c)
		return
	}
	c.rl = rl
	defer func() {
		_ = rl.Close() // Best-effort close, errors during shutdown not critical
	}()

	for {
		rl.SetPrompt(c.prompt())

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Println("Use 'quit' or 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		cmd := parseCommand(line)
		if cmd.Name == "" {
			continue
		}
		err = c.executeCommand(cmd)
		if err != nil {
			if errors.Is(err, errExit) {
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// buildCompleter suggests console commands, core commands, and
// property names where a property argument is expected.
func buildCompleter(core *player.Core) readline.AutoCompleter {
	props := readline.PcItemDynamic(func(string) []string {
		return core.PropertyNames()
	})
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
		readline.PcItem("status"),
		readline.PcItem("scripts"),
		readline.PcItem("load"),
		readline.PcItem("stop-script"),
		readline.PcItem("config"),
		readline.PcItem("props"),
		readline.PcItem("get", props),
		readline.PcItem("set", props),
	}
	for _, name := range core.CommandNames() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
