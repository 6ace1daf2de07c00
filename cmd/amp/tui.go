// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
	"github.com/amp-player/amp/internal/scripting"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	scriptFailedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	logErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	logWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	logDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const logKeep = 200

// logMsg carries one bus record into the update loop.
type logMsg msg.Record

// tickMsg refreshes the property snapshot.
type tickMsg time.Time

// dashboardModel is the TUI application model.
type dashboardModel struct {
	core   *player.Core
	loader *scripting.Loader
	logCh  <-chan msg.Record

	width   int
	height  int
	logs    []msg.Record
	logView viewport.Model // scrollable log tail
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(waitForLogCmd(m.logCh), tickCmd())
}

// waitForLogCmd returns a tea.Cmd that waits for the next bus record.
func waitForLogCmd(ch <-chan msg.Record) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(r)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashboardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(message)

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		m.sizeLogView()
		return m, nil

	case logMsg:
		m.logs = append(m.logs, msg.Record(message))
		if len(m.logs) > logKeep {
			m.logs = m.logs[len(m.logs)-logKeep:]
		}
		// Follow new records unless the user scrolled away.
		follow := m.logView.AtBottom()
		m.logView.SetContent(m.renderLogs())
		if follow {
			m.logView.GotoBottom()
		}
		return m, waitForLogCmd(m.logCh)

	case tickMsg:
		// Properties are read at render time; the tick only forces a
		// redraw so the position line advances.
		return m, tickCmd()
	}
	return m, nil
}

func (m dashboardModel) handleKeyPress(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.runCommand("cycle", "pause")
	case "m":
		m.runCommand("cycle", "mute")
	case "+", "=":
		m.runCommand("add", "volume", "5")
	case "-":
		m.runCommand("add", "volume", "-5")
	case "left":
		m.runCommand("seek", "-5")
	case "right":
		m.runCommand("seek", "5")
	case ">":
		m.runCommand("playlist-next")
	case "<":
		m.runCommand("playlist-prev")
	case "up", "k":
		m.logView.ScrollUp(1)
	case "down", "j":
		m.logView.ScrollDown(1)
	case "pgup":
		m.logView.PageUp()
	case "pgdown":
		m.logView.PageDown()
	default:
		// Let script key bindings see everything else.
		m.core.HandleKey(key.String())
	}
	return m, nil
}

func (m dashboardModel) runCommand(args ...string) {
	nodes := make([]player.Node, len(args))
	for i, a := range args {
		nodes[i] = player.StringNode(a)
	}
	if _, err := m.core.RunCommand(nil, nodes); err != nil {
		m.core.Log().Errorf("%s: %v", args[0], err)
	}
}

func (m dashboardModel) prop(name string) string {
	v, err := m.core.GetProperty(name, player.FormatString)
	if err != nil {
		return "-"
	}
	return v.Str
}

func (m dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("amp"))
	b.WriteString("\n")

	path := m.prop("path")
	if path == "" {
		b.WriteString(logDimStyle.Render("nothing playing"))
		b.WriteString("\n")
	} else {
		state := playingStyle.Render("playing")
		if v, err := m.core.GetProperty("pause", player.FormatFlag); err == nil && v.Flag {
			state = pausedStyle.Render("paused")
		}
		b.WriteString(fmt.Sprintf("%s  %s\n", state, m.prop("media-title")))
		b.WriteString(fmt.Sprintf("%s / %s   vol %s%%   speed %s\n",
			fmtSeconds(m.prop("time-pos")), fmtSeconds(m.prop("duration")),
			m.prop("volume"), m.prop("speed")))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Scripts"))
	b.WriteString("\n")
	handles := m.loader.Handles()
	if len(handles) == 0 {
		b.WriteString(logDimStyle.Render("  none loaded"))
		b.WriteString("\n")
	}
	for _, h := range handles {
		state := "running"
		style := playingStyle
		select {
		case <-h.Done():
			if h.Err() != nil {
				state, style = "failed", scriptFailedStyle
			} else {
				state, style = "exited", logDimStyle
			}
		default:
		}
		b.WriteString(fmt.Sprintf("  %-20s %-10s %s\n", h.Name, h.Backend, style.Render(state)))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Log"))
	b.WriteString("\n")
	b.WriteString(m.logView.View())
	b.WriteString("\n")
	if m.logView.TotalLineCount() > m.logView.Height {
		b.WriteString(helpStyle.Render(fmt.Sprintf("[%.0f%% of %d lines]",
			m.logView.ScrollPercent()*100, m.logView.TotalLineCount())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space pause · m mute · +/- volume · ←/→ seek · ↑/↓ scroll log · q quit"))
	return b.String()
}

// sizeLogView fits the log pane under the fixed chrome and the script
// list, keeping the view pinned to the newest records.
func (m *dashboardModel) sizeLogView() {
	h := m.height - 12 - len(m.loader.Handles())
	if h < 3 {
		h = 3
	}
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	if m.logView.Width == 0 && m.logView.Height == 0 {
		m.logView = viewport.New(w, h)
	} else {
		m.logView.Width = w
		m.logView.Height = h
	}
	m.logView.SetContent(m.renderLogs())
	m.logView.GotoBottom()
}

// renderLogs styles the record ring for the viewport.
func (m dashboardModel) renderLogs() string {
	var b strings.Builder
	for _, r := range m.logs {
		line := fmt.Sprintf("  [%s] %s", r.Prefix, r.Text)
		switch {
		case r.Level <= msg.LevelError:
			line = logErrorStyle.Render(line)
		case r.Level == msg.LevelWarn:
			line = logWarnStyle.Render(line)
		case r.Level >= msg.LevelVerbose:
			line = logDimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// runTUI runs the dashboard until the user quits. Bus records above
// the debug level are mirrored into the log pane.
func runTUI(core *player.Core, loader *scripting.Loader) {
	ch := make(chan msg.Record, 64)
	cancel := core.Bus().Subscribe(func(r msg.Record) {
		if r.Level > msg.LevelVerbose {
			return
		}
		select {
		case ch <- r:
		default:
		}
	})
	defer cancel()

	model := dashboardModel{core: core, loader: loader, logCh: ch}
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Quit the dashboard when the core shuts down underneath it.
	go func() {
		<-core.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
