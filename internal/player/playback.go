// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/amp-player/amp/internal/msg"
)

// Version is the host version reported to scripts.
const Version = "0.1.0"

// playbackState is the mutable playback side of the core. The host
// does no real decoding; state changes are driven by commands and by
// the frontend, and scripts observe them like any other client.
type playbackState struct {
	mu sync.Mutex

	playlist    []string
	playlistPos int

	path     string
	pause    bool
	mute     bool
	volume   float64
	speed    float64
	timePos  float64
	duration float64
	durKnown bool
}

func (p *playbackState) init() {
	p.playlistPos = -1
	p.volume = 100
	p.speed = 1
}

func (p *playbackState) playing() bool { return p.path != "" }

// flagProperty registers a boolean property backed by playback state.
// A nil write makes it read-only.
func (c *Core) flagProperty(name string, read func(*playbackState) bool, write func(*playbackState, bool)) {
	def := &propertyDef{
		get: func(c *Core) (Node, error) {
			c.pb.mu.Lock()
			defer c.pb.mu.Unlock()
			return FlagNode(read(&c.pb)), nil
		},
	}
	if write != nil {
		def.set = func(c *Core, v Node) error {
			if v.Format != FormatFlag {
				return ErrPropertyFormat
			}
			c.pb.mu.Lock()
			write(&c.pb, v.Flag)
			c.pb.mu.Unlock()
			return nil
		}
	}
	c.registerProperty(name, def)
}

// doubleProperty registers a numeric property clamped to [min, max].
func (c *Core) doubleProperty(name string, min, max float64, read func(*playbackState) (float64, bool), write func(*playbackState, float64)) {
	def := &propertyDef{
		get: func(c *Core) (Node, error) {
			c.pb.mu.Lock()
			defer c.pb.mu.Unlock()
			v, ok := read(&c.pb)
			if !ok {
				return Node{}, ErrPropertyUnavailable
			}
			return DoubleNode(v), nil
		},
	}
	if write != nil {
		def.set = func(c *Core, v Node) error {
			d, err := v.ConvertTo(FormatDouble)
			if err != nil {
				return ErrPropertyFormat
			}
			val := d.Double
			if val < min {
				val = min
			}
			if val > max {
				val = max
			}
			c.pb.mu.Lock()
			write(&c.pb, val)
			c.pb.mu.Unlock()
			return nil
		}
	}
	c.registerProperty(name, def)
}

// stringProperty registers a read-only string property. An empty
// result with ok false reads as unavailable.
func (c *Core) stringProperty(name string, read func(*Core) (string, bool)) {
	c.registerProperty(name, &propertyDef{
		get: func(c *Core) (Node, error) {
			s, ok := read(c)
			if !ok {
				return Node{}, ErrPropertyUnavailable
			}
			return StringNode(s), nil
		},
	})
}

func registerPlaybackProperties(c *Core) {
	c.flagProperty("pause",
		func(p *playbackState) bool { return p.pause },
		func(p *playbackState, v bool) { p.pause = v })
	c.flagProperty("mute",
		func(p *playbackState) bool { return p.mute },
		func(p *playbackState, v bool) { p.mute = v })
	c.flagProperty("idle-active",
		func(p *playbackState) bool { return !p.playing() }, nil)

	c.doubleProperty("volume", 0, 130,
		func(p *playbackState) (float64, bool) { return p.volume, true },
		func(p *playbackState, v float64) { p.volume = v })
	c.doubleProperty("speed", 0.01, 100,
		func(p *playbackState) (float64, bool) { return p.speed, true },
		func(p *playbackState, v float64) { p.speed = v })
	c.doubleProperty("time-pos", 0, 1e12,
		func(p *playbackState) (float64, bool) { return p.timePos, p.playing() },
		func(p *playbackState, v float64) { p.timePos = v })
	c.doubleProperty("duration", 0, 1e12,
		func(p *playbackState) (float64, bool) { return p.duration, p.playing() && p.durKnown },
		nil)

	c.stringProperty("path", func(c *Core) (string, bool) {
		c.pb.mu.Lock()
		defer c.pb.mu.Unlock()
		return c.pb.path, c.pb.playing()
	})
	c.stringProperty("filename", func(c *Core) (string, bool) {
		c.pb.mu.Lock()
		defer c.pb.mu.Unlock()
		return filepath.Base(c.pb.path), c.pb.playing()
	})
	c.stringProperty("media-title", func(c *Core) (string, bool) {
		c.pb.mu.Lock()
		defer c.pb.mu.Unlock()
		return filepath.Base(c.pb.path), c.pb.playing()
	})
	c.stringProperty("working-directory", func(c *Core) (string, bool) {
		wd, err := os.Getwd()
		return wd, err == nil
	})
	c.stringProperty("amp-version", func(c *Core) (string, bool) {
		return "amp " + Version, true
	})

	c.registerProperty("playlist-pos", &propertyDef{
		get: func(c *Core) (Node, error) {
			c.pb.mu.Lock()
			defer c.pb.mu.Unlock()
			return IntNode(int64(c.pb.playlistPos)), nil
		},
		set: func(c *Core, v Node) error {
			n, err := v.ConvertTo(FormatInt64)
			if err != nil {
				return ErrPropertyFormat
			}
			return c.playIndex(int(n.Int))
		},
	})
	c.registerProperty("playlist-count", &propertyDef{
		get: func(c *Core) (Node, error) {
			c.pb.mu.Lock()
			defer c.pb.mu.Unlock()
			return IntNode(int64(len(c.pb.playlist))), nil
		},
	})
	c.registerProperty("playlist", &propertyDef{
		get: func(c *Core) (Node, error) {
			c.pb.mu.Lock()
			defer c.pb.mu.Unlock()
			items := make([]Node, len(c.pb.playlist))
			for i, f := range c.pb.playlist {
				e := MapNode().Set("filename", StringNode(f))
				if i == c.pb.playlistPos {
					e = e.Set("current", FlagNode(true))
					e = e.Set("playing", FlagNode(true))
				}
				items[i] = e
			}
			return ArrayNode(items...), nil
		},
	})
	c.registerProperty("script-opts", &propertyDef{
		get: func(c *Core) (Node, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			n := MapNode()
			for _, k := range sortedKeys(c.scriptOpts) {
				n = n.Set(k, StringNode(c.scriptOpts[k]))
			}
			return n, nil
		},
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// playbackProps are the names to re-notify after playback transitions.
var playbackProps = []string{
	"path", "filename", "media-title", "time-pos", "duration",
	"idle-active", "playlist", "playlist-pos", "playlist-count",
}

func (c *Core) notifyPlaybackChange() {
	for _, name := range playbackProps {
		c.notifyPropertyChange(name)
	}
}

// playIndex starts playback of playlist entry i. Out-of-range indexes
// fail; -1 stops playback.
func (c *Core) playIndex(i int) error {
	c.pb.mu.Lock()
	if i == -1 {
		c.pb.mu.Unlock()
		c.stopPlayback("stop")
		return nil
	}
	if i < 0 || i >= len(c.pb.playlist) {
		c.pb.mu.Unlock()
		return ErrPropertyError
	}
	wasPlaying := c.pb.playing()
	c.pb.playlistPos = i
	c.pb.path = c.pb.playlist[i]
	c.pb.timePos = 0
	c.pb.durKnown = false
	c.pb.mu.Unlock()

	if wasPlaying {
		c.BroadcastEvent(&Event{ID: EventEndFile, Reason: "stop"})
		c.abortPlayback()
	}
	c.BroadcastEvent(&Event{ID: EventStartFile})
	c.BroadcastEvent(&Event{ID: EventFileLoaded})
	c.notifyPlaybackChange()
	return nil
}

// stopPlayback ends the current file with the given end-file reason
// and returns the core to idle.
func (c *Core) stopPlayback(reason string) {
	c.pb.mu.Lock()
	wasPlaying := c.pb.playing()
	c.pb.path = ""
	c.pb.playlistPos = -1
	c.pb.timePos = 0
	c.pb.durKnown = false
	c.pb.mu.Unlock()

	if wasPlaying {
		c.BroadcastEvent(&Event{ID: EventEndFile, Reason: reason})
		c.abortPlayback()
	}
	c.BroadcastEvent(&Event{ID: EventIdle})
	c.notifyPlaybackChange()
}

func registerCoreCommands(c *Core) {
	c.registerCommand("loadfile", &commandDef{minArgs: 1, run: cmdLoadfile})
	c.registerCommand("stop", &commandDef{run: cmdStop})
	c.registerCommand("quit", &commandDef{run: cmdQuit})
	c.registerCommand("seek", &commandDef{minArgs: 1, run: cmdSeek})
	c.registerCommand("set", &commandDef{minArgs: 2, run: cmdSet})
	c.registerCommand("add", &commandDef{minArgs: 1, run: cmdAdd})
	c.registerCommand("cycle", &commandDef{minArgs: 1, run: cmdCycle})
	c.registerCommand("print-text", &commandDef{minArgs: 1, run: cmdPrintText})
	c.registerCommand("show-text", &commandDef{minArgs: 1, run: cmdShowText})
	c.registerCommand("playlist-next", &commandDef{run: cmdPlaylistNext})
	c.registerCommand("playlist-prev", &commandDef{run: cmdPlaylistPrev})
	c.registerCommand("playlist-clear", &commandDef{run: cmdPlaylistClear})
	c.registerCommand("script-message", &commandDef{minArgs: 1, run: cmdScriptMessage})
	c.registerCommand("script-message-to", &commandDef{minArgs: 2, run: cmdScriptMessageTo})
	c.registerCommand("script-binding", &commandDef{minArgs: 1, run: cmdScriptBinding})
	c.registerCommand("keypress", &commandDef{minArgs: 1, run: cmdKeypress})
	c.registerCommand("define-section", &commandDef{minArgs: 2, run: cmdDefineSection})
	c.registerCommand("enable-section", &commandDef{minArgs: 1, run: cmdEnableSection})
	c.registerCommand("disable-section", &commandDef{minArgs: 1, run: cmdDisableSection})
}

func stringArg(args []Node, i int) (string, error) {
	if i >= len(args) {
		return "", ErrInvalidParameter
	}
	s, err := args[i].ConvertTo(FormatString)
	if err != nil {
		return "", ErrInvalidParameter
	}
	return s.Str, nil
}

func stringArgs(args []Node) ([]string, error) {
	out := make([]string, len(args))
	for i := range args {
		s, err := stringArg(args, i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// numberArg reads a numeric argument, accepting the string form
// commands arrive in when issued as plain text.
func numberArg(args []Node, i int) (float64, error) {
	if i >= len(args) {
		return 0, ErrInvalidParameter
	}
	switch a := args[i]; a.Format {
	case FormatInt64:
		return float64(a.Int), nil
	case FormatDouble:
		return a.Double, nil
	case FormatString:
		f, err := strconv.ParseFloat(a.Str, 64)
		if err != nil {
			return 0, ErrInvalidParameter
		}
		return f, nil
	}
	return 0, ErrInvalidParameter
}

func cmdLoadfile(c *Core, cl *Client, args []Node) (Node, error) {
	path, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	mode := "replace"
	if len(args) > 1 {
		if mode, err = stringArg(args, 1); err != nil {
			return Node{}, err
		}
	}

	c.pb.mu.Lock()
	var index int
	switch mode {
	case "replace":
		c.pb.playlist = []string{path}
		index = 0
	case "append", "append-play":
		c.pb.playlist = append(c.pb.playlist, path)
		index = len(c.pb.playlist) - 1
	default:
		c.pb.mu.Unlock()
		c.log.Errorf("loadfile: invalid mode %q", mode)
		return Node{}, ErrInvalidParameter
	}
	start := mode == "replace" || (mode == "append-play" && !c.pb.playing())
	c.pb.mu.Unlock()

	if start {
		if err := c.playIndex(index); err != nil {
			return Node{}, err
		}
	} else {
		c.notifyPropertyChange("playlist")
		c.notifyPropertyChange("playlist-count")
	}
	return MapNode().Set("playlist_entry_id", IntNode(int64(index))), nil
}

func cmdStop(c *Core, cl *Client, args []Node) (Node, error) {
	c.stopPlayback("stop")
	return NoneNode(), nil
}

func cmdQuit(c *Core, cl *Client, args []Node) (Node, error) {
	c.stopPlayback("quit")
	c.Shutdown()
	return NoneNode(), nil
}

func cmdSeek(c *Core, cl *Client, args []Node) (Node, error) {
	target, err := numberArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	mode := "relative"
	if len(args) > 1 {
		if mode, err = stringArg(args, 1); err != nil {
			return Node{}, err
		}
	}

	c.pb.mu.Lock()
	if !c.pb.playing() {
		c.pb.mu.Unlock()
		return Node{}, ErrCommand
	}
	switch mode {
	case "relative":
		c.pb.timePos += target
	case "absolute":
		c.pb.timePos = target
	default:
		c.pb.mu.Unlock()
		c.log.Errorf("seek: invalid mode %q", mode)
		return Node{}, ErrInvalidParameter
	}
	if c.pb.timePos < 0 {
		c.pb.timePos = 0
	}
	if c.pb.durKnown && c.pb.timePos > c.pb.duration {
		c.pb.timePos = c.pb.duration
	}
	c.pb.mu.Unlock()

	c.BroadcastEvent(&Event{ID: EventSeek})
	c.BroadcastEvent(&Event{ID: EventPlaybackRestart})
	c.notifyPropertyChange("time-pos")
	return NoneNode(), nil
}

// parseForProperty converts a command line string into the type the
// property currently holds.
func parseForProperty(cur Node, s string) (Node, error) {
	switch cur.Format {
	case FormatFlag:
		switch s {
		case "yes", "true":
			return FlagNode(true), nil
		case "no", "false":
			return FlagNode(false), nil
		}
		return Node{}, ErrPropertyFormat
	case FormatInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Node{}, ErrPropertyFormat
		}
		return IntNode(n), nil
	case FormatDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Node{}, ErrPropertyFormat
		}
		return DoubleNode(f), nil
	default:
		return StringNode(s), nil
	}
}

// SetPropertyString sets a property from its textual form, parsed per
// the property's current type. Unavailable properties accept the raw
// string so a set can revive them.
func (c *Core) SetPropertyString(name, value string) error {
	val := StringNode(value)
	cur, gerr := c.GetProperty(name, FormatNode)
	if gerr != nil && ErrorCode(gerr) != ErrPropertyUnavailable {
		return gerr
	}
	if gerr == nil {
		var err error
		if val, err = parseForProperty(cur, value); err != nil {
			return err
		}
	}
	return c.SetProperty(name, val)
}

func cmdSet(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	// Typed values pass through, strings are parsed per the
	// property's current type.
	val := args[1]
	if val.Format == FormatString {
		if err := c.SetPropertyString(name, val.Str); err != nil {
			return Node{}, err
		}
		return NoneNode(), nil
	}
	if err := c.SetProperty(name, val); err != nil {
		return Node{}, err
	}
	return NoneNode(), nil
}

func cmdAdd(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	inc := 1.0
	if len(args) > 1 {
		if inc, err = numberArg(args, 1); err != nil {
			return Node{}, err
		}
	}
	cur, err := c.GetProperty(name, FormatNode)
	if err != nil {
		return Node{}, err
	}
	switch cur.Format {
	case FormatInt64:
		return NoneNode(), c.SetProperty(name, IntNode(cur.Int+int64(inc)))
	case FormatDouble:
		return NoneNode(), c.SetProperty(name, DoubleNode(cur.Double+inc))
	}
	return Node{}, ErrPropertyFormat
}

func cmdCycle(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	dir := 1.0
	if len(args) > 1 {
		s, err := stringArg(args, 1)
		if err != nil {
			return Node{}, err
		}
		switch s {
		case "up":
		case "down":
			dir = -1
		default:
			return Node{}, ErrInvalidParameter
		}
	}
	cur, err := c.GetProperty(name, FormatNode)
	if err != nil {
		return Node{}, err
	}
	switch cur.Format {
	case FormatFlag:
		return NoneNode(), c.SetProperty(name, FlagNode(!cur.Flag))
	case FormatInt64:
		return NoneNode(), c.SetProperty(name, IntNode(cur.Int+int64(dir)))
	case FormatDouble:
		return NoneNode(), c.SetProperty(name, DoubleNode(cur.Double+dir))
	}
	return Node{}, ErrPropertyFormat
}

func cmdPrintText(c *Core, cl *Client, args []Node) (Node, error) {
	text, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	c.log.Infof("%s", text)
	return NoneNode(), nil
}

func cmdShowText(c *Core, cl *Client, args []Node) (Node, error) {
	text, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	c.log.Logf(msg.LevelStatus, "%s", text) // the OSD stand-in
	return NoneNode(), nil
}

func cmdPlaylistNext(c *Core, cl *Client, args []Node) (Node, error) {
	force := false
	if len(args) > 0 {
		s, _ := stringArg(args, 0)
		force = s == "force"
	}
	c.pb.mu.Lock()
	next := c.pb.playlistPos + 1
	last := next >= len(c.pb.playlist)
	c.pb.mu.Unlock()
	if last {
		if force {
			c.stopPlayback("eof")
			return NoneNode(), nil
		}
		return Node{}, ErrCommand
	}
	return NoneNode(), c.playIndex(next)
}

func cmdPlaylistPrev(c *Core, cl *Client, args []Node) (Node, error) {
	c.pb.mu.Lock()
	prev := c.pb.playlistPos - 1
	c.pb.mu.Unlock()
	if prev < 0 {
		return Node{}, ErrCommand
	}
	return NoneNode(), c.playIndex(prev)
}

func cmdPlaylistClear(c *Core, cl *Client, args []Node) (Node, error) {
	c.pb.mu.Lock()
	pos := c.pb.playlistPos
	if pos >= 0 {
		// Keep the playing entry, drop the rest.
		c.pb.playlist = []string{c.pb.playlist[pos]}
		c.pb.playlistPos = 0
	} else {
		c.pb.playlist = nil
	}
	c.pb.mu.Unlock()
	c.notifyPropertyChange("playlist")
	c.notifyPropertyChange("playlist-count")
	c.notifyPropertyChange("playlist-pos")
	return NoneNode(), nil
}

func cmdScriptMessage(c *Core, cl *Client, args []Node) (Node, error) {
	strs, err := stringArgs(args)
	if err != nil {
		return Node{}, err
	}
	c.BroadcastEvent(&Event{ID: EventClientMessage, Args: strs})
	return NoneNode(), nil
}

func cmdScriptMessageTo(c *Core, cl *Client, args []Node) (Node, error) {
	strs, err := stringArgs(args)
	if err != nil {
		return Node{}, err
	}
	if err := c.SendClientMessage(strs[0], strs[1:]); err != nil {
		c.log.Errorf("script-message-to: no client named %q", strs[0])
		return Node{}, ErrCommand
	}
	return NoneNode(), nil
}
