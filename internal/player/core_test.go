// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

import (
	"testing"
	"time"

	"github.com/amp-player/amp/internal/msg"
)

func newTestCore() *Core {
	return NewCore(msg.NewBus(nil))
}

// drain empties a client's queue so tests can look at fresh events.
func drain(c *Client) {
	for {
		if ev := c.WaitEvent(0); ev.ID == EventNone {
			return
		}
	}
}

func nextEvent(t *testing.T, c *Client, want EventID) *Event {
	t.Helper()
	ev := c.WaitEvent(0)
	if ev.ID != want {
		t.Fatalf("got event %v, want %v", ev.ID, want)
	}
	return ev
}

func TestClientNames(t *testing.T) {
	core := newTestCore()
	a := core.CreateClient("osc")
	b := core.CreateClient("osc")
	if a.Name() != "osc" {
		t.Errorf("first client name = %q", a.Name())
	}
	if b.Name() != "osc2" {
		t.Errorf("second client name = %q, want osc2", b.Name())
	}
	if got, ok := core.ClientByName("osc2"); !ok || got != b {
		t.Error("lookup by uniquified name failed")
	}

	a.Destroy()
	if _, ok := core.ClientByName("osc"); ok {
		t.Error("destroyed client still registered")
	}
}

func TestWaitEventTimeout(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if ev := c.WaitEvent(0); ev.ID != EventNone {
		t.Errorf("poll on empty queue = %v", ev.ID)
	}

	start := time.Now()
	if ev := c.WaitEvent(0.01); ev.ID != EventNone {
		t.Errorf("timed wait = %v", ev.ID)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("timed wait returned early")
	}

	// Huge timeouts must not overflow into an immediate return.
	done := make(chan *Event, 1)
	go func() { done <- c.WaitEvent(1e20) }()
	select {
	case ev := <-done:
		t.Fatalf("indefinite wait returned %v", ev.ID)
	case <-time.After(20 * time.Millisecond):
	}
	core.Shutdown()
	select {
	case ev := <-done:
		if ev.ID != EventShutdown {
			t.Errorf("wait after shutdown = %v", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not release the waiting client")
	}
}

func TestShutdownLatches(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	core.Shutdown()

	for i := 0; i < 3; i++ {
		if ev := c.WaitEvent(0); ev.ID != EventShutdown {
			t.Fatalf("wait %d after shutdown = %v", i, ev.ID)
		}
	}
}

func TestObserveProperty(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.ObserveProperty(42, "pause", FormatFlag); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, c, EventPropertyChange)
	if ev.ReplyID != 42 || ev.Name != "pause" {
		t.Fatalf("initial notification = %+v", ev)
	}
	if !ev.Data.Equal(FlagNode(false)) {
		t.Errorf("initial value = %v, want no", ev.Data)
	}

	if err := core.SetProperty("pause", FlagNode(true)); err != nil {
		t.Fatal(err)
	}
	ev = nextEvent(t, c, EventPropertyChange)
	if !ev.Data.Equal(FlagNode(true)) {
		t.Errorf("change value = %v, want yes", ev.Data)
	}

	// Observing with format none delivers notifications without data.
	if err := c.ObserveProperty(43, "volume", FormatNone); err != nil {
		t.Fatal(err)
	}
	ev = nextEvent(t, c, EventPropertyChange)
	if ev.ReplyID != 43 || ev.Data.Format != FormatNone {
		t.Errorf("format-none notification = %+v", ev)
	}

	if n := c.UnobserveProperty(42); n != 1 {
		t.Errorf("UnobserveProperty removed %d, want 1", n)
	}
	core.SetProperty("pause", FlagNode(false))
	ev = c.WaitEvent(0)
	if ev.ID == EventPropertyChange && ev.ReplyID == 42 {
		t.Error("notification delivered after unobserve")
	}
}

func TestObserveUnknownProperty(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.ObserveProperty(1, "no-such-property", FormatNode); err != nil {
		t.Fatalf("observing unknown property: %v", err)
	}
	ev := nextEvent(t, c, EventPropertyChange)
	if ev.Data.Format != FormatNone {
		t.Errorf("unknown property data = %v, want none", ev.Data)
	}
}

func TestPropertyErrors(t *testing.T) {
	core := newTestCore()

	if _, err := core.GetProperty("bogus", FormatNode); ErrorCode(err) != ErrPropertyNotFound {
		t.Errorf("get unknown = %v", err)
	}
	if err := core.SetProperty("bogus", IntNode(1)); ErrorCode(err) != ErrPropertyNotFound {
		t.Errorf("set unknown = %v", err)
	}
	if err := core.SetProperty("filename", StringNode("x")); ErrorCode(err) != ErrPropertyError {
		t.Errorf("set read-only = %v", err)
	}
	if err := core.SetProperty("pause", IntNode(1)); ErrorCode(err) != ErrPropertyFormat {
		t.Errorf("set with wrong type = %v", err)
	}
	if _, err := core.GetProperty("time-pos", FormatDouble); ErrorCode(err) != ErrPropertyUnavailable {
		t.Errorf("get time-pos while idle = %v", err)
	}
}

func TestRequestLogMessages(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.RequestLogMessages("warn"); err != nil {
		t.Fatal(err)
	}
	core.Log().Errorf("bad thing")
	core.Log().Debugf("noise")

	ev := nextEvent(t, c, EventLogMessage)
	if ev.LogPrefix != "core" || ev.LogLevel != "error" || ev.LogText != "bad thing" {
		t.Errorf("log event = %+v", ev)
	}
	if ev := c.WaitEvent(0); ev.ID != EventNone {
		t.Errorf("debug record delivered above requested level: %+v", ev)
	}

	if err := c.RequestLogMessages("bogus"); ErrorCode(err) != ErrInvalidParameter {
		t.Errorf("bogus level = %v", err)
	}
	if err := c.RequestLogMessages("no"); err != nil {
		t.Errorf("disabling = %v", err)
	}
	core.Log().Errorf("unseen")
	if ev := c.WaitEvent(0); ev.ID != EventNone {
		t.Errorf("record delivered after disable: %+v", ev)
	}
}

func TestLoadfileEvents(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.Command([]string{"loadfile", "/media/a.mkv"}); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, c, EventStartFile)
	nextEvent(t, c, EventFileLoaded)

	path, err := c.GetProperty("path", FormatString)
	if err != nil || path.Str != "/media/a.mkv" {
		t.Errorf("path = (%v, %v)", path, err)
	}
	fn, _ := c.GetProperty("filename", FormatString)
	if fn.Str != "a.mkv" {
		t.Errorf("filename = %q", fn.Str)
	}
	idle, _ := c.GetProperty("idle-active", FormatFlag)
	if idle.Flag {
		t.Error("idle-active true while playing")
	}

	if err := c.Command([]string{"stop"}); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, c, EventEndFile)
	if ev.Reason != "stop" {
		t.Errorf("end-file reason = %q", ev.Reason)
	}
	nextEvent(t, c, EventIdle)
}

func TestPlaylist(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	c.Command([]string{"loadfile", "/m/one.mkv"})
	c.Command([]string{"loadfile", "/m/two.mkv", "append"})
	c.Command([]string{"loadfile", "/m/three.mkv", "append"})
	drain(c)

	count, _ := c.GetProperty("playlist-count", FormatInt64)
	if count.Int != 3 {
		t.Fatalf("playlist-count = %d", count.Int)
	}

	if err := c.Command([]string{"playlist-next"}); err != nil {
		t.Fatal(err)
	}
	path, _ := c.GetProperty("path", FormatString)
	if path.Str != "/m/two.mkv" {
		t.Errorf("path after next = %q", path.Str)
	}
	ev := nextEvent(t, c, EventEndFile)
	if ev.Reason != "stop" {
		t.Errorf("reason = %q", ev.Reason)
	}
	nextEvent(t, c, EventStartFile)
	nextEvent(t, c, EventFileLoaded)

	c.Command([]string{"playlist-next"})
	drain(c)
	if err := c.Command([]string{"playlist-next"}); ErrorCode(err) != ErrCommand {
		t.Errorf("next past end = %v", err)
	}
	if err := c.Command([]string{"playlist-next", "force"}); err != nil {
		t.Fatal(err)
	}
	idle, _ := c.GetProperty("idle-active", FormatFlag)
	if !idle.Flag {
		t.Error("not idle after forced next past end")
	}
}

func TestSeekAndSet(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.Command([]string{"seek", "10"}); ErrorCode(err) != ErrCommand {
		t.Errorf("seek while idle = %v", err)
	}

	c.Command([]string{"loadfile", "/m/a.mkv"})
	drain(c)

	if err := c.Command([]string{"seek", "12.5"}); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, c, EventSeek)
	nextEvent(t, c, EventPlaybackRestart)
	pos, _ := c.GetProperty("time-pos", FormatDouble)
	if pos.Double != 12.5 {
		t.Errorf("time-pos = %v", pos.Double)
	}

	c.Command([]string{"seek", "-100"})
	pos, _ = c.GetProperty("time-pos", FormatDouble)
	if pos.Double != 0 {
		t.Errorf("time-pos after under-seek = %v", pos.Double)
	}

	if err := c.Command([]string{"seek", "5", "absolute"}); err != nil {
		t.Fatal(err)
	}
	pos, _ = c.GetProperty("time-pos", FormatDouble)
	if pos.Double != 5 {
		t.Errorf("absolute seek = %v", pos.Double)
	}

	if err := c.Command([]string{"set", "pause", "yes"}); err != nil {
		t.Fatal(err)
	}
	p, _ := c.GetProperty("pause", FormatFlag)
	if !p.Flag {
		t.Error("set pause yes had no effect")
	}
	if err := c.Command([]string{"set", "pause", "maybe"}); ErrorCode(err) != ErrPropertyFormat {
		t.Errorf("set pause maybe = %v", err)
	}

	c.Command([]string{"set", "volume", "55"})
	v, _ := c.GetProperty("volume", FormatDouble)
	if v.Double != 55 {
		t.Errorf("volume = %v", v.Double)
	}
	c.Command([]string{"add", "volume", "20"})
	v, _ = c.GetProperty("volume", FormatDouble)
	if v.Double != 75 {
		t.Errorf("volume after add = %v", v.Double)
	}
	c.Command([]string{"set", "volume", "500"})
	v, _ = c.GetProperty("volume", FormatDouble)
	if v.Double != 130 {
		t.Errorf("volume not clamped: %v", v.Double)
	}
	c.Command([]string{"cycle", "pause"})
	p, _ = c.GetProperty("pause", FormatFlag)
	if p.Flag {
		t.Error("cycle pause did not toggle")
	}
}

func TestScriptMessages(t *testing.T) {
	core := newTestCore()
	a := core.CreateClient("alpha")
	b := core.CreateClient("beta")
	defer a.Destroy()
	defer b.Destroy()

	if err := a.Command([]string{"script-message", "hello", "world"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*Client{a, b} {
		ev := nextEvent(t, c, EventClientMessage)
		if len(ev.Args) != 2 || ev.Args[0] != "hello" || ev.Args[1] != "world" {
			t.Errorf("%s args = %v", c.Name(), ev.Args)
		}
	}

	if err := a.Command([]string{"script-message-to", "beta", "ping"}); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, b, EventClientMessage)
	if len(ev.Args) != 1 || ev.Args[0] != "ping" {
		t.Errorf("directed args = %v", ev.Args)
	}
	if ev := a.WaitEvent(0); ev.ID != EventNone {
		t.Errorf("directed message leaked to sender: %v", ev.ID)
	}

	if err := a.Command([]string{"script-message-to", "nobody", "x"}); ErrorCode(err) != ErrCommand {
		t.Errorf("message to unknown client = %v", err)
	}
}

func TestRequestEventMask(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("t")
	defer c.Destroy()

	if err := c.RequestEvent(EventClientMessage, false); err != nil {
		t.Fatal(err)
	}
	core.BroadcastEvent(&Event{ID: EventClientMessage, Args: []string{"x"}})
	if ev := c.WaitEvent(0); ev.ID != EventNone {
		t.Errorf("masked event delivered: %v", ev.ID)
	}

	c.RequestEvent(EventClientMessage, true)
	core.BroadcastEvent(&Event{ID: EventClientMessage, Args: []string{"y"}})
	nextEvent(t, c, EventClientMessage)

	// Shutdown cannot be masked away.
	c.RequestEvent(EventShutdown, false)
	core.Shutdown()
	nextEvent(t, c, EventShutdown)
}

func TestInputSections(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("myscript")
	defer c.Destroy()

	contents := "g script-binding myscript/greet\nq quit\n# comment\n"
	if err := core.DefineSection("sect", "myscript", contents, false); err != nil {
		t.Fatal(err)
	}
	if err := core.EnableSection("sect", false); err != nil {
		t.Fatal(err)
	}

	if !core.HandleKey("g") {
		t.Fatal("bound key not handled")
	}
	ev := nextEvent(t, c, EventClientMessage)
	want := []string{"key-binding", "greet", "p-", "g"}
	if len(ev.Args) != len(want) {
		t.Fatalf("args = %v", ev.Args)
	}
	for i := range want {
		if ev.Args[i] != want[i] {
			t.Fatalf("args = %v, want %v", ev.Args, want)
		}
	}

	if core.HandleKey("z") {
		t.Error("unbound key reported handled")
	}

	core.DisableSection("sect")
	if core.HandleKey("g") {
		t.Error("key handled after section disabled")
	}

	// Removing a section by defining empty contents.
	core.EnableSection("sect", false)
	core.DefineSection("sect", "myscript", "", false)
	if core.HandleKey("g") {
		t.Error("key handled after section removed")
	}
	if err := core.EnableSection("sect", false); ErrorCode(err) != ErrInvalidParameter {
		t.Errorf("enabling removed section = %v", err)
	}
}

func TestInputSectionPriority(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("s")
	defer c.Destroy()

	core.DefineSection("low", "s", "g script-binding s/low\n", false)
	core.DefineSection("high", "s", "g script-binding s/high\n", false)
	core.EnableSection("low", false)
	core.EnableSection("high", false)

	core.HandleKey("g")
	ev := nextEvent(t, c, EventClientMessage)
	if ev.Args[1] != "high" {
		t.Errorf("later-enabled section did not win: %v", ev.Args)
	}

	// Builtin sections lose to regular ones regardless of order.
	core.DefineSection("builtin", "s", "g script-binding s/builtin\n", true)
	core.EnableSection("builtin", false)
	core.HandleKey("g")
	ev = nextEvent(t, c, EventClientMessage)
	if ev.Args[1] != "high" {
		t.Errorf("builtin section shadowed a regular one: %v", ev.Args)
	}

	// An exclusive section blocks fallthrough for keys it lacks.
	core.DefineSection("modal", "s", "x script-binding s/modal\n", false)
	core.EnableSection("modal", true)
	if core.HandleKey("g") {
		t.Error("exclusive section let a key fall through")
	}
	core.HandleKey("x")
	ev = nextEvent(t, c, EventClientMessage)
	if ev.Args[1] != "modal" {
		t.Errorf("exclusive section's own binding = %v", ev.Args)
	}
}

func TestKeypressCommand(t *testing.T) {
	core := newTestCore()
	c := core.CreateClient("s")
	defer c.Destroy()

	core.DefineSection("k", "s", "p cycle pause\n", false)
	core.EnableSection("k", false)

	if err := c.Command([]string{"keypress", "p"}); err != nil {
		t.Fatal(err)
	}
	p, _ := core.GetProperty("pause", FormatFlag)
	if !p.Flag {
		t.Error("keypress-bound command had no effect")
	}
}
