// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"strings"
	"sync"
	"testing"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
)

func TestRegisterAllShape(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	if got := runJS(t, vm, "amp.script_name").String(); got != "test" {
		t.Errorf("script_name = %q, want %q", got, "test")
	}
	if got := runJS(t, vm, "amp.script_path").String(); got != "/scripts/test.js" {
		t.Errorf("script_path = %q, want %q", got, "/scripts/test.js")
	}

	formats := map[string]int64{
		"none":   0,
		"string": 1,
		"osd":    2,
		"bool":   3,
		"number": 5,
		"native": 6,
	}
	for name, want := range formats {
		if got := runJS(t, vm, "amp._formats."+name).ToInteger(); got != want {
			t.Errorf("_formats.%s = %d, want %d", name, got, want)
		}
	}
}

// Function length reports the declared argument count, not what the
// closure would say.
func TestDeclaredArity(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	tests := []struct {
		expr string
		want int64
	}{
		{"amp.wait_event.length", 1},
		{"amp.get_property.length", 2},
		{"amp._observe_property.length", 3},
		{"amp.get_time.length", 0},
		{"amp.utils.join_path.length", 2},
		{"amp.msg.log.length", 1},
		{"amp.msg.info.length", 0},
	}
	for _, tt := range tests {
		if got := runJS(t, vm, tt.expr).ToInteger(); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.expr, got, tt.want)
		}
	}
}

func TestLastErrorConvention(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	// Plain failure: undefined result, error recorded.
	runJS(t, vm, "var r = amp.get_property_native('no-such-property')")
	if !runJS(t, vm, "r === undefined").ToBoolean() {
		t.Error("failed get did not return undefined")
	}
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "property not found" {
		t.Errorf("last_error_string = %q, want %q", got, "property not found")
	}

	// Success without a default leaves the previous error alone.
	runJS(t, vm, "amp.last_error_string = 'stale'; amp.get_property_native('volume')")
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "stale" {
		t.Errorf("success overwrote last_error_string: %q", got)
	}

	// A default makes failures return it and successes write "success".
	if got := runJS(t, vm, "amp.get_property_native('no-such-property', 'fallback')").String(); got != "fallback" {
		t.Errorf("default not returned on failure: %q", got)
	}
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "property not found" {
		t.Errorf("last_error_string = %q, want %q", got, "property not found")
	}
	runJS(t, vm, "amp.get_property_native('volume', 'fallback')")
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "success" {
		t.Errorf("last_error_string after success with default = %q, want %q", got, "success")
	}
}

func TestStatusConvention(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	if !runJS(t, vm, "amp.set_property_bool('pause', true)").ToBoolean() {
		t.Error("successful set did not report true")
	}
	// Seeking with nothing playing fails as a command error.
	runJS(t, vm, "var r = amp.command('seek 10')")
	if !runJS(t, vm, "r === undefined").ToBoolean() {
		t.Error("failed command did not return undefined")
	}
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "error running command" {
		t.Errorf("last_error_string = %q, want %q", got, "error running command")
	}
}

func TestCommandv(t *testing.T) {
	_, vm, core := newTestAPI(t)

	wantThrow(t, vm, "amp.commandv()", "Invalid number of arguments. Allowed: 1 - 50")
	wantThrow(t, vm,
		"var a = []; for (var i = 0; i < 51; i++) a.push('x'); amp.commandv.apply(null, a)",
		"Invalid number of arguments. Allowed: 1 - 50")

	if !runJS(t, vm, "amp.commandv('set', 'volume', '42')").ToBoolean() {
		t.Fatal("commandv failed")
	}
	v, err := core.GetProperty("volume", player.FormatDouble)
	if err != nil || v.Double != 42 {
		t.Errorf("volume = (%v, %v), want 42", v, err)
	}
}

func TestCommandNative(t *testing.T) {
	_, vm, core := newTestAPI(t)

	runJS(t, vm, "amp.command_native(['set', 'speed', '2'])")
	v, err := core.GetProperty("speed", player.FormatDouble)
	if err != nil || v.Double != 2 {
		t.Errorf("speed = (%v, %v), want 2", v, err)
	}

	// The default argument flows back on failure.
	if got := runJS(t, vm, "amp.command_native(['bogus-command'], 'dflt')").String(); got != "dflt" {
		t.Errorf("command_native default = %q, want %q", got, "dflt")
	}
}

func TestPropertyAccessors(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	runJS(t, vm, "amp.set_property_number('volume', 55.5)")
	if got := runJS(t, vm, "amp.get_property_number('volume')").ToFloat(); got != 55.5 {
		t.Errorf("get_property_number = %v, want 55.5", got)
	}
	runJS(t, vm, "amp.set_property('pause', 'yes')")
	if !runJS(t, vm, "amp.get_property_bool('pause')").ToBoolean() {
		t.Error("pause did not round trip through the string setter")
	}
	if got := runJS(t, vm, "amp.get_property('pause')").String(); got != "yes" {
		t.Errorf("get_property(pause) = %q, want %q", got, "yes")
	}
	runJS(t, vm, "amp.set_property_native('volume', 60)")
	if got := runJS(t, vm, "amp.get_property_number('volume')").ToFloat(); got != 60 {
		t.Errorf("native set left volume at %v, want 60", got)
	}
}

func TestObservePropertyFlow(t *testing.T) {
	_, vm, core := newTestAPI(t)

	if !runJS(t, vm, "amp._observe_property(7, 'volume', amp._formats.number)").ToBoolean() {
		t.Fatal("_observe_property failed")
	}

	// Registration pushes the current value right away.
	runJS(t, vm, "var e = amp.wait_event(0)")
	if got := runJS(t, vm, "e.event").String(); got != "property-change" {
		t.Fatalf("first event = %q, want property-change", got)
	}
	if got := runJS(t, vm, "e.id").ToInteger(); got != 7 {
		t.Errorf("event id = %d, want 7", got)
	}
	if got := runJS(t, vm, "e.name").String(); got != "volume" {
		t.Errorf("event name = %q, want volume", got)
	}

	if err := core.SetProperty("volume", player.DoubleNode(70)); err != nil {
		t.Fatal(err)
	}
	runJS(t, vm, "e = amp.wait_event(0)")
	if got := runJS(t, vm, "e.data").ToFloat(); got != 70 {
		t.Errorf("event data = %v, want 70", got)
	}

	runJS(t, vm, "amp._unobserve_property(7)")
	if err := core.SetProperty("volume", player.DoubleNode(80)); err != nil {
		t.Fatal(err)
	}
	if got := runJS(t, vm, "amp.wait_event(0).event").String(); got != "none" {
		t.Errorf("event after unobserve = %q, want none", got)
	}
}

func TestWaitEventTimeout(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	if got := runJS(t, vm, "amp.wait_event(0).event").String(); got != "none" {
		t.Errorf("empty queue event = %q, want none", got)
	}
	// The timeout is the last argument when it is a number.
	if got := runJS(t, vm, "amp.wait_event('ignored', 0).event").String(); got != "none" {
		t.Errorf("trailing-number timeout not honored, got %q", got)
	}
}

func TestRequestEvent(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	if !runJS(t, vm, "amp._request_event('seek', true)").ToBoolean() {
		t.Error("enabling a known event failed")
	}
	runJS(t, vm, "var r = amp._request_event('bogus', true)")
	if !runJS(t, vm, "r === undefined").ToBoolean() {
		t.Error("unknown event name did not fail")
	}
	if got := runJS(t, vm, "amp.last_error_string").String(); got != "invalid parameter" {
		t.Errorf("last_error_string = %q, want %q", got, "invalid parameter")
	}
}

func TestLogMessagesEvents(t *testing.T) {
	_, vm, core := newTestAPI(t)

	wantThrow(t, vm, "amp.enable_messages('nope')", "Invalid log level 'nope'")

	if !runJS(t, vm, "amp.enable_messages('info')").ToBoolean() {
		t.Fatal("enable_messages failed")
	}
	core.Log().Infof("boo")
	runJS(t, vm, "var e = amp.wait_event(0)")
	if got := runJS(t, vm, "e.event").String(); got != "log-message" {
		t.Fatalf("event = %q, want log-message", got)
	}
	if got := runJS(t, vm, "e.prefix").String(); got != "core" {
		t.Errorf("prefix = %q, want core", got)
	}
	if got := runJS(t, vm, "e.text").String(); got != "boo" {
		t.Errorf("text = %q, want boo", got)
	}

	// Verbose records are above the requested level and stay out.
	core.Log().Verbosef("quiet")
	if got := runJS(t, vm, "amp.wait_event(0).event").String(); got != "none" {
		t.Errorf("got event %q for filtered record", got)
	}
}

func TestMsgLogging(t *testing.T) {
	bus := msg.NewBus(nil)
	var mu sync.Mutex
	var records []msg.Record
	cancel := bus.Subscribe(func(r msg.Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	})
	defer cancel()

	core := player.NewCore(bus)
	t.Cleanup(core.Shutdown)
	client := core.CreateClient("logtest")
	client.MarkInitialized()
	vm := goja.New()
	api := NewAPI(client, vm, "x.js")
	if err := api.RegisterAll(); err != nil {
		t.Fatal(err)
	}

	runJS(t, vm, "amp.msg.info('hello', 42)")
	runJS(t, vm, "amp.msg.log('warn', 'careful')")
	wantThrow(t, vm, "amp.msg.log('shout', 'x')", "Invalid log level 'shout'")

	mu.Lock()
	defer mu.Unlock()
	var got []msg.Record
	for _, r := range records {
		if r.Prefix == "logtest" {
			got = append(got, r)
		}
	}
	if len(got) != 2 {
		t.Fatalf("captured %d records, want 2: %+v", len(got), got)
	}
	if got[0].Level != msg.LevelInfo || got[0].Text != "hello 42" {
		t.Errorf("record 0 = %+v, want info %q", got[0], "hello 42")
	}
	if got[1].Level != msg.LevelWarn || got[1].Text != "careful" {
		t.Errorf("record 1 = %+v, want warn %q", got[1], "careful")
	}
}

func TestGetTime(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	sec := runJS(t, vm, "amp.get_time()").ToFloat()
	ms := runJS(t, vm, "amp.get_time_ms()").ToFloat()
	if sec < 0 || ms < 0 {
		t.Fatalf("negative times: %v s, %v ms", sec, ms)
	}
	if diff := ms/1000 - sec; diff < 0 || diff > 0.5 {
		t.Errorf("get_time_ms (%v) inconsistent with get_time (%v)", ms, sec)
	}
}

func TestFormatTimeJS(t *testing.T) {
	_, vm, _ := newTestAPI(t)

	if got := runJS(t, vm, "amp.format_time(3661.5)").String(); got != "01:01:01" {
		t.Errorf("default format = %q, want 01:01:01", got)
	}
	if got := runJS(t, vm, "amp.format_time(3661.5, '%h:%M:%S.%f')").String(); got != "1:01:01.500" {
		t.Errorf("custom format = %q, want 1:01:01.500", got)
	}
	wantThrow(t, vm, "amp.format_time(1, '%y')", "Invalid time format string '%y'")
}

func TestInputSections(t *testing.T) {
	_, vm, core := newTestAPI(t)

	runJS(t, vm, "amp.input_define_section('sec', 'x script-binding test/do_x', 'default')")
	runJS(t, vm, "amp.input_enable_section('sec', 'allow-hide-cursor|allow-vo-dragging')")
	if !core.HandleKey("x") {
		t.Error("defined binding did not handle its key")
	}

	runJS(t, vm, "amp.input_disable_section('sec')")
	if core.HandleKey("x") {
		t.Error("disabled section still handled its key")
	}

	wantThrow(t, vm, "amp.input_define_section('s2', '', 'sideways')", "invalid flags: 'sideways'")
	wantThrow(t, vm, "amp.input_enable_section('sec', 'no-such-flag')", "invalid flag")
}

// The key-binding client message lands back on the script's queue.
func TestScriptBindingMessage(t *testing.T) {
	_, vm, core := newTestAPI(t)

	runJS(t, vm, "amp.input_define_section('sec', 'y script-binding test/do_y', 'default')")
	runJS(t, vm, "amp.input_enable_section('sec', '')")
	if !core.HandleKey("y") {
		t.Fatal("key not handled")
	}
	runJS(t, vm, "var e = amp.wait_event(0)")
	if got := runJS(t, vm, "e.event").String(); got != "client-message" {
		t.Fatalf("event = %q, want client-message", got)
	}
	args := runJS(t, vm, "e.args.join(' ')").String()
	if !strings.HasPrefix(args, "key-binding do_y p-") {
		t.Errorf("args = %q, want key-binding do_y p-...", args)
	}
}
