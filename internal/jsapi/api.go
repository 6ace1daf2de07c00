// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package jsapi exposes the player core to JavaScript. A single global
// object named amp carries the player functions, with the logging and
// utility helpers grouped under amp.msg and amp.utils. The registered
// functions mirror the C side of a client API: failures set
// amp.last_error_string and surface as undefined return values rather
// than exceptions, except where a call is malformed beyond repair.
package jsapi

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
)

// API binds one script client to one goja runtime. All methods run on
// the script's own goroutine; the API itself is not safe for use from
// several goroutines.
type API struct {
	client  *player.Client
	runtime *goja.Runtime
	log     *msg.Logger
	amp     *goja.Object
	name    string
	path    string
}

// NewAPI creates the bridge for a client about to run the script at
// path. Nothing is visible to scripts until RegisterAll ran.
func NewAPI(client *player.Client, runtime *goja.Runtime, path string) *API {
	return &API{
		client:  client,
		runtime: runtime,
		log:     client.Log(),
		name:    client.Name(),
		path:    path,
	}
}

// fnEntry describes one registered function: its script-visible name,
// the implementation and the declared argument count.
type fnEntry struct {
	name  string
	fn    func(goja.FunctionCall) goja.Value
	arity int
}

func (a *API) mainFns() []fnEntry {
	return []fnEntry{
		{"suspend", a.jsSuspend, 0},
		{"resume", a.jsResume, 0},
		{"resume_all", a.jsResumeAll, 0},
		{"wait_event", a.jsWaitEvent, 1},
		{"_request_event", a.jsRequestEvent, 2},
		{"find_config_file", a.jsFindConfigFile, 1},
		{"command", a.jsCommand, 1},
		{"commandv", a.jsCommandv, 1},
		{"command_native", a.jsCommandNative, 2},
		{"get_property_bool", a.jsGetPropertyBool, 2},
		{"get_property_number", a.jsGetPropertyNumber, 2},
		{"get_property_native", a.jsGetPropertyNative, 2},
		{"get_property", a.jsGetProperty, 2},
		{"get_property_osd", a.jsGetPropertyOSD, 2},
		{"set_property", a.jsSetProperty, 2},
		{"set_property_bool", a.jsSetPropertyBool, 2},
		{"set_property_number", a.jsSetPropertyNumber, 2},
		{"set_property_native", a.jsSetPropertyNative, 2},
		{"_observe_property", a.jsObserveProperty, 3},
		{"_unobserve_property", a.jsUnobserveProperty, 1},
		{"get_time", a.jsGetTime, 0},
		{"get_time_ms", a.jsGetTimeMS, 0},
		{"input_define_section", a.jsInputDefineSection, 3},
		{"input_enable_section", a.jsInputEnableSection, 2},
		{"input_disable_section", a.jsInputDisableSection, 1},
		{"format_time", a.jsFormatTime, 2},
		{"enable_messages", a.jsEnableMessages, 1},
		{"get_wakeup_pipe", a.jsGetWakeupPipe, 0},
	}
}

func (a *API) utilsFns() []fnEntry {
	return []fnEntry{
		{"getcwd", a.jsGetcwd, 0},
		{"readdir", a.jsReaddir, 2},
		{"split_path", a.jsSplitPath, 1},
		{"join_path", a.jsJoinPath, 2},
		{"subprocess", a.jsSubprocess, 1},
		{"getenv", a.jsGetenv, 1},
		{"get_user_path", a.jsGetUserPath, 1},
		{"read_file", a.jsReadFile, 1},
		{"write_file", a.jsWriteFile, 2},
		{"load_file", a.jsLoadFile, 1},
		{"run_file", a.jsRunFile, 1},
		{"gc", a.jsGC, 1},
	}
}

func (a *API) msgFns() []fnEntry {
	return []fnEntry{
		{"log", a.jsLog, 1},
		{"fatal", a.logFn(msg.LevelFatal), 0},
		{"error", a.logFn(msg.LevelError), 0},
		{"warn", a.logFn(msg.LevelWarn), 0},
		{"info", a.logFn(msg.LevelInfo), 0},
		{"verbose", a.logFn(msg.LevelVerbose), 0},
		{"debug", a.logFn(msg.LevelDebug), 0},
	}
}

// formats maps the script-visible format names to the core formats.
// Scripts reach it as amp._formats; the wrappers translate the "type"
// argument of observe_property through it.
var formats = []struct {
	name   string
	format player.Format
}{
	{"none", player.FormatNone},
	{"string", player.FormatString},
	{"osd", player.FormatOSDString},
	{"bool", player.FormatFlag},
	{"number", player.FormatDouble},
	{"native", player.FormatNode},
}

// RegisterAll builds the global amp object and attaches every bridge
// function to it. Registration failures are programming errors; the
// caller treats them as fatal.
func (a *API) RegisterAll() error {
	amp := a.runtime.NewObject()
	a.amp = amp

	if err := a.registerFns(amp, a.mainFns()); err != nil {
		return err
	}
	if err := amp.Set("script_name", a.name); err != nil {
		return fmt.Errorf("failed to register script_name: %w", err)
	}
	if err := amp.Set("script_path", a.path); err != nil {
		return fmt.Errorf("failed to register script_path: %w", err)
	}

	msgObj := a.runtime.NewObject()
	if err := a.registerFns(msgObj, a.msgFns()); err != nil {
		return err
	}
	if err := amp.Set("msg", msgObj); err != nil {
		return fmt.Errorf("failed to register msg: %w", err)
	}

	utilsObj := a.runtime.NewObject()
	if err := a.registerFns(utilsObj, a.utilsFns()); err != nil {
		return err
	}
	if err := amp.Set("utils", utilsObj); err != nil {
		return fmt.Errorf("failed to register utils: %w", err)
	}

	fmts := a.runtime.NewObject()
	for _, f := range formats {
		if err := fmts.Set(f.name, int(f.format)); err != nil {
			return fmt.Errorf("failed to register format %s: %w", f.name, err)
		}
	}
	if err := amp.Set("_formats", fmts); err != nil {
		return fmt.Errorf("failed to register _formats: %w", err)
	}

	if err := a.runtime.GlobalObject().Set("amp", amp); err != nil {
		return fmt.Errorf("failed to register amp: %w", err)
	}
	return nil
}

func (a *API) registerFns(obj *goja.Object, fns []fnEntry) error {
	for _, e := range fns {
		v := a.runtime.ToValue(e.fn)
		if fo, ok := v.(*goja.Object); ok {
			// Function length is configurable, so the declared
			// argument count can be put where scripts see it.
			fo.DefineDataProperty("length", a.runtime.ToValue(e.arity),
				goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
		}
		if err := obj.Set(e.name, v); err != nil {
			return fmt.Errorf("failed to register %s: %w", e.name, err)
		}
	}
	return nil
}

// throwf raises a script exception. Only malformed calls throw; player
// failures go through the last-error convention instead.
func (a *API) throwf(format string, args ...interface{}) {
	panic(a.runtime.ToValue(fmt.Sprintf(format, args...)))
}

// setLastError stores text on amp.last_error_string where scripts and
// the amp.last_error() helper read it.
func (a *API) setLastError(text string) {
	a.amp.Set("last_error_string", text)
}

// asError applies the error convention: failures store their text on
// amp.last_error_string and report undefined to the script. Successful
// calls leave the previous value alone.
func (a *API) asError(err error) (goja.Value, bool) {
	if err == nil {
		return nil, false
	}
	a.setLastError(player.ErrorCode(err).Error())
	return goja.Undefined(), true
}

// asErrorDef is the default-accepting variant. When the call carries a
// defined default as its second argument, last_error_string is always
// updated, "success" included, and failures return the default instead
// of undefined. Without a default it falls back to asError.
func (a *API) asErrorDef(call goja.FunctionCall, err error) (goja.Value, bool) {
	def := call.Argument(1)
	if goja.IsUndefined(def) {
		return a.asError(err)
	}
	a.setLastError(player.ErrorCode(err).Error())
	if err == nil {
		return nil, false
	}
	return def, true
}

// status reports a command-style result: true on success, undefined
// plus last_error_string on failure.
func (a *API) status(err error) goja.Value {
	if v, failed := a.asError(err); failed {
		return v
	}
	return a.runtime.ToValue(true)
}

// isNumber reports whether v holds a script number.
func isNumber(v goja.Value) bool {
	switch v.Export().(type) {
	case int64, float64:
		return true
	}
	return false
}
