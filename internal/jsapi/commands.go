// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
)

// maxCommandvArgs bounds commandv argument lists.
const maxCommandvArgs = 50

// waitEventForever stands in for an unbounded wait. Scripts pass a
// negative timeout for "no timeout"; it is clamped to this finite
// value so the number survives a round trip through script arithmetic.
const waitEventForever = 1e20

func (a *API) jsSuspend(call goja.FunctionCall) goja.Value {
	a.client.Suspend()
	return goja.Undefined()
}

func (a *API) jsResume(call goja.FunctionCall) goja.Value {
	a.client.Resume()
	return goja.Undefined()
}

func (a *API) jsResumeAll(call goja.FunctionCall) goja.Value {
	a.client.ResumeAll()
	return goja.Undefined()
}

// jsWaitEvent blocks for the next event and returns it as an object
// with at least an "event" name. The timeout is the last argument when
// it is a number, else the wait is unbounded.
func (a *API) jsWaitEvent(call goja.FunctionCall) goja.Value {
	timeout := -1.0
	if n := len(call.Arguments); n > 0 && isNumber(call.Arguments[n-1]) {
		timeout = call.Arguments[n-1].ToFloat()
	}
	if timeout < 0 {
		timeout = waitEventForever
	}
	ev := a.client.WaitEvent(timeout)
	return a.pushNode(ev.ToNode())
}

func (a *API) jsRequestEvent(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	enable := call.Argument(1).ToBoolean()
	id, ok := player.EventFromName(name)
	if !ok {
		return a.status(player.ErrInvalidParameter)
	}
	return a.status(a.client.RequestEvent(id, enable))
}

func (a *API) jsCommand(call goja.FunctionCall) goja.Value {
	return a.status(a.client.CommandString(call.Argument(0).String()))
}

func (a *API) jsCommandv(call goja.FunctionCall) goja.Value {
	n := len(call.Arguments)
	if n == 0 || n > maxCommandvArgs {
		a.throwf("Invalid number of arguments. Allowed: 1 - %d", maxCommandvArgs)
	}
	args := make([]string, n)
	for i, arg := range call.Arguments {
		args[i] = arg.String()
	}
	return a.status(a.client.Command(args))
}

func (a *API) jsCommandNative(call goja.FunctionCall) goja.Value {
	cmd := a.makeNode(call.Argument(0))
	result, err := a.client.CommandNode(cmd)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.pushNode(result)
}

func (a *API) jsGetPropertyBool(call goja.FunctionCall) goja.Value {
	v, err := a.client.GetProperty(call.Argument(0).String(), player.FormatFlag)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.runtime.ToValue(v.Flag)
}

func (a *API) jsGetPropertyNumber(call goja.FunctionCall) goja.Value {
	v, err := a.client.GetProperty(call.Argument(0).String(), player.FormatDouble)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.runtime.ToValue(v.Double)
}

func (a *API) jsGetPropertyNative(call goja.FunctionCall) goja.Value {
	v, err := a.client.GetProperty(call.Argument(0).String(), player.FormatNode)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.pushNode(v)
}

func (a *API) jsGetProperty(call goja.FunctionCall) goja.Value {
	v, err := a.client.GetProperty(call.Argument(0).String(), player.FormatString)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.runtime.ToValue(v.Str)
}

func (a *API) jsGetPropertyOSD(call goja.FunctionCall) goja.Value {
	v, err := a.client.GetProperty(call.Argument(0).String(), player.FormatOSDString)
	if res, failed := a.asErrorDef(call, err); failed {
		return res
	}
	return a.runtime.ToValue(v.Str)
}

func (a *API) jsSetProperty(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	return a.status(a.client.SetPropertyString(name, call.Argument(1).String()))
}

func (a *API) jsSetPropertyBool(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	v := player.FlagNode(call.Argument(1).ToBoolean())
	return a.status(a.client.SetProperty(name, v))
}

func (a *API) jsSetPropertyNumber(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	v := player.DoubleNode(call.Argument(1).ToFloat())
	return a.status(a.client.SetProperty(name, v))
}

func (a *API) jsSetPropertyNative(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	return a.status(a.client.SetProperty(name, a.makeNode(call.Argument(1))))
}

// jsObserveProperty handles _observe_property(id, name, format). The
// format is a number from amp._formats, or undefined for change
// notifications without data.
func (a *API) jsObserveProperty(call goja.FunctionCall) goja.Value {
	id := uint64(call.Argument(0).ToInteger())
	name := call.Argument(1).String()
	format := player.FormatNone
	if f := call.Argument(2); !goja.IsUndefined(f) {
		format = player.Format(f.ToInteger())
		if format < player.FormatNone || format > player.FormatNodeMap {
			return a.status(player.ErrPropertyFormat)
		}
	}
	return a.status(a.client.ObserveProperty(id, name, format))
}

func (a *API) jsUnobserveProperty(call goja.FunctionCall) goja.Value {
	a.client.UnobserveProperty(uint64(call.Argument(0).ToInteger()))
	return a.status(nil)
}

func (a *API) jsGetTime(call goja.FunctionCall) goja.Value {
	return a.runtime.ToValue(a.client.TimeSinceStart().Seconds())
}

func (a *API) jsGetTimeMS(call goja.FunctionCall) goja.Value {
	ms := float64(a.client.TimeSinceStart()) / float64(time.Millisecond)
	return a.runtime.ToValue(ms)
}

// jsInputDefineSection handles input_define_section(name, contents
// [,flags]) with flags "default", "force" or empty.
func (a *API) jsInputDefineSection(call goja.FunctionCall) goja.Value {
	section := call.Argument(0).String()
	contents := call.Argument(1).String()
	flags := ""
	if f := call.Argument(2); !goja.IsUndefined(f) {
		flags = f.String()
	}
	builtin := true
	switch flags {
	case "", "default":
	case "force":
		builtin = false
	default:
		a.throwf("invalid flags: '%s'", flags)
	}
	a.client.DefineSection(section, contents, builtin)
	return goja.Undefined()
}

func (a *API) jsInputEnableSection(call goja.FunctionCall) goja.Value {
	section := call.Argument(0).String()
	sflags := ""
	if f := call.Argument(1); !goja.IsUndefined(f) {
		sflags = f.String()
	}
	exclusive := false
	for _, flag := range strings.Split(sflags, "|") {
		switch flag {
		case "":
		case "allow-hide-cursor", "allow-vo-dragging":
			// Cursor and dragging control have no equivalent here.
		case "exclusive":
			exclusive = true
		default:
			a.throwf("invalid flag")
		}
	}
	if err := a.client.EnableSection(section, exclusive); err != nil {
		a.log.Verbosef("enable-section %s: %v", section, err)
	}
	return goja.Undefined()
}

func (a *API) jsInputDisableSection(call goja.FunctionCall) goja.Value {
	a.client.DisableSection(call.Argument(0).String())
	return goja.Undefined()
}

func (a *API) jsFormatTime(call goja.FunctionCall) goja.Value {
	t := call.Argument(0).ToFloat()
	format := "%H:%M:%S"
	if f := call.Argument(1); !goja.IsUndefined(f) {
		format = f.String()
	}
	s, err := formatTime(format, t)
	if err != nil {
		a.throwf("Invalid time format string '%s'", format)
	}
	return a.runtime.ToValue(s)
}

func (a *API) jsEnableMessages(call goja.FunctionCall) goja.Value {
	level := call.Argument(0).String()
	if _, ok := msg.ParseLevel(level); !ok && level != "no" && level != "off" {
		a.throwf("Invalid log level '%s'", level)
	}
	return a.status(a.client.RequestLogMessages(level))
}

func (a *API) jsGetWakeupPipe(call goja.FunctionCall) goja.Value {
	fd, err := a.client.WakeupPipe()
	if err != nil {
		fd = -1
	}
	return a.runtime.ToValue(fd)
}

// jsLog handles msg.log(level, ...) with an explicit level name.
func (a *API) jsLog(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	level, ok := msg.ParseLevel(name)
	if !ok {
		a.throwf("Invalid log level '%s'", name)
	}
	return a.finalizeLog(level, call.Arguments[1:])
}

// logFn builds the fixed-level loggers of amp.msg.
func (a *API) logFn(level msg.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		return a.finalizeLog(level, call.Arguments)
	}
}

// finalizeLog joins the arguments with spaces, the way script print
// helpers do, and reports success to the caller.
func (a *API) finalizeLog(level msg.Level, args []goja.Value) goja.Value {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	a.log.Logf(level, "%s", strings.Join(parts, " "))
	return a.status(nil)
}

