// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/subproc"
	"github.com/amp-player/amp/internal/util"
)

func (a *API) jsGetcwd(call goja.FunctionCall) goja.Value {
	cwd, err := os.Getwd()
	if err != nil {
		a.setLastError("Error")
		return goja.Undefined()
	}
	return a.runtime.ToValue(cwd)
}

// checkOption matches v against opts and returns the matched index.
// Non-string values fall back to def; unmatched strings throw.
func (a *API) checkOption(v goja.Value, def string, opts []string) int {
	opt := def
	if s, ok := v.Export().(string); ok {
		opt = s
	}
	for i, o := range opts {
		if o == opt {
			return i
		}
	}
	a.throwf("Unknown option")
	return -1
}

// The filter index doubles as a type mask: bit 0 regular files, bit 1
// directories, zero everything.
var readdirFilters = []string{"all", "files", "dirs", "normal"}

func (a *API) jsReaddir(call goja.FunctionCall) goja.Value {
	path := "."
	if p, ok := call.Argument(0).Export().(string); ok {
		path = p
	}
	t := a.checkOption(call.Argument(1), "normal", readdirFilters)

	entries, err := os.ReadDir(path)
	if err != nil {
		a.setLastError("Cannot open dir")
		return goja.Undefined()
	}
	var names []interface{}
	if t == 0 {
		names = append(names, ".", "..")
	}
	for _, e := range entries {
		if t != 0 {
			// Stat, not the dirent type, so symlinks resolve to
			// what they point at.
			st, err := os.Stat(filepath.Join(path, e.Name()))
			if err != nil {
				continue
			}
			if !((t&1 != 0 && st.Mode().IsRegular()) ||
				(t&2 != 0 && st.IsDir())) {
				continue
			}
		}
		names = append(names, e.Name())
	}
	return a.runtime.NewArray(names...)
}

func (a *API) jsSplitPath(call goja.FunctionCall) goja.Value {
	dir, base := filepath.Split(call.Argument(0).String())
	return a.runtime.NewArray(dir, base)
}

// joinPath concatenates two path fragments without cleaning them. An
// absolute second fragment wins outright.
func joinPath(p1, p2 string) string {
	if p1 == "" || filepath.IsAbs(p2) {
		return p2
	}
	if p2 == "" {
		return p1
	}
	if strings.HasSuffix(p1, "/") {
		return p1 + p2
	}
	return p1 + "/" + p2
}

func (a *API) jsJoinPath(call goja.FunctionCall) goja.Value {
	return a.runtime.ToValue(joinPath(call.Argument(0).String(), call.Argument(1).String()))
}

// jsSubprocess runs {args: [...], cancellable: bool, max_size: n} and
// returns {error?, status, stdout, stderr}. The client is resumed
// first; a subprocess may outlive any suspended state.
func (a *API) jsSubprocess(call goja.FunctionCall) goja.Value {
	obj, ok := call.Argument(0).(*goja.Object)
	if !ok {
		a.throwf("argument must be an object")
	}
	a.client.ResumeAll()

	req := subproc.Request{
		Cancellable: true,
		MaxSize:     subproc.DefaultMaxOutput,
	}
	argsObj, ok := get(obj, "args").(*goja.Object)
	if !ok {
		a.throwf("args must be a non-empty array")
	}
	n := int(get(argsObj, "length").ToInteger())
	if n == 0 {
		a.throwf("args must be a non-empty array")
	}
	if n > subproc.MaxArgs-1 {
		a.throwf("too many arguments")
	}
	for i := 0; i < n; i++ {
		item := get(argsObj, strconv.Itoa(i))
		if goja.IsUndefined(item) {
			a.throwf("program arguments must be strings")
		}
		req.Args = append(req.Args, item.String())
	}
	if c := get(obj, "cancellable"); !goja.IsUndefined(c) {
		req.Cancellable = c.ToBoolean()
	}
	if m := get(obj, "max_size"); !goja.IsUndefined(m) {
		req.MaxSize = int(m.ToInteger())
	}

	res := subproc.Run(a.client.AbortContext(), a.log, req)

	out := a.runtime.NewObject()
	if res.Error != "" {
		out.Set("error", res.Error)
	}
	out.Set("status", res.Status)
	out.Set("stdout", string(res.Stdout))
	out.Set("stderr", string(res.Stderr))
	return out
}

// get reads an object property, mapping absent to undefined.
func get(obj *goja.Object, name string) goja.Value {
	if v := obj.Get(name); v != nil {
		return v
	}
	return goja.Undefined()
}

func (a *API) jsGetenv(call goja.FunctionCall) goja.Value {
	if v, ok := os.LookupEnv(call.Argument(0).String()); ok {
		return a.runtime.ToValue(v)
	}
	return goja.Undefined()
}

func (a *API) jsGetUserPath(call goja.FunctionCall) goja.Value {
	return a.runtime.ToValue(util.ExpandPath(call.Argument(0).String()))
}

// jsGC triggers a host collection pass. The engine has no collector
// separate from the host's; the numeric report argument is accepted
// and ignored.
func (a *API) jsGC(call goja.FunctionCall) goja.Value {
	runtime.GC()
	return goja.Undefined()
}
