// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/cesu8"
	"github.com/amp-player/amp/internal/util"
)

//go:embed defaults.js
var defaultsSource string

// builtinScripts maps reserved @-names to embedded sources. They are
// looked up before the filesystem, so a real file cannot shadow them.
var builtinScripts = map[string]string{
	"@defaults.js": defaultsSource,
}

// fileContent returns the source text of fname: builtin @-names first,
// then the filesystem with home expansion. File bytes pass through the
// surrogate-pair decoder, so sources written by UTF-16-native tooling
// compile the same as plain UTF-8 ones.
func (a *API) fileContent(fname string) (string, error) {
	if src, ok := builtinScripts[fname]; ok {
		return src, nil
	}
	if strings.HasPrefix(fname, "@") {
		return "", fmt.Errorf("cannot open file: '%s'", fname)
	}
	data, err := os.ReadFile(util.ExpandPath(fname))
	if err != nil {
		return "", fmt.Errorf("cannot open file: '%s'", fname)
	}
	return string(cesu8.DecodeInPlace(data)), nil
}

func (a *API) compileFile(fname string) (*goja.Program, error) {
	src, err := a.fileContent(fname)
	if err != nil {
		return nil, err
	}
	return goja.Compile(fname, src, false)
}

// runFile compiles and runs fname at the global scope.
func (a *API) runFile(fname string) error {
	prog, err := a.compileFile(fname)
	if err != nil {
		return err
	}
	_, err = a.runtime.RunProgram(prog)
	return err
}

// filenameArg returns the call's filename argument. Coercing other
// types to file names invites accidents, so only real strings pass.
func (a *API) filenameArg(call goja.FunctionCall) string {
	arg := call.Argument(0)
	if _, ok := arg.Export().(string); !ok {
		a.throwf("filename must be strictly a string")
	}
	return arg.String()
}

// rethrow converts an engine error back into a script exception.
func (a *API) rethrow(err error) {
	if exc, ok := err.(*goja.Exception); ok {
		panic(exc.Value())
	}
	panic(a.runtime.ToValue(err.Error()))
}

func (a *API) jsReadFile(call goja.FunctionCall) goja.Value {
	src, err := a.fileContent(a.filenameArg(call))
	if err != nil {
		a.throwf("%s", err)
	}
	return a.runtime.ToValue(src)
}

// jsLoadFile compiles a file and returns it as a function. Calling the
// function runs the file at the global scope, like run_file does.
func (a *API) jsLoadFile(call goja.FunctionCall) goja.Value {
	prog, err := a.compileFile(a.filenameArg(call))
	if err != nil {
		a.throwf("%s", err)
	}
	return a.runtime.ToValue(func(goja.FunctionCall) goja.Value {
		v, err := a.runtime.RunProgram(prog)
		if err != nil {
			a.rethrow(err)
		}
		return v
	})
}

func (a *API) jsRunFile(call goja.FunctionCall) goja.Value {
	prog, err := a.compileFile(a.filenameArg(call))
	if err != nil {
		a.throwf("%s", err)
	}
	v, err := a.runtime.RunProgram(prog)
	if err != nil {
		a.rethrow(err)
	}
	return v
}

// jsWriteFile handles utils.write_file(fname, text). A "cesu8:" name
// prefix re-encodes supplementary codepoints as surrogate pairs for
// consumers that expect engine-native bytes.
func (a *API) jsWriteFile(call goja.FunctionCall) goja.Value {
	fname := a.filenameArg(call)
	data := []byte(call.Argument(1).String())
	if rest, ok := strings.CutPrefix(fname, "cesu8:"); ok {
		fname = rest
		data, _ = cesu8.Encode(data, nil)
	}
	if err := os.WriteFile(util.ExpandPath(fname), data, 0o644); err != nil {
		a.throwf("cannot write file: '%s'", fname)
	}
	return goja.Undefined()
}

func (a *API) jsFindConfigFile(call goja.FunctionCall) goja.Value {
	if path, ok := util.FindConfigFile(call.Argument(0).String()); ok {
		return a.runtime.ToValue(path)
	}
	return goja.Null()
}
