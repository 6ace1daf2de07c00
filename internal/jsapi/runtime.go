// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"errors"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
	"github.com/amp-player/amp/internal/scripting"
)

// State tracks a script runtime through its life. The zero value is
// StateCreated.
type State int32

const (
	// StateCreated means the engine exists but nothing is registered.
	StateCreated State = iota
	// StateInitialized means the bridge functions are installed.
	StateInitialized
	// StateRunning means control passed to the script's event loop.
	StateRunning
	// StateExited means the event loop returned normally.
	StateExited
	// StateFatalError means the script died with an uncaught error.
	StateFatalError
)

var stateNames = map[State]string{
	StateCreated:     "created",
	StateInitialized: "initialized",
	StateRunning:     "running",
	StateExited:      "exited",
	StateFatalError:  "fatal-error",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Runner drives one script from engine creation to teardown. It owns
// the engine for the whole run; only State is safe to read from other
// goroutines.
type Runner struct {
	client *player.Client
	log    *msg.Logger
	path   string
	state  atomic.Int32
}

// NewRunner prepares a run of the script at path on behalf of client.
func NewRunner(client *player.Client, path string) *Runner {
	return &Runner{client: client, log: client.Log(), path: path}
}

// State reports where the run currently stands.
func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) { r.state.Store(int32(s)) }

// Run executes the script to completion: bridge registration, the
// bootstrap file, the script file, then its event loop. Uncaught
// script errors are fatal for the script, not the host; they land in
// the host log and the error return. The client is always resumed and
// marked initialized on the way out.
func (r *Runner) Run() error {
	defer r.client.MarkInitialized()
	defer r.client.ResumeAll()
	err := r.run()
	if err != nil {
		r.setState(StateFatalError)
		r.log.Fatalf("JS error: %s", errText(err))
		return err
	}
	r.setState(StateExited)
	return nil
}

func (r *Runner) run() error {
	vm := goja.New()
	api := NewAPI(r.client, vm, r.path)
	if err := api.RegisterAll(); err != nil {
		return err
	}
	r.setState(StateInitialized)

	for _, fname := range []string{"@defaults.js", r.path} {
		r.log.Verbosef("loading file %s", fname)
		if err := api.runFile(fname); err != nil {
			return err
		}
	}

	// The bootstrap defines the loop; a script may replace it, but
	// something callable has to be there.
	loop, ok := goja.AssertFunction(vm.GlobalObject().Get("amp_event_loop"))
	if !ok {
		return errors.New("no event loop function")
	}
	r.client.MarkInitialized()
	r.setState(StateRunning)
	_, err := loop(goja.Undefined())
	return err
}

// errText renders err for the host log, preferring the script-side
// rendition with position information.
func errText(err error) string {
	if exc, ok := err.(*goja.Exception); ok {
		return exc.String()
	}
	return err.Error()
}

// Backend runs .js files on the embedded engine.
type Backend struct{}

var _ scripting.Backend = Backend{}

func (Backend) Name() string { return "javascript" }

func (Backend) Ext() string { return "js" }

func (Backend) Run(cl *player.Client, path string) error {
	return NewRunner(cl, path).Run()
}

// Register adds the engine to the scripting registry. The host calls
// it once during assembly; nothing registers from package init.
func Register() {
	scripting.Register(Backend{})
}
