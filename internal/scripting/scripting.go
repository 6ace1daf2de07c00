// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package scripting dispatches script files to language backends and
// manages their lifetime. A backend claims a file extension; the
// loader creates a player client for each script, hands both to the
// backend on a fresh goroutine and blocks until the script finished
// its setup phase.
package scripting

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
)

// Backend runs scripts of one language. Run executes the script at
// path against cl and returns when the script exits; it must call
// cl.MarkInitialized once setup is done, on failure paths too.
type Backend interface {
	Name() string
	Ext() string
	Run(cl *player.Client, path string) error
}

var registry struct {
	mu       sync.Mutex
	backends []Backend
}

// Register adds a backend to the global registry. Backends register
// explicitly at startup; there is no registration from init.
func Register(b Backend) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.backends = append(registry.backends, b)
}

// Backends returns the registered backends.
func Backends() []Backend {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return append([]Backend(nil), registry.backends...)
}

// Advertisement is the "ext:name" string a backend is announced
// under in logs and config errors.
func Advertisement(b Backend) string {
	return b.Ext() + ":" + b.Name()
}

// NameFromPath derives the client name for a script file: the base
// name without extension, every byte outside [A-Za-z0-9] replaced
// with an underscore.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	out := []byte(base)
	for i, b := range out {
		switch {
		case b >= 'A' && b <= 'Z':
		case b >= 'a' && b <= 'z':
		case b >= '0' && b <= '9':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// Handle tracks one running script.
type Handle struct {
	Name    string
	Path    string
	Backend string

	client *player.Client
	done   chan struct{}
	err    error
}

// Client returns the player client owned by the script.
func (h *Handle) Client() *player.Client { return h.client }

// Done is closed when the script goroutine finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the script's exit error. Only valid after Done.
func (h *Handle) Err() error { return h.err }

// Stop asks the script to exit. The script observes a shutdown event
// and is expected to leave its event loop.
func (h *Handle) Stop() { h.client.RequestShutdown() }

// Options configure a Loader.
type Options struct {
	// Overrides maps a file extension to the backend name that
	// should handle it, the "<ext>-backend" config keys.
	Overrides map[string]string

	// Backends to dispatch to. Nil means all registered ones.
	Backends []Backend
}

// Loader creates clients for script files and runs them on their
// backends.
type Loader struct {
	core     *player.Core
	log      *msg.Logger
	backends []Backend
	override map[string]string

	mu      sync.Mutex
	handles []*Handle
}

// NewLoader returns a loader for core.
func NewLoader(core *player.Core, opts Options) *Loader {
	backends := opts.Backends
	if backends == nil {
		backends = Backends()
	}
	l := &Loader{
		core:     core,
		log:      msg.NewLogger(core.Bus(), "scripting"),
		backends: backends,
		override: opts.Overrides,
	}
	for _, b := range backends {
		l.log.Verbosef("script backend: %s", Advertisement(b))
	}
	return l
}

// matchBackend picks the backend for a script path. A configured
// override for the extension wins over the backend's own claim.
func (l *Loader) matchBackend(path string) (Backend, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, fmt.Errorf("script file %q has no extension", path)
	}
	if name, ok := l.override[ext]; ok {
		for _, b := range l.backends {
			if b.Name() == name {
				return b, nil
			}
		}
		return nil, fmt.Errorf("%s-backend names unknown backend %q", ext, name)
	}
	for _, b := range l.backends {
		if b.Ext() == ext {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no script backend for .%s files", ext)
}

// LoadScript starts the script at path. The client is created before
// the script goroutine is spawned, and LoadScript only returns once
// the script signalled the end of its setup phase, so callers may
// rely on its message handlers being in place.
func (l *Loader) LoadScript(path string) (*Handle, error) {
	backend, err := l.matchBackend(path)
	if err != nil {
		return nil, err
	}

	name := NameFromPath(path)
	cl := l.core.CreateClient(name)
	h := &Handle{
		Name:    cl.Name(),
		Path:    path,
		Backend: backend.Name(),
		client:  cl,
		done:    make(chan struct{}),
	}
	l.log.Verbosef("loading %s via %s", path, Advertisement(backend))

	go func() {
		defer close(h.done)
		defer cl.Destroy()
		if err := backend.Run(cl, path); err != nil {
			h.err = err
			l.log.Errorf("script %s: %v", h.Name, err)
		}
	}()

	select {
	case <-cl.Initialized():
	case <-h.done:
	}

	l.mu.Lock()
	l.handles = append(l.handles, h)
	l.mu.Unlock()
	return h, nil
}

// LoadDir loads every script in dir that a backend claims. Dotfiles
// and unclaimed files are skipped. Files load in name order; each
// script finishes initializing before the next one starts.
func (l *Loader) LoadDir(dir string) error {
	entries, err := readDirSorted(dir)
	if err != nil {
		return err
	}
	for _, name := range entries {
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if _, err := l.matchBackend(path); err != nil {
			l.log.Debugf("skipping %s: %v", name, err)
			continue
		}
		if _, err := l.LoadScript(path); err != nil {
			l.log.Errorf("loading %s: %v", path, err)
		}
	}
	return nil
}

// Handles returns the scripts loaded so far, including exited ones.
func (l *Loader) Handles() []*Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Handle(nil), l.handles...)
}

// handleByName finds a live handle for a script name.
func (l *Loader) handleByName(name string) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.handles {
		select {
		case <-h.done:
			continue
		default:
		}
		if h.Name == name {
			return h
		}
	}
	return nil
}

func (l *Loader) removeHandle(h *Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.handles[:0]
	for _, x := range l.handles {
		if x != h {
			kept = append(kept, x)
		}
	}
	l.handles = kept
}

// StopAll asks every running script to exit and waits for them.
func (l *Loader) StopAll() {
	for _, h := range l.Handles() {
		h.Stop()
	}
	for _, h := range l.Handles() {
		<-h.Done()
	}
}
