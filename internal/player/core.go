// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amp-player/amp/internal/msg"
)

type propertyDef struct {
	get func(*Core) (Node, error)
	set func(*Core, Node) error
}

type commandDef struct {
	minArgs int
	run     func(*Core, *Client, []Node) (Node, error)
}

// Core is the playback engine seen by clients. It owns the property
// registry, the command table, input sections and the set of attached
// clients. Properties and commands are registered once at
// construction; the registries are read-only afterwards.
type Core struct {
	bus   *msg.Bus
	log   *msg.Logger
	start time.Time

	props    map[string]*propertyDef
	commands map[string]*commandDef

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu         sync.Mutex
	clients    map[string]*Client
	scriptOpts map[string]string

	abortMu     sync.Mutex
	abortCtx    context.Context
	abortCancel context.CancelFunc

	pb    playbackState
	input inputState

	shutdownOnce sync.Once
}

// NewCore returns a core logging through bus, with the built-in
// properties and commands registered.
func NewCore(bus *msg.Bus) *Core {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Core{
		bus:        bus,
		log:        msg.NewLogger(bus, "core"),
		start:      time.Now(),
		props:      make(map[string]*propertyDef),
		commands:   make(map[string]*commandDef),
		rootCtx:    ctx,
		rootCancel: cancel,
		clients:    make(map[string]*Client),
		scriptOpts: make(map[string]string),
	}
	c.abortCtx, c.abortCancel = context.WithCancel(ctx)
	c.pb.init()
	c.input.init()
	registerPlaybackProperties(c)
	registerCoreCommands(c)
	return c
}

// Log returns the core's own logger.
func (c *Core) Log() *msg.Logger { return c.log }

// Bus returns the log bus shared by core and clients.
func (c *Core) Bus() *msg.Bus { return c.bus }

// SetScriptOpts replaces the key-value options exposed to scripts via
// the script-opts property.
func (c *Core) SetScriptOpts(opts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scriptOpts = make(map[string]string, len(opts))
	for k, v := range opts {
		c.scriptOpts[k] = v
	}
}

// CreateClient attaches a new client handle. Names are uniquified the
// way terminal clients expect: a taken name gets a numeric suffix.
func (c *Core) CreateClient(name string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	unique := name
	for n := 2; ; n++ {
		if _, taken := c.clients[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s%d", name, n)
	}
	cl := newClient(c, unique)
	c.clients[unique] = cl
	return cl
}

func (c *Core) removeClient(cl *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clients[cl.name] == cl {
		delete(c.clients, cl.name)
	}
}

// ClientByName looks up an attached client.
func (c *Core) ClientByName(name string) (*Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[name]
	return cl, ok
}

func (c *Core) clientList() []*Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Client, 0, len(c.clients))
	for _, cl := range c.clients {
		out = append(out, cl)
	}
	return out
}

// BroadcastEvent delivers ev to every attached client.
func (c *Core) BroadcastEvent(ev *Event) {
	for _, cl := range c.clientList() {
		e := *ev
		cl.enqueue(&e)
	}
}

// SendClientMessage delivers a client-message event to the named
// client.
func (c *Core) SendClientMessage(target string, args []string) error {
	cl, ok := c.ClientByName(target)
	if !ok {
		return ErrInvalidParameter
	}
	if !cl.enqueue(&Event{ID: EventClientMessage, Args: args}) {
		return ErrEventQueueFull
	}
	return nil
}

func (c *Core) registerProperty(name string, def *propertyDef) {
	c.props[name] = def
}

func (c *Core) registerCommand(name string, def *commandDef) {
	c.commands[name] = def
}

// PropertyNames returns the registered property names, sorted.
func (c *Core) PropertyNames() []string {
	names := make([]string, 0, len(c.props))
	for name := range c.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandNames returns the registered command names, sorted.
func (c *Core) CommandNames() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProperty reads property name converted to the requested format.
func (c *Core) GetProperty(name string, format Format) (Node, error) {
	def, ok := c.props[name]
	if !ok {
		return Node{}, ErrPropertyNotFound
	}
	v, err := def.get(c)
	if err != nil {
		return Node{}, err
	}
	return v.ConvertTo(format)
}

// SetProperty writes property name and notifies observers across all
// clients. Read-only properties fail with a property access error.
func (c *Core) SetProperty(name string, value Node) error {
	def, ok := c.props[name]
	if !ok {
		return ErrPropertyNotFound
	}
	if def.set == nil {
		return ErrPropertyError
	}
	if err := def.set(c, value); err != nil {
		return err
	}
	c.notifyPropertyChange(name)
	return nil
}

// notifyPropertyChange re-reads name and fans the fresh value out to
// observers on every client.
func (c *Core) notifyPropertyChange(name string) {
	v, err := c.GetProperty(name, FormatNode)
	if err != nil {
		v = NoneNode()
	}
	for _, cl := range c.clientList() {
		cl.notifyProperty(name, v)
	}
}

// RunCommand executes one command. The first array element names the
// command, the rest are its arguments. The issuing client may be nil
// for commands run by the host itself.
func (c *Core) RunCommand(cl *Client, args []Node) (Node, error) {
	if len(args) == 0 {
		return Node{}, ErrInvalidParameter
	}
	name, err := args[0].ConvertTo(FormatString)
	if err != nil {
		return Node{}, ErrInvalidParameter
	}
	def, ok := c.commands[name.Str]
	if !ok {
		c.log.Errorf("unknown command: %q", name.Str)
		return Node{}, ErrCommand
	}
	rest := args[1:]
	if len(rest) < def.minArgs {
		c.log.Errorf("command %q needs at least %d arguments", name.Str, def.minArgs)
		return Node{}, ErrInvalidParameter
	}
	return def.run(c, cl, rest)
}

// splitCommandLine splits a command line on runs of whitespace.
func splitCommandLine(line string) []string {
	return strings.Fields(line)
}

// abortContext is the context tied to the current playback. Stop and
// shutdown cancel it.
func (c *Core) abortContext() context.Context {
	c.abortMu.Lock()
	defer c.abortMu.Unlock()
	return c.abortCtx
}

// abortPlayback cancels the current abort context and installs a
// fresh one for the next playback.
func (c *Core) abortPlayback() {
	c.abortMu.Lock()
	defer c.abortMu.Unlock()
	c.abortCancel()
	c.abortCtx, c.abortCancel = context.WithCancel(c.rootCtx)
}

// Done returns a channel closed when the core shuts down.
func (c *Core) Done() <-chan struct{} { return c.rootCtx.Done() }

// Shutdown stops the core: playback aborts, every client receives a
// shutdown event and blocked waits are released. Safe to call more
// than once.
func (c *Core) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.log.Verbosef("shutting down")
		c.rootCancel()
		c.BroadcastEvent(&Event{ID: EventShutdown})
	})
}
