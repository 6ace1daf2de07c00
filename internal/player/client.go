// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

import (
	"context"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/amp-player/amp/internal/msg"
)

// eventQueueSize bounds each client's event queue. Events beyond the
// bound are dropped, except shutdown which is latched separately.
const eventQueueSize = 1000

type observer struct {
	id     uint64
	name   string
	format Format
}

// Client is one handle on the core, held by a script or a remote
// controller. Every client has its own event queue, observer set and
// log subscription. All methods are safe for concurrent use.
type Client struct {
	core *Core
	name string
	log  *msg.Logger

	events  chan *Event
	enabled atomic.Uint64

	mu        sync.Mutex
	observers []observer
	suspended int
	logCancel func()

	shutdown atomic.Bool
	overflow atomic.Bool

	wakeupMu sync.Mutex
	wakeupR  *os.File
	wakeupW  *os.File

	initOnce    sync.Once
	initCh      chan struct{}
	destroyOnce sync.Once
}

func newClient(core *Core, name string) *Client {
	c := &Client{
		core:   core,
		name:   name,
		log:    msg.NewLogger(core.bus, name),
		events: make(chan *Event, eventQueueSize),
		initCh: make(chan struct{}),
	}
	c.enabled.Store(^uint64(0))
	return c
}

// Name returns the client's unique name.
func (c *Client) Name() string { return c.name }

// Log returns the client's logger. Records are attributed to the
// client name.
func (c *Client) Log() *msg.Logger { return c.log }

// MarkInitialized signals that the client finished its setup phase.
// The loader blocks script startup on this, so it must be called even
// when initialization fails.
func (c *Client) MarkInitialized() {
	c.initOnce.Do(func() { close(c.initCh) })
}

// Initialized returns a channel closed once MarkInitialized ran.
func (c *Client) Initialized() <-chan struct{} { return c.initCh }

// RequestEvent enables or disables delivery of one event kind.
// Shutdown cannot be disabled.
func (c *Client) RequestEvent(id EventID, enable bool) error {
	if id <= EventNone || int(id) >= 64 {
		return ErrInvalidParameter
	}
	if id == EventShutdown {
		return nil
	}
	for {
		old := c.enabled.Load()
		var next uint64
		if enable {
			next = old | 1<<uint(id)
		} else {
			next = old &^ (1 << uint(id))
		}
		if c.enabled.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// enqueue files an event into the queue, applying the event mask. On
// overflow the event is dropped and a warning logged once. Shutdown is
// additionally latched so WaitEvent keeps reporting it after the queue
// drains.
func (c *Client) enqueue(ev *Event) bool {
	if c.enabled.Load()&(1<<uint(ev.ID)) == 0 && ev.ID != EventShutdown {
		return false
	}
	if ev.ID == EventShutdown {
		c.shutdown.Store(true)
	}
	select {
	case c.events <- ev:
		c.wake()
		return true
	default:
		if c.overflow.CompareAndSwap(false, true) {
			c.log.Warnf("event queue full, dropping events")
		}
		return false
	}
}

// WaitEvent blocks up to timeout seconds for the next event. A zero
// timeout polls, a negative one waits indefinitely. When nothing
// arrives the result is an EventNone event, never nil.
func (c *Client) WaitEvent(timeout float64) *Event {
	select {
	case ev := <-c.events:
		return ev
	default:
	}
	if c.shutdown.Load() {
		return &Event{ID: EventShutdown}
	}
	if timeout == 0 {
		return &Event{ID: EventNone}
	}

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(secondsToDuration(timeout))
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case ev := <-c.events:
		return ev
	case <-timeoutCh:
		return &Event{ID: EventNone}
	}
}

func secondsToDuration(s float64) time.Duration {
	ns := s * float64(time.Second)
	if ns >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// ObserveProperty registers a change notification for name, delivered
// with values converted to format. An initial notification carrying
// the current value is enqueued immediately. Unknown names are
// accepted; they notify with empty data until the property appears.
func (c *Client) ObserveProperty(id uint64, name string, format Format) error {
	c.mu.Lock()
	c.observers = append(c.observers, observer{id: id, name: name, format: format})
	c.mu.Unlock()

	cur, err := c.core.GetProperty(name, FormatNode)
	if err != nil {
		cur = NoneNode()
	}
	c.notifyProperty(name, cur)
	return nil
}

// UnobserveProperty removes every observer registered under id and
// returns how many were removed.
func (c *Client) UnobserveProperty(id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.observers[:0]
	removed := 0
	for _, ob := range c.observers {
		if ob.id == id {
			removed++
			continue
		}
		kept = append(kept, ob)
	}
	c.observers = kept
	return removed
}

// notifyProperty enqueues property-change events for every observer
// matching name. Values failing conversion to the observed format
// deliver empty data.
func (c *Client) notifyProperty(name string, value Node) {
	c.mu.Lock()
	obs := append([]observer(nil), c.observers...)
	c.mu.Unlock()

	for _, ob := range obs {
		if ob.name != name {
			continue
		}
		data := NoneNode()
		if ob.format != FormatNone {
			if v, err := value.ConvertTo(ob.format); err == nil {
				data = v
			}
		}
		c.enqueue(&Event{ID: EventPropertyChange, ReplyID: ob.id, Name: name, Data: data})
	}
}

// RequestLogMessages subscribes the client to core log output at
// minLevel and below. "no" and "off" cancel the subscription.
func (c *Client) RequestLogMessages(level string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logCancel != nil {
		c.logCancel()
		c.logCancel = nil
	}
	if level == "no" || level == "off" {
		return nil
	}
	min, ok := msg.ParseLevel(level)
	if !ok {
		return ErrInvalidParameter
	}
	c.logCancel = c.core.bus.Subscribe(func(r msg.Record) {
		if r.Level > min {
			return
		}
		c.enqueue(&Event{
			ID:        EventLogMessage,
			LogPrefix: r.Prefix,
			LogLevel:  r.Level.String(),
			LogText:   r.Text,
		})
	})
	return nil
}

// Suspend pauses core state updates on behalf of this client. Calls
// nest; each must be paired with Resume.
func (c *Client) Suspend() {
	c.mu.Lock()
	c.suspended++
	c.mu.Unlock()
}

// Resume undoes one Suspend.
func (c *Client) Resume() {
	c.mu.Lock()
	if c.suspended > 0 {
		c.suspended--
	}
	c.mu.Unlock()
}

// ResumeAll drops any suspension this client still holds. Called
// before blocking operations and during teardown.
func (c *Client) ResumeAll() {
	c.mu.Lock()
	c.suspended = 0
	c.mu.Unlock()
}

// WakeupPipe returns the read end of a pipe that receives a byte
// whenever an event is queued. The pipe is created on first use.
func (c *Client) WakeupPipe() (int, error) {
	c.wakeupMu.Lock()
	defer c.wakeupMu.Unlock()
	if c.wakeupR == nil {
		r, w, err := os.Pipe()
		if err != nil {
			return -1, err
		}
		syscall.SetNonblock(int(w.Fd()), true)
		c.wakeupR, c.wakeupW = r, w
	}
	return int(c.wakeupR.Fd()), nil
}

func (c *Client) wake() {
	c.wakeupMu.Lock()
	w := c.wakeupW
	c.wakeupMu.Unlock()
	if w != nil {
		w.Write([]byte{0})
	}
}

// RequestShutdown asks this client's owner to exit by queueing a
// shutdown event for it alone. The core keeps running.
func (c *Client) RequestShutdown() {
	c.enqueue(&Event{ID: EventShutdown})
}

// GetProperty reads a property converted to the requested format.
func (c *Client) GetProperty(name string, format Format) (Node, error) {
	return c.core.GetProperty(name, format)
}

// SetProperty writes a property.
func (c *Client) SetProperty(name string, value Node) error {
	return c.core.SetProperty(name, value)
}

// SetPropertyString parses value per the property's current type
// before setting it.
func (c *Client) SetPropertyString(name, value string) error {
	return c.core.SetPropertyString(name, value)
}

// Command runs a command given as argument strings.
func (c *Client) Command(args []string) error {
	nodes := make([]Node, len(args))
	for i, a := range args {
		nodes[i] = StringNode(a)
	}
	_, err := c.core.RunCommand(c, nodes)
	return err
}

// CommandString runs a command line, split on whitespace.
func (c *Client) CommandString(line string) error {
	return c.Command(splitCommandLine(line))
}

// CommandNode runs a command given as a node array and returns the
// command's result value.
func (c *Client) CommandNode(cmd Node) (Node, error) {
	if cmd.Format != FormatNodeArray {
		return Node{}, ErrInvalidParameter
	}
	return c.core.RunCommand(c, cmd.List)
}

// DefineSection installs a key binding section owned by this client.
func (c *Client) DefineSection(name, contents string, builtin bool) error {
	return c.core.DefineSection(name, c.name, contents, builtin)
}

// EnableSection activates a binding section defined earlier.
func (c *Client) EnableSection(name string, exclusive bool) error {
	return c.core.EnableSection(name, exclusive)
}

// DisableSection deactivates a binding section.
func (c *Client) DisableSection(name string) {
	c.core.DisableSection(name)
}

// TimeSinceStart reports time elapsed since the core started.
func (c *Client) TimeSinceStart() time.Duration {
	return time.Since(c.core.start)
}

// AbortContext returns a context cancelled when playback is aborted
// or the core shuts down. Long operations started on behalf of
// scripts tie their lifetime to it.
func (c *Client) AbortContext() context.Context {
	return c.core.abortContext()
}

// Destroy releases the client: observers, log subscription and
// wakeup pipe are dropped and the core forgets the handle.
func (c *Client) Destroy() {
	c.destroyOnce.Do(func() {
		c.MarkInitialized()
		c.ResumeAll()
		c.mu.Lock()
		if c.logCancel != nil {
			c.logCancel()
			c.logCancel = nil
		}
		c.observers = nil
		c.mu.Unlock()
		c.wakeupMu.Lock()
		if c.wakeupR != nil {
			c.wakeupR.Close()
			c.wakeupW.Close()
			c.wakeupR, c.wakeupW = nil, nil
		}
		c.wakeupMu.Unlock()
		c.core.removeClient(c)
	})
}
