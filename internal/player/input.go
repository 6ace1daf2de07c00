// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

import (
	"strings"
	"sync"
)

type inputBinding struct {
	key     string
	command []string
}

type inputSection struct {
	name      string
	owner     string
	builtin   bool
	exclusive bool
	bindings  []inputBinding
}

// inputState holds key binding sections. Enabled sections form a
// stack; the section enabled last is consulted first, and an
// exclusive section swallows keys it does not bind.
type inputState struct {
	mu       sync.Mutex
	sections map[string]*inputSection
	enabled  []string
}

func (s *inputState) init() {
	s.sections = make(map[string]*inputSection)
}

// parseBindings reads section contents, one binding per line in the
// form "KEY command args...". Blank lines and # comments are skipped.
func parseBindings(contents string) []inputBinding {
	var out []inputBinding
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, inputBinding{key: fields[0], command: fields[1:]})
	}
	return out
}

// DefineSection installs or replaces a named binding section. Empty
// contents remove the section. Builtin sections are consulted after
// all regular ones.
func (c *Core) DefineSection(name, owner, contents string, builtin bool) error {
	if name == "" {
		return ErrInvalidParameter
	}
	c.input.mu.Lock()
	defer c.input.mu.Unlock()
	if contents == "" {
		delete(c.input.sections, name)
		c.disableLocked(name)
		return nil
	}
	sec := &inputSection{
		name:     name,
		owner:    owner,
		builtin:  builtin,
		bindings: parseBindings(contents),
	}
	if old, ok := c.input.sections[name]; ok {
		sec.exclusive = old.exclusive
	}
	c.input.sections[name] = sec
	return nil
}

// EnableSection pushes a defined section onto the active stack.
func (c *Core) EnableSection(name string, exclusive bool) error {
	c.input.mu.Lock()
	defer c.input.mu.Unlock()
	sec, ok := c.input.sections[name]
	if !ok {
		return ErrInvalidParameter
	}
	sec.exclusive = exclusive
	c.disableLocked(name)
	c.input.enabled = append(c.input.enabled, name)
	return nil
}

// DisableSection removes a section from the active stack.
func (c *Core) DisableSection(name string) {
	c.input.mu.Lock()
	defer c.input.mu.Unlock()
	c.disableLocked(name)
}

func (c *Core) disableLocked(name string) {
	kept := c.input.enabled[:0]
	for _, n := range c.input.enabled {
		if n != name {
			kept = append(kept, n)
		}
	}
	c.input.enabled = kept
}

// lookupKey finds the binding for key, searching the enabled stack
// top-down, regular sections before builtin ones. An exclusive
// section that does not bind the key stops the search.
func (c *Core) lookupKey(key string) (inputBinding, bool) {
	c.input.mu.Lock()
	defer c.input.mu.Unlock()
	for _, builtin := range []bool{false, true} {
		for i := len(c.input.enabled) - 1; i >= 0; i-- {
			sec := c.input.sections[c.input.enabled[i]]
			if sec == nil || sec.builtin != builtin {
				continue
			}
			for _, b := range sec.bindings {
				if b.key == key {
					return b, true
				}
			}
			if sec.exclusive {
				return inputBinding{}, false
			}
		}
	}
	return inputBinding{}, false
}

// HandleKey dispatches a key press through the enabled sections and
// runs the bound command. It reports whether the key was handled.
func (c *Core) HandleKey(key string) bool {
	b, ok := c.lookupKey(key)
	if !ok {
		return false
	}
	// Script bindings carry the pressed key through to the owning
	// client; other commands run as-is.
	if b.command[0] == "script-binding" && len(b.command) > 1 {
		if err := c.dispatchScriptBinding(b.command[1], "p-", key); err != nil {
			c.log.Errorf("key %q: %v", key, err)
			return false
		}
		return true
	}
	args := make([]Node, len(b.command))
	for i, s := range b.command {
		args[i] = StringNode(s)
	}
	if _, err := c.RunCommand(nil, args); err != nil {
		c.log.Errorf("key %q: %v", key, err)
	}
	return true
}

// dispatchScriptBinding sends the key-binding client message for a
// "client/binding" target.
func (c *Core) dispatchScriptBinding(target, state, key string) error {
	idx := strings.IndexByte(target, '/')
	if idx <= 0 {
		return ErrCommand
	}
	client, binding := target[:idx], target[idx+1:]
	return c.SendClientMessage(client, []string{"key-binding", binding, state, key})
}

func cmdScriptBinding(c *Core, cl *Client, args []Node) (Node, error) {
	target, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	if err := c.dispatchScriptBinding(target, "p-", ""); err != nil {
		c.log.Errorf("script-binding: cannot dispatch %q", target)
		return Node{}, ErrCommand
	}
	return NoneNode(), nil
}

func cmdKeypress(c *Core, cl *Client, args []Node) (Node, error) {
	key, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	if !c.HandleKey(key) {
		c.log.Verbosef("no binding for key %q", key)
	}
	return NoneNode(), nil
}

func cmdDefineSection(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	contents, err := stringArg(args, 1)
	if err != nil {
		return Node{}, err
	}
	builtin := true
	if len(args) > 2 {
		flags, err := stringArg(args, 2)
		if err != nil {
			return Node{}, err
		}
		switch flags {
		case "", "default":
		case "force":
			builtin = false
		default:
			c.log.Errorf("define-section: invalid flags %q", flags)
			return Node{}, ErrInvalidParameter
		}
	}
	owner := ""
	if cl != nil {
		owner = cl.Name()
	}
	return NoneNode(), c.DefineSection(name, owner, contents, builtin)
}

func cmdEnableSection(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	exclusive := false
	if len(args) > 1 {
		flags, err := stringArg(args, 1)
		if err != nil {
			return Node{}, err
		}
		for _, f := range strings.Split(flags, "|") {
			switch f {
			case "", "allow-hide-cursor", "allow-vo-dragging":
			case "exclusive":
				exclusive = true
			default:
				c.log.Errorf("enable-section: invalid flag %q", f)
				return Node{}, ErrInvalidParameter
			}
		}
	}
	return NoneNode(), c.EnableSection(name, exclusive)
}

func cmdDisableSection(c *Core, cl *Client, args []Node) (Node, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return Node{}, err
	}
	c.DisableSection(name)
	return NoneNode(), nil
}
