// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package msg is the player's logging facility. Every component logs
// through a prefixed Logger attached to a shared Bus; the Bus writes to
// slog and also hands each record to subscribers, which is how script
// clients receive log-message events.
package msg

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Level is a player log level, ordered from most to least severe.
type Level int

const (
	LevelFatal Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelStatus
	LevelVerbose
	LevelDebug
	LevelTrace
)

// levelNames are the user-visible level names, as accepted by script
// log calls and message subscriptions. Verbose is spelled "v".
var levelNames = []string{
	LevelFatal:   "fatal",
	LevelError:   "error",
	LevelWarn:    "warn",
	LevelInfo:    "info",
	LevelStatus:  "status",
	LevelVerbose: "v",
	LevelDebug:   "debug",
	LevelTrace:   "trace",
}

// String returns the level's user-visible name.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel matches a level name case-insensitively.
func ParseLevel(name string) (Level, bool) {
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			return Level(i), true
		}
	}
	return 0, false
}

// slogLevel maps a player level onto the slog scale.
func (l Level) slogLevel() slog.Level {
	switch {
	case l <= LevelError:
		return slog.LevelError
	case l == LevelWarn:
		return slog.LevelWarn
	case l <= LevelStatus:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Record is one log line as seen by subscribers.
type Record struct {
	Prefix string
	Level  Level
	Text   string
}

// Bus fans log records out to slog and to subscribers.
type Bus struct {
	out *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Record)
}

// NewBus returns a Bus writing through out. A nil out discards slog
// output but still serves subscribers, which tests use for capture.
func NewBus(out *slog.Logger) *Bus {
	return &Bus{out: out, subs: make(map[int]func(Record))}
}

// Subscribe registers fn for every subsequent record and returns a
// function that removes the subscription. fn runs on the logging
// goroutine and must not block.
func (b *Bus) Subscribe(fn func(Record)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Bus) publish(r Record) {
	if b.out != nil {
		b.out.Log(nil, r.Level.slogLevel(), r.Text, "prefix", r.Prefix, "level", r.Level.String())
	}

	b.mu.Lock()
	subs := make([]func(Record), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
}

// Logger is a prefixed handle on a Bus. The prefix is the component or
// script name records are attributed to.
type Logger struct {
	bus    *Bus
	prefix string
}

// NewLogger returns a Logger publishing to bus under prefix.
func NewLogger(bus *Bus, prefix string) *Logger {
	return &Logger{bus: bus, prefix: prefix}
}

// Prefix returns the logger's attribution prefix.
func (l *Logger) Prefix() string { return l.prefix }

// Log publishes one record at the given level.
func (l *Logger) Log(level Level, text string) {
	l.bus.publish(Record{Prefix: l.prefix, Level: level, Text: text})
}

// Logf publishes one formatted record at the given level.
func (l *Logger) Logf(level Level, format string, args ...any) {
	l.Log(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Fatalf(format string, args ...any)   { l.Logf(LevelFatal, format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.Logf(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)    { l.Logf(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)    { l.Logf(LevelInfo, format, args...) }
func (l *Logger) Verbosef(format string, args ...any) { l.Logf(LevelVerbose, format, args...) }
func (l *Logger) Debugf(format string, args ...any)   { l.Logf(LevelDebug, format, args...) }
