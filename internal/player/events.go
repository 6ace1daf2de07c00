// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

// EventID identifies the kind of an event delivered to a client.
type EventID int

const (
	EventNone EventID = iota
	EventShutdown
	EventLogMessage
	EventStartFile
	EventEndFile
	EventFileLoaded
	EventIdle
	EventClientMessage
	EventSeek
	EventPlaybackRestart
	EventPropertyChange
)

var eventNames = map[EventID]string{
	EventNone:            "none",
	EventShutdown:        "shutdown",
	EventLogMessage:      "log-message",
	EventStartFile:       "start-file",
	EventEndFile:         "end-file",
	EventFileLoaded:      "file-loaded",
	EventIdle:            "idle",
	EventClientMessage:   "client-message",
	EventSeek:            "seek",
	EventPlaybackRestart: "playback-restart",
	EventPropertyChange:  "property-change",
}

func (id EventID) String() string {
	if n, ok := eventNames[id]; ok {
		return n
	}
	return "unknown"
}

// EventFromName resolves an event name as used on the wire back to its
// id. The "none" event does not resolve; it cannot be requested.
func EventFromName(name string) (EventID, bool) {
	for id, n := range eventNames {
		if n == name && id != EventNone {
			return id, true
		}
	}
	return EventNone, false
}

// Event is one entry of a client's event queue. Only the fields
// matching ID are meaningful.
type Event struct {
	ID      EventID
	ReplyID uint64
	Err     Error

	// EventLogMessage
	LogPrefix string
	LogLevel  string
	LogText   string

	// EventClientMessage
	Args []string

	// EventPropertyChange
	Name string
	Data Node

	// EventEndFile: "eof", "stop", "quit" or "error"
	Reason string
}

// ToNode renders the event as the map scripts receive from the event
// loop. The "event" key is always present; "id" appears when a reply
// id is set and "error" when the event carries a failure code.
func (e *Event) ToNode() Node {
	n := MapNode().Set("event", StringNode(e.ID.String()))
	if e.ReplyID != 0 {
		n = n.Set("id", IntNode(int64(e.ReplyID)))
	}
	if e.Err < 0 {
		n = n.Set("error", StringNode(e.Err.Error()))
	}
	switch e.ID {
	case EventLogMessage:
		n = n.Set("prefix", StringNode(e.LogPrefix))
		n = n.Set("level", StringNode(e.LogLevel))
		n = n.Set("text", StringNode(e.LogText))
	case EventClientMessage:
		args := make([]Node, len(e.Args))
		for i, a := range e.Args {
			args[i] = StringNode(a)
		}
		n = n.Set("args", ArrayNode(args...))
	case EventPropertyChange:
		n = n.Set("name", StringNode(e.Name))
		n = n.Set("data", e.Data)
	case EventEndFile:
		if e.Reason != "" {
			n = n.Set("reason", StringNode(e.Reason))
		}
	}
	return n
}
