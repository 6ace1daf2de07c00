// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package player is the embedding host: a playback core with named
// properties, commands, input sections and a client API that scripting
// backends drive. Clients talk to the core through Client handles and
// receive events over per-client queues.
package player

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Format identifies the type of a property or node value.
type Format int

const (
	FormatNone Format = iota
	FormatString
	FormatOSDString
	FormatFlag
	FormatInt64
	FormatDouble
	FormatNode
	FormatNodeArray
	FormatNodeMap
)

var formatNames = map[Format]string{
	FormatNone:      "none",
	FormatString:    "string",
	FormatOSDString: "osd-string",
	FormatFlag:      "flag",
	FormatInt64:     "int64",
	FormatDouble:    "double",
	FormatNode:      "node",
	FormatNodeArray: "node-array",
	FormatNodeMap:   "node-map",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Node is a dynamically typed value passed between the core and
// clients. Format selects which field is meaningful. Maps keep
// insertion order: Keys[i] names List[i].
type Node struct {
	Format Format
	Flag   bool
	Int    int64
	Double float64
	Str    string
	List   []Node
	Keys   []string
}

// NoneNode returns the empty value.
func NoneNode() Node { return Node{Format: FormatNone} }

// FlagNode returns a boolean value.
func FlagNode(v bool) Node { return Node{Format: FormatFlag, Flag: v} }

// IntNode returns an integer value.
func IntNode(v int64) Node { return Node{Format: FormatInt64, Int: v} }

// DoubleNode returns a floating point value.
func DoubleNode(v float64) Node { return Node{Format: FormatDouble, Double: v} }

// StringNode returns a string value.
func StringNode(v string) Node { return Node{Format: FormatString, Str: v} }

// ArrayNode returns an array value holding items.
func ArrayNode(items ...Node) Node {
	return Node{Format: FormatNodeArray, List: items}
}

// MapNode returns an empty map value. Populate it with Set.
func MapNode() Node {
	return Node{Format: FormatNodeMap}
}

// Set appends or replaces key in a map node and returns the node.
func (n Node) Set(key string, v Node) Node {
	for i, k := range n.Keys {
		if k == key {
			n.List[i] = v
			return n
		}
	}
	n.Keys = append(n.Keys, key)
	n.List = append(n.List, v)
	return n
}

// Get looks key up in a map node.
func (n Node) Get(key string) (Node, bool) {
	for i, k := range n.Keys {
		if k == key {
			return n.List[i], true
		}
	}
	return Node{}, false
}

// Copy returns a deep copy of n.
func (n Node) Copy() Node {
	c := n
	if n.List != nil {
		c.List = make([]Node, len(n.List))
		for i := range n.List {
			c.List[i] = n.List[i].Copy()
		}
	}
	if n.Keys != nil {
		c.Keys = append([]string(nil), n.Keys...)
	}
	return c
}

// Equal reports whether two nodes are structurally equal. Map key
// order is not significant.
func (n Node) Equal(o Node) bool {
	if n.Format != o.Format {
		return false
	}
	switch n.Format {
	case FormatNone:
		return true
	case FormatFlag:
		return n.Flag == o.Flag
	case FormatInt64:
		return n.Int == o.Int
	case FormatDouble:
		return n.Double == o.Double
	case FormatString, FormatOSDString:
		return n.Str == o.Str
	case FormatNodeArray:
		if len(n.List) != len(o.List) {
			return false
		}
		for i := range n.List {
			if !n.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case FormatNodeMap:
		if len(n.Keys) != len(o.Keys) {
			return false
		}
		for i, k := range n.Keys {
			ov, ok := o.Get(k)
			if !ok || !n.List[i].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders n for logs and OSD text.
func (n Node) String() string {
	switch n.Format {
	case FormatNone:
		return ""
	case FormatFlag:
		if n.Flag {
			return "yes"
		}
		return "no"
	case FormatInt64:
		return strconv.FormatInt(n.Int, 10)
	case FormatDouble:
		return strconv.FormatFloat(n.Double, 'f', -1, 64)
	case FormatString, FormatOSDString:
		return n.Str
	case FormatNodeArray:
		parts := make([]string, len(n.List))
		for i, it := range n.List {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case FormatNodeMap:
		parts := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			parts[i] = k + "=" + n.List[i].String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return ""
}

// SortedKeys returns the map node's keys in sorted order. Used where
// deterministic iteration matters more than insertion order.
func (n Node) SortedKeys() []string {
	keys := append([]string(nil), n.Keys...)
	sort.Strings(keys)
	return keys
}

// ConvertTo coerces n to the requested format. FormatNode and
// FormatNone accept any value unchanged. Numeric conversions follow
// property access rules: int64 and double convert into each other,
// anything converts to its string rendering.
func (n Node) ConvertTo(f Format) (Node, error) {
	switch f {
	case FormatNone, FormatNode:
		return n, nil
	case FormatString, FormatOSDString:
		if n.Format == FormatNodeArray || n.Format == FormatNodeMap {
			return Node{}, ErrPropertyFormat
		}
		return Node{Format: f, Str: n.String()}, nil
	case FormatFlag:
		if n.Format == FormatFlag {
			return n, nil
		}
		return Node{}, ErrPropertyFormat
	case FormatInt64:
		switch n.Format {
		case FormatInt64:
			return n, nil
		case FormatDouble:
			return IntNode(int64(n.Double)), nil
		}
		return Node{}, ErrPropertyFormat
	case FormatDouble:
		switch n.Format {
		case FormatInt64:
			return DoubleNode(float64(n.Int)), nil
		case FormatDouble:
			return n, nil
		}
		return Node{}, ErrPropertyFormat
	case FormatNodeArray:
		if n.Format == FormatNodeArray {
			return n, nil
		}
		return Node{}, ErrPropertyFormat
	case FormatNodeMap:
		if n.Format == FormatNodeMap {
			return n, nil
		}
		return Node{}, ErrPropertyFormat
	}
	return Node{}, ErrPropertyFormat
}
