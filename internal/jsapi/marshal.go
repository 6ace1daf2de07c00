// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"strconv"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/player"
)

// makeNode converts a script value into a player node. Numbers become
// int64 when the value survives the round trip through int64 exactly,
// double otherwise. Arrays convert by index, other objects by their
// own enumerable keys. Values with no node representation become none;
// conversion never fails.
func (a *API) makeNode(v goja.Value) player.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return player.NoneNode()
	}
	switch ev := v.Export().(type) {
	case bool:
		return player.FlagNode(ev)
	case int64:
		return player.IntNode(ev)
	case float64:
		if i := int64(ev); ev == float64(i) {
			return player.IntNode(i)
		}
		return player.DoubleNode(ev)
	case string:
		return player.StringNode(ev)
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return player.NoneNode()
	}
	if obj.ClassName() == "Array" {
		n := obj.Get("length").ToInteger()
		items := make([]player.Node, 0, n)
		for i := int64(0); i < n; i++ {
			items = append(items, a.makeNode(obj.Get(strconv.FormatInt(i, 10))))
		}
		return player.ArrayNode(items...)
	}
	m := player.MapNode()
	for _, key := range obj.Keys() {
		m = m.Set(key, a.makeNode(obj.Get(key)))
	}
	return m
}

// pushNode converts a player node into a script value. None becomes
// null. A node of a format with no script representation becomes the
// string "[UNKNOWN_VALUE_FORMAT]" so it stays visible instead of
// silently vanishing.
func (a *API) pushNode(n player.Node) goja.Value {
	switch n.Format {
	case player.FormatNone:
		return goja.Null()
	case player.FormatString:
		return a.runtime.ToValue(n.Str)
	case player.FormatInt64:
		return a.runtime.ToValue(n.Int)
	case player.FormatDouble:
		return a.runtime.ToValue(n.Double)
	case player.FormatFlag:
		return a.runtime.ToValue(n.Flag)
	case player.FormatNodeArray:
		items := make([]interface{}, len(n.List))
		for i, item := range n.List {
			items[i] = a.pushNode(item)
		}
		return a.runtime.NewArray(items...)
	case player.FormatNodeMap:
		obj := a.runtime.NewObject()
		for i, key := range n.Keys {
			obj.Set(key, a.pushNode(n.List[i]))
		}
		return obj
	default:
		return a.runtime.ToValue("[UNKNOWN_VALUE_FORMAT]")
	}
}
