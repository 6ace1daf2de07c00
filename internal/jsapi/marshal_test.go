// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"reflect"
	"testing"

	"github.com/dop251/goja"

	"github.com/amp-player/amp/internal/msg"
	"github.com/amp-player/amp/internal/player"
)

func newTestAPI(t *testing.T) (*API, *goja.Runtime, *player.Core) {
	t.Helper()
	core := player.NewCore(msg.NewBus(nil))
	t.Cleanup(core.Shutdown)
	client := core.CreateClient("test")
	client.MarkInitialized()
	t.Cleanup(client.Destroy)
	vm := goja.New()
	api := NewAPI(client, vm, "/scripts/test.js")
	if err := api.RegisterAll(); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return api, vm, core
}

func runJS(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	if err != nil {
		t.Fatalf("script %q failed: %v", src, err)
	}
	return v
}

// wantThrow runs src expecting a thrown value with exactly text want.
func wantThrow(t *testing.T, vm *goja.Runtime, src, want string) {
	t.Helper()
	_, err := vm.RunString(src)
	if err == nil {
		t.Fatalf("script %q: expected exception, got none", src)
	}
	exc, ok := err.(*goja.Exception)
	if !ok {
		t.Fatalf("script %q: error %v is not a script exception", src, err)
	}
	if got := exc.Value().String(); got != want {
		t.Errorf("script %q: threw %q, want %q", src, got, want)
	}
}

func TestMakeNode(t *testing.T) {
	api, vm, _ := newTestAPI(t)

	tests := []struct {
		name string
		src  string
		want player.Node
	}{
		{"integer", "42", player.IntNode(42)},
		{"negative integer", "-3", player.IntNode(-3)},
		{"integral float", "2.0", player.IntNode(2)},
		{"exponent integral", "1e3", player.IntNode(1000)},
		{"fraction", "42.5", player.DoubleNode(42.5)},
		{"bool", "true", player.FlagNode(true)},
		{"string", "'hi'", player.StringNode("hi")},
		{"null", "null", player.NoneNode()},
		{"undefined", "undefined", player.NoneNode()},
		{"array", "[1, 'a', true]",
			player.ArrayNode(player.IntNode(1), player.StringNode("a"), player.FlagNode(true))},
		{"object", "({x: 1, y: 'b'})",
			player.MapNode().Set("x", player.IntNode(1)).Set("y", player.StringNode("b"))},
		{"nested", "({l: [1.5, null]})",
			player.MapNode().Set("l", player.ArrayNode(player.DoubleNode(1.5), player.NoneNode()))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := runJS(t, vm, tt.src)
			got := api.makeNode(v)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("makeNode(%s) = %+v, want %+v", tt.src, got, tt.want)
			}
		})
	}
}

// Object keys marshal in script insertion order.
func TestMakeNodeKeyOrder(t *testing.T) {
	api, vm, _ := newTestAPI(t)
	n := api.makeNode(runJS(t, vm, "({b: 1, a: 2})"))
	if !reflect.DeepEqual(n.Keys, []string{"b", "a"}) {
		t.Errorf("keys = %v, want [b a]", n.Keys)
	}
}

// Values with no node representation become none or an empty map, but
// never an error.
func TestMakeNodeOddValues(t *testing.T) {
	api, vm, _ := newTestAPI(t)

	fn := api.makeNode(runJS(t, vm, "(function(){})"))
	if fn.Format != player.FormatNodeMap || len(fn.Keys) != 0 {
		t.Errorf("function marshalled to %+v, want empty map", fn)
	}
	if got := api.makeNode(nil); got.Format != player.FormatNone {
		t.Errorf("nil value marshalled to %+v, want none", got)
	}
}

func TestPushNode(t *testing.T) {
	api, _, _ := newTestAPI(t)

	tests := []struct {
		name string
		node player.Node
		want interface{}
	}{
		{"int", player.IntNode(7), int64(7)},
		{"double", player.DoubleNode(0.5), 0.5},
		{"flag", player.FlagNode(true), true},
		{"string", player.StringNode("x"), "x"},
		{"array", player.ArrayNode(player.IntNode(1), player.StringNode("a")),
			[]interface{}{int64(1), "a"}},
		{"map", player.MapNode().Set("k", player.FlagNode(false)),
			map[string]interface{}{"k": false}},
		{"unknown format", player.Node{Format: player.Format(42)}, "[UNKNOWN_VALUE_FORMAT]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := api.pushNode(tt.node).Export()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pushNode(%+v) exported %#v, want %#v", tt.node, got, tt.want)
			}
		})
	}

	if v := api.pushNode(player.NoneNode()); !goja.IsNull(v) {
		t.Errorf("pushNode(none) = %v, want null", v)
	}
}

// A node survives the trip into script values and back unchanged.
func TestNodeRoundTrip(t *testing.T) {
	api, _, _ := newTestAPI(t)

	n := player.MapNode().
		Set("title", player.StringNode("song")).
		Set("tracks", player.ArrayNode(player.IntNode(1), player.IntNode(2))).
		Set("gain", player.DoubleNode(-3.5)).
		Set("muted", player.FlagNode(false)).
		Set("tag", player.NoneNode())
	got := api.makeNode(api.pushNode(n))
	if !reflect.DeepEqual(got, n) {
		t.Errorf("round trip changed node:\n got %+v\nwant %+v", got, n)
	}
}
