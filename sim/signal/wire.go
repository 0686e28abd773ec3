// Package signal provides boolean wires, such as interrupt lines, that
// connect a driver to any number of listeners.
package signal

import (
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/naming"
)

// HookPosEdge triggers whenever the level of a wire changes. The hook item is
// the new level.
var HookPosEdge = &hooking.HookPos{Name: "Edge"}

// A Listener is notified with the new level when a wire changes.
type Listener func(asserted bool)

// A Wire carries a boolean level. Writing the level it already holds does not
// notify anyone.
type Wire struct {
	naming.NamedBase
	hooking.HookableBase

	level     bool
	listeners []Listener
}

// NewWire creates a deasserted wire.
func NewWire(name string) *Wire {
	return &Wire{NamedBase: naming.MakeNamedBase(name)}
}

// Read returns the current level.
func (w *Wire) Read() bool {
	return w.level
}

// Subscribe registers a listener. Listeners are notified in the order they
// subscribed.
func (w *Wire) Subscribe(l Listener) {
	w.listeners = append(w.listeners, l)
}

// NumListeners returns the number of subscribed listeners.
func (w *Wire) NumListeners() int {
	return len(w.listeners)
}

// Write drives the wire to a level.
func (w *Wire) Write(asserted bool) {
	if w.level == asserted {
		return
	}

	w.level = asserted

	w.InvokeHook(hooking.HookCtx{
		Domain: w,
		Pos:    HookPosEdge,
		Item:   asserted,
	})

	for _, l := range w.listeners {
		l(asserted)
	}
}

// Raise asserts the wire.
func (w *Wire) Raise() {
	w.Write(true)
}

// Lower deasserts the wire.
func (w *Wire) Lower() {
	w.Write(false)
}
