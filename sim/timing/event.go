package timing

import (
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/id"
)

// An Event is scheduled on a kernel and handled at its time.
type Event interface {
	Time() VTime
	Handler() Handler
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// HookPosDeltaCycle triggers when all events of one delta cycle are handled.
var HookPosDeltaCycle = &hooking.HookPos{Name: "DeltaCycle"}

// HookPosTimeStep triggers when all events at one point in time are handled,
// right before simulated time advances.
var HookPosTimeStep = &hooking.HookPos{Name: "TimeStep"}

// EventBase carries the ID, time and handler shared by all events.
type EventBase struct {
	ID      string
	time    VTime
	handler Handler
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTime, handler Handler) *EventBase {
	return &EventBase{ID: id.Generate(), time: t, handler: handler}
}

// Time returns when the event is handled.
func (e EventBase) Time() VTime {
	return e.time
}

// Handler returns the handler of the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// A Handler handles events. An event belongs to the handler that scheduled
// it and only changes that handler's state directly.
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e Event) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}
