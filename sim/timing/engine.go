// Package timing provides simulated time and the cooperative kernel that
// runs simulation processes one at a time.
package timing

import "github.com/slahiruk/vcml/sim/hooking"

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run will process all the events until the simulation finishes.
	Run() error

	// RunUntil processes all the events scheduled no later than t and then
	// advances the time to t.
	RunUntil(t VTime) error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation.
	Continue()

	// Paused tells if Pause has been called without a matching Continue.
	Paused() bool
}
