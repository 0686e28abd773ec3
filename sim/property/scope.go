package property

import (
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/timing"
)

// A Scope registers the properties of one component and unregisters them
// all at teardown. The first registration error sticks: later registrations
// are skipped and Err reports it.
type Scope struct {
	registry   *Registry
	owner      string
	unregister []func()
	err        error
}

// NewScope creates a scope for the component with the given name.
func NewScope(r *Registry, owner string) *Scope {
	return &Scope{registry: r, owner: owner}
}

// Owner returns the name of the component.
func (s *Scope) Owner() string {
	return s.owner
}

// Err returns the first registration error.
func (s *Scope) Err() error {
	return s.err
}

// Close unregisters every property of the scope.
func (s *Scope) Close() {
	for i := len(s.unregister) - 1; i >= 0; i-- {
		s.unregister[i]()
	}

	s.unregister = nil
}

// Add registers the property <owner>.<leaf> in the scope. After an error it
// returns a property holding the default that is not registered.
func Add[T any](s *Scope, leaf string, def T, parse Parser[T]) *Typed[T] {
	name := naming.BuildName(s.owner, leaf)

	if s.err != nil {
		return &Typed[T]{name: name, value: def, parse: parse}
	}

	p, err := New(s.registry, name, def, parse)
	if err != nil {
		s.err = err
		return &Typed[T]{name: name, value: def, parse: parse}
	}

	s.unregister = append(s.unregister, p.Unregister)

	return p
}

// AddUint registers an unsigned integer property in the scope.
func (s *Scope) AddUint(leaf string, def uint64) *Typed[uint64] {
	return Add(s, leaf, def, ParseUint)
}

// AddBool registers a boolean property in the scope.
func (s *Scope) AddBool(leaf string, def bool) *Typed[bool] {
	return Add(s, leaf, def, ParseBool)
}

// AddString registers a text property in the scope.
func (s *Scope) AddString(leaf string, def string) *Typed[string] {
	return Add(s, leaf, def, ParseString)
}

// AddTime registers a simulated-time property in the scope.
func (s *Scope) AddTime(leaf string, def timing.VTime) *Typed[timing.VTime] {
	return Add(s, leaf, def, timing.ParseTime)
}

// AddFreq registers a frequency property in the scope.
func (s *Scope) AddFreq(leaf string, def timing.Freq) *Typed[timing.Freq] {
	return Add(s, leaf, def, timing.ParseFreq)
}
