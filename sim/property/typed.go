package property

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slahiruk/vcml/sim/timing"
)

// A Parser converts the textual form of a property into its value.
type Parser[T any] func(s string) (T, error)

// Typed is a property holding a value of type T.
type Typed[T any] struct {
	name       string
	value      T
	parse      Parser[T]
	unregister func()
}

// New registers a typed property. If a provider of the registry knows the
// property, its value replaces the default; a value that does not parse is
// reported as a ConfigurationError.
func New[T any](
	r *Registry,
	name string,
	def T,
	parse Parser[T],
) (*Typed[T], error) {
	p := &Typed[T]{name: name, value: def, parse: parse}

	if s, ok := r.Lookup(name); ok {
		if err := p.Set(s); err != nil {
			return nil, &ConfigurationError{Name: name, Value: s, Err: err}
		}
	}

	p.unregister = r.Register(p)

	return p, nil
}

// Name returns the full name of the property.
func (p *Typed[T]) Name() string {
	return p.name
}

// Get returns the current value.
func (p *Typed[T]) Get() T {
	return p.value
}

// SetValue stores a new value.
func (p *Typed[T]) SetValue(v T) {
	p.value = v
}

// Set parses and stores a new value.
func (p *Typed[T]) Set(s string) error {
	v, err := p.parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}

	p.value = v

	return nil
}

func (p *Typed[T]) String() string {
	return fmt.Sprint(p.value)
}

// Unregister removes the property from its registry.
func (p *Typed[T]) Unregister() {
	if p.unregister != nil {
		p.unregister()
		p.unregister = nil
	}
}

// ParseUint parses an unsigned integer. 0x, 0o and 0b prefixes are accepted.
func ParseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

// ParseInt parses a signed integer. 0x, 0o and 0b prefixes are accepted.
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 0, 64)
}

// ParseBool parses a boolean.
func ParseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}

// ParseString accepts any text.
func ParseString(s string) (string, error) {
	return s, nil
}

// NewUint registers an unsigned integer property.
func NewUint(r *Registry, name string, def uint64) (*Typed[uint64], error) {
	return New(r, name, def, ParseUint)
}

// NewInt registers a signed integer property.
func NewInt(r *Registry, name string, def int64) (*Typed[int64], error) {
	return New(r, name, def, ParseInt)
}

// NewBool registers a boolean property.
func NewBool(r *Registry, name string, def bool) (*Typed[bool], error) {
	return New(r, name, def, ParseBool)
}

// NewString registers a text property.
func NewString(r *Registry, name string, def string) (*Typed[string], error) {
	return New(r, name, def, ParseString)
}

// NewTime registers a simulated-time property such as "10ns".
func NewTime(
	r *Registry,
	name string,
	def timing.VTime,
) (*Typed[timing.VTime], error) {
	return New(r, name, def, timing.ParseTime)
}

// NewFreq registers a frequency property such as "100MHz".
func NewFreq(
	r *Registry,
	name string,
	def timing.Freq,
) (*Typed[timing.Freq], error) {
	return New(r, name, def, timing.ParseFreq)
}
