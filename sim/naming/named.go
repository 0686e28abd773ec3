package naming

// Named describes an object that has a name.
type Named interface {
	// Name returns the full hierarchical name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the full hierarchical name.
func (b *NamedBase) Name() string {
	return b.name
}

// LeafName returns the last element of the hierarchical name.
func (b *NamedBase) LeafName() string {
	return Leaf(b.name)
}

// MakeNamedBase creates a new NamedBase. The name must be valid.
func MakeNamedBase(name string) NamedBase {
	NameMustBeValid(name)

	return NamedBase{name: name}
}
