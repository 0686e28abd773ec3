package bus

import (
	"fmt"
	"math"
	"sort"

	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
)

// A Mapping routes an address range of the bus to a target. Addresses are
// translated so that Range.Start becomes Offset in the target.
type Mapping struct {
	Range  tlm.Range
	Offset uint64
	Out    *port.Initiator
}

// ToTarget translates a bus address into the target's address space.
func (m *Mapping) ToTarget(addr uint64) uint64 {
	return addr - m.Range.Start + m.Offset
}

// TargetRange returns the range of target addresses the mapping reaches.
func (m *Mapping) TargetRange() tlm.Range {
	return tlm.Range{
		Start: m.Offset,
		End:   m.Offset + (m.Range.End - m.Range.Start),
	}
}

// ToBus translates a range of target addresses, which must overlap
// TargetRange, back into bus addresses.
func (m *Mapping) ToBus(r tlm.Range) tlm.Range {
	in := m.TargetRange().Intersect(r)

	return tlm.Range{
		Start: in.Start - m.Offset + m.Range.Start,
		End:   in.End - m.Offset + m.Range.Start,
	}
}

// An AddressMapper finds the mapping that should serve an address.
type AddressMapper interface {
	Find(addr uint64) (*Mapping, bool)
}

// RangeMapper finds mappings by non-overlapping address ranges. Addresses
// outside all ranges go to the Default mapping, if there is one.
type RangeMapper struct {
	mappings []*Mapping
	Default  *Mapping
}

// NewRangeMapper creates an empty RangeMapper.
func NewRangeMapper() *RangeMapper {
	return &RangeMapper{}
}

// Add inserts a mapping. It fails if the range overlaps an existing one.
func (f *RangeMapper) Add(m *Mapping) error {
	for _, old := range f.mappings {
		if old.Range.Overlaps(m.Range) {
			return fmt.Errorf("range %s overlaps %s", m.Range, old.Range)
		}
	}

	f.mappings = append(f.mappings, m)
	sort.Slice(f.mappings, func(i, j int) bool {
		return f.mappings[i].Range.Start < f.mappings[j].Range.Start
	})

	return nil
}

// Find returns the mapping that holds the address.
func (f *RangeMapper) Find(addr uint64) (*Mapping, bool) {
	i := sort.Search(len(f.mappings), func(i int) bool {
		return f.mappings[i].Range.End >= addr
	})

	if i < len(f.mappings) && f.mappings[i].Range.Contains(addr) {
		return f.mappings[i], true
	}

	if f.Default != nil {
		return f.Default, true
	}

	return nil, false
}

// Gap returns the largest range around addr that no ranged mapping holds.
// addr must lie outside all ranged mappings.
func (f *RangeMapper) Gap(addr uint64) tlm.Range {
	gap := tlm.Range{Start: 0, End: math.MaxUint64}

	for _, m := range f.mappings {
		if m.Range.End < addr && m.Range.End >= gap.Start {
			gap.Start = m.Range.End + 1
		}

		if m.Range.Start > addr && m.Range.Start <= gap.End {
			gap.End = m.Range.Start - 1
		}
	}

	return gap
}

// Mappings returns the ranged mappings ordered by address.
func (f *RangeMapper) Mappings() []*Mapping {
	return f.mappings
}
