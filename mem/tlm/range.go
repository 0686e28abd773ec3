package tlm

import "fmt"

// A Range is an inclusive address range [Start, End].
type Range struct {
	Start uint64
	End   uint64
}

// NewRange creates the range of size bytes that starts at addr. A zero size
// gives the range of the single address addr.
func NewRange(addr, size uint64) Range {
	if size == 0 {
		return Range{Start: addr, End: addr}
	}

	return Range{Start: addr, End: addr + size - 1}
}

// Wraps tells if size bytes at addr run past the top of the address space.
func Wraps(addr, size uint64) bool {
	return size > 0 && addr+size-1 < addr
}

// Length returns the number of addresses in the range.
func (r Range) Length() uint64 {
	return r.End - r.Start + 1
}

// Contains tells if an address lies in the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr <= r.End
}

// Includes tells if another range lies completely in the range.
func (r Range) Includes(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps tells if two ranges share at least one address.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Intersect returns the addresses shared by two overlapping ranges.
func (r Range) Intersect(other Range) Range {
	return Range{
		Start: max(r.Start, other.Start),
		End:   min(r.End, other.End),
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%016x..0x%016x]", r.Start, r.End)
}
