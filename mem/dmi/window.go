// Package dmi provides direct-access windows. A target grants a window over
// a range of its memory, and initiators that hold the window read and write
// that memory without dispatching transactions.
package dmi

import (
	"fmt"

	"github.com/slahiruk/vcml/mem/tlm"
)

// Access is the permission a window grants.
type Access int

// The possible permissions.
const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

// Allows tells if a read, or a write if forWrite is set, is permitted.
func (a Access) Allows(forWrite bool) bool {
	if forWrite {
		return a == AccessWrite || a == AccessReadWrite
	}

	return a == AccessRead || a == AccessReadWrite
}

// ConflictsWith tells if two permissions cannot coexist in one cache over
// the same addresses.
func (a Access) ConflictsWith(b Access) bool {
	return a != b
}

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "r"
	case AccessWrite:
		return "w"
	case AccessReadWrite:
		return "rw"
	default:
		return "none"
	}
}

// A Window is a range of target memory that can be accessed directly. Mem
// backs exactly Range; Mem[0] is the byte at Range.Start.
//
// Once the owner revokes the window, Mem must not be used anymore.
type Window struct {
	Range  tlm.Range
	Access Access
	Mem    []byte
	Owner  string
}

// Covers tells if n bytes at addr lie in the window. Accesses that wrap
// past the top of the address space are never covered.
func (w Window) Covers(addr, n uint64) bool {
	if tlm.Wraps(addr, n) {
		return false
	}

	return w.Range.Includes(tlm.NewRange(addr, n))
}

// Slice returns the memory backing n bytes at addr.
func (w Window) Slice(addr, n uint64) []byte {
	if !w.Covers(addr, n) {
		panic(fmt.Sprintf("access 0x%x+%d outside window %s",
			addr, n, w.Range))
	}

	off := addr - w.Range.Start

	return w.Mem[off : off+n]
}

// Clip returns the part of the window that lies in r. The window must
// overlap r.
func (w Window) Clip(r tlm.Range) Window {
	in := w.Range.Intersect(r)
	off := in.Start - w.Range.Start

	w.Mem = w.Mem[off : off+in.Length()]
	w.Range = in

	return w
}

// Shift moves the window by an address offset, translating it into another
// address space.
func (w Window) Shift(from, to uint64) Window {
	w.Range.Start = w.Range.Start - from + to
	w.Range.End = w.Range.End - from + to

	return w
}
