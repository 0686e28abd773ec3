// Package debug provides the inspection facilities of simulated processors:
// symbol tables loaded from program images and the contract of a pluggable
// disassembler.
package debug

import (
	"fmt"
	"sort"
)

// SymbolKind tells what a symbol names.
type SymbolKind int

// The kinds of symbols.
const (
	SymbolUnknown SymbolKind = iota
	SymbolFunction
	SymbolObject
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolObject:
		return "object"
	default:
		return "unknown"
	}
}

// A Symbol names an address of the program.
type Symbol struct {
	Name    string
	Address uint64
	Size    uint64
	Kind    SymbolKind
}

// Contains tells if addr lies in the symbol. A symbol without a size only
// contains its own address.
func (s Symbol) Contains(addr uint64) bool {
	if s.Size == 0 {
		return addr == s.Address
	}

	return addr >= s.Address && addr-s.Address < s.Size
}

func (s Symbol) String() string {
	return fmt.Sprintf("0x%016x %-8s %6d %s", s.Address, s.Kind, s.Size, s.Name)
}

// A SymbolTable answers name and address lookups. It is read-only once
// loaded.
type SymbolTable interface {
	// LookupAddress finds the symbol that holds addr and the offset of addr
	// in it.
	LookupAddress(addr uint64) (Symbol, uint64, bool)

	// LookupName finds a symbol by name.
	LookupName(name string) (Symbol, bool)

	// Symbols returns all the symbols ordered by address.
	Symbols() []Symbol

	// Len returns the number of symbols.
	Len() int
}

// Table is a SymbolTable held in memory.
type Table struct {
	byAddr []Symbol
	byName map[string]Symbol
}

// NewTable creates a table holding the symbols.
func NewTable(symbols ...Symbol) *Table {
	t := &Table{byName: make(map[string]Symbol)}

	for _, s := range symbols {
		t.add(s)
	}

	sort.SliceStable(t.byAddr, func(i, j int) bool {
		return t.byAddr[i].Address < t.byAddr[j].Address
	})

	return t
}

func (t *Table) add(s Symbol) {
	if _, found := t.byName[s.Name]; found {
		return
	}

	t.byName[s.Name] = s
	t.byAddr = append(t.byAddr, s)
}

// LookupAddress finds the closest symbol at or below addr. Symbols with a
// size must hold addr; symbols without one match at any offset.
func (t *Table) LookupAddress(addr uint64) (Symbol, uint64, bool) {
	i := sort.Search(len(t.byAddr), func(i int) bool {
		return t.byAddr[i].Address > addr
	})

	for i--; i >= 0; i-- {
		s := t.byAddr[i]
		if s.Size == 0 || s.Contains(addr) {
			return s, addr - s.Address, true
		}
	}

	return Symbol{}, 0, false
}

// LookupName finds a symbol by name.
func (t *Table) LookupName(name string) (Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Symbols returns all the symbols ordered by address.
func (t *Table) Symbols() []Symbol {
	list := make([]Symbol, len(t.byAddr))
	copy(list, t.byAddr)

	return list
}

// Len returns the number of symbols.
func (t *Table) Len() int {
	return len(t.byAddr)
}
