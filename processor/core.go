// Package processor provides the parts every simulated processor shares:
// instruction and data ports with fetch, read and write helpers, interrupt
// bookkeeping, breakpoints, a symbol table, debug commands and the run loop
// that drives a core through simulated time.
//
// A concrete instruction set plugs in as a Core. Beyond Simulate, a core
// may implement any of the optional capability interfaces; the processor
// falls back to a documented default for each capability that is absent.
package processor

import (
	"errors"

	"github.com/slahiruk/vcml/sim/hooking"
)

// ErrUnsupported is returned for debug operations the core does not
// provide.
var ErrUnsupported = errors.New("unsupported")

// HookPosBreakpoint triggers when the core reports hitting a breakpoint. The
// hook item is the address.
var HookPosBreakpoint = &hooking.HookPos{Name: "Breakpoint"}

// HookPosBusError triggers when a fetch, read or write fails. The hook item
// is the *BusError.
var HookPosBusError = &hooking.HookPos{Name: "BusError"}

// A Core executes instructions.
type Core interface {
	// Simulate executes up to budget cycles and returns how many cycles it
	// used. Returning 0 means the core has nothing more to do.
	Simulate(budget uint64) uint64
}

// An Attacher is a Core that wants to reach the processor it runs in.
type Attacher interface {
	Attach(p *Processor)
}

// Registers expose the architectural state of a core. Without it, the
// program counter, stack pointer and core ID read as 0 and writes are
// dropped.
type Registers interface {
	ProgramCounter() uint64
	StackPointer() uint64
	CoreID() uint64
	SetProgramCounter(v uint64)
	SetStackPointer(v uint64)
	SetCoreID(v uint64)
}

// A RegisterDumper renders the full register state for the dump command.
type RegisterDumper interface {
	DumpRegisters() string
}

// A BreakpointHandler wires breakpoints into the execution loop of a core.
// Without it, breakpoint operations fail with ErrUnsupported.
type BreakpointHandler interface {
	InsertBreakpoint(addr uint64) error
	RemoveBreakpoint(addr uint64) error
}

// An AddressTranslator maps virtual to physical addresses. Without it,
// translation is the identity.
type AddressTranslator interface {
	VirtToPhys(va uint64) (uint64, bool)
}

// An InterruptHandler learns about interrupt edges after the processor has
// updated its statistics.
type InterruptHandler interface {
	HandleInterrupt(line uint, asserted bool)
}
