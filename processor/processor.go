package processor

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/debug"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/timing"
)

// A Processor drives a Core over its instruction and data ports.
type Processor struct {
	naming.NamedBase
	hooking.HookableBase
	*command.Registry

	// Insn carries instruction fetches and Data carries loads and stores.
	Insn *port.Initiator
	Data *port.Initiator

	core         Core
	regs         Registers
	dumper       RegisterDumper
	bpHandler    BreakpointHandler
	translator   AddressTranslator
	disassembler debug.Disassembler
	irqHandler   InterruptHandler

	kernel *timing.Kernel
	logger *slog.Logger
	fs     afero.Fs

	props   *property.Scope
	clock   *property.Typed[timing.Freq]
	quantum *property.Typed[uint64]
	symPath *property.Typed[string]

	symbols     debug.SymbolTable
	breakpoints map[uint64]struct{}
	irqs        map[uint]*IrqStat

	process       *timing.Process
	stopRequested bool
	cycles        uint64
	runTime       time.Duration
}

// Name resolves the ambiguity between the component and its commands.
func (c *Processor) Name() string {
	return c.NamedBase.Name()
}

// Core returns the core the processor drives.
func (c *Processor) Core() Core {
	return c.core
}

// Kernel returns the kernel the processor runs on.
func (c *Processor) Kernel() *timing.Kernel {
	return c.kernel
}

// Clock returns the frequency of the core.
func (c *Processor) Clock() timing.Freq {
	return c.clock.Get()
}

// Quantum returns the number of cycles the core may run in one step.
func (c *Processor) Quantum() uint64 {
	return c.quantum.Get()
}

// Logger returns the logger of the processor.
func (c *Processor) Logger() *slog.Logger {
	return c.logger
}

// Close removes the properties of the processor from the registry.
func (c *Processor) Close() {
	c.props.Close()
}

// ProgramCounter returns the program counter of the core, or 0.
func (c *Processor) ProgramCounter() uint64 {
	if c.regs == nil {
		return 0
	}

	return c.regs.ProgramCounter()
}

// StackPointer returns the stack pointer of the core, or 0.
func (c *Processor) StackPointer() uint64 {
	if c.regs == nil {
		return 0
	}

	return c.regs.StackPointer()
}

// CoreID returns the ID of the core, or 0.
func (c *Processor) CoreID() uint64 {
	if c.regs == nil {
		return 0
	}

	return c.regs.CoreID()
}

// SetProgramCounter moves the program counter of the core, if it exposes
// its registers.
func (c *Processor) SetProgramCounter(v uint64) {
	if c.regs != nil {
		c.regs.SetProgramCounter(v)
	}
}

// SetStackPointer moves the stack pointer of the core, if it exposes its
// registers.
func (c *Processor) SetStackPointer(v uint64) {
	if c.regs != nil {
		c.regs.SetStackPointer(v)
	}
}

// SetCoreID changes the ID the core reports, if it exposes its registers.
func (c *Processor) SetCoreID(v uint64) {
	if c.regs != nil {
		c.regs.SetCoreID(v)
	}
}

// VirtToPhys translates a virtual address. Cores without translation use
// the identity.
func (c *Processor) VirtToPhys(va uint64) (uint64, bool) {
	if c.translator == nil {
		return va, true
	}

	return c.translator.VirtToPhys(va)
}

// Symbols returns the symbol table, or nil when none is loaded.
func (c *Processor) Symbols() debug.SymbolTable {
	return c.symbols
}

// SetSymbols replaces the symbol table.
func (c *Processor) SetSymbols(t debug.SymbolTable) {
	c.symbols = t
}

// LoadSymbols reads the symbol table from a program image.
func (c *Processor) LoadSymbols(path string) error {
	t, err := debug.LoadSymbols(c.fs, path)
	if err != nil {
		return err
	}

	c.symbols = t
	c.logger.Info("symbols loaded", "path", path, "count", t.Len())

	return nil
}
