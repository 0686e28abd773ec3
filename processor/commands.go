package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/slahiruk/vcml/debug"
	"github.com/slahiruk/vcml/sim/command"
)

const (
	defaultDisasCount = 10
	disasFetchSize    = 16

	maxReadLength = 64 * 1024
	maxDisasCount = 4096
)

func (c *Processor) registerCommands() {
	c.Register(command.Command{
		Name:    "dump",
		Desc:    "shows the register state",
		Handler: c.cmdDump,
	})
	c.Register(command.Command{
		Name:    "reset",
		Desc:    "clears the cycle counter and run time",
		Handler: c.cmdReset,
	})
	c.Register(command.Command{
		Name:    "read",
		MinArgs: 2,
		Usage:   "<addr> <len>",
		Desc:    "reads memory through the data port",
		Handler: c.cmdRead,
	})
	c.Register(command.Command{
		Name:    "symbols",
		Usage:   "[file]",
		Desc:    "lists the symbols, or loads them from a file",
		Handler: c.cmdSymbols,
	})
	c.Register(command.Command{
		Name:    "lsym",
		MinArgs: 1,
		Usage:   "<name|addr>",
		Desc:    "looks up a symbol",
		Handler: c.cmdLsym,
	})
	c.Register(command.Command{
		Name:    "bp",
		MinArgs: 1,
		Usage:   "<addr>",
		Desc:    "sets a breakpoint",
		Handler: c.cmdBp,
	})
	c.Register(command.Command{
		Name:    "rmbp",
		MinArgs: 1,
		Usage:   "<addr>",
		Desc:    "removes a breakpoint",
		Handler: c.cmdRmbp,
	})
	c.Register(command.Command{
		Name:    "lsbp",
		Desc:    "lists the breakpoints",
		Handler: c.cmdLsbp,
	})
	c.Register(command.Command{
		Name:    "disas",
		Usage:   "[addr] [count]",
		Desc:    "disassembles instructions",
		Handler: c.cmdDisas,
	})
}

// parseAddress reads an address given as a number or as a symbol name.
func (c *Processor) parseAddress(s string) (uint64, error) {
	if c.symbols != nil {
		if sym, found := c.symbols.LookupName(s); found {
			return sym.Address, nil
		}
	}

	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}

	return addr, nil
}

// describe renders an address with the symbol that holds it.
func (c *Processor) describe(addr uint64) string {
	s := fmt.Sprintf("0x%016x", addr)

	if c.symbols == nil {
		return s
	}

	sym, off, found := c.symbols.LookupAddress(addr)
	if !found {
		return s
	}

	if off == 0 {
		return fmt.Sprintf("%s <%s>", s, sym.Name)
	}

	return fmt.Sprintf("%s <%s+0x%x>", s, sym.Name, off)
}

func (c *Processor) cmdDump([]string) (string, error) {
	if c.dumper != nil {
		return c.dumper.DumpRegisters(), nil
	}

	return fmt.Sprintf("PC 0x%016x\nSP 0x%016x\nID %d",
		c.ProgramCounter(), c.StackPointer(), c.CoreID()), nil
}

func (c *Processor) cmdReset([]string) (string, error) {
	c.Reset()
	return "cycle counter and run time cleared", nil
}

func (c *Processor) cmdRead(args []string) (string, error) {
	addr, err := c.parseAddress(args[0])
	if err != nil {
		return "", err
	}

	n, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil || n > maxReadLength {
		return "", command.ErrUsage
	}

	pa, ok := c.VirtToPhys(addr)
	if !ok {
		return "", fmt.Errorf("cannot translate 0x%x", addr)
	}

	buf := make([]byte, n)
	if c.Data.ReadDebug(pa, buf) != len(buf) {
		return "", fmt.Errorf("cannot read %d bytes at 0x%x", n, addr)
	}

	return debug.HexDump(addr, buf), nil
}

func (c *Processor) cmdSymbols(args []string) (string, error) {
	if len(args) > 0 {
		if err := c.LoadSymbols(args[0]); err != nil {
			return "", err
		}

		return fmt.Sprintf("loaded %d symbols from %s",
			c.symbols.Len(), args[0]), nil
	}

	if c.symbols == nil {
		return "", errors.New("no symbols loaded")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d symbols", c.symbols.Len())
	for _, s := range c.symbols.Symbols() {
		b.WriteString("\n")
		b.WriteString(s.String())
	}

	return b.String(), nil
}

func (c *Processor) cmdLsym(args []string) (string, error) {
	if c.symbols == nil {
		return "", errors.New("no symbols loaded")
	}

	if sym, found := c.symbols.LookupName(args[0]); found {
		return sym.String(), nil
	}

	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", fmt.Errorf("symbol %s not found", args[0])
	}

	if _, _, found := c.symbols.LookupAddress(addr); !found {
		return "", fmt.Errorf("no symbol at 0x%x", addr)
	}

	return c.describe(addr), nil
}

func (c *Processor) cmdBp(args []string) (string, error) {
	addr, err := c.parseAddress(args[0])
	if err != nil {
		return "", err
	}

	if err := c.InsertBreakpoint(addr); err != nil {
		return "", err
	}

	return "breakpoint set at " + c.describe(addr), nil
}

func (c *Processor) cmdRmbp(args []string) (string, error) {
	addr, err := c.parseAddress(args[0])
	if err != nil {
		return "", err
	}

	if err := c.RemoveBreakpoint(addr); err != nil {
		return "", err
	}

	return "breakpoint removed at " + c.describe(addr), nil
}

func (c *Processor) cmdLsbp([]string) (string, error) {
	list, err := c.Breakpoints()
	if err != nil {
		return "", err
	}

	if len(list) == 0 {
		return "no breakpoints", nil
	}

	lines := make([]string, len(list))
	for i, addr := range list {
		lines[i] = fmt.Sprintf("%d: %s", i, c.describe(addr))
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Processor) cmdDisas(args []string) (string, error) {
	if c.disassembler == nil {
		return "", ErrUnsupported
	}

	addr := c.ProgramCounter()
	count := uint64(defaultDisasCount)

	if len(args) > 0 {
		var err error
		if addr, err = c.parseAddress(args[0]); err != nil {
			return "", err
		}
	}

	if len(args) > 1 {
		var err error
		count, err = strconv.ParseUint(args[1], 0, 32)
		if err != nil || count > maxDisasCount {
			return "", command.ErrUsage
		}
	}

	lines := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		text, n := c.Disassemble(addr)

		marker := " "
		if addr == c.ProgramCounter() {
			marker = ">"
		}

		lines = append(lines,
			fmt.Sprintf("%s %s: %s", marker, c.describe(addr), text))
		addr += uint64(n)
	}

	return strings.Join(lines, "\n"), nil
}

// Disassemble renders the instruction at a virtual address. Instructions
// that cannot be read or decoded give the placeholder and the minimum
// instruction length. It panics if the core has no disassembler.
func (c *Processor) Disassemble(addr uint64) (string, int) {
	if c.disassembler == nil {
		panic("processor " + c.Name() + " has no disassembler")
	}

	pa, ok := c.VirtToPhys(addr)
	if !ok {
		return debug.Placeholder()
	}

	code := make([]byte, disasFetchSize)
	n := c.Insn.ReadDebug(pa, code)
	if n == 0 {
		code = code[:disasFetchSize/4]
		if c.Insn.ReadDebug(pa, code) == 0 {
			return debug.Placeholder()
		}
	}

	text, length, err := c.disassembler.Disassemble(addr, code)
	if err != nil || length <= 0 {
		return debug.Placeholder()
	}

	return text, length
}

// CanDisassemble tells if the core provides a disassembler.
func (c *Processor) CanDisassemble() bool {
	return c.disassembler != nil
}
