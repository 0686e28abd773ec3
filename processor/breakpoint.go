package processor

import (
	"fmt"
	"sort"

	"github.com/slahiruk/vcml/sim/hooking"
)

// InsertBreakpoint sets a breakpoint. It fails with ErrUnsupported when the
// core does not handle breakpoints.
func (c *Processor) InsertBreakpoint(addr uint64) error {
	if c.bpHandler == nil {
		return ErrUnsupported
	}

	if _, found := c.breakpoints[addr]; found {
		return fmt.Errorf("breakpoint at 0x%x already set", addr)
	}

	if err := c.bpHandler.InsertBreakpoint(addr); err != nil {
		return err
	}

	c.breakpoints[addr] = struct{}{}

	return nil
}

// RemoveBreakpoint clears a breakpoint.
func (c *Processor) RemoveBreakpoint(addr uint64) error {
	if c.bpHandler == nil {
		return ErrUnsupported
	}

	if _, found := c.breakpoints[addr]; !found {
		return fmt.Errorf("no breakpoint at 0x%x", addr)
	}

	if err := c.bpHandler.RemoveBreakpoint(addr); err != nil {
		return err
	}

	delete(c.breakpoints, addr)

	return nil
}

// Breakpoints lists the breakpoint addresses in order.
func (c *Processor) Breakpoints() ([]uint64, error) {
	if c.bpHandler == nil {
		return nil, ErrUnsupported
	}

	list := make([]uint64, 0, len(c.breakpoints))
	for addr := range c.breakpoints {
		list = append(list, addr)
	}

	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

	return list, nil
}

// IsBreakpoint tells if a breakpoint is set at addr.
func (c *Processor) IsBreakpoint(addr uint64) bool {
	_, found := c.breakpoints[addr]
	return found
}

// HitBreakpoint is called by the core when it reaches a breakpoint. The
// simulation stops after the current event.
func (c *Processor) HitBreakpoint(addr uint64) {
	c.logger.Info("breakpoint hit",
		"addr", fmt.Sprintf("0x%016x", addr), "time", c.kernel.Now().String())

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosBreakpoint,
		Item:   addr,
	})

	c.kernel.Stop()
}
