package processor

import (
	"sort"

	"github.com/slahiruk/vcml/sim/signal"
	"github.com/slahiruk/vcml/sim/timing"
)

// IrqStat is the bookkeeping of one interrupt line.
type IrqStat struct {
	Line       uint
	Count      uint64
	Asserted   bool
	LastAssert timing.VTime
	Cumulative timing.VTime
	Longest    timing.VTime
}

// Interrupt reports the level of an interrupt line. Only edges change the
// statistics; reporting the level a line already has does nothing. The
// core's InterruptHandler, if any, is told about each edge afterwards.
func (c *Processor) Interrupt(line uint, asserted bool) {
	st, found := c.irqs[line]
	if !found {
		st = &IrqStat{Line: line}
		c.irqs[line] = st
	}

	if st.Asserted == asserted {
		return
	}

	now := c.kernel.Now()

	if asserted {
		st.Count++
		st.LastAssert = now
	} else {
		d := now - st.LastAssert
		st.Cumulative += d
		st.Longest = max(st.Longest, d)
	}

	st.Asserted = asserted

	if c.irqHandler != nil {
		c.irqHandler.HandleInterrupt(line, asserted)
	}
}

// IrqStat returns the statistics of a line that has been signaled.
func (c *Processor) IrqStat(line uint) (IrqStat, bool) {
	st, found := c.irqs[line]
	if !found {
		return IrqStat{}, false
	}

	return *st, true
}

// IrqStats returns the statistics of all signaled lines, ordered by line.
func (c *Processor) IrqStats() []IrqStat {
	list := make([]IrqStat, 0, len(c.irqs))
	for _, st := range c.irqs {
		list = append(list, *st)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Line < list[j].Line
	})

	return list
}

// ConnectIRQ drives an interrupt line from a wire.
func (c *Processor) ConnectIRQ(line uint, w *signal.Wire) {
	w.Subscribe(func(asserted bool) {
		c.Interrupt(line, asserted)
	})
}
