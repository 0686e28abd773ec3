// Package stats gathers the statistics of processors and endpoints at the
// end of a run and writes them to a data recorder.
package stats

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/slahiruk/vcml/datarecording"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/processor"
	"github.com/slahiruk/vcml/sim/timing"
)

// Table names used by Record.
const (
	IrqTable       = "irq_stats"
	EndpointTable  = "endpoint_stats"
	ProcessorTable = "processor_stats"
)

// IrqEntry is one row of the interrupt table. Times are in picoseconds.
type IrqEntry struct {
	Component  string
	Line       uint64
	Count      uint64
	Asserted   bool
	LastAssert uint64
	Cumulative uint64
	Longest    uint64
}

// EndpointEntry is one row of the endpoint table. Fields that do not apply
// to the kind of endpoint are zero.
type EndpointEntry struct {
	Endpoint          string
	Kind              string
	Transactions      uint64
	DebugTransactions uint64
	Errors            uint64
	Hits              uint64
	Misses            uint64
	BytesRead         uint64
	BytesWritten      uint64
	WindowQueries     uint64
	WindowGrants      uint64
	MaxWaiters        uint64
	AvgLatency        uint64
	MaxLatency        uint64
}

// ProcessorEntry is one row of the processor table.
type ProcessorEntry struct {
	Component string
	Cycles    uint64
	RunTime   float64
	CPS       float64
}

// A Collector knows the components whose statistics are recorded.
type Collector struct {
	processors []*processor.Processor
	targets    []*port.Target
	initiators []*port.Initiator
	latency    *LatencyAnalyzer
}

// NewCollector creates a Collector that measures target latency with the
// time of tt.
func NewCollector(tt timing.TimeTeller) *Collector {
	return &Collector{latency: NewLatencyAnalyzer(tt)}
}

// RegisterProcessor adds a processor and its two initiators.
func (c *Collector) RegisterProcessor(p *processor.Processor) {
	c.processors = append(c.processors, p)
	c.RegisterInitiator(p.Insn)
	c.RegisterInitiator(p.Data)
}

// RegisterTarget adds a target and starts measuring its latency.
func (c *Collector) RegisterTarget(t *port.Target) {
	c.targets = append(c.targets, t)
	t.AcceptHook(c.latency)
}

// RegisterInitiator adds an initiator.
func (c *Collector) RegisterInitiator(i *port.Initiator) {
	c.initiators = append(c.initiators, i)
}

// Latency returns the analyzer that measures the registered targets.
func (c *Collector) Latency() *LatencyAnalyzer {
	return c.latency
}

// IrqEntries returns one entry per signaled line of every processor.
func (c *Collector) IrqEntries() []IrqEntry {
	var entries []IrqEntry

	for _, p := range c.processors {
		for _, st := range p.IrqStats() {
			entries = append(entries, IrqEntry{
				Component:  p.Name(),
				Line:       uint64(st.Line),
				Count:      st.Count,
				Asserted:   st.Asserted,
				LastAssert: uint64(st.LastAssert),
				Cumulative: uint64(st.Cumulative),
				Longest:    uint64(st.Longest),
			})
		}
	}

	return entries
}

// EndpointEntries returns one entry per registered endpoint, ordered by
// name.
func (c *Collector) EndpointEntries() []EndpointEntry {
	entries := make([]EndpointEntry, 0, len(c.targets)+len(c.initiators))

	for _, t := range c.targets {
		st := t.Stats()
		l := c.latency.Latency(t.Name())

		entries = append(entries, EndpointEntry{
			Endpoint:          t.Name(),
			Kind:              "target",
			Transactions:      st.Transactions,
			DebugTransactions: st.DebugAccesses,
			Errors:            st.Errors,
			WindowQueries:     st.WindowQueries,
			WindowGrants:      st.WindowGrants,
			MaxWaiters:        uint64(st.MaxWaiters),
			AvgLatency:        uint64(l.Average()),
			MaxLatency:        uint64(l.Longest),
		})
	}

	for _, i := range c.initiators {
		st := i.Stats()

		entries = append(entries, EndpointEntry{
			Endpoint:          i.Name(),
			Kind:              "initiator",
			Transactions:      st.Transactions,
			DebugTransactions: st.DebugTransactions,
			Errors:            st.Errors,
			Hits:              st.Hits,
			Misses:            st.Misses,
			BytesRead:         st.BytesRead,
			BytesWritten:      st.BytesWritten,
		})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Endpoint < entries[b].Endpoint
	})

	return entries
}

// ProcessorEntries returns one entry per processor.
func (c *Collector) ProcessorEntries() []ProcessorEntry {
	entries := make([]ProcessorEntry, 0, len(c.processors))

	for _, p := range c.processors {
		entries = append(entries, ProcessorEntry{
			Component: p.Name(),
			Cycles:    p.NumCycles(),
			RunTime:   p.RunTime().Seconds(),
			CPS:       p.CPS(),
		})
	}

	return entries
}

// Record writes all statistics into three tables of rec and flushes it.
func (c *Collector) Record(rec datarecording.Recorder) error {
	tables := []struct {
		name   string
		sample any
	}{
		{IrqTable, IrqEntry{}},
		{EndpointTable, EndpointEntry{}},
		{ProcessorTable, ProcessorEntry{}},
	}

	for _, t := range tables {
		if err := rec.CreateTable(t.name, t.sample); err != nil {
			return err
		}
	}

	for _, e := range c.IrqEntries() {
		if err := rec.InsertData(IrqTable, e); err != nil {
			return err
		}
	}

	for _, e := range c.EndpointEntries() {
		if err := rec.InsertData(EndpointTable, e); err != nil {
			return err
		}
	}

	for _, e := range c.ProcessorEntries() {
		if err := rec.InsertData(ProcessorTable, e); err != nil {
			return err
		}
	}

	return rec.Flush()
}

// Report prints a human readable summary.
func (c *Collector) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, e := range c.ProcessorEntries() {
		fmt.Fprintf(tw, "%s\tcycles %d\t%.0f cycles/s\n",
			e.Component, e.Cycles, e.CPS)
	}

	for _, e := range c.IrqEntries() {
		fmt.Fprintf(tw, "%s\tirq %d\tcount %d\tlongest %s\n",
			e.Component, e.Line, e.Count, timing.VTime(e.Longest))
	}

	for _, e := range c.EndpointEntries() {
		fmt.Fprintf(tw, "%s\t%s\ttransactions %d\terrors %d\n",
			e.Endpoint, e.Kind, e.Transactions, e.Errors)
	}

	return tw.Flush()
}
