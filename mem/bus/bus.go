// Package bus provides an address-mapped interconnect. Transactions that
// enter through the bus's ports are forwarded to the target mapped at their
// address, and direct-access windows and their invalidations are translated
// between the address spaces on both sides.
package bus

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/slahiruk/vcml/mem/dmi"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/timing"
)

// Comp is a bus.
type Comp struct {
	naming.NamedBase
	*command.Registry

	logger  *slog.Logger
	props   *property.Scope
	latency *property.Typed[timing.VTime]

	mapper  *RangeMapper
	inbound []*port.Target
	numOut  int
}

// Builder can build buses.
type Builder struct {
	registry *property.Registry
	logger   *slog.Logger
	latency  timing.VTime
}

// MakeBuilder returns a Builder for a bus without forwarding latency.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRegistry sets the property registry the bus registers in.
func (b Builder) WithRegistry(r *property.Registry) Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger of the bus.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithLatency sets the default time a forwarded transaction takes on the
// bus itself.
func (b Builder) WithLatency(t timing.VTime) Builder {
	b.latency = t
	return b
}

// Build creates a bus.
func (b Builder) Build(name string) (*Comp, error) {
	if b.registry == nil {
		b.registry = property.NewRegistry()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	c := &Comp{
		NamedBase: naming.MakeNamedBase(name),
		Registry:  command.NewRegistry(name),
		logger:    b.logger.With("component", name),
		mapper:    NewRangeMapper(),
	}

	c.props = property.NewScope(b.registry, name)
	c.latency = c.props.AddTime("Latency", b.latency)

	if err := c.props.Err(); err != nil {
		c.props.Close()
		return nil, err
	}

	c.Register(command.Command{
		Name:    "mmap",
		Desc:    "shows the memory map",
		Handler: c.cmdMmap,
	})

	return c, nil
}

// Name resolves the ambiguity between the component and its commands.
func (c *Comp) Name() string {
	return c.NamedBase.Name()
}

// Close removes the properties of the bus from the registry.
func (c *Comp) Close() {
	c.props.Close()
}

// NewPort creates an inbound port that initiators bind to.
func (c *Comp) NewPort(leaf string) *port.Target {
	t := port.NewTarget(naming.BuildName(c.Name(), leaf), c)
	c.inbound = append(c.inbound, t)

	return t
}

// Map routes the bus addresses in r to target, starting at offset in the
// target's address space. Overlapping an existing mapping is a
// configuration error.
func (c *Comp) Map(r tlm.Range, offset uint64, target *port.Target) error {
	m := &Mapping{Range: r, Offset: offset}

	if err := c.mapper.Add(m); err != nil {
		return &property.ConfigurationError{
			Name: c.Name() + ".Map",
			Err:  fmt.Errorf("mapping %s: %w", target.Name(), err),
		}
	}

	c.connect(m, target)

	return nil
}

// MapDefault routes every address outside the ranged mappings to target,
// untranslated.
func (c *Comp) MapDefault(target *port.Target) {
	if c.mapper.Default != nil {
		panic(fmt.Sprintf("bus %s already has a default target", c.Name()))
	}

	m := &Mapping{Range: port.FullRange, Offset: 0}
	c.mapper.Default = m
	c.connect(m, target)
}

// Mappings returns the ranged mappings ordered by address.
func (c *Comp) Mappings() []*Mapping {
	return c.mapper.Mappings()
}

func (c *Comp) connect(m *Mapping, target *port.Target) {
	m.Out = port.NewInitiator(naming.BuildNameWithIndex(c.Name(), "Out", c.numOut))
	c.numOut++

	m.Out.AllowWindows(false)
	m.Out.Bind(target)
	m.Out.OnInvalidate(func(r tlm.Range) {
		if !m.TargetRange().Overlaps(r) {
			return
		}

		up := m.ToBus(r)
		for _, in := range c.inbound {
			in.InvalidateWindows(up)
		}
	})

	c.logger.Debug("mapped", "range", m.Range.String(),
		"offset", m.Offset, "target", target.Name())
}

// reach returns the bus addresses m serves around addr. The default mapping
// only serves the gap between the ranged mappings that holds addr.
func (c *Comp) reach(m *Mapping, addr uint64) tlm.Range {
	if m == c.mapper.Default {
		return c.mapper.Gap(addr)
	}

	return m.Range
}

func (c *Comp) route(tx *tlm.Transaction) (*Mapping, *tlm.Transaction, bool) {
	if tx.WrapsAround() {
		return nil, nil, false
	}

	m, found := c.mapper.Find(tx.Address)
	if !found || !c.reach(m, tx.Address).Includes(tx.Range()) {
		return nil, nil, false
	}

	fwd := *tx
	fwd.Address = m.ToTarget(tx.Address)
	fwd.ResetResponse()

	return m, &fwd, true
}

// HandleTransaction forwards a timed transaction to the mapped target.
func (c *Comp) HandleTransaction(
	p *timing.Process,
	tx *tlm.Transaction,
) (tlm.ResponseStatus, timing.VTime) {
	m, fwd, ok := c.route(tx)
	if !ok {
		c.logger.Warn("unmapped access",
			"addr", fmt.Sprintf("0x%x", tx.Address), "size", tx.Length())
		return tlm.AddressErrorResponse, 0
	}

	return m.Out.Send(p, fwd), c.latency.Get()
}

// HandleDebug forwards a debug transaction to the mapped target.
func (c *Comp) HandleDebug(tx *tlm.Transaction) tlm.ResponseStatus {
	m, fwd, ok := c.route(tx)
	if !ok {
		return tlm.AddressErrorResponse
	}

	m.Out.SendDebug(fwd)

	return fwd.Response()
}

// GrantWindow asks the mapped target for a window and translates it into
// bus addresses, clipped to the addresses the mapping serves.
func (c *Comp) GrantWindow(r tlm.Range, forWrite bool) (dmi.Window, bool) {
	m, found := c.mapper.Find(r.Start)
	if !found {
		return dmi.Window{}, false
	}

	bound := c.reach(m, r.Start)
	if !bound.Includes(r) {
		return dmi.Window{}, false
	}

	down := tlm.Range{Start: m.ToTarget(r.Start), End: m.ToTarget(r.End)}
	limit := tlm.Range{Start: m.ToTarget(bound.Start), End: m.ToTarget(bound.End)}

	w, ok := m.Out.Target().QueryWindow(down, forWrite)
	if !ok || !w.Range.Overlaps(limit) {
		return dmi.Window{}, false
	}

	w = w.Clip(limit).Shift(m.Offset, m.Range.Start)

	return w, true
}

func (c *Comp) cmdMmap([]string) (string, error) {
	var b strings.Builder

	for _, m := range c.mapper.Mappings() {
		fmt.Fprintf(&b, "%s -> %s (offset 0x%x)\n",
			m.Range, m.Out.Target().Name(), m.Offset)
	}

	if m := c.mapper.Default; m != nil {
		fmt.Fprintf(&b, "default -> %s\n", m.Out.Target().Name())
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}
