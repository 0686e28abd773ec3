package processor

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/debug"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/timing"
)

// Builder can build processors.
type Builder struct {
	kernel   *timing.Kernel
	registry *property.Registry
	logger   *slog.Logger
	fs       afero.Fs
	clock    timing.Freq
	quantum  uint64
	symbols  string
}

// MakeBuilder returns a Builder for a 100 MHz processor that runs 1000
// cycles per step.
func MakeBuilder() Builder {
	return Builder{
		clock:   100 * timing.MHz,
		quantum: 1000,
	}
}

// WithKernel sets the kernel the processor runs on.
func (b Builder) WithKernel(k *timing.Kernel) Builder {
	b.kernel = k
	return b
}

// WithRegistry sets the property registry the processor registers in.
func (b Builder) WithRegistry(r *property.Registry) Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger of the processor.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithFs sets the file system symbol images are read from.
func (b Builder) WithFs(fs afero.Fs) Builder {
	b.fs = fs
	return b
}

// WithClock sets the default frequency of the core.
func (b Builder) WithClock(f timing.Freq) Builder {
	b.clock = f
	return b
}

// WithQuantum sets the default number of cycles per step.
func (b Builder) WithQuantum(cycles uint64) Builder {
	b.quantum = cycles
	return b
}

// WithSymbols sets the default path of the symbol image.
func (b Builder) WithSymbols(path string) Builder {
	b.symbols = path
	return b
}

// Build creates a processor around a core. A symbol image that cannot be
// loaded is a configuration error.
func (b Builder) Build(name string, core Core) (*Processor, error) {
	if b.kernel == nil {
		panic("processor requires a kernel")
	}

	if b.registry == nil {
		b.registry = property.NewRegistry()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}

	c := &Processor{
		NamedBase:   naming.MakeNamedBase(name),
		Registry:    command.NewRegistry(name),
		Insn:        port.NewInitiator(naming.BuildName(name, "Insn")),
		Data:        port.NewInitiator(naming.BuildName(name, "Data")),
		core:        core,
		kernel:      b.kernel,
		logger:      b.logger.With("component", name),
		fs:          b.fs,
		breakpoints: make(map[uint64]struct{}),
		irqs:        make(map[uint]*IrqStat),
	}

	c.regs, _ = core.(Registers)
	c.dumper, _ = core.(RegisterDumper)
	c.bpHandler, _ = core.(BreakpointHandler)
	c.translator, _ = core.(AddressTranslator)
	c.disassembler, _ = core.(debug.Disassembler)
	c.irqHandler, _ = core.(InterruptHandler)

	c.props = property.NewScope(b.registry, name)
	c.clock = c.props.AddFreq("Clock", b.clock)
	c.quantum = c.props.AddUint("Quantum", b.quantum)
	c.symPath = c.props.AddString("Symbols", b.symbols)

	if err := c.props.Err(); err != nil {
		c.props.Close()
		return nil, err
	}

	if path := c.symPath.Get(); path != "" {
		if err := c.LoadSymbols(path); err != nil {
			c.props.Close()
			return nil, &property.ConfigurationError{
				Name:  c.symPath.Name(),
				Value: path,
				Err:   err,
			}
		}
	}

	c.registerCommands()

	if a, ok := core.(Attacher); ok {
		a.Attach(c)
	}

	return c, nil
}
