package memory

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/timing"
)

// Builder can build memory components.
type Builder struct {
	registry     *property.Registry
	logger       *slog.Logger
	fs           afero.Fs
	size         uint64
	readLatency  timing.VTime
	writeLatency timing.VTime
	readOnly     bool
	dmi          bool
	storage      *Storage
}

// MakeBuilder returns a new Builder with 64 MB of zero-latency,
// window-granting memory.
func MakeBuilder() Builder {
	return Builder{
		size: 64 * MB,
		dmi:  true,
	}
}

// WithRegistry sets the property registry the component registers in.
func (b Builder) WithRegistry(r *property.Registry) Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger of the component.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithFs sets the file system that images are loaded from.
func (b Builder) WithFs(fs afero.Fs) Builder {
	b.fs = fs
	return b
}

// WithSize sets the default capacity.
func (b Builder) WithSize(size uint64) Builder {
	b.size = size
	return b
}

// WithReadLatency sets the default latency of reads.
func (b Builder) WithReadLatency(t timing.VTime) Builder {
	b.readLatency = t
	return b
}

// WithWriteLatency sets the default latency of writes.
func (b Builder) WithWriteLatency(t timing.VTime) Builder {
	b.writeLatency = t
	return b
}

// WithReadOnly makes the memory reject timed writes by default.
func (b Builder) WithReadOnly(readOnly bool) Builder {
	b.readOnly = readOnly
	return b
}

// WithDMI sets whether the memory grants direct-access windows by default.
func (b Builder) WithDMI(allow bool) Builder {
	b.dmi = allow
	return b
}

// WithStorage sets the storage of the memory, replacing the size.
func (b Builder) WithStorage(s *Storage) Builder {
	b.storage = s
	return b
}

// Build creates a memory component. Property values from the registry
// override the builder's defaults.
func (b Builder) Build(name string) (*Comp, error) {
	if b.registry == nil {
		b.registry = property.NewRegistry()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}

	c := newComp(name, b.logger.With("component", name), b.fs)

	size := b.size
	if b.storage != nil {
		size = b.storage.Capacity()
	}

	c.props = property.NewScope(b.registry, name)
	c.size = c.props.AddUint("Size", size)
	c.readLatency = c.props.AddTime("ReadLatency", b.readLatency)
	c.writeLatency = c.props.AddTime("WriteLatency", b.writeLatency)
	c.readOnly = c.props.AddBool("ReadOnly", b.readOnly)
	c.allowDMI = c.props.AddBool("AllowDMI", b.dmi)

	if err := c.props.Err(); err != nil {
		c.props.Close()
		return nil, err
	}

	c.Storage = b.storage
	if c.Storage == nil || c.Storage.Capacity() != c.size.Get() {
		c.Storage = NewStorage(c.size.Get())
	}

	return c, nil
}
