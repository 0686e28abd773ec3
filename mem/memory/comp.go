// Package memory provides a memory component that serves transactions from
// a sparse storage and grants direct-access windows over it.
package memory

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/debug"
	"github.com/slahiruk/vcml/mem/dmi"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/timing"
)

// Comp is a memory component. It is reached through its Top port.
type Comp struct {
	naming.NamedBase
	*command.Registry

	Storage *Storage
	Top     *port.Target

	logger *slog.Logger
	fs     afero.Fs

	props        *property.Scope
	size         *property.Typed[uint64]
	readLatency  *property.Typed[timing.VTime]
	writeLatency *property.Typed[timing.VTime]
	readOnly     *property.Typed[bool]
	allowDMI     *property.Typed[bool]

	denied []tlm.Range
}

func newComp(name string, logger *slog.Logger, fs afero.Fs) *Comp {
	c := &Comp{
		NamedBase: naming.MakeNamedBase(name),
		Registry:  command.NewRegistry(name),
		logger:    logger,
		fs:        fs,
	}

	c.Top = port.NewTarget(name+".Top", c)

	c.Register(command.Command{
		Name:    "show",
		MinArgs: 2,
		Usage:   "<addr> <len>",
		Desc:    "shows the memory content",
		Handler: c.cmdShow,
	})
	c.Register(command.Command{
		Name:    "load",
		MinArgs: 1,
		Usage:   "<file> [offset]",
		Desc:    "loads a binary file into the memory",
		Handler: c.cmdLoad,
	})

	return c
}

// Name resolves the ambiguity between the component and its commands.
func (c *Comp) Name() string {
	return c.NamedBase.Name()
}

// ReadOnly tells if timed writes are rejected.
func (c *Comp) ReadOnly() bool {
	return c.readOnly.Get()
}

// SetReadOnly changes the write permission of the memory. Windows granted
// before are revoked.
func (c *Comp) SetReadOnly(readOnly bool) {
	if c.readOnly.Get() == readOnly {
		return
	}

	c.readOnly.SetValue(readOnly)
	c.Top.InvalidateAllWindows()
}

// AllowWindows changes whether windows are granted. Disallowing revokes the
// windows granted before.
func (c *Comp) AllowWindows(allow bool) {
	c.allowDMI.SetValue(allow)
	if !allow {
		c.Top.InvalidateAllWindows()
	}
}

// DenyWindows stops granting windows over r, such as when a range starts to
// have side effects. Windows over r granted before are revoked.
func (c *Comp) DenyWindows(r tlm.Range) {
	c.denied = append(c.denied, r)
	c.Top.InvalidateWindows(r)
}

// Close removes the properties of the component from the registry.
func (c *Comp) Close() {
	c.props.Close()
}

// HandleTransaction serves a timed access.
func (c *Comp) HandleTransaction(
	_ *timing.Process,
	tx *tlm.Transaction,
) (tlm.ResponseStatus, timing.VTime) {
	switch tx.Command {
	case tlm.ReadCommand:
		return c.access(tx), c.readLatency.Get()
	case tlm.WriteCommand:
		if c.readOnly.Get() {
			return tlm.CommandErrorResponse, 0
		}

		return c.access(tx), c.writeLatency.Get()
	default:
		return tlm.OKResponse, 0
	}
}

// HandleDebug serves a debug access. Debug writes also reach read-only
// memory, so that loaders can fill it.
func (c *Comp) HandleDebug(tx *tlm.Transaction) tlm.ResponseStatus {
	if tx.Command == tlm.IgnoreCommand {
		return tlm.OKResponse
	}

	return c.access(tx)
}

func (c *Comp) access(tx *tlm.Transaction) tlm.ResponseStatus {
	if !c.Storage.InRange(tx.Address, tx.Length()) {
		return tlm.AddressErrorResponse
	}

	if len(tx.ByteEnable) == 0 {
		var err error
		if tx.IsRead() {
			err = c.Storage.ReadInto(tx.Address, tx.Data)
		} else {
			err = c.Storage.Write(tx.Address, tx.Data)
		}

		if err != nil {
			return tlm.AddressErrorResponse
		}

		return tlm.OKResponse
	}

	buf, err := c.Storage.Read(tx.Address, tx.Length())
	if err != nil {
		return tlm.AddressErrorResponse
	}

	tx.Transfer(buf)

	if tx.IsWrite() {
		if err := c.Storage.Write(tx.Address, buf); err != nil {
			return tlm.AddressErrorResponse
		}
	}

	return tlm.OKResponse
}

// GrantWindow grants a window over the storage unit that holds r. Accesses
// crossing units, denied ranges, and writes to read-only memory are refused.
func (c *Comp) GrantWindow(r tlm.Range, forWrite bool) (dmi.Window, bool) {
	if !c.allowDMI.Get() || (forWrite && c.readOnly.Get()) {
		return dmi.Window{}, false
	}

	unit, base, err := c.Storage.Unit(r.Start)
	if err != nil {
		return dmi.Window{}, false
	}

	w := dmi.Window{
		Range:  tlm.NewRange(base, uint64(len(unit))),
		Access: dmi.AccessReadWrite,
		Mem:    unit,
		Owner:  c.Name(),
	}

	if c.readOnly.Get() {
		w.Access = dmi.AccessRead
	}

	if !w.Range.Includes(r) {
		return dmi.Window{}, false
	}

	for _, d := range c.denied {
		if d.Overlaps(w.Range) {
			return dmi.Window{}, false
		}
	}

	return w, true
}

// Load copies a file into the memory at offset.
func (c *Comp) Load(path string, offset uint64) (int, error) {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return 0, err
	}

	if err := c.Storage.Write(offset, data); err != nil {
		return 0, err
	}

	c.logger.Info("image loaded",
		"path", path, "offset", offset, "size", len(data))

	return len(data), nil
}

func (c *Comp) cmdShow(args []string) (string, error) {
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", command.ErrUsage
	}

	n, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return "", command.ErrUsage
	}

	data, err := c.Storage.Read(addr, n)
	if err != nil {
		return "", err
	}

	return debug.HexDump(addr, data), nil
}

func (c *Comp) cmdLoad(args []string) (string, error) {
	offset := uint64(0)
	if len(args) > 1 {
		var err error
		if offset, err = strconv.ParseUint(args[1], 0, 64); err != nil {
			return "", command.ErrUsage
		}
	}

	n, err := c.Load(args[0], offset)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("loaded %d bytes from %s to 0x%x", n, args[0], offset), nil
}
