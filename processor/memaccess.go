package processor

import (
	"errors"
	"fmt"

	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
)

// ErrBus matches every *BusError with errors.Is.
var ErrBus = errors.New("bus error")

// A BusError reports a fetch, read or write that the bus answered with a
// failure.
type BusError struct {
	Op     string
	Addr   uint64
	Size   int
	Port   string
	PC     uint64
	SP     uint64
	Status tlm.ResponseStatus
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus error during %s of %d bytes at 0x%x on %s: %s",
		e.Op, e.Size, e.Addr, e.Port, e.Status)
}

// Is makes every BusError match ErrBus.
func (e *BusError) Is(target error) bool {
	return target == ErrBus
}

// Fetch reads instruction bytes at addr into buf.
func (c *Processor) Fetch(addr uint64, buf []byte) error {
	return c.access("fetch", c.Insn, tlm.ReadCommand, addr, buf)
}

// Read loads data bytes at addr into buf.
func (c *Processor) Read(addr uint64, buf []byte) error {
	return c.access("read", c.Data, tlm.ReadCommand, addr, buf)
}

// Write stores data bytes at addr.
func (c *Processor) Write(addr uint64, data []byte) error {
	return c.access("write", c.Data, tlm.WriteCommand, addr, data)
}

// FetchValue fetches one little-endian instruction word.
func FetchValue[T tlm.Unsigned](c *Processor, addr uint64) (T, error) {
	buf := make([]byte, tlm.SizeOf[T]())
	if err := c.Fetch(addr, buf); err != nil {
		return 0, err
	}

	return tlm.Decode[T](buf), nil
}

// ReadValue loads one little-endian value.
func ReadValue[T tlm.Unsigned](c *Processor, addr uint64) (T, error) {
	buf := make([]byte, tlm.SizeOf[T]())
	if err := c.Read(addr, buf); err != nil {
		return 0, err
	}

	return tlm.Decode[T](buf), nil
}

// WriteValue stores one little-endian value.
func WriteValue[T tlm.Unsigned](c *Processor, addr uint64, v T) error {
	return c.Write(addr, tlm.Encode(v))
}

// access issues one transaction on behalf of the running process. Failures
// are logged and returned, never retried.
func (c *Processor) access(
	op string,
	ini *port.Initiator,
	cmd tlm.Command,
	addr uint64,
	buf []byte,
) error {
	p := c.kernel.Current()
	if p == nil {
		panic(fmt.Sprintf("%s of %s outside a simulation process", op, c.Name()))
	}

	tx := tlm.MakeTransactionBuilder().
		WithAddress(addr).
		WithCommand(cmd).
		WithData(buf).
		Build()

	status := ini.Send(p, tx)
	if status.IsOK() {
		return nil
	}

	err := &BusError{
		Op:     op,
		Addr:   addr,
		Size:   len(buf),
		Port:   ini.Name(),
		PC:     c.ProgramCounter(),
		SP:     c.StackPointer(),
		Status: status,
	}

	c.logger.Error("detected bus error during "+op+" operation",
		"addr", fmt.Sprintf("0x%016x", addr),
		"pc", fmt.Sprintf("0x%016x", err.PC),
		"sp", fmt.Sprintf("0x%016x", err.SP),
		"size", err.Size,
		"port", err.Port,
		"code", status.String(),
	)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosBusError,
		Item:   err,
	})

	return err
}
