package port

import (
	"fmt"
	"math"

	"github.com/slahiruk/vcml/mem/dmi"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/timing"
)

// FullRange covers the whole address space.
var FullRange = tlm.Range{Start: 0, End: math.MaxUint64}

// InitiatorStats counts what an initiator has issued.
type InitiatorStats struct {
	Transactions      uint64
	DebugTransactions uint64
	Hits              uint64
	Misses            uint64
	Errors            uint64
	BytesRead         uint64
	BytesWritten      uint64
}

// An InvalidationListener learns about the windows revoked from an
// initiator.
type InvalidationListener func(r tlm.Range)

// An Initiator issues transactions to the target it is bound to.
type Initiator struct {
	naming.NamedBase

	target       *Target
	cache        *dmi.Cache
	allowWindows bool
	listeners    []InvalidationListener
	stats        InitiatorStats
}

// NewInitiator creates an unbound initiator that uses windows.
func NewInitiator(name string) *Initiator {
	return &Initiator{
		NamedBase:    naming.MakeNamedBase(name),
		cache:        dmi.NewCache(),
		allowWindows: true,
	}
}

// Bind connects the initiator to a target. An initiator can only be bound
// once.
func (i *Initiator) Bind(t *Target) {
	if i.target != nil {
		panic(fmt.Sprintf("initiator %s is already bound to %s",
			i.Name(), i.target.Name()))
	}

	i.target = t
	t.bind(i)
}

// IsBound tells if the initiator is connected.
func (i *Initiator) IsBound() bool {
	return i.target != nil
}

// Target returns the target the initiator is bound to.
func (i *Initiator) Target() *Target {
	return i.target
}

// AllowWindows enables or disables the use of direct-access windows.
// Disabling drops the windows already held.
func (i *Initiator) AllowWindows(allow bool) {
	i.allowWindows = allow
	if !allow {
		i.cache.InvalidateAll()
	}
}

// WindowsAllowed tells if the initiator uses direct-access windows.
func (i *Initiator) WindowsAllowed() bool {
	return i.allowWindows
}

// Cache returns the window cache of the initiator.
func (i *Initiator) Cache() *dmi.Cache {
	return i.cache
}

// Stats returns the counters of the initiator.
func (i *Initiator) Stats() InitiatorStats {
	return i.stats
}

// OnInvalidate registers a listener for revoked windows.
func (i *Initiator) OnInvalidate(l InvalidationListener) {
	i.listeners = append(i.listeners, l)
}

// Send issues a transaction on behalf of process p and returns once it has
// completed. Accesses covered by a window are served from it at no bus
// cost. Debug transactions are routed to SendDebug.
func (i *Initiator) Send(p *timing.Process, tx *tlm.Transaction) tlm.ResponseStatus {
	i.mustBeBound()

	if tx.Debug {
		i.SendDebug(tx)
		return tx.Response()
	}

	i.stats.Transactions++

	useWindows := i.allowWindows && tx.Command != tlm.IgnoreCommand
	if useWindows {
		w, hit := i.cache.Lookup(tx.Address, tx.Length(), tx.IsWrite())
		if hit {
			i.stats.Hits++
			tx.Transfer(w.Slice(tx.Address, tx.Length()))
			tx.SetResponse(tlm.OKResponse)
			i.countBytes(tx)

			return tlm.OKResponse
		}

		i.stats.Misses++
	}

	status := i.target.Accept(p, tx)
	if !status.IsOK() {
		i.stats.Errors++
		return status
	}

	i.countBytes(tx)

	if useWindows {
		i.requestWindow(tx)
	}

	return status
}

// SendDebug issues a debug transaction. It never consults or fills the
// window cache. It returns the number of bytes transferred.
func (i *Initiator) SendDebug(tx *tlm.Transaction) int {
	i.mustBeBound()

	tx.Debug = true
	i.stats.DebugTransactions++

	return i.target.DebugAccess(tx)
}

// Read fills data from the bytes at addr.
func (i *Initiator) Read(p *timing.Process, addr uint64, data []byte) tlm.ResponseStatus {
	tx := tlm.MakeTransactionBuilder().
		WithAddress(addr).
		WithCommand(tlm.ReadCommand).
		WithData(data).
		Build()

	return i.Send(p, tx)
}

// Write stores data at addr.
func (i *Initiator) Write(p *timing.Process, addr uint64, data []byte) tlm.ResponseStatus {
	tx := tlm.MakeTransactionBuilder().
		WithAddress(addr).
		WithCommand(tlm.WriteCommand).
		WithData(data).
		Build()

	return i.Send(p, tx)
}

// ReadDebug fills data from addr with a debug access.
func (i *Initiator) ReadDebug(addr uint64, data []byte) int {
	tx := tlm.MakeTransactionBuilder().
		WithAddress(addr).
		WithCommand(tlm.ReadCommand).
		WithData(data).
		AsDebug().
		Build()

	return i.SendDebug(tx)
}

// WriteDebug stores data at addr with a debug access.
func (i *Initiator) WriteDebug(addr uint64, data []byte) int {
	tx := tlm.MakeTransactionBuilder().
		WithAddress(addr).
		WithCommand(tlm.WriteCommand).
		WithData(data).
		AsDebug().
		Build()

	return i.SendDebug(tx)
}

func (i *Initiator) requestWindow(tx *tlm.Transaction) {
	w, granted := i.target.QueryWindow(tx.Range(), tx.IsWrite())
	if !granted {
		return
	}

	if !w.Covers(tx.Address, tx.Length()) {
		return
	}

	i.cache.Insert(w)
}

func (i *Initiator) invalidate(r tlm.Range) {
	i.cache.Invalidate(r)

	for _, l := range i.listeners {
		l(r)
	}
}

func (i *Initiator) countBytes(tx *tlm.Transaction) {
	switch tx.Command {
	case tlm.ReadCommand:
		i.stats.BytesRead += tx.Length()
	case tlm.WriteCommand:
		i.stats.BytesWritten += tx.Length()
	}
}

func (i *Initiator) mustBeBound() {
	if i.target == nil {
		panic(fmt.Sprintf("initiator %s is not bound", i.Name()))
	}
}
