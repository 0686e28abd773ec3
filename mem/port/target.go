package port

import (
	"github.com/slahiruk/vcml/mem/dmi"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/timing"
)

// TargetStats counts what a target has served.
type TargetStats struct {
	Transactions  uint64
	Errors        uint64
	DebugAccesses uint64
	WindowQueries uint64
	WindowGrants  uint64
	MaxWaiters    int
}

// A Target receives transactions for the component that owns it. At most
// one timed transaction is in flight at a time; others wait in a FIFO.
type Target struct {
	naming.NamedBase
	hooking.HookableBase

	handler    Handler
	busy       bool
	waiters    []*timing.Process
	initiators []*Initiator
	stats      TargetStats
}

// NewTarget creates a target that forwards to handler.
func NewTarget(name string, handler Handler) *Target {
	t := &Target{
		NamedBase: naming.MakeNamedBase(name),
		handler:   handler,
	}

	return t
}

// Busy tells if a timed transaction is in flight.
func (t *Target) Busy() bool {
	return t.busy
}

// NumWaiters returns the number of processes waiting to get in.
func (t *Target) NumWaiters() int {
	return len(t.waiters)
}

// Stats returns the counters of the target.
func (t *Target) Stats() TargetStats {
	return t.stats
}

// Initiators returns the initiators bound to the target.
func (t *Target) Initiators() []*Initiator {
	return t.initiators
}

// Accept serves a transaction on behalf of process p, which must be the
// running process. If another transaction is in flight, p waits until all
// transactions accepted before have completed. The response is written
// exactly once before Accept returns.
func (t *Target) Accept(p *timing.Process, tx *tlm.Transaction) tlm.ResponseStatus {
	if tx.Debug {
		t.DebugAccess(tx)
		return tx.Response()
	}

	if tx.WrapsAround() {
		t.stats.Transactions++
		t.stats.Errors++
		tx.SetResponse(tlm.AddressErrorResponse)

		return tlm.AddressErrorResponse
	}

	t.acquire(p)
	defer t.release()

	t.stats.Transactions++
	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosTransactionStart,
		Item:   tx,
	})

	status, latency := t.handler.HandleTransaction(p, tx)
	if status == tlm.IncompleteResponse {
		status = tlm.GenericErrorResponse
	}

	if latency > 0 {
		p.Wait(latency)
	}

	tx.SetResponse(status)

	if status.Failed() {
		t.stats.Errors++
	}

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosTransactionEnd,
		Item:   tx,
	})

	return status
}

// acquire returns once p holds the gate. A waiting process is handed the
// gate directly by release, so the gate stays busy in between.
func (t *Target) acquire(p *timing.Process) {
	if !t.busy {
		t.busy = true
		return
	}

	t.waiters = append(t.waiters, p)
	if len(t.waiters) > t.stats.MaxWaiters {
		t.stats.MaxWaiters = len(t.waiters)
	}

	p.Suspend()
}

func (t *Target) release() {
	if len(t.waiters) == 0 {
		t.busy = false
		return
	}

	next := t.waiters[0]
	t.waiters[0] = nil
	t.waiters = t.waiters[1:]

	next.Resume()
}

// DebugAccess serves a debug transaction immediately, ignoring the gate and
// without advancing simulated time. It returns the number of bytes
// transferred, which is zero on failure.
func (t *Target) DebugAccess(tx *tlm.Transaction) int {
	t.stats.DebugAccesses++

	if tx.WrapsAround() {
		tx.SetResponse(tlm.AddressErrorResponse)
		return 0
	}

	status := t.handler.HandleDebug(tx)
	if status == tlm.IncompleteResponse {
		status = tlm.GenericErrorResponse
	}

	tx.SetResponse(status)

	if !status.IsOK() {
		return 0
	}

	return len(tx.Data)
}

// QueryWindow asks the owning component for a direct-access window over r.
// Components that do not provide windows always refuse.
func (t *Target) QueryWindow(r tlm.Range, forWrite bool) (dmi.Window, bool) {
	t.stats.WindowQueries++

	wp, ok := t.handler.(WindowProvider)
	if !ok {
		return dmi.Window{}, false
	}

	w, ok := wp.GrantWindow(r, forWrite)
	if !ok || !w.Access.Allows(forWrite) {
		return dmi.Window{}, false
	}

	if w.Owner == "" {
		w.Owner = t.Name()
	}

	t.stats.WindowGrants++

	return w, true
}

// InvalidateWindows revokes the windows over r held by every bound
// initiator. The owning component must call it whenever its memory map
// changes.
func (t *Target) InvalidateWindows(r tlm.Range) {
	for _, i := range t.initiators {
		i.invalidate(r)
	}
}

// InvalidateAllWindows revokes every window held by bound initiators.
func (t *Target) InvalidateAllWindows() {
	t.InvalidateWindows(FullRange)
}

func (t *Target) bind(i *Initiator) {
	t.initiators = append(t.initiators, i)
}
