// Package port provides the two ends of a point-to-point bus connection.
//
// An Initiator issues transactions for a processor or a bus. A Target
// receives them for the component that owns it, lets one timed transaction
// in at a time and answers direct-access window queries. Initiators keep
// the windows they were granted and serve later accesses from them without
// reaching the target at all.
package port

import (
	"github.com/slahiruk/vcml/mem/dmi"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/timing"
)

// HookPosTransactionStart triggers when a target starts serving a
// transaction.
var HookPosTransactionStart = &hooking.HookPos{Name: "TransactionStart"}

// HookPosTransactionEnd triggers when a target has written the response of
// a transaction.
var HookPosTransactionEnd = &hooking.HookPos{Name: "TransactionEnd"}

// A Handler is the logic of the component that owns a target.
type Handler interface {
	// HandleTransaction serves a timed transaction on behalf of process p.
	// It returns the response status and the latency the access takes. It
	// must not write the response into the transaction.
	HandleTransaction(
		p *timing.Process,
		tx *tlm.Transaction,
	) (tlm.ResponseStatus, timing.VTime)

	// HandleDebug serves an untimed debug transaction. It must not wait.
	HandleDebug(tx *tlm.Transaction) tlm.ResponseStatus
}

// A WindowProvider is a Handler that can grant direct-access windows.
type WindowProvider interface {
	// GrantWindow returns a window that covers as much of r as the
	// component allows, or refuses.
	GrantWindow(r tlm.Range, forWrite bool) (dmi.Window, bool)
}
