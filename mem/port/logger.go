package port

import (
	"log/slog"

	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/naming"
)

// TransactionLogger is a hook that logs every transaction a target
// completes.
type TransactionLogger struct {
	logger *slog.Logger
}

// NewTransactionLogger creates a TransactionLogger that writes into logger.
func NewTransactionLogger(logger *slog.Logger) *TransactionLogger {
	return &TransactionLogger{logger: logger}
}

// Func logs the transaction.
func (h *TransactionLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosTransactionEnd {
		return
	}

	tx, ok := ctx.Item.(*tlm.Transaction)
	if !ok {
		return
	}

	attrs := []any{"tx", tx.String()}
	if named, ok := ctx.Domain.(naming.Named); ok {
		attrs = append(attrs, "target", named.Name())
	}

	h.logger.Debug("transaction", attrs...)
}
