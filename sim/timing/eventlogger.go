package timing

import (
	"log/slog"
	"reflect"

	"github.com/slahiruk/vcml/sim/hooking"
)

// EventLogger is a hook that logs every event before it is handled.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger returns a new EventLogger that writes into the logger.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	h.logger.Debug("event",
		"time", evt.Time().String(),
		"type", reflect.TypeOf(evt).String(),
		"handler", reflect.TypeOf(evt.Handler()).String(),
	)
}
