// Package hooking lets observers attach to well-defined positions in the
// simulation, such as before an event is handled or after a transaction
// completes.
package hooking

// A HookPos names a site where hooks are invoked.
type HookPos struct {
	Name string
}

// A HookCtx describes one invocation: which object fired, at which
// position, the item concerned and optional position-specific detail.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// A Hookable keeps a list of hooks and invokes them at its positions.
type Hookable interface {
	AcceptHook(hook Hook)

	// RemoveHook unregisters a hook. Removing a hook that is not registered
	// is a no-op.
	RemoveHook(hook Hook)

	NumHooks() int
	Hooks() []Hook
}

// A Hook observes a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface. Only hooks created
// with NewHookFunc can be removed, as function values are not comparable.
type HookFunc struct {
	fn func(ctx HookCtx)
}

// NewHookFunc wraps fn as a Hook.
func NewHookFunc(fn func(ctx HookCtx)) *HookFunc {
	return &HookFunc{fn: fn}
}

// Func calls the wrapped function.
func (h *HookFunc) Func(ctx HookCtx) {
	h.fn(ctx)
}

// HookableBase implements Hookable. Embed it and call InvokeHook at each
// position.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns how many hooks are attached.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the attached hooks in invocation order.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook attaches a hook. Attaching the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, attached := range h.hooks {
		if attached == hook {
			panic("duplicated hook")
		}
	}

	h.hooks = append(h.hooks, hook)
}

// RemoveHook detaches a hook, keeping the order of the remaining ones.
func (h *HookableBase) RemoveHook(hook Hook) {
	for i, attached := range h.hooks {
		if attached == hook {
			h.hooks = append(h.hooks[:i:i], h.hooks[i+1:]...)
			return
		}
	}
}

// InvokeHook calls every attached hook with ctx, in the order they were
// attached.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
