package timing

import (
	"fmt"
	"log"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/slahiruk/vcml/sim/hooking"
)

// A Kernel is a cooperative discrete-event engine. Events are handled one
// after another in time order, and processes spawned on the kernel run one
// at a time: a process keeps control until it waits or suspends.
//
// Events at the same time are grouped into delta cycles. An event scheduled
// for the current time while an event is being handled belongs to the next
// delta cycle.
type Kernel struct {
	hooking.HookableBase

	timeLock sync.RWMutex
	now      VTime
	delta    uint64
	handled  bool
	seq      uint64

	queueLock sync.Mutex
	queue     *eventQueue

	yield   chan struct{}
	current *Process

	stopRequested atomic.Bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewKernel creates a Kernel at time 0.
func NewKernel() *Kernel {
	k := new(Kernel)
	k.queue = newEventQueue()
	k.yield = make(chan struct{})

	return k
}

// Now returns the current simulated time.
func (k *Kernel) Now() VTime {
	k.timeLock.RLock()
	t := k.now
	k.timeLock.RUnlock()

	return t
}

// Current returns the process that is running, or nil when the kernel is
// handling a plain event or is idle.
func (k *Kernel) Current() *Process {
	return k.current
}

// Schedule registers an event to happen in the future.
func (k *Kernel) Schedule(evt Event) {
	k.timeLock.RLock()
	now, delta, handled := k.now, k.delta, k.handled
	k.timeLock.RUnlock()

	if evt.Time() < now {
		log.Panicf("scheduling an event at %s, earlier than now %s",
			evt.Time(), now)
	}

	qe := &queuedEvent{evt: evt, time: evt.Time()}
	if evt.Time() == now {
		qe.delta = delta
		if handled {
			qe.delta = delta + 1
		}
	}

	k.queueLock.Lock()
	k.seq++
	qe.seq = k.seq
	k.queue.Push(qe)
	k.queueLock.Unlock()
}

// Run processes all the events until there is nothing left to do or Stop is
// called.
func (k *Kernel) Run() error {
	return k.run(false, 0)
}

// RunUntil processes all the events scheduled no later than t and then
// advances the time to t.
func (k *Kernel) RunUntil(t VTime) error {
	return k.run(true, t)
}

// RunFor runs the simulation for a span of simulated time.
func (k *Kernel) RunFor(d VTime) error {
	return k.RunUntil(k.Now() + d)
}

// Stop makes the running Run or RunUntil return after the current event.
func (k *Kernel) Stop() {
	k.stopRequested.Store(true)
}

func (k *Kernel) run(bounded bool, limit VTime) error {
	k.singleRunLock.Lock()
	defer k.singleRunLock.Unlock()

	k.stopRequested.Store(false)

	for !k.stopRequested.Load() {
		k.pauseLock.Lock()

		qe, ok := k.nextEvent(bounded, limit)
		if !ok {
			k.pauseLock.Unlock()
			break
		}

		k.advanceTo(qe)
		err := k.dispatch(qe.evt)

		k.pauseLock.Unlock()

		if err != nil {
			return err
		}
	}

	if k.stopRequested.Load() {
		return nil
	}

	k.finishTimeStep()

	if bounded && limit > k.Now() {
		k.timeLock.Lock()
		k.now = limit
		k.delta = 0
		k.timeLock.Unlock()
	}

	return nil
}

func (k *Kernel) nextEvent(bounded bool, limit VTime) (*queuedEvent, bool) {
	k.queueLock.Lock()
	defer k.queueLock.Unlock()

	if k.queue.Len() == 0 {
		return nil, false
	}

	if bounded && k.queue.Peek().time > limit {
		return nil, false
	}

	return k.queue.Pop(), true
}

func (k *Kernel) advanceTo(qe *queuedEvent) {
	k.timeLock.RLock()
	now, delta, handled := k.now, k.delta, k.handled
	k.timeLock.RUnlock()

	if qe.time < now {
		log.Panicf("cannot run event in the past, evt %s @ %s, now %s",
			reflect.TypeOf(qe.evt), qe.time, now)
	}

	if handled {
		switch {
		case qe.time != now:
			k.invokeBoundary(HookPosDeltaCycle)
			k.invokeBoundary(HookPosTimeStep)
		case qe.delta != delta:
			k.invokeBoundary(HookPosDeltaCycle)
		}
	}

	if qe.time != now || qe.delta != delta {
		k.timeLock.Lock()
		k.now = qe.time
		k.delta = qe.delta
		k.handled = false
		k.timeLock.Unlock()
	}
}

func (k *Kernel) finishTimeStep() {
	k.timeLock.RLock()
	handled := k.handled
	k.timeLock.RUnlock()

	if !handled {
		return
	}

	k.invokeBoundary(HookPosDeltaCycle)
	k.invokeBoundary(HookPosTimeStep)

	k.timeLock.Lock()
	k.handled = false
	k.timeLock.Unlock()
}

func (k *Kernel) invokeBoundary(pos *hooking.HookPos) {
	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    pos,
		Item:   k.Now(),
	})
}

func (k *Kernel) dispatch(evt Event) error {
	k.timeLock.Lock()
	k.handled = true
	k.timeLock.Unlock()

	hookCtx := hooking.HookCtx{
		Domain: k,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	k.InvokeHook(hookCtx)

	err := evt.Handler().Handle(evt)

	hookCtx.Pos = HookPosAfterEvent
	k.InvokeHook(hookCtx)

	if err != nil {
		return fmt.Errorf("handling %s at %s: %w",
			reflect.TypeOf(evt), evt.Time(), err)
	}

	return nil
}

// Handle handles the kernel's own events: process wake-ups and delayed
// signal notifications.
func (k *Kernel) Handle(e Event) error {
	switch e := e.(type) {
	case *wakeEvent:
		k.switchTo(e.proc)
	case *notifyEvent:
		e.signal.Notify()
	default:
		log.Panicf("kernel cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

func (k *Kernel) switchTo(p *Process) {
	if p.done {
		return
	}

	p.wakePending = false
	k.current = p
	p.resume <- struct{}{}
	<-k.yield
	k.current = nil

	if p.panicked {
		panic(p.panicValue)
	}
}

func (k *Kernel) scheduleWake(p *Process, t VTime) {
	p.wakePending = true
	k.Schedule(&wakeEvent{EventBase: NewEventBase(t, k), proc: p})
}

// Pause prevents the Kernel from handling more events.
func (k *Kernel) Pause() {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	if k.isPaused {
		return
	}

	k.pauseLock.Lock()
	k.isPaused = true
}

// Continue allows the Kernel to handle more events.
func (k *Kernel) Continue() {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	if !k.isPaused {
		return
	}

	k.pauseLock.Unlock()
	k.isPaused = false
}

// Paused tells if Pause has been called without a matching Continue.
func (k *Kernel) Paused() bool {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	return k.isPaused
}

type wakeEvent struct {
	*EventBase
	proc *Process
}

type notifyEvent struct {
	*EventBase
	signal *Signal
}
