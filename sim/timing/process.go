package timing

import "log"

// A Process is a thread of simulation logic. Only one process runs at a
// time; it gives control back to the kernel at its suspension points: Wait,
// WaitSignal and Suspend.
type Process struct {
	name   string
	kernel *Kernel
	resume chan struct{}

	done        bool
	suspended   bool
	wakePending bool

	panicked   bool
	panicValue interface{}
}

// Spawn creates a process that starts running fn in the current delta
// cycle. The process ends when fn returns.
func (k *Kernel) Spawn(name string, fn func(p *Process)) *Process {
	p := &Process{
		name:   name,
		kernel: k,
		resume: make(chan struct{}),
	}

	go func() {
		<-p.resume

		defer func() {
			if r := recover(); r != nil {
				p.panicked = true
				p.panicValue = r
			}

			p.done = true
			k.yield <- struct{}{}
		}()

		fn(p)
	}()

	k.scheduleWake(p, k.Now())

	return p
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// Kernel returns the kernel that runs the process.
func (p *Process) Kernel() *Kernel {
	return p.kernel
}

// Now returns the current simulated time.
func (p *Process) Now() VTime {
	return p.kernel.Now()
}

// Done tells if the process has finished.
func (p *Process) Done() bool {
	return p.done
}

// Suspended tells if the process is waiting to be resumed.
func (p *Process) Suspended() bool {
	return p.suspended
}

// Wait suspends the process for a span of simulated time. Wait(0) yields to
// the other activity of the current time and resumes in the next delta cycle.
func (p *Process) Wait(d VTime) {
	p.mustBeRunning()
	p.kernel.scheduleWake(p, p.kernel.Now()+d)
	p.yield()
}

// WaitSignal suspends the process until the signal is notified.
func (p *Process) WaitSignal(s *Signal) {
	p.mustBeRunning()
	s.waiters = append(s.waiters, p)
	p.suspended = true
	p.yield()
}

// Suspend stops the process until another party calls Resume.
func (p *Process) Suspend() {
	p.mustBeRunning()
	p.suspended = true
	p.yield()
}

// Resume wakes a suspended process in the next delta cycle. Resuming a
// process that is not suspended has no effect.
func (p *Process) Resume() {
	if !p.suspended || p.wakePending {
		return
	}

	p.suspended = false
	p.kernel.scheduleWake(p, p.kernel.Now())
}

func (p *Process) yield() {
	p.kernel.yield <- struct{}{}
	<-p.resume
}

func (p *Process) mustBeRunning() {
	if p.kernel.current != p {
		log.Panicf("process %s is not running", p.name)
	}
}

// A Signal is an event that processes can wait on.
type Signal struct {
	name    string
	kernel  *Kernel
	waiters []*Process
}

// NewSignal creates a signal on the kernel.
func NewSignal(k *Kernel, name string) *Signal {
	return &Signal{name: name, kernel: k}
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// NumWaiters returns the number of processes waiting on the signal.
func (s *Signal) NumWaiters() int {
	return len(s.waiters)
}

// Notify resumes all the waiting processes in the next delta cycle.
func (s *Signal) Notify() {
	waiters := s.waiters
	s.waiters = nil

	for _, p := range waiters {
		p.Resume()
	}
}

// NotifyAfter notifies the signal after a span of simulated time.
func (s *Signal) NotifyAfter(d VTime) {
	s.kernel.Schedule(&notifyEvent{
		EventBase: NewEventBase(s.kernel.Now()+d, s.kernel),
		signal:    s,
	})
}
