package processor

import (
	"time"

	"github.com/slahiruk/vcml/sim/timing"
)

// Start spawns the process that runs the core. In each step the core
// simulates up to one quantum of cycles and the process then waits for the
// time those cycles take. The loop ends when Stop is called or the core
// runs no cycles.
func (c *Processor) Start() {
	if c.process != nil && !c.process.Done() {
		panic("processor " + c.Name() + " is already running")
	}

	c.stopRequested = false
	c.process = c.kernel.Spawn(c.Name(), c.run)
}

// Stop ends the run loop after the current step.
func (c *Processor) Stop() {
	c.stopRequested = true
}

// Running tells if the run loop is active.
func (c *Processor) Running() bool {
	return c.process != nil && !c.process.Done()
}

func (c *Processor) run(p *timing.Process) {
	period := c.clock.Get()

	for !c.stopRequested {
		start := time.Now()
		cycles := c.core.Simulate(c.quantum.Get())
		c.runTime += time.Since(start)

		if cycles == 0 {
			break
		}

		c.cycles += cycles
		p.Wait(period.NCycles(cycles))
	}

	c.logger.Debug("run loop ended",
		"cycles", c.cycles, "time", p.Now().String())
}

// Reset zeroes the cycle counter and the run time. Breakpoints and symbols
// are kept.
func (c *Processor) Reset() {
	c.cycles = 0
	c.runTime = 0
}

// NumCycles returns the number of cycles simulated since the last reset.
func (c *Processor) NumCycles() uint64 {
	return c.cycles
}

// RunTime returns the host time spent simulating the core since the last
// reset.
func (c *Processor) RunTime() time.Duration {
	return c.runTime
}

// CPS returns the simulation speed in cycles per host second.
func (c *Processor) CPS() float64 {
	if c.runTime <= 0 {
		return 0
	}

	return float64(c.cycles) / c.runTime.Seconds()
}
