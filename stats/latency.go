package stats

import (
	"sync"

	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/timing"
)

// Latency sums the service time of the transactions of one target.
type Latency struct {
	Count   uint64
	Total   timing.VTime
	Longest timing.VTime
}

// Average returns the mean service time, or 0 if nothing was served.
func (l Latency) Average() timing.VTime {
	if l.Count == 0 {
		return 0
	}

	return l.Total / timing.VTime(l.Count)
}

// LatencyAnalyzer is a hook that measures how long targets take to serve
// transactions. Time spent waiting for a busy target is not included.
type LatencyAnalyzer struct {
	timeTeller timing.TimeTeller

	lock     sync.Mutex
	inflight map[string]timing.VTime
	byTarget map[string]*Latency
}

// NewLatencyAnalyzer creates a LatencyAnalyzer that reads the time from tt.
func NewLatencyAnalyzer(tt timing.TimeTeller) *LatencyAnalyzer {
	return &LatencyAnalyzer{
		timeTeller: tt,
		inflight:   make(map[string]timing.VTime),
		byTarget:   make(map[string]*Latency),
	}
}

// Func records the start and the end of transactions.
func (a *LatencyAnalyzer) Func(ctx hooking.HookCtx) {
	tx, ok := ctx.Item.(*tlm.Transaction)
	if !ok {
		return
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	switch ctx.Pos {
	case port.HookPosTransactionStart:
		a.inflight[tx.ID] = a.timeTeller.Now()
	case port.HookPosTransactionEnd:
		start, found := a.inflight[tx.ID]
		if !found {
			return
		}

		delete(a.inflight, tx.ID)

		name := ""
		if named, ok := ctx.Domain.(naming.Named); ok {
			name = named.Name()
		}

		l := a.byTarget[name]
		if l == nil {
			l = &Latency{}
			a.byTarget[name] = l
		}

		d := a.timeTeller.Now() - start
		l.Count++
		l.Total += d
		l.Longest = max(l.Longest, d)
	}
}

// Latency returns the figures of one target.
func (a *LatencyAnalyzer) Latency(target string) Latency {
	a.lock.Lock()
	defer a.lock.Unlock()

	if l := a.byTarget[target]; l != nil {
		return *l
	}

	return Latency{}
}

// InFlight returns the number of transactions started but not finished.
func (a *LatencyAnalyzer) InFlight() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.inflight)
}
