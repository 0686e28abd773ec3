package monitoring

import (
	"sync"
	"time"

	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/id"
	"github.com/slahiruk/vcml/sim/timing"
)

// A ProgressBar tracks how much of a job is done.
type ProgressBar struct {
	lock sync.Mutex

	id         string
	name       string
	startTime  time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

// ProgressBarState is a snapshot of a ProgressBar.
type ProgressBarState struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// State returns a snapshot of the bar.
func (b *ProgressBar) State() ProgressBarState {
	b.lock.Lock()
	defer b.lock.Unlock()

	return ProgressBarState{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.startTime,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}

// IncrementInProgress adds to the number of items in progress.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress += amount
}

// IncrementFinished adds to the number of finished items.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished += amount
}

// MoveInProgressToFinished marks items in progress as finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress -= amount
	b.finished += amount
}

// SetFinished sets the number of finished items, capped at the total.
func (b *ProgressBar) SetFinished(finished uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished = min(finished, b.total)
}

// CreateProgressBar creates a bar shown under /api/progress.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        id.Generate(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			bars = append(bars, b)
		}
	}

	m.progressBars = bars
}

// timeProgress advances a bar with the simulated time, in picoseconds.
type timeProgress struct {
	bar *ProgressBar
}

func (h timeProgress) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosTimeStep {
		return
	}

	if now, ok := ctx.Item.(timing.VTime); ok {
		h.bar.SetFinished(uint64(now))
	}
}

// TrackTime creates a bar that follows the simulated time of the registered
// kernel up to until. The returned function stops tracking and removes the
// bar.
func (m *Monitor) TrackTime(name string, until timing.VTime) (*ProgressBar, func()) {
	if m.kernel == nil {
		panic("monitor has no kernel to track")
	}

	bar := m.CreateProgressBar(name, uint64(until))
	hook := timeProgress{bar: bar}
	m.kernel.AcceptHook(hook)

	return bar, func() {
		m.kernel.RemoveHook(hook)
		m.CompleteProgressBar(bar)
	}
}
