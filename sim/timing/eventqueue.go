package timing

import "container/heap"

// queuedEvent orders events by time, then delta cycle, then scheduling order.
type queuedEvent struct {
	evt   Event
	time  VTime
	delta uint64
	seq   uint64
}

func (a *queuedEvent) before(b *queuedEvent) bool {
	if a.time != b.time {
		return a.time < b.time
	}

	if a.delta != b.delta {
		return a.delta < b.delta
	}

	return a.seq < b.seq
}

// eventQueue is not thread safe; the kernel serializes all access.
type eventQueue struct {
	events eventHeap
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.events)

	return q
}

func (q *eventQueue) Push(e *queuedEvent) {
	heap.Push(&q.events, e)
}

func (q *eventQueue) Pop() *queuedEvent {
	return heap.Pop(&q.events).(*queuedEvent)
}

func (q *eventQueue) Peek() *queuedEvent {
	return q.events[0]
}

func (q *eventQueue) Len() int {
	return len(q.events)
}

type eventHeap []*queuedEvent

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*queuedEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[0 : n-1]

	return e
}
