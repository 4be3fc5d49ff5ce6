// Package scheduler implements the discrete-event time kernel: a priority
// queue of events ordered by (simulated time, insertion sequence). It is the
// only suspension point in the engine — there are no OS threads and no
// wall-clock waits anywhere below the coordinator.
package scheduler

import "container/heap"

// Kind identifies what an Event represents. The coordinator switches on Kind
// to dispatch to the right handler; the scheduler itself never interprets it.
type Kind int

const (
	BlockCandidate Kind = iota
	PropagationArrival
	TxEmit
	AttackTick
	Terminate
)

func (k Kind) String() string {
	switch k {
	case BlockCandidate:
		return "BlockCandidate"
	case PropagationArrival:
		return "PropagationArrival"
	case TxEmit:
		return "TxEmit"
	case AttackTick:
		return "AttackTick"
	case Terminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Event is a scheduled occurrence. Payload carries kind-specific data; the
// scheduler treats it as opaque.
type Event struct {
	Time    float64
	Seq     uint64
	Kind    Kind
	Payload any

	index int // heap bookkeeping
}

// eventHeap implements container/heap.Interface ordered by (Time, Seq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a single-threaded cooperative min-heap of events. Pop advances
// the current simulated time to the popped event's timestamp; it never
// returns an event with a time earlier than the current time.
type Scheduler struct {
	heap    eventHeap
	seq     uint64
	current float64
}

// New returns an empty scheduler with current time 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Now returns the current simulated time (the timestamp of the last popped event).
func (s *Scheduler) Now() float64 { return s.current }

// Len returns the number of pending events.
func (s *Scheduler) Len() int { return s.heap.Len() }

// Schedule enqueues an event at the given time with the given kind and
// payload. O(log n). Ties at the same time are broken by insertion order.
func (s *Scheduler) Schedule(kind Kind, time float64, payload any) *Event {
	e := &Event{Time: time, Seq: s.seq, Kind: kind, Payload: payload}
	s.seq++
	heap.Push(&s.heap, e)
	return e
}

// Pop removes and returns the earliest event, advancing current time to its
// timestamp. It panics if the popped event's time regresses past the current
// simulated time: the heap ordering guarantees monotone pops, so a regression
// is a programming error, not a domain error.
func (s *Scheduler) Pop() (*Event, bool) {
	if s.heap.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&s.heap).(*Event)
	if e.Time < s.current {
		panic("scheduler: popped event time regressed past current simulated time")
	}
	s.current = e.Time
	return e, true
}

// Fastforward advances the current simulated time without popping anything;
// used when resuming from a checkpoint so the clock continues from the saved
// time instead of restarting at zero. A t earlier than the current time is
// ignored.
func (s *Scheduler) Fastforward(t float64) {
	if t > s.current {
		s.current = t
	}
}

// Drain removes every currently scheduled event without advancing time; used
// when a termination predicate fires and in-flight events must be dropped
// rather than processed.
func (s *Scheduler) Drain() {
	s.heap = s.heap[:0]
}
