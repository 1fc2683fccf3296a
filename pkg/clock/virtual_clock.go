package clock

import (
	"container/heap"
	"fmt"
	"sync"
)

type pendingInterrupt struct {
	handler  func()
	when     Ticks
	kind     InterruptKind
	sequence uint64
}

// pendingInterruptHeap orders interrupts by the time at which they
// fire. Interrupts scheduled for the same time fire in the order in
// which they were scheduled.
type pendingInterruptHeap []pendingInterrupt

func (h pendingInterruptHeap) Len() int { return len(h) }

func (h pendingInterruptHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].sequence < h[j].sequence
}

func (h pendingInterruptHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingInterruptHeap) Push(x any) { *h = append(*h, x.(pendingInterrupt)) }

func (h *pendingInterruptHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// VirtualClock is an implementation of Scheduler that keeps track of
// simulated time and a queue of pending interrupts. Time only moves
// forward when Advance() or RunNext() is called, which makes it
// possible to test timing sensitive code deterministically.
//
// Handlers are invoked without any locks held, so that they may
// schedule further interrupts.
type VirtualClock struct {
	lock         sync.Mutex
	now          Ticks
	pending      pendingInterruptHeap
	nextSequence uint64
}

var _ Scheduler = (*VirtualClock)(nil)

// NewVirtualClock creates a VirtualClock that starts at tick zero and
// has no pending interrupts.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the current simulated time.
func (c *VirtualClock) Now() Ticks {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

// Schedule an interrupt handler to be called after delay ticks.
func (c *VirtualClock) Schedule(handler func(), delay Ticks, kind InterruptKind) {
	if delay <= 0 {
		panic(fmt.Sprintf("Attempted to schedule %s interrupt with non-positive delay %d", kind, delay))
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	heap.Push(&c.pending, pendingInterrupt{
		handler:  handler,
		when:     c.now + delay,
		kind:     kind,
		sequence: c.nextSequence,
	})
	c.nextSequence++
}

// Pending returns the number of interrupts that have not fired yet.
func (c *VirtualClock) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.pending)
}

// popDueLocked removes the next interrupt from the queue if it is due
// at or before the provided time, moving the clock forward to the time
// at which it fires.
func (c *VirtualClock) popDueLocked(deadline Ticks) (pendingInterrupt, bool) {
	if len(c.pending) == 0 || c.pending[0].when > deadline {
		return pendingInterrupt{}, false
	}
	i := heap.Pop(&c.pending).(pendingInterrupt)
	if i.when > c.now {
		c.now = i.when
	}
	return i, true
}

// Advance the simulated time by a given number of ticks, firing all
// interrupts that become due in the meantime. Interrupts scheduled by
// handlers are fired as well if they become due before the new time.
func (c *VirtualClock) Advance(d Ticks) {
	if d < 0 {
		panic(fmt.Sprintf("Attempted to move the clock backwards by %d ticks", -d))
	}

	c.lock.Lock()
	deadline := c.now + d
	for {
		i, ok := c.popDueLocked(deadline)
		if !ok {
			break
		}
		c.lock.Unlock()
		i.handler()
		c.lock.Lock()
	}
	c.now = deadline
	c.lock.Unlock()
}

// RunNext moves the simulated time forward to the point at which the
// earliest pending interrupt fires and invokes its handler. This
// corresponds to the processor idling until the next device interrupt.
// False is returned if no interrupts are pending.
func (c *VirtualClock) RunNext() bool {
	c.lock.Lock()
	if len(c.pending) == 0 {
		c.lock.Unlock()
		return false
	}
	i, _ := c.popDueLocked(c.pending[0].when)
	c.lock.Unlock()

	i.handler()
	return true
}
