package nachos

import (
	"fmt"

	"github.com/gammazero/deque"
)

// Condition is a Mesa-style condition variable bound to one Lock, which
// the caller must hold for every operation.
//
// Each waiter gets its own private semaphore, born at 0 and scoped to a
// single Wait call, instead of all waiters sharing one. That closes the
// classic race between releasing the monitor lock and actually blocking:
// a Signal that runs in the gap posts the waiter's private semaphore, so
// the waiter's Acquire simply does not block. No wakeup can be lost.
//
// Mesa semantics: Signal makes a waiter runnable but keeps the core, so
// by the time the waiter re-acquires the lock and returns from Wait,
// other threads may have run. Callers re-check their predicate:
//
//	lock.Acquire()
//	for !condition() {
//	    cond.Wait()
//	}
//	... use the condition ...
//	lock.Release()
//
// The waiter queue itself needs no interrupt-off guard: every operation
// requires the monitor lock, and the lock serializes them.
type Condition struct {
	_       noCopy
	lock    *Lock
	name    string // diagnostic only
	waiters deque.Deque[condWaiter]
}

// condWaiter is one thread suspended in Wait. The thread handle is
// diagnostic; waking works purely through the private semaphore.
type condWaiter struct {
	sem    *Semaphore
	thread *Thread
}

// NewCondition returns a condition variable bound to lock.
func NewCondition(lock *Lock, name string) *Condition {
	return &Condition{lock: lock, name: name}
}

// Name returns the diagnostic name.
func (c *Condition) Name() string { return c.name }

// Wait atomically releases the bound lock and blocks the calling thread
// until another thread signals or broadcasts, then re-acquires the lock
// before returning. Calling Wait without holding the lock is fatal.
func (c *Condition) Wait() {
	c.mustHold("Wait")
	w := condWaiter{
		sem:    NewSemaphore(c.lock.d, c.name, 0),
		thread: c.lock.d.Current(),
	}
	// Enqueue before releasing the lock: once the lock is free a signaler
	// can run, and it must be able to see this waiter.
	c.waiters.PushBack(w)
	c.lock.Release()
	w.sem.Acquire()
	c.lock.Acquire()
	w.sem.Destroy()
}

// Signal wakes the longest-waiting thread, if any. The woken thread only
// becomes runnable; it still has to re-acquire the lock before its Wait
// returns. Signals are not remembered: with no waiter queued this is a
// no-op. Calling Signal without holding the lock is fatal.
func (c *Condition) Signal() {
	c.mustHold("Signal")
	if c.waiters.Len() > 0 {
		c.waiters.PopFront().sem.Release()
	}
}

// Broadcast wakes every queued waiter in FIFO order. They do not resume
// together: each re-acquires the lock as it gets scheduled, so re-entry
// into the monitor stays serialized. Calling Broadcast without holding
// the lock is fatal.
func (c *Condition) Broadcast() {
	c.mustHold("Broadcast")
	for c.waiters.Len() > 0 {
		c.waiters.PopFront().sem.Release()
	}
}

// Destroy retires the condition. Destroying one with queued waiters is
// fatal.
func (c *Condition) Destroy() {
	if n := c.waiters.Len(); n > 0 {
		panic(fmt.Sprintf("nachos: destroying condition %q with %d waiters", c.name, n))
	}
}

func (c *Condition) mustHold(op string) {
	if !c.lock.IsHeldByCurrentThread() {
		panic(fmt.Sprintf("nachos: %s on condition %q without holding lock %q",
			op, c.name, c.lock.name))
	}
}
