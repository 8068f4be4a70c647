package nachos

import (
	"fmt"

	"github.com/gammazero/deque"
)

// Semaphore is a counting semaphore with a FIFO wait queue (Dijkstra's P
// and V). A negative value records queued waiters: the number of threads
// blocked in Acquire always equals max(0, -value).
//
// The value and the queue are inspected and mutated as one atomic step by
// turning interrupts off for the duration; no other lock protects them.
// There is no TryAcquire and no timeout: a blocked thread is released
// only by a matching Release from another thread.
type Semaphore struct {
	_       noCopy
	d       Dispatcher
	name    string // diagnostic only
	value   int
	waiters deque.Deque[*Thread]
}

// NewSemaphore returns a semaphore with the given initial value. Any
// sign is allowed; a negative initial value just means that many Release
// calls are owed before the first Acquire can pass.
func NewSemaphore(d Dispatcher, name string, value int) *Semaphore {
	return &Semaphore{d: d, name: name, value: value}
}

// Name returns the diagnostic name.
func (s *Semaphore) Name() string { return s.name }

// Acquire decrements the value, blocking the calling thread while the
// result is negative. The decrement, the test and the enqueue happen
// under one interrupt-off section, so they are a single step with respect
// to every other Acquire and Release on this semaphore.
func (s *Semaphore) Acquire() {
	old := s.d.SetLevel(IntOff)
	s.value--
	if s.value < 0 {
		s.waiters.PushBack(s.d.Current())
		s.d.Sleep()
	}
	s.d.SetLevel(old)
}

// Release wakes the longest-waiting thread, if any, and increments the
// value. The woken thread goes to the ready queue; it does not run
// synchronously. Restoring the previous interrupt level (rather than
// enabling unconditionally) keeps Release safe to call from inside an
// outer critical section.
func (s *Semaphore) Release() {
	old := s.d.SetLevel(IntOff)
	if s.waiters.Len() > 0 {
		s.d.ReadyToRun(s.waiters.PopFront())
	}
	s.value++
	s.d.SetLevel(old)
}

// Destroy retires the semaphore. Destroying one with blocked waiters is
// fatal: those threads could never wake.
func (s *Semaphore) Destroy() {
	old := s.d.SetLevel(IntOff)
	if n := s.waiters.Len(); n > 0 {
		panic(fmt.Sprintf("nachos: destroying semaphore %q with %d blocked threads", s.name, n))
	}
	s.d.SetLevel(old)
}
