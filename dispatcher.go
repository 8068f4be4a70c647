package nachos

// Dispatcher is the contract the synchronization primitives need from the
// thread system. *Kernel implements it; the primitives take it as an
// explicit dependency so they can be exercised in isolation against a
// fake implementation.
//
// Sleep and ReadyToRun may only be called with interrupts off: the caller
// is in the middle of an inspect-and-mutate step on a wait queue, and a
// switch before the step completes would expose a half-updated queue.
type Dispatcher interface {
	// Current returns the thread holding the core.
	Current() *Thread

	// Sleep blocks the current thread. It returns only after some other
	// thread has passed the handle to ReadyToRun and the scheduler has
	// dispatched it again. The interrupt level is still IntOff on return;
	// the caller restores it.
	Sleep()

	// ReadyToRun makes t eligible to run without switching to it. The
	// caller keeps the core; t runs when the scheduler next picks it.
	ReadyToRun(t *Thread)

	// SetLevel sets the interrupt level and returns the previous level,
	// which the caller must restore on every exit path.
	SetLevel(level IntStatus) IntStatus
}
