package nachos

// Lock is a mutual-exclusion lock, releasable only by the thread that
// holds it. Unlike a bare Semaphore it has an owner, which is what makes
// the Condition ownership contract checkable.
//
// It is built entirely on one Semaphore initialized to 1: value 1 means
// free, value <= 0 means held with -value threads queued. Acquire order
// is FIFO, inherited from the semaphore's wait queue.
type Lock struct {
	_     noCopy
	d     Dispatcher
	name  string // diagnostic only
	sem   *Semaphore
	owner *Thread // non-nil iff the lock is held
}

// NewLock returns an unheld lock.
func NewLock(d Dispatcher, name string) *Lock {
	return &Lock{d: d, name: name, sem: NewSemaphore(d, name, 1)}
}

// Name returns the diagnostic name.
func (l *Lock) Name() string { return l.name }

// Acquire blocks until the lock is free, then takes ownership.
func (l *Lock) Acquire() {
	l.sem.Acquire()
	// Serialized by the semaphore: only one thread at a time gets here, so
	// no separate guard is needed for owner.
	l.owner = l.d.Current()
}

// Release releases the lock and wakes the longest-waiting acquirer, if
// any. Releasing a lock the calling thread does not hold is fatal:
// continuing would corrupt the ownership invariant for every future
// Condition operation on this lock.
func (l *Lock) Release() {
	if !l.IsHeldByCurrentThread() {
		panic("nachos: " + l.d.Current().String() + " released lock \"" + l.name + "\" it does not hold")
	}
	l.owner = nil
	l.sem.Release()
}

// IsHeldByCurrentThread reports whether the calling thread owns the lock.
func (l *Lock) IsHeldByCurrentThread() bool {
	return l.owner != nil && l.owner == l.d.Current()
}

// Destroy retires the lock. Destroying a held lock is fatal.
func (l *Lock) Destroy() {
	if l.owner != nil {
		panic("nachos: destroying lock \"" + l.name + "\" held by " + l.owner.String())
	}
	l.sem.Destroy()
}
