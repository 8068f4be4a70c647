package nachos

import (
	"fmt"
	"sync/atomic"
)

// ThreadStatus is the scheduling state of a Thread.
type ThreadStatus int32

const (
	// ThreadReady means the thread is on the ready queue waiting for the core.
	ThreadReady ThreadStatus = iota
	// ThreadRunning means the thread holds the core.
	ThreadRunning
	// ThreadBlocked means the thread is parked on a wait queue and will not
	// run until another thread hands it back to the scheduler.
	ThreadBlocked
	// ThreadFinished means the thread's function returned.
	ThreadFinished
)

func (s ThreadStatus) String() string {
	switch s {
	case ThreadReady:
		return "ready"
	case ThreadRunning:
		return "running"
	case ThreadBlocked:
		return "blocked"
	case ThreadFinished:
		return "finished"
	default:
		return fmt.Sprintf("ThreadStatus(%d)", int32(s))
	}
}

// Thread is a handle to one simulated kernel thread. Threads are created
// with Kernel.Fork and compared by identity; the name is diagnostic only.
//
// Each thread is backed by a goroutine that is parked on the wake channel
// whenever the thread does not hold the simulated core, so at most one
// thread executes at a time.
type Thread struct {
	id     uint64
	name   string
	wake   chan struct{}
	status atomic.Int32 // ThreadStatus; atomic so the host can observe it
}

// ID returns the thread's unique id within its kernel.
func (t *Thread) ID() uint64 { return t.id }

// Name returns the diagnostic name given to Fork.
func (t *Thread) Name() string { return t.name }

// Status returns the thread's current scheduling state.
func (t *Thread) Status() ThreadStatus { return ThreadStatus(t.status.Load()) }

func (t *Thread) setStatus(s ThreadStatus) { t.status.Store(int32(s)) }

func (t *Thread) String() string {
	return fmt.Sprintf("%s#%d", t.name, t.id)
}
