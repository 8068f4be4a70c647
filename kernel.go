// Package nachos provides the thread-synchronization core of a simulated
// single-core kernel: a counting Semaphore, a Lock built on it, and a
// Mesa-style Condition built on both, together with the cooperative
// Kernel scheduler they run on.
//
// Threads run one at a time on one logical core. Atomicity is achieved by
// disabling interrupts (SetLevel), never by hardware compare-and-swap;
// the interesting hazards are interleavings at preemption points, which
// is exactly what the primitives guard against.
package nachos

import (
	"fmt"
	"sort"

	"github.com/gammazero/deque"
	"github.com/llxisdsh/pb"
)

// Kernel simulates a single logical core with a FIFO ready queue. Every
// thread is a goroutine parked on its own wake channel; switching the
// core means waking the next thread's channel and parking the current
// one, so exactly one thread executes between switches.
//
// With no time slice the kernel is purely cooperative and deterministic:
// the core moves only at Yield, at Sleep, and at thread exit. WithTimeSlice
// adds preemption, delivered when the interrupt level returns to IntOn.
type Kernel struct {
	_ noCopy

	level      IntStatus
	ticks      uint64 // advances on every SetLevel
	lastSwitch uint64 // ticks value at the last core switch
	slice      int    // preempt after this many ticks; 0 = never

	current *Thread
	ready   deque.Deque[*Thread]
	nextID  uint64
	live    int

	// threads maps id -> live thread. It is written by the simulated core
	// and read by host goroutines while the simulation runs, hence the
	// concurrent map.
	threads pb.MapOf[uint64, *Thread]

	host chan struct{} // closed when the simulation ends
	trap error
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithTimeSlice makes the kernel preemptive: once n interrupt-level
// transitions have passed since the last core switch, the next return to
// IntOn yields the core. Small values shake out interleavings that a
// cooperative run would never produce.
func WithTimeSlice(n int) Option {
	return func(k *Kernel) { k.slice = n }
}

// New returns an idle kernel. Nothing runs until Run is called.
func New(opts ...Option) *Kernel {
	k := &Kernel{level: IntOff}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Run forks main and runs the simulation until every thread has finished.
//
// A panic inside any thread - including the fatal misuse traps raised by
// the primitives - stops the simulation and is returned as an error. The
// goroutines of threads still blocked at that point are abandoned, so a
// trapped kernel must not be reused; create a fresh one.
func (k *Kernel) Run(main func()) error {
	if k.live != 0 {
		return fmt.Errorf("nachos: kernel is not reusable after a trap")
	}
	k.level = IntOff
	k.ticks = 0
	k.lastSwitch = 0
	k.trap = nil
	k.host = make(chan struct{})

	k.Fork("main", main)
	k.dispatch(k.ready.PopFront())
	<-k.host

	k.current = nil
	return k.trap
}

// Fork creates a thread running f and puts it on the back of the ready
// queue. It does not switch to it: the caller keeps the core, matching
// ReadyToRun semantics. Fork may be called from any running thread.
func (k *Kernel) Fork(name string, f func()) *Thread {
	k.nextID++
	t := &Thread{id: k.nextID, name: name, wake: make(chan struct{})}
	go k.threadRoot(t, f)

	old := k.SetLevel(IntOff)
	k.live++
	k.threads.Store(t.id, t)
	k.ReadyToRun(t)
	k.SetLevel(old)
	return t
}

// threadRoot is the body of every thread goroutine: park until first
// dispatched, enable interrupts, run f, then tear down. A panic in f is
// the simulation's trap path; it surfaces as Run's return value.
func (k *Kernel) threadRoot(t *Thread, f func()) {
	defer func() {
		if r := recover(); r != nil {
			k.trap = fmt.Errorf("nachos: thread %v trapped: %v", t, r)
			t.setStatus(ThreadFinished)
			k.threads.Delete(t.id)
			close(k.host)
		}
	}()
	<-t.wake
	k.SetLevel(IntOn)
	f()
	k.finish(t)
}

// finish retires t and hands the core to the next ready thread, or ends
// the simulation when t was the last one.
func (k *Kernel) finish(t *Thread) {
	k.SetLevel(IntOff)
	t.setStatus(ThreadFinished)
	k.threads.Delete(t.id)
	k.live--
	if k.live == 0 {
		close(k.host)
		return
	}
	if k.ready.Len() == 0 {
		panic(fmt.Sprintf("deadlock: %v exiting and all %d remaining threads are blocked", t, k.live))
	}
	k.dispatch(k.ready.PopFront())
}

// Current returns the thread holding the core.
func (k *Kernel) Current() *Thread { return k.current }

// Yield gives up the core to the front of the ready queue and requeues
// the caller behind it. While interrupts are off the scheduler must not
// switch away, so Yield is then a no-op.
func (k *Kernel) Yield() {
	if k.level == IntOff {
		return
	}
	k.level = IntOff
	k.ticks++
	if k.ready.Len() > 0 {
		cur := k.current
		cur.setStatus(ThreadReady)
		k.ready.PushBack(cur)
		k.handoff(k.ready.PopFront())
	}
	// Raw re-enable: the slice was reset by the switch, and re-running the
	// SetLevel preemption check here would yield a second time.
	k.level = IntOn
	k.ticks++
}

// Sleep blocks the current thread. The thread is NOT put on the ready
// queue; whoever wakes it calls ReadyToRun with its handle. Interrupts
// must already be off, and are still off when Sleep returns.
func (k *Kernel) Sleep() {
	k.mustBeOff("Sleep")
	cur := k.current
	cur.setStatus(ThreadBlocked)
	if k.ready.Len() == 0 {
		panic(fmt.Sprintf("deadlock: %v blocked with no runnable threads", cur))
	}
	k.handoff(k.ready.PopFront())
}

// ReadyToRun puts t on the back of the ready queue without switching to
// it. The woken thread becomes eligible to run later, not synchronously.
// Interrupts must be off.
func (k *Kernel) ReadyToRun(t *Thread) {
	k.mustBeOff("ReadyToRun")
	t.setStatus(ThreadReady)
	k.ready.PushBack(t)
}

// dispatch gives the core to next without parking the caller. Used by Run
// for the first thread and by finish, where the calling goroutine is done.
func (k *Kernel) dispatch(next *Thread) {
	k.mustBeOff("dispatch")
	k.lastSwitch = k.ticks
	k.current = next
	next.setStatus(ThreadRunning)
	next.wake <- struct{}{}
}

// handoff gives the core to next and parks the caller until it is
// dispatched again. Interrupts must be off for the duration.
func (k *Kernel) handoff(next *Thread) {
	cur := k.current
	if next == cur {
		cur.setStatus(ThreadRunning)
		k.lastSwitch = k.ticks
		return
	}
	k.dispatch(next)
	<-cur.wake
}

// ThreadCount returns the number of live threads. Safe to call from host
// goroutines while the simulation is running.
func (k *Kernel) ThreadCount() int {
	return k.threads.Size()
}

// Threads returns the live threads ordered by id. Safe to call from host
// goroutines while the simulation is running; statuses are a snapshot and
// may be stale by the time the caller looks at them.
func (k *Kernel) Threads() []*Thread {
	var out []*Thread
	k.threads.Range(func(_ uint64, t *Thread) bool {
		out = append(out, t)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
