package nachos

import "fmt"

// IntStatus is the interrupt level of the simulated core. Interrupts are
// the only source of preemption on a single logical core, so IntOff is
// also the atomicity primitive: while the level is IntOff the kernel will
// not switch away from the running thread.
type IntStatus int

const (
	// IntOff disables preemption.
	IntOff IntStatus = iota
	// IntOn enables preemption.
	IntOn
)

func (s IntStatus) String() string {
	switch s {
	case IntOff:
		return "off"
	case IntOn:
		return "on"
	default:
		return fmt.Sprintf("IntStatus(%d)", int(s))
	}
}

// SetLevel changes the interrupt level and returns the previous one.
//
// Callers must restore the returned level rather than unconditionally
// re-enable: an outer critical section may already have interrupts off,
// and turning them back on here would break its atomicity.
//
// Re-enabling is the point where deferred preemption is delivered: with a
// time slice configured, an Off->On transition after an expired slice
// yields the core before SetLevel returns.
func (k *Kernel) SetLevel(level IntStatus) IntStatus {
	old := k.level
	k.level = level
	k.ticks++
	if old == IntOff && level == IntOn && k.sliceExpired() && k.ready.Len() > 0 {
		k.Yield()
	}
	return old
}

func (k *Kernel) sliceExpired() bool {
	return k.slice > 0 && k.ticks-k.lastSwitch >= uint64(k.slice)
}

// mustBeOff traps operations whose contract requires a disabled-preemption
// context. These are kernel bugs or misuse, not recoverable conditions.
func (k *Kernel) mustBeOff(op string) {
	if k.level != IntOff {
		panic("nachos: " + op + " called with interrupts enabled")
	}
}
