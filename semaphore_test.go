package nachos

import (
	"strings"
	"testing"
)

// queuedEquals checks the value/queue relationship: the number of queued
// threads always equals max(0, -value).
func queuedEquals(t *testing.T, s *Semaphore) {
	t.Helper()
	want := 0
	if s.value < 0 {
		want = -s.value
	}
	if got := s.waiters.Len(); got != want {
		t.Errorf("value %d with %d queued threads, want %d", s.value, got, want)
	}
}

func TestSemaphore_FakeAcquireRelease(t *testing.T) {
	d := newFakeDispatcher()
	s := NewSemaphore(d, "s", 1)

	s.Acquire()
	if d.slept != 0 || s.value != 0 {
		t.Fatalf("first acquire slept=%d value=%d, want 0/0", d.slept, s.value)
	}
	if d.level != IntOn {
		t.Fatalf("level after acquire = %v, want on", d.level)
	}
	queuedEquals(t, s)

	s.Acquire() // would block; fake records the sleep instead
	if d.slept != 1 {
		t.Fatalf("second acquire slept=%d, want 1", d.slept)
	}
	if s.value != -1 || s.waiters.Front() != d.cur {
		t.Fatalf("value=%d front=%v, want -1/current thread", s.value, s.waiters.Front())
	}
	queuedEquals(t, s)

	s.Release()
	if len(d.readied) != 1 || d.readied[0] != d.cur {
		t.Fatalf("release readied %v, want the queued thread", d.readied)
	}
	if s.value != 0 {
		t.Fatalf("value after release = %d, want 0", s.value)
	}
	queuedEquals(t, s)
}

// Release must restore the interrupt level it found, not force it on:
// callers may already be inside their own critical section.
func TestSemaphore_ReleaseRestoresPriorLevel(t *testing.T) {
	d := newFakeDispatcher()
	s := NewSemaphore(d, "s", 0)

	d.level = IntOff
	s.Release()
	if d.level != IntOff {
		t.Errorf("Release re-enabled interrupts inside an outer critical section")
	}

	d.level = IntOn
	s.Release()
	if d.level != IntOn {
		t.Errorf("level after Release = %v, want on", d.level)
	}
}

func TestSemaphore_QueueTracksValue(t *testing.T) {
	d := newFakeDispatcher()
	s := NewSemaphore(d, "s", 2)
	for i := 0; i < 5; i++ {
		s.Acquire()
		queuedEquals(t, s)
	}
	for i := 0; i < 5; i++ {
		s.Release()
		queuedEquals(t, s)
	}
	if s.value != 2 {
		t.Errorf("value = %d, want 2", s.value)
	}
}

func TestSemaphore_BlockAndRelease(t *testing.T) {
	k := New()
	s := NewSemaphore(k, "s", 0)
	done := false
	if err := k.Run(func() {
		x := k.Fork("x", func() {
			s.Acquire()
			done = true
		})
		k.Yield() // x runs and blocks
		if got := x.Status(); got != ThreadBlocked {
			t.Errorf("x status = %v, want blocked", got)
		}
		if s.value != -1 || s.waiters.Len() != 1 {
			t.Errorf("value=%d queued=%d, want -1/1", s.value, s.waiters.Len())
		}
		s.Release()
		if done {
			t.Error("x ran synchronously from Release")
		}
		k.Yield()
		if !done {
			t.Error("x never returned from Acquire")
		}
	}); err != nil {
		t.Fatal(err)
	}
	if s.value != 0 || s.waiters.Len() != 0 {
		t.Errorf("final value=%d queued=%d, want 0/0", s.value, s.waiters.Len())
	}
	s.Destroy()
}

func TestSemaphore_FIFOWakeOrder(t *testing.T) {
	k := New()
	s := NewSemaphore(k, "s", 0)
	var order []int
	if err := k.Run(func() {
		for i := 1; i <= 4; i++ {
			k.Fork("waiter", func() {
				s.Acquire()
				order = append(order, i)
			})
		}
		k.Yield() // each waiter blocks and hands off to the next
		if s.waiters.Len() != 4 || s.value != -4 {
			t.Fatalf("queued=%d value=%d, want 4/-4", s.waiters.Len(), s.value)
		}
		for i := 0; i < 4; i++ {
			s.Release()
		}
		k.Yield()
	}); err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3, 4}; len(order) != 4 ||
		order[0] != want[0] || order[1] != want[1] || order[2] != want[2] || order[3] != want[3] {
		t.Errorf("wake order = %v, want %v", order, want)
	}
}

func TestSemaphore_NegativeInitialValue(t *testing.T) {
	k := New()
	s := NewSemaphore(k, "owed", -1)
	if err := k.Run(func() {
		k.Fork("h", func() {
			s.Release()
			s.Release()
		})
		s.Acquire() // value -2: blocked until h pays the debt off
	}); err != nil {
		t.Fatal(err)
	}
	if s.value != 0 {
		t.Errorf("value = %d, want 0", s.value)
	}
}

// Two semaphores as a rendezvous: strict alternation regardless of who
// gets the core when.
func TestSemaphore_PingPong(t *testing.T) {
	k := New(WithTimeSlice(2))
	ping := NewSemaphore(k, "ping", 1)
	pong := NewSemaphore(k, "pong", 0)
	var trace strings.Builder
	if err := k.Run(func() {
		k.Fork("ponger", func() {
			for i := 0; i < 3; i++ {
				pong.Acquire()
				trace.WriteString("pong ")
				ping.Release()
			}
		})
		for i := 0; i < 3; i++ {
			ping.Acquire()
			trace.WriteString("ping ")
			pong.Release()
		}
	}); err != nil {
		t.Fatal(err)
	}
	if got := trace.String(); got != "ping pong ping pong ping pong " {
		t.Errorf("trace = %q", got)
	}
}

func TestSemaphore_DestroyWithWaitersTraps(t *testing.T) {
	k := New()
	s := NewSemaphore(k, "doomed", 0)
	err := k.Run(func() {
		k.Fork("x", func() { s.Acquire() })
		k.Yield()
		s.Destroy()
	})
	if err == nil || !strings.Contains(err.Error(), "destroying semaphore") {
		t.Fatalf("err = %v, want destroy trap", err)
	}
}
