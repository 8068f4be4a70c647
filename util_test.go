package nachos

// fakeDispatcher satisfies Dispatcher without a real scheduler, for
// exercising the primitives' call discipline in isolation. Sleep records
// the call instead of parking, so a would-block Acquire runs straight
// through and the test can inspect the queue it left behind.
type fakeDispatcher struct {
	level   IntStatus
	cur     *Thread
	slept   int
	readied []*Thread
	levels  []IntStatus // every SetLevel argument, in call order
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		level: IntOn,
		cur:   &Thread{id: 1, name: "fake", wake: make(chan struct{})},
	}
}

func (d *fakeDispatcher) Current() *Thread { return d.cur }

func (d *fakeDispatcher) Sleep() {
	if d.level != IntOff {
		panic("fakeDispatcher: Sleep with interrupts enabled")
	}
	d.slept++
}

func (d *fakeDispatcher) ReadyToRun(t *Thread) {
	if d.level != IntOff {
		panic("fakeDispatcher: ReadyToRun with interrupts enabled")
	}
	d.readied = append(d.readied, t)
}

func (d *fakeDispatcher) SetLevel(level IntStatus) IntStatus {
	old := d.level
	d.level = level
	d.levels = append(d.levels, level)
	return old
}
