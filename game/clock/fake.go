package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Fake is a manually driven Clock on top of a clockwork fake clock. Time
// only moves when Advance is called, and due callbacks run synchronously on
// the caller's goroutine in the order they come due (ties broken by
// scheduling order).
type Fake struct {
	clock *clockwork.FakeClock

	mu      sync.Mutex
	seq     uint64
	entries []*fakeTimer
}

// fakeTimer is one scheduled callback. Every arming creates a clockwork timer
// whose expiry closes fired; the callback itself runs inside Advance.
type fakeTimer struct {
	clock   *Fake
	when    time.Time
	period  time.Duration
	seq     uint64
	fn      func()
	stopped bool

	timer clockwork.Timer
	fired chan struct{}
}

// NewFake creates a fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{clock: clockwork.NewFakeClockAt(start)}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	return f.clock.Now()
}

// AfterFunc schedules fn to run once after d of virtual time.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	return f.schedule(d, 0, fn)
}

// Every schedules fn to run every d of virtual time.
func (f *Fake) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, period time.Duration, fn func()) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d < 0 {
		d = 0
	}
	f.seq++
	t := &fakeTimer{
		clock:  f,
		period: period,
		seq:    f.seq,
		fn:     fn,
	}
	t.arm(d)
	f.entries = append(f.entries, t)
	return t
}

// arm starts the underlying clockwork timer. Caller holds mu.
func (t *fakeTimer) arm(d time.Duration) {
	fired := make(chan struct{})
	t.when = t.clock.clock.Now().Add(d)
	t.fired = fired
	t.timer = t.clock.clock.AfterFunc(d, func() { close(fired) })
}

// Advance moves virtual time forward by d, running every callback that
// comes due on the way. Callbacks may schedule or stop other timers.
func (f *Fake) Advance(d time.Duration) {
	target := f.clock.Now().Add(d)

	for {
		f.mu.Lock()
		next := f.nextDue(target)
		if next == nil {
			f.mu.Unlock()
			f.advanceTo(target)
			return
		}

		f.advanceTo(next.when)
		fired := next.fired
		f.mu.Unlock()

		// clockwork may deliver the expiry on its own goroutine
		<-fired

		f.mu.Lock()
		if next.stopped || next.fired != fired {
			f.mu.Unlock()
			continue
		}
		if next.period > 0 {
			next.arm(next.period)
		} else {
			next.stopped = true
			f.remove(next)
		}
		fn := next.fn
		f.mu.Unlock()

		fn()
	}
}

// advanceTo moves the underlying clock forward to at, never backwards.
func (f *Fake) advanceTo(at time.Time) {
	if step := at.Sub(f.clock.Now()); step > 0 {
		f.clock.Advance(step)
	}
}

// Pending returns the number of active timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// nextDue returns the earliest timer due at or before target. Caller holds mu.
func (f *Fake) nextDue(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range f.entries {
		if t.when.After(target) {
			continue
		}
		if next == nil || t.when.Before(next.when) || (t.when.Equal(next.when) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// remove drops t from the active set. Caller holds mu.
func (f *Fake) remove(t *fakeTimer) {
	for i, e := range f.entries {
		if e == t {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return
		}
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	t.clock.remove(t)
	return true
}
