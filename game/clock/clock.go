// Package clock abstracts scheduling so game timing can run on wall-clock
// time in production and on virtual time in tests. Both implementations are
// backed by github.com/jonboulle/clockwork.
//
// Callbacks scheduled with AfterFunc run once; callbacks scheduled with Every
// run repeatedly until the returned Timer is stopped. Stop never waits for a
// callback that is already running.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock schedules callbacks and reports the current time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	Every(d time.Duration, f func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents future runs. It reports whether the call stopped the
	// timer, false if it had already fired (one-shot) or been stopped.
	Stop() bool
}

// Real returns a Clock running on wall-clock time.
func Real() Clock {
	return realClock{clock: clockwork.NewRealClock()}
}

type realClock struct {
	clock clockwork.Clock
}

func (c realClock) Now() time.Time {
	return c.clock.Now()
}

func (c realClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.clock.AfterFunc(d, f)
}

func (c realClock) Every(d time.Duration, f func()) Timer {
	t := &ticker{
		ticker: c.clock.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(f)
	return t
}

// ticker runs f on every tick until stopped.
type ticker struct {
	ticker clockwork.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *ticker) run(f func()) {
	for {
		select {
		case <-t.ticker.Chan():
			f()
		case <-t.done:
			return
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
