package convert

import (
	"sync"
	"time"
)

// fakeClock delivers ticks without waiting and advances its notion of now by
// the tick interval before each delivery, so capture loops that pace
// themselves against wall time finish immediately.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Tick(d time.Duration) (<-chan time.Time, func()) {
	ch := make(chan time.Time)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			c.mu.Lock()
			c.now = c.now.Add(d)
			now := c.now
			c.mu.Unlock()
			select {
			case ch <- now:
			case <-done:
				return
			}
		}
	}()
	return ch, func() { once.Do(func() { close(done) }) }
}
