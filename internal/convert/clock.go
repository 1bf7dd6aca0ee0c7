package convert

import "time"

// Clock paces the real-time capture loops of the video and audio strategies.
// Tests substitute a fake implementation so capture completes immediately.
type Clock interface {
	Now() time.Time
	// Tick returns a ticking channel and a stop function.
	Tick(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Tick(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
