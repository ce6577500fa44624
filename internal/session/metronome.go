package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// metronome delivers countdown ticks on a fixed interval. Each tick is
// scheduled against the previous deadline rather than the time it was
// handled, and pausing keeps the part of the interval that was left, so
// pause/resume and slow handling don't stretch the round.
//
// Every armed timer gets a new generation; the session only accepts a tick
// whose generation is current, which drops fires that raced a pause or stop.
type metronome struct {
	clock    clockwork.Clock
	interval time.Duration
	fire     func(gen uint64)

	timer    clockwork.Timer
	gen      uint64
	deadline time.Time
	left     time.Duration
	running  bool
	paused   bool
}

func newMetronome(clock clockwork.Clock, interval time.Duration, fire func(gen uint64)) *metronome {
	return &metronome{clock: clock, interval: interval, fire: fire}
}

func (m *metronome) start() {
	m.stop()
	m.running = true
	m.armAt(m.clock.Now().Add(m.interval))
}

// accept reports whether a fire with this generation should count as a tick.
// On success the next tick is armed.
func (m *metronome) accept(gen uint64) bool {
	if !m.running || m.paused || gen != m.gen {
		return false
	}
	m.armAt(m.deadline.Add(m.interval))
	return true
}

func (m *metronome) pause() {
	if !m.running || m.paused {
		return
	}
	m.timer.Stop()
	m.left = max(m.deadline.Sub(m.clock.Now()), 0)
	m.paused = true
	m.gen++
}

func (m *metronome) resume() {
	if !m.running || !m.paused {
		return
	}
	m.paused = false
	m.armAt(m.clock.Now().Add(m.left))
}

func (m *metronome) stop() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.running = false
	m.paused = false
	m.gen++
}

func (m *metronome) armAt(deadline time.Time) {
	m.gen++
	gen := m.gen
	m.deadline = deadline
	m.timer = m.clock.AfterFunc(max(deadline.Sub(m.clock.Now()), 0), func() { m.fire(gen) })
}
