package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetronome() (*metronome, *clockwork.FakeClock, chan uint64) {
	clock := clockwork.NewFakeClock()
	fired := make(chan uint64, 8)
	m := newMetronome(clock, time.Second, func(gen uint64) { fired <- gen })
	return m, clock, fired
}

func recvFire(t *testing.T, fired <-chan uint64) uint64 {
	t.Helper()
	select {
	case gen := <-fired:
		return gen
	case <-time.After(time.Second):
		t.Fatalf("metronome did not fire")
		return 0
	}
}

func noFire(t *testing.T, fired <-chan uint64) {
	t.Helper()
	select {
	case gen := <-fired:
		t.Fatalf("unexpected fire (gen %d)", gen)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMetronome_AcceptsOnlyCurrentGeneration(t *testing.T) {
	m, clock, fired := newTestMetronome()
	m.start()

	clock.Advance(time.Second)
	gen := recvFire(t, fired)
	require.True(t, m.accept(gen))
	assert.False(t, m.accept(gen), "a fire must only count once")

	clock.Advance(time.Second)
	next := recvFire(t, fired)
	assert.Greater(t, next, gen)
	assert.True(t, m.accept(next))
}

func TestMetronome_PauseDropsInFlightFire(t *testing.T) {
	m, clock, fired := newTestMetronome()
	m.start()

	clock.Advance(time.Second)
	gen := recvFire(t, fired)
	m.pause()
	assert.False(t, m.accept(gen))

	m.resume()
	assert.False(t, m.accept(gen))
}

func TestMetronome_PauseKeepsRemainder(t *testing.T) {
	m, clock, fired := newTestMetronome()
	m.start()

	clock.Advance(700 * time.Millisecond)
	m.pause()
	clock.Advance(time.Minute)
	noFire(t, fired)

	m.resume()
	clock.Advance(299 * time.Millisecond)
	noFire(t, fired)
	clock.Advance(time.Millisecond)
	assert.True(t, m.accept(recvFire(t, fired)))
}

func TestMetronome_StopInvalidates(t *testing.T) {
	m, clock, fired := newTestMetronome()
	m.start()
	m.stop()

	clock.Advance(5 * time.Second)
	noFire(t, fired)
	assert.False(t, m.accept(m.gen))

	// resume after stop is a no-op
	m.resume()
	clock.Advance(5 * time.Second)
	noFire(t, fired)
}
