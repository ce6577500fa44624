package types

import "time"

// Signals are fire-and-forget notifications for effects the round itself
// doesn't render (confetti, shake, sounds). They go out to websocket clients
// alongside snapshots and to any configured signal sink.
//
//   round.resolved.correct   - pair guessed; followed by score.changed
//   round.resolved.incorrect - wrong pair; picks reset shortly after
//   round.resolved.timeout   - clock ran out; the right pair is marked
//   score.changed            - delta: points just awarded
const (
	SignalResolvedCorrect   = "round.resolved.correct"
	SignalResolvedIncorrect = "round.resolved.incorrect"
	SignalResolvedTimeout   = "round.resolved.timeout"
	SignalScoreChanged      = "score.changed"
)

type Signal struct {
	Type    string    `json:"type"`
	Session string    `json:"session"`
	Epoch   uint64    `json:"epoch"`
	Delta   int       `json:"delta,omitempty"`
	At      time.Time `json:"at"`
}
