package engine

import "slices"

const PairSize = 2

// Tracker accumulates the player's picks for one guess.
type Tracker struct {
	picks []string
}

// Select appends id unless it is already picked, the pair is full, or the
// caller says the round isn't accepting picks. pairComplete is true only on
// the call that adds the second pick.
func (t *Tracker) Select(id string, eligible bool) (accepted, pairComplete bool) {
	if !eligible || len(t.picks) >= PairSize || slices.Contains(t.picks, id) {
		return false, false
	}
	t.picks = append(t.picks, id)
	return true, len(t.picks) == PairSize
}

func (t *Tracker) Reset() {
	t.picks = nil
}

func (t *Tracker) Selected() []string {
	return slices.Clone(t.picks)
}

func (t *Tracker) Pair() ([PairSize]string, bool) {
	if len(t.picks) != PairSize {
		return [PairSize]string{}, false
	}
	return [PairSize]string{t.picks[0], t.picks[1]}, true
}
