package session

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	"github.com/DoyleJ11/styleguess-backend/internal/catalog"
	"github.com/DoyleJ11/styleguess-backend/internal/engine"
	"github.com/DoyleJ11/styleguess-backend/pkg/types"
)

const (
	LoadErrDataUnavailable = "data_unavailable"
	LoadErrEmptyCatalog    = "empty_catalog"
)

func (s *Session) snapshot() types.RoundSnapshot {
	snap := types.RoundSnapshot{
		Code:       s.code,
		Version:    s.version,
		Epoch:      s.epoch,
		Phase:      string(s.currentPhase()),
		Budget:     s.rules.BudgetSec,
		Score:      s.score,
		Options:    []types.OptionView{},
		Selected:   []string{},
		HelpPaused: s.helpPaused,
	}

	if s.round == nil {
		snap.TimeRemaining = s.rules.BudgetSec
		if s.phase == engine.PhaseLoadFailed {
			snap.Error = loadError(s.loadErr)
			snap.NextRoundEnabled = snap.Error.Retryable
		}
		return snap
	}

	r := s.round
	states := r.OptionStates()
	snap.Epoch = r.Epoch
	snap.TimeRemaining = r.Timer.Remaining
	snap.Score = r.Score
	snap.LastDelta = r.LastDelta
	snap.StylizedRef = r.Entry.StylizedRef
	snap.Options = lo.Map(r.Options, func(id string, _ int) types.OptionView {
		return types.OptionView{ID: id, State: string(states[id])}
	})
	snap.Selected = r.Tracker.Selected()
	snap.Message = r.Message()
	snap.NextRoundEnabled = r.NextRoundEnabled()

	if r.Phase == engine.PhaseResolvedCorrect || r.Phase == engine.PhaseResolvedTimeout {
		snap.Reveal = &types.Reveal{
			StylizedRef:   r.Entry.StylizedRef,
			ContentRef:    r.Entry.ContentRef,
			StyleRef:      r.Entry.StyleRef,
			ProcessFrames: slices.Clone(r.Entry.ProcessFrames),
		}
	}
	return snap
}

func loadError(err error) *types.LoadError {
	kind := LoadErrDataUnavailable
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		kind = LoadErrEmptyCatalog
	}
	msg := "catalog could not be loaded"
	if err != nil {
		msg = err.Error()
	}
	return &types.LoadError{Kind: kind, Message: msg, Retryable: retryable(err)}
}
