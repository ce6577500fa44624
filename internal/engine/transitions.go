package engine

import "slices"

// Transitions lists, per phase, the phases a round may move to next.
// Loading and LoadFailed are driven by the session while it fetches a puzzle.
var Transitions = map[Phase][]Phase{
	PhaseLoading:            {PhaseActive, PhaseLoadFailed},
	PhaseLoadFailed:         {PhaseLoading},
	PhaseActive:             {PhaseAwaitingEvaluation, PhaseResolvedTimeout},
	PhaseAwaitingEvaluation: {PhaseResolvedCorrect, PhaseResolvedIncorrect, PhaseResolvedTimeout},
	PhaseResolvedIncorrect:  {PhaseActive, PhaseResolvedTimeout},
	PhaseResolvedCorrect:    {PhaseLoading},
	PhaseResolvedTimeout:    {PhaseLoading},
}

func CanTransition(from, to Phase) bool {
	return slices.Contains(Transitions[from], to)
}
