package engine

import (
	"time"

	"github.com/samber/lo"
)

const (
	MsgCorrect   = "Correct! You've identified both the content and style images."
	MsgIncorrect = "Incorrect. Try again!"
	MsgTimeout   = "Time's up! The content and style images are highlighted."
)

type OptionState string

const (
	OptionNone      OptionState = "none"
	OptionSelected  OptionState = "selected"
	OptionCorrect   OptionState = "correct"
	OptionIncorrect OptionState = "incorrect"
	OptionFaded     OptionState = "faded"
)

func DefaultRules() Rules {
	return Rules{
		BudgetSec:       30,
		EvaluationDelay: 200 * time.Millisecond,
		RetryDelay:      time.Second,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func (r *Round) Truth() Truth {
	return Truth{ContentRef: r.Entry.ContentRef, StyleRef: r.Entry.StyleRef}
}

// NextRoundEnabled reports whether the player may ask for another puzzle.
func (r *Round) NextRoundEnabled() bool {
	return CanTransition(r.Phase, PhaseLoading)
}

// OptionStates maps every option to how it should be drawn right now.
func (r *Round) OptionStates() map[string]OptionState {
	selected := r.Tracker.Selected()
	truth := []string{r.Entry.ContentRef, r.Entry.StyleRef}

	states := make(map[string]OptionState, len(r.Options))
	for _, id := range r.Options {
		picked := lo.Contains(selected, id)
		switch r.Phase {
		case PhaseResolvedCorrect:
			states[id] = lo.Ternary(picked, OptionCorrect, OptionFaded)
		case PhaseResolvedTimeout:
			states[id] = lo.Ternary(lo.Contains(truth, id), OptionCorrect, OptionFaded)
		case PhaseResolvedIncorrect:
			states[id] = lo.Ternary(picked, OptionIncorrect, OptionNone)
		default:
			states[id] = lo.Ternary(picked, OptionSelected, OptionNone)
		}
	}
	return states
}

// Message is the line shown under the options, empty while nothing happened.
func (r *Round) Message() string {
	switch r.Phase {
	case PhaseResolvedCorrect:
		return MsgCorrect
	case PhaseResolvedIncorrect:
		return MsgIncorrect
	case PhaseResolvedTimeout:
		return MsgTimeout
	default:
		return ""
	}
}
