package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/styleguess-backend/internal/catalog"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrIllegalTransition = errors.New("illegal phase transition")

type Phase string

const (
	PhaseLoading            Phase = "loading"
	PhaseLoadFailed         Phase = "load_failed"
	PhaseActive             Phase = "active"
	PhaseAwaitingEvaluation Phase = "awaiting_evaluation"
	PhaseResolvedCorrect    Phase = "resolved_correct"
	PhaseResolvedIncorrect  Phase = "resolved_incorrect"
	PhaseResolvedTimeout    Phase = "resolved_timeout"
)

type Rules struct {
	BudgetSec       int
	EvaluationDelay time.Duration // cosmetic pause between the second pick and the verdict
	RetryDelay      time.Duration // how long a wrong pair stays on screen before picks reset
}

// Round is the live state of one puzzle. It is owned by a single goroutine;
// nothing in here is safe for concurrent use.
type Round struct {
	Epoch         uint64
	Entry         catalog.PuzzleEntry
	Options       []string
	Phase         Phase
	Timer         Countdown
	Tracker       Tracker
	Score         int
	LastDelta     *int
	PairRemaining int // seconds left when the current pair was completed
	Rules         Rules
}

type CommandType string

const (
	CmdSelectOption   CommandType = "SelectOption"
	CmdTick           CommandType = "Tick"
	CmdEvaluate       CommandType = "Evaluate"
	CmdResetSelection CommandType = "ResetSelection"
	CmdPause          CommandType = "Pause"
	CmdResume         CommandType = "Resume"
)

/*
	CmdSelectOption   -> EvtOptionSelected | EvtSelectionRejected
	                     second pick -> EvtPairCompleted -> EvtEvaluationScheduled (no delay: evaluated inline)
	CmdEvaluate       -> EvtResolvedCorrect -> EvtScoreChanged
	                  -> EvtResolvedIncorrect -> EvtResetScheduled (no delay: EvtSelectionReset inline)
	CmdResetSelection -> EvtSelectionReset
	CmdTick           -> EvtTimerTicked, and on the tick that reaches zero EvtResolvedTimeout.
	                     A pair that was already complete is judged first; if it is right the
	                     round resolves correct instead.
	CmdPause/CmdResume -> EvtTimerPaused / EvtTimerResumed

	Evaluate and ResetSelection come back from scheduled callbacks and carry the
	Epoch they were scheduled under. Anything that resolves or replaces the round
	bumps the epoch, so late callbacks fall through as no-ops.
*/

type Command struct {
	Type     CommandType
	OptionID string
	Epoch    uint64
}

type EventType string

const (
	EvtOptionSelected      EventType = "OptionSelected"
	EvtSelectionRejected   EventType = "SelectionRejected"
	EvtPairCompleted       EventType = "PairCompleted"
	EvtEvaluationScheduled EventType = "EvaluationScheduled"
	EvtResolvedCorrect     EventType = "ResolvedCorrect"
	EvtResolvedIncorrect   EventType = "ResolvedIncorrect"
	EvtResetScheduled      EventType = "ResetScheduled"
	EvtSelectionReset      EventType = "SelectionReset"
	EvtTimerTicked         EventType = "TimerTicked"
	EvtTimerPaused         EventType = "TimerPaused"
	EvtTimerResumed        EventType = "TimerResumed"
	EvtResolvedTimeout     EventType = "ResolvedTimeout"
	EvtScoreChanged        EventType = "ScoreChanged"
)

type Event struct {
	Type      EventType
	OptionID  string
	Remaining int
	Delta     int
	Delay     time.Duration
	Epoch     uint64
}

// NewRound starts a round for entry: options shuffled, selection empty, timer
// armed with the budget, phase Active. score carries over from the previous round.
func NewRound(epoch uint64, entry catalog.PuzzleEntry, rng *rand.Rand, score int, rules Rules) *Round {
	r := &Round{
		Epoch:   epoch,
		Entry:   entry,
		Options: Shuffle(rng, entry.Options()),
		Phase:   PhaseActive,
		Score:   score,
		Rules:   rules,
	}
	r.Timer.Arm(rules.BudgetSec)
	return r
}

func (r *Round) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdSelectOption:
		return r.selectOption(cmd.OptionID)

	case CmdEvaluate:
		if cmd.Epoch != r.Epoch || r.Phase != PhaseAwaitingEvaluation {
			return nil, nil
		}
		return r.evaluate()

	case CmdResetSelection:
		if cmd.Epoch != r.Epoch || r.Phase != PhaseResolvedIncorrect {
			return nil, nil
		}
		return r.resetSelection()

	case CmdTick:
		return r.tick()

	case CmdPause:
		if r.Timer.State != TimerTicking {
			return nil, nil
		}
		r.Timer.Pause()
		return []Event{{Type: EvtTimerPaused, Remaining: r.Timer.Remaining}}, nil

	case CmdResume:
		if r.Timer.State != TimerPaused {
			return nil, nil
		}
		r.Timer.Resume()
		return []Event{{Type: EvtTimerResumed, Remaining: r.Timer.Remaining}}, nil

	default:
		return nil, ErrUnsupportedCommand
	}
}

func (r *Round) selectOption(id string) ([]Event, error) {
	eligible := r.Phase == PhaseActive && slices.Contains(r.Options, id)
	accepted, complete := r.Tracker.Select(id, eligible)
	if !accepted {
		return []Event{{Type: EvtSelectionRejected, OptionID: id}}, nil
	}

	events := []Event{{Type: EvtOptionSelected, OptionID: id}}
	if !complete {
		return events, nil
	}

	r.PairRemaining = r.Timer.Remaining
	if err := r.transition(PhaseAwaitingEvaluation); err != nil {
		return nil, err
	}
	events = append(events, Event{Type: EvtPairCompleted, Remaining: r.PairRemaining})

	if r.Rules.EvaluationDelay > 0 {
		return append(events, Event{Type: EvtEvaluationScheduled, Delay: r.Rules.EvaluationDelay, Epoch: r.Epoch}), nil
	}
	more, err := r.evaluate()
	return append(events, more...), err
}

func (r *Round) evaluate() ([]Event, error) {
	if r.pairCorrect() {
		return r.resolveCorrect()
	}

	if err := r.transition(PhaseResolvedIncorrect); err != nil {
		return nil, err
	}
	events := []Event{{Type: EvtResolvedIncorrect}}

	if r.Rules.RetryDelay > 0 {
		return append(events, Event{Type: EvtResetScheduled, Delay: r.Rules.RetryDelay, Epoch: r.Epoch}), nil
	}
	more, err := r.resetSelection()
	return append(events, more...), err
}

func (r *Round) pairCorrect() bool {
	pair, ok := r.Tracker.Pair()
	return ok && Evaluate(pair, r.Truth()) == VerdictCorrect
}

func (r *Round) resolveCorrect() ([]Event, error) {
	if err := r.transition(PhaseResolvedCorrect); err != nil {
		return nil, err
	}
	r.Timer.Disarm()
	r.Epoch++

	delta := ScoreFor(r.PairRemaining, r.Rules.BudgetSec)
	r.Score += delta
	r.LastDelta = &delta

	return []Event{
		{Type: EvtResolvedCorrect},
		{Type: EvtScoreChanged, Delta: delta},
	}, nil
}

func (r *Round) resetSelection() ([]Event, error) {
	if err := r.transition(PhaseActive); err != nil {
		return nil, err
	}
	r.Tracker.Reset()
	return []Event{{Type: EvtSelectionReset}}, nil
}

func (r *Round) tick() ([]Event, error) {
	if r.Timer.State != TimerTicking {
		return nil, nil
	}

	if !r.Timer.Tick() {
		return []Event{{Type: EvtTimerTicked, Remaining: r.Timer.Remaining}}, nil
	}

	events := []Event{{Type: EvtTimerTicked, Remaining: 0}}
	more, err := r.expire()
	return append(events, more...), err
}

// expire runs on the tick that reaches zero. A completed pair was committed
// before the deadline, so it is judged before the round times out.
func (r *Round) expire() ([]Event, error) {
	if r.Phase == PhaseAwaitingEvaluation && r.pairCorrect() {
		return r.resolveCorrect()
	}

	if err := r.transition(PhaseResolvedTimeout); err != nil {
		return nil, err
	}
	r.Timer.Disarm()
	r.Epoch++
	return []Event{{Type: EvtResolvedTimeout}}, nil
}

func (r *Round) transition(to Phase) error {
	if !CanTransition(r.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Phase, to)
	}
	r.Phase = to
	return nil
}
