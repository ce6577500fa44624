package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/DoyleJ11/styleguess-backend/internal/catalog"
	"github.com/DoyleJ11/styleguess-backend/internal/engine"
	"github.com/DoyleJ11/styleguess-backend/internal/signals"
	"github.com/DoyleJ11/styleguess-backend/pkg/types"
)

type Msg interface{ isSessionMsg() }

// Start loads the first round. Later Starts are ignored.
type Start struct{}

func (Start) isSessionMsg() {}

type Select struct {
	OptionID string
}

func (Select) isSessionMsg() {}

// NextRound replaces a resolved round, or retries a failed load.
type NextRound struct{}

func (NextRound) isSessionMsg() {}

type HelpPause struct{}

func (HelpPause) isSessionMsg() {}

type HelpResume struct{}

func (HelpResume) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Update // where this client wants to receive updates
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// posted back to the loop by timers and the loader
type tickFired struct{ gen uint64 }
type evaluationDue struct{ epoch uint64 }
type resetDue struct{ epoch uint64 }
type roundLoaded struct {
	seq uint64
	cat catalog.Catalog
	err error
}

func (tickFired) isSessionMsg()     {}
func (evaluationDue) isSessionMsg() {}
func (resetDue) isSessionMsg()      {}
func (roundLoaded) isSessionMsg()   {}

type Update struct {
	Version  int
	Snapshot types.RoundSnapshot
	Signals  []types.Signal
}

type View struct {
	Version    int
	NumClients int
	Snapshot   types.RoundSnapshot
}

type Options struct {
	Code         string
	Source       catalog.Source
	Rules        engine.Rules
	TickInterval time.Duration
	Clock        clockwork.Clock
	Rand         *rand.Rand
	Sink         signals.Sink
	Logger       *zap.Logger
}

// Session runs one player's game. All state below is touched only by loop.
type Session struct {
	code   string
	inbox  chan Msg
	source catalog.Source
	rules  engine.Rules
	clock  clockwork.Clock
	rng    *rand.Rand
	sink   signals.Sink
	logger *zap.Logger

	round   *engine.Round // nil while loading or after a failed load
	phase   engine.Phase  // meaningful only while round is nil
	loadErr error
	started bool
	loadSeq uint64
	epoch   uint64 // last epoch handed to a round
	score   int

	helpPaused bool
	metronome  *metronome
	pending    []clockwork.Timer

	version int
	clients map[string]chan Update
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSession(parent context.Context, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = signals.Fanout{}
	}

	s := &Session{
		code:    opts.Code,
		inbox:   make(chan Msg, 64),
		source:  opts.Source,
		rules:   opts.Rules,
		clock:   opts.Clock,
		rng:     opts.Rand,
		sink:    opts.Sink,
		logger:  opts.Logger.With(zap.String("session", opts.Code)),
		phase:   engine.PhaseLoading,
		clients: make(map[string]chan Update),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.metronome = newMetronome(opts.Clock, opts.TickInterval, func(gen uint64) {
		s.post(tickFired{gen: gen})
	})

	go s.loop()
	return s
}

// Expose the inbox so the transport layers and tests can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Code() string { return s.code }

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.sendTo(msg.ClientID, msg.Outbox, Update{Version: s.version, Snapshot: s.snapshot()})

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case Start:
				if s.started {
					break
				}
				s.started = true
				s.beginLoad()

			case Select:
				s.apply(engine.Command{Type: engine.CmdSelectOption, OptionID: msg.OptionID})

			case NextRound:
				s.requestNextRound()

			case HelpPause:
				s.setHelpPaused(true)

			case HelpResume:
				s.setHelpPaused(false)

			case tickFired:
				if s.round == nil || !s.metronome.accept(msg.gen) {
					break
				}
				s.apply(engine.Command{Type: engine.CmdTick})

			case evaluationDue:
				s.apply(engine.Command{Type: engine.CmdEvaluate, Epoch: msg.epoch})

			case resetDue:
				s.apply(engine.Command{Type: engine.CmdResetSelection, Epoch: msg.epoch})

			case roundLoaded:
				s.finishLoad(msg)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					Snapshot:   s.snapshot(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) requestNextRound() {
	switch {
	case s.round != nil && s.round.NextRoundEnabled():
		s.beginLoad()
	case s.round == nil && s.phase == engine.PhaseLoadFailed && retryable(s.loadErr):
		s.beginLoad()
	default:
		s.logger.Debug("next round ignored", zap.String("phase", string(s.currentPhase())))
	}
}

// beginLoad discards the current round and fetches a fresh catalog off-loop.
// The result comes back as roundLoaded tagged with loadSeq.
func (s *Session) beginLoad() {
	s.settle()
	if s.round != nil {
		s.score = s.round.Score
		s.epoch = s.round.Epoch
	}
	s.round = nil
	s.phase = engine.PhaseLoading
	s.loadErr = nil
	s.loadSeq++
	s.publishState(nil)

	seq, source := s.loadSeq, s.source
	go func() {
		cat, err := source.Load(s.ctx)
		s.post(roundLoaded{seq: seq, cat: cat, err: err})
	}()
}

func (s *Session) finishLoad(msg roundLoaded) {
	if msg.seq != s.loadSeq || s.phase != engine.PhaseLoading || s.round != nil {
		return
	}

	err := msg.err
	var entry catalog.PuzzleEntry
	if err == nil {
		_, entry, err = catalog.DrawRandom(msg.cat, s.rng)
	}
	if err != nil {
		s.phase = engine.PhaseLoadFailed
		s.loadErr = err
		s.logger.Error("failed to load round", zap.Error(err), zap.Bool("retryable", retryable(err)))
		s.publishState(nil)
		return
	}

	s.epoch++
	s.round = engine.NewRound(s.epoch, entry, s.rng, s.score, s.rules)
	s.metronome.start()
	if s.helpPaused {
		// help is still open from before the load
		s.handleEvents(s.mustApply(engine.Command{Type: engine.CmdPause}))
	}
	s.logger.Debug("round started",
		zap.Uint64("epoch", s.epoch),
		zap.String("stylized", entry.StylizedRef),
		zap.Int("budget", s.rules.BudgetSec),
	)
	s.publishState(nil)
}

// setHelpPaused tracks the help overlay. It outlives rounds: a round that
// starts while help is open starts paused.
func (s *Session) setHelpPaused(paused bool) {
	if s.helpPaused == paused {
		return
	}
	s.helpPaused = paused

	var sigs []types.Signal
	if s.round != nil {
		cmd := engine.Command{Type: engine.CmdResume}
		if paused {
			cmd.Type = engine.CmdPause
		}
		sigs = s.handleEvents(s.mustApply(cmd))
	}
	s.publishState(sigs)
}

// mustApply runs a command that cannot be unsupported, logging if it fails anyway.
func (s *Session) mustApply(cmd engine.Command) []engine.Event {
	events, err := s.round.Apply(cmd)
	if err != nil {
		s.logger.Error("failed to apply command", zap.String("command", string(cmd.Type)), zap.Error(err))
	}
	return events
}

func (s *Session) apply(cmd engine.Command) {
	if s.round == nil {
		return
	}

	events, err := s.round.Apply(cmd)
	if err != nil {
		s.logger.Error("failed to apply command", zap.String("command", string(cmd.Type)), zap.Error(err))
		return
	}

	rejected := lo.EveryBy(events, func(e engine.Event) bool { return e.Type == engine.EvtSelectionRejected })
	if rejected {
		// nothing changed: late clicks, duplicate picks and stale callbacks land here
		if len(events) > 0 {
			s.logger.Debug("selection rejected", zap.String("option", cmd.OptionID), zap.String("phase", string(s.round.Phase)))
		}
		return
	}

	s.publishState(s.handleEvents(events))
}

// handleEvents carries out the side effects the round asked for and returns
// the signals to send with the next update.
func (s *Session) handleEvents(events []engine.Event) []types.Signal {
	var sigs []types.Signal
	for _, e := range events {
		switch e.Type {
		case engine.EvtEvaluationScheduled:
			s.schedule(e.Delay, evaluationDue{epoch: e.Epoch})
		case engine.EvtResetScheduled:
			s.schedule(e.Delay, resetDue{epoch: e.Epoch})
		case engine.EvtTimerPaused:
			s.metronome.pause()
		case engine.EvtTimerResumed:
			s.metronome.resume()
		case engine.EvtResolvedCorrect:
			s.settle()
			sigs = append(sigs, s.signal(types.SignalResolvedCorrect, 0))
		case engine.EvtResolvedIncorrect:
			sigs = append(sigs, s.signal(types.SignalResolvedIncorrect, 0))
		case engine.EvtResolvedTimeout:
			s.settle()
			sigs = append(sigs, s.signal(types.SignalResolvedTimeout, 0))
		case engine.EvtScoreChanged:
			sigs = append(sigs, s.signal(types.SignalScoreChanged, e.Delta))
		}
	}

	for _, sig := range sigs {
		if err := s.sink.Publish(s.ctx, sig); err != nil {
			s.logger.Warn("failed to publish signal", zap.String("signal", sig.Type), zap.Error(err))
		}
	}
	return sigs
}

func (s *Session) signal(kind string, delta int) types.Signal {
	return types.Signal{
		Type:    kind,
		Session: s.code,
		Epoch:   s.round.Epoch,
		Delta:   delta,
		At:      s.clock.Now(),
	}
}

func (s *Session) schedule(after time.Duration, msg Msg) {
	t := s.clock.AfterFunc(after, func() { s.post(msg) })
	s.pending = append(s.pending, t)
}

// settle stops the clock and every outstanding callback for the current round.
func (s *Session) settle() {
	s.metronome.stop()
	for _, t := range s.pending {
		t.Stop()
	}
	s.pending = nil
}

func (s *Session) post(msg Msg) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Session) publishState(sigs []types.Signal) {
	s.version++
	s.broadcast(Update{Version: s.version, Snapshot: s.snapshot(), Signals: sigs})
}

func (s *Session) shutdown() {
	s.settle()
	for id, ch := range s.clients {
		close(ch) // Tell client no more updates
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(u Update) {
	for id, ch := range s.clients {
		s.sendTo(id, ch, u)
	}
}

func (s *Session) sendTo(id string, ch chan Update, u Update) {
	select {
	case ch <- u:
		//ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(s.clients, id)
		s.logger.Warn("dropped slow client", zap.String("client", id))
	}
}

func (s *Session) currentPhase() engine.Phase {
	if s.round != nil {
		return s.round.Phase
	}
	return s.phase
}

func retryable(err error) bool {
	return err != nil && !errors.Is(err, catalog.ErrEmptyCatalog)
}
