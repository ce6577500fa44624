package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/styleguess-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

// Factory builds a session for a fresh code. The hub owns its lifetime.
type Factory func(ctx context.Context, code string) *session.Session

type CreateSession struct {
	Code  string
	Reply chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// RemoveSession shuts the session down and forgets its code.
type RemoveSession struct {
	Code  string
	Reply chan bool // optional; true if the code was known
}

type ShutdownHub struct{}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	factory  Factory
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

func NewHub(parent context.Context, factory Factory, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		factory:  factory,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Lookup asks the hub for a session by code. nil means unknown code.
func (h *Hub) Lookup(ctx context.Context, code string) *session.Session {
	reply := make(chan *session.Session, 1)
	select {
	case h.inbox <- GetSession{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := h.factory(h.ctx, msg.Code)
				h.sessions[msg.Code] = s
				h.logger.Info("session created", zap.String("session", msg.Code), zap.Int("sessions", len(h.sessions)))
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveSession:
				s, ok := h.sessions[msg.Code]
				if ok {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Code)
					h.logger.Info("session removed", zap.String("session", msg.Code))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, s := range h.sessions {
		select {
		case s.Inbox() <- session.Shutdown{}:
		default:
			// inbox full; the cancel below still stops it
		}
		delete(h.sessions, code)
	}
	h.cancel()
}
