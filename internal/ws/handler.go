package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/styleguess-backend/internal/hub"
	"github.com/DoyleJ11/styleguess-backend/internal/session"
	"github.com/DoyleJ11/styleguess-backend/internal/types"
)

var errUnknownType = errors.New("unknown type")

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 10 * time.Minute
)

type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		s := h.Lookup(r.Context(), code)
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept failed", zap.String("session", code), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := logger.With(zap.String("session", code), zap.String("client", clientID))

		out := make(chan session.Update, 8)
		select {
		case s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}:
		case <-s.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		case <-r.Context().Done():
			return
		}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ClientID: clientID}:
			case <-s.Done():
			case <-time.After(time.Second):
			}
		}()
		log.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				var u session.Update
				var ok bool
				select {
				case u, ok = <-out:
				case <-s.Done():
					// a Join still queued when the session stopped is never answered
				case <-writeCtx.Done():
					return
				}
				if !ok {
					// session dropped us or shut down
					conn.Close(websocket.StatusGoingAway, "session closed")
					return
				}
				for _, msg := range toServerMessages(u) {
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := wsjson.Write(ctx, conn, msg)
					cancel()
					if err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client left")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, err := toSessionMsg(cm)
			if err != nil {
				writeError(r.Context(), conn, err.Error())
				continue
			}

			select {
			case s.Inbox() <- msg:
			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeError(parent context.Context, conn *websocket.Conn, reason string) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.ServerMessage{Type: types.ServerError, Error: reason})
}

func toSessionMsg(m types.ClientMessage) (session.Msg, error) {
	switch m.Type {
	case types.ClientSelectOption:
		if m.OptionID == "" {
			return nil, errors.New("missing option_id")
		}
		return session.Select{OptionID: m.OptionID}, nil
	case types.ClientNextRound:
		return session.NextRound{}, nil
	case types.ClientHelpPause:
		return session.HelpPause{}, nil
	case types.ClientHelpResume:
		return session.HelpResume{}, nil
	default:
		return nil, errUnknownType
	}
}

// toServerMessages turns one update into the frames a client sees: the
// snapshot first, then any signals raised by the same change.
func toServerMessages(u session.Update) []types.ServerMessage {
	snap := u.Snapshot
	msgs := []types.ServerMessage{{Type: types.ServerStateSnapshot, Version: u.Version, State: &snap}}
	for i := range u.Signals {
		msgs = append(msgs, types.ServerMessage{Type: types.ServerSignal, Version: u.Version, Signal: &u.Signals[i]})
	}
	return msgs
}
