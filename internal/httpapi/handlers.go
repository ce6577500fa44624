package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/styleguess-backend/internal/hub"
	"github.com/DoyleJ11/styleguess-backend/internal/session"
	"github.com/DoyleJ11/styleguess-backend/pkg/types"
)

const replyTimeout = 2 * time.Second

var errSessionBusy = errors.New("session did not answer in time")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type api struct {
	hub    *hub.Hub
	logger *zap.Logger
}

type selectRequest struct {
	OptionID string `json:"option_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession opens a session under a fresh code and starts its first round.
func (a *api) CreateSession(w http.ResponseWriter, r *http.Request) {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
		if a.hub.Lookup(r.Context(), c) == nil {
			code = c
			break
		}
		a.logger.Debug("collision on code, regenerating", zap.String("code", c))
	}

	reply := make(chan *session.Session, 1)
	a.hub.Inbox() <- hub.CreateSession{Code: code, Reply: reply}
	s := <-reply
	if s == nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.Inbox() <- session.Start{}

	writeJSON(w, http.StatusCreated, struct {
		Code string `json:"code"`
	}{Code: code})
}

func (a *api) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.respondState(w, r, s)
}

func (a *api) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.OptionID == "" {
		writeError(w, http.StatusBadRequest, "missing option_id")
		return
	}

	a.send(w, r, s, session.Select{OptionID: req.OptionID})
}

func (a *api) NextRound(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		a.send(w, r, s, session.NextRound{})
	}
}

func (a *api) Pause(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		a.send(w, r, s, session.HelpPause{})
	}
}

func (a *api) Resume(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		a.send(w, r, s, session.HelpResume{})
	}
}

func (a *api) DeleteSession(w http.ResponseWriter, r *http.Request) {
	removed := make(chan bool, 1)
	a.hub.Inbox() <- hub.RemoveSession{Code: chi.URLParam(r, "code"), Reply: removed}
	if !<-removed {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *api) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := a.hub.Lookup(r.Context(), chi.URLParam(r, "code"))
	if s == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// send queues msg and answers with the state the session reached after it.
// The inbox is FIFO, so the GetState behind msg sees its effect.
func (a *api) send(w http.ResponseWriter, r *http.Request, s *session.Session, msg session.Msg) {
	select {
	case s.Inbox() <- msg:
	case <-r.Context().Done():
		return
	}
	a.respondState(w, r, s)
}

func (a *api) respondState(w http.ResponseWriter, r *http.Request, s *session.Session) {
	snap, err := state(r.Context(), s)
	if err != nil {
		a.logger.Warn("state request failed", zap.String("session", s.Code()), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func state(ctx context.Context, s *session.Session) (types.RoundSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply := make(chan session.View, 1)
	select {
	case s.Inbox() <- session.GetState{Reply: reply}:
	case <-ctx.Done():
		return types.RoundSnapshot{}, errSessionBusy
	}
	select {
	case v := <-reply:
		return v.Snapshot, nil
	case <-ctx.Done():
		return types.RoundSnapshot{}, errSessionBusy
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
