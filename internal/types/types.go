package types

import "github.com/DoyleJ11/styleguess-backend/pkg/types"

const (
	ClientSelectOption = "SelectOption"
	ClientNextRound    = "NextRound"
	ClientHelpPause    = "HelpPause"
	ClientHelpResume   = "HelpResume"

	ServerStateSnapshot = "StateSnapshot"
	ServerSignal        = "Signal"
	ServerError         = "Error"
)

type ClientMessage struct {
	Type     string `json:"type"`
	OptionID string `json:"option_id,omitempty"`
}

type ServerMessage struct {
	Type    string               `json:"type"` // "StateSnapshot" | "Signal" | "Error"
	Version int                  `json:"version,omitempty"`
	State   *types.RoundSnapshot `json:"state,omitempty"`
	Signal  *types.Signal        `json:"signal,omitempty"`
	Error   string               `json:"error,omitempty"`
}
