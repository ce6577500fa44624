package types

// RoundSnapshot is everything the browser needs to draw the current round.
// Phase is one of: loading | load_failed | active | awaiting_evaluation |
// resolved_correct | resolved_incorrect | resolved_timeout.
type RoundSnapshot struct {
	Code             string       `json:"code"`
	Version          int          `json:"version"`
	Epoch            uint64       `json:"epoch"`
	Phase            string       `json:"phase"`
	TimeRemaining    int          `json:"time_remaining"`
	Budget           int          `json:"budget"`
	Score            int          `json:"score"`
	LastDelta        *int         `json:"last_delta,omitempty"`
	StylizedRef      string       `json:"stylized_ref,omitempty"`
	Options          []OptionView `json:"options"`
	Selected         []string     `json:"selected"`
	Message          string       `json:"message,omitempty"`
	NextRoundEnabled bool         `json:"next_round_enabled"`
	HelpPaused       bool         `json:"help_paused"`
	Reveal           *Reveal      `json:"reveal,omitempty"`
	Error            *LoadError   `json:"error,omitempty"`
}

// OptionView is one candidate image.
// State is one of: none | selected | correct | incorrect | faded.
type OptionView struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Reveal backs the "show me how" overlay. Only sent once the round is over.
type Reveal struct {
	StylizedRef   string   `json:"stylized_ref"`
	ContentRef    string   `json:"content_ref"`
	StyleRef      string   `json:"style_ref"`
	ProcessFrames []string `json:"process_frames"`
}

// LoadError explains a load_failed phase.
// Kind is data_unavailable (retry with next_round) or empty_catalog (server misconfigured).
type LoadError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
