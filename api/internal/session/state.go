package session

import "wasteboz/api/internal/ewc"

// Phase is the controller's position in the search lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is a snapshot of one search session. Empty Error and ImagePreview
// mean "none".
type State struct {
	Phase        Phase           `json:"phase"`
	IsLoading    bool            `json:"isLoading"`
	Results      []ewc.WasteCode `json:"results"`
	Error        string          `json:"error,omitempty"`
	Query        string          `json:"query"`
	ImagePreview string          `json:"imagePreview,omitempty"`
}

func initialState() State {
	return State{Phase: PhaseIdle, Results: []ewc.WasteCode{}}
}

// clone deep-copies the results so callers never share the controller's memory.
func (s State) clone() State {
	s.Results = ewc.CloneAll(s.Results)
	return s
}

// HasError reports a settled failure still on screen.
func (s State) HasError() bool { return s.Error != "" }
