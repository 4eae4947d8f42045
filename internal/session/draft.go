package session

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entity is a resolved catalog object cached on the draft.
type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity *int   `json:"quantity,omitempty"`
}

// Draft is the in-progress set of fields for one action flow.
type Draft struct {
	Phase          Phase     `json:"phase"`
	Collected      Slots     `json:"collected"`
	Validated      *Entity   `json:"validated,omitempty"`
	SuggestedField string    `json:"suggestedField,omitempty"`
	SuggestedValue any       `json:"suggestedValue,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewDraft starts an empty draft for phase.
func NewDraft(phase Phase) *Draft {
	return &Draft{Phase: phase, Collected: Slots{}}
}

// ClearSuggestion drops any pending suggestion.
func (d *Draft) ClearSuggestion() {
	d.SuggestedField = ""
	d.SuggestedValue = nil
}

// Interview holds health-score answers keyed by question number.
type Interview struct {
	Answers   map[string]string `json:"answers"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewInterview starts an empty interview.
func NewInterview() *Interview {
	return &Interview{Answers: map[string]string{}}
}

// Turn is one role-tagged line of the rolling conversation window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
