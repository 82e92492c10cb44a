package harness

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step      int    `json:"step"`
	Entity    string `json:"entity"`
	EntityKey string `json:"entity_key"`
	EventName string `json:"event_name"`
	Outcome   string `json:"outcome"` // "appended" or a conflict code
	EventID   string `json:"event_id,omitempty"`
	GlobalSeq int64  `json:"global_seq,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step had its expected outcome and all assertions match.
	Pass bool `json:"pass"`

	// Trace records each step's outcome in order. Fully deterministic,
	// which makes it the subject of golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
