package harness

// TraceEvent records one executed step and its observed outcome.
type TraceEvent struct {
	Op      string `json:"op"`
	Actor   string `json:"actor,omitempty"`
	Outcome string `json:"outcome"`
	Name    string `json:"name,omitempty"`
}

// NotificationRecord is one notification row of the final trace, with
// the related entity rendered as its saved scenario name when one
// exists.
type NotificationRecord struct {
	User    string `json:"user"`
	Type    string `json:"type"`
	Related string `json:"related"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all executed steps in order with their outcomes.
	Trace []TraceEvent `json:"trace"`

	// Notifications contains the final notification rows, grouped by
	// the scenario's user seed order, each user's rows oldest first.
	Notifications []NotificationRecord `json:"notifications"`

	// Errors contains expect and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Notifications: []NotificationRecord{},
		Errors:        []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace. The outcome is "ok" for
// a successful operation or the error kind of a rejected one.
func (r *Result) AddTrace(op, actor, outcome, name string) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:      op,
		Actor:   actor,
		Outcome: outcome,
		Name:    name,
	})
}
