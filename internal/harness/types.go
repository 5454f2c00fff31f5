package harness

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Seq        int64    `json:"seq"`
	Op         string   `json:"op"`      // "add", "get" or "mkvar"
	Target     string   `json:"target"`  // table path, request or variation name
	Outcome    string   `json:"outcome"` // "ok" or an error code
	ID         string   `json:"id,omitempty"`
	Version    int64    `json:"version,omitempty"`
	Variation  string   `json:"variation,omitempty"`
	Runs       string   `json:"runs,omitempty"`
	Advisories []string `json:"advisories,omitempty"`
}

// OutcomeOK marks a successful step.
const OutcomeOK = "ok"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
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

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
