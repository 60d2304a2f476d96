package harness

// Output is what one dialect produced for a case.
type Output struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql,omitempty"`
	Values  []any  `json:"values,omitempty"`
	// Fingerprint is not part of golden snapshots.
	Fingerprint string `json:"-"`
	Error       string `json:"error,omitempty"`
	err         error
}

// Result is the outcome of a case execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and sandbox check matches.
	Pass bool `json:"pass"`

	// Outputs holds one entry per compiled dialect, in case order.
	Outputs []Output `json:"outputs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Rows contains the rows returned by the sandbox, if it ran a query.
	Rows []map[string]any `json:"rows,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for case execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []Output{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Output returns the output of a dialect.
func (r *Result) Output(dialect string) (Output, bool) {
	for _, out := range r.Outputs {
		if out.Dialect == dialect {
			return out, true
		}
	}
	return Output{}, false
}
