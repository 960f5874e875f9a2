package harness

import (
	"github.com/roach88/assetsync/internal/engine"
)

// StepResult is the outcome of one flow step.
type StepResult struct {
	// Report is the report returned by the call. Nil only when the call
	// was rejected before it started.
	Report *engine.Report

	// Err is the error the call returned.
	Err error

	// Writes counts the target creates and updates made by the call.
	Writes int64
}

// ErrorCode returns the sync error code of the step error, "ERROR" for
// any other error and "" on success.
func (r StepResult) ErrorCode() string {
	if r.Err == nil {
		return ""
	}
	if code, ok := engine.ErrorCode(r.Err); ok {
		return string(code)
	}
	return "ERROR"
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Steps holds one result per flow step, in order.
	Steps []StepResult `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// step returns the result of flow step i, or of the last step when i is
// nil.
func (r *Result) step(i *int) (StepResult, bool) {
	if len(r.Steps) == 0 {
		return StepResult{}, false
	}
	if i == nil {
		return r.Steps[len(r.Steps)-1], true
	}
	if *i < 0 || *i >= len(r.Steps) {
		return StepResult{}, false
	}
	return r.Steps[*i], true
}
