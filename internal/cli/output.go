package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/assetsync/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Sync finished with Failed entries, strict abort, drift found
	ExitCommandError = 2 // Command error (bad ref, config, unreachable store, etc.)
)

// Error codes reported in JSON output for failures that are not sync
// errors.
const (
	CodeAborted = "ABORTED"
	CodeFailed  = "FAILED"
	CodeDrift   = "DRIFT"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // sync run correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // sync error code or ABORTED, FAILED, DRIFT
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Report outputs a sync report. In text mode the report is rendered as a
// table followed by the error line, if any. In JSON mode the report is the
// data (or the error details) of one response.
func (f *OutputFormatter) Report(r *engine.Report, runErr error) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: r, RunID: r.RunID}
		if runErr != nil || r.HasFailures() {
			resp = CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: reportCode(r, runErr), Message: reportMessage(r, runErr), Details: r},
				RunID:  r.RunID,
			}
		}
		return json.NewEncoder(f.Writer).Encode(resp)
	}

	if err := r.WriteText(f.Writer); err != nil {
		return err
	}
	if runErr != nil {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", reportCode(r, runErr), reportMessage(r, runErr))
	}
	return nil
}

func reportCode(r *engine.Report, runErr error) string {
	if runErr == nil {
		return CodeFailed
	}
	if code, ok := engine.ErrorCode(runErr); ok {
		return string(code)
	}
	return CodeAborted
}

func reportMessage(r *engine.Report, runErr error) string {
	if runErr != nil {
		return runErr.Error()
	}
	return fmt.Sprintf("%d entities failed", r.Counts()[engine.Failed])
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
