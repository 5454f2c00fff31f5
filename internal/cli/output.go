package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/ccdb/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input or no applicable assignment
	ExitCommandError = 2 // Bad arguments or config, database unreachable, backend failure
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the JSON form of a failure.
type CLIError struct {
	Code    string            `json:"code"` // model.ErrorCode or a CLI code such as "CONFIG"
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// errorOf converts err for output. Untyped errors get code "ERROR".
func errorOf(err error) *CLIError {
	var me *model.Error
	if !errors.As(err, &me) {
		return &CLIError{Code: "ERROR", Message: err.Error()}
	}
	message := me.Message
	if me.Err != nil {
		message = fmt.Sprintf("%s: %v", me.Message, me.Err)
	}
	var details map[string]string
	if len(me.Details) > 0 {
		details = me.Details
	}
	return &CLIError{Code: string(me.Code), Message: message, Details: details}
}

// Success writes data. In text mode data is printed with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Fail writes a failure. Details are shown in text mode only when verbose.
func (f *OutputFormatter) Fail(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}

	fmt.Fprintf(f.Writer, "error: %s: %s\n", e.Code, e.Message)
	if f.Verbose && len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(f.Writer, "  %s=%s\n", k, e.Details[k])
		}
	}
	return nil
}

// Warn prints an advisory in text mode. JSON results carry advisories in
// their payload instead.
func (f *OutputFormatter) Warn(msg string) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintf(f.Writer, "warning: %s\n", msg)
}

// VerboseLog writes a diagnostic line when verbose. It never goes to
// Writer when ErrWriter is set, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// reportError prints err and returns the ExitError for the command.
// Backend and untyped errors are command errors; rejected input and
// unresolvable lookups are failures.
func reportError(f *OutputFormatter, op string, err error) error {
	_ = f.Fail(errorOf(err))

	var me *model.Error
	if errors.As(err, &me) && me.Category() != model.CategoryBackend {
		return WrapExitError(ExitFailure, op, err)
	}
	return WrapExitError(ExitCommandError, op, err)
}
