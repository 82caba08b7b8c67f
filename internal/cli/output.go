package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/deliver/internal/delivery"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Engine fault, failed scenario, broken event log
	ExitCommandError = 2 // Refused request: forbidden, unknown session, bad payload, bad arguments
)

// Error codes reported for engine errors.
const (
	CodeForbidden  = "E_FORBIDDEN"
	CodeNotFound   = "E_NOT_FOUND"
	CodeBadPayload = "E_BAD_PAYLOAD"
	CodeLogic      = "E_LOGIC"
	CodeRender     = "E_RENDER"
	CodeCommand    = "E_COMMAND"
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an engine error to its error code and exit code. Refusals
// the candidate can act on exit with 2, engine faults with 1.
func classify(err error) (string, int) {
	switch delivery.KindOf(err) {
	case delivery.KindForbidden:
		return CodeForbidden, ExitCommandError
	case delivery.KindNotFound:
		return CodeNotFound, ExitCommandError
	case delivery.KindBadPayload:
		return CodeBadPayload, ExitCommandError
	case delivery.KindRenderingFailure:
		return CodeRender, ExitFailure
	default:
		return CodeLogic, ExitFailure
	}
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
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code      string `json:"code"`                // E_FORBIDDEN, E_NOT_FOUND, ...
	Message   string `json:"message"`             // human-readable message
	Privilege string `json:"privilege,omitempty"` // denied privilege of a forbidden request
	Session   int64  `json:"session,omitempty"`
	Details   any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.writeError(&CLIError{Code: code, Message: message, Details: details})
}

func (f *OutputFormatter) writeError(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  e,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// EngineError reports an engine error and returns the ExitError the
// command should fail with.
func (f *OutputFormatter) EngineError(err error) error {
	code, exit := classify(err)
	e := &CLIError{
		Code:      code,
		Message:   err.Error(),
		Privilege: string(delivery.PrivilegeOf(err)),
	}
	var de *delivery.Error
	if errors.As(err, &de) {
		e.Session = int64(de.SessionID)
	}
	_ = f.writeError(e)
	return WrapExitError(exit, code, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
