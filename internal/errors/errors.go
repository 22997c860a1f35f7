package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies a pipeline failure. Per-unit codes degrade a single job or
// file; only CONFIG_INVALID aborts an invocation before any work starts.
type Code string

const (
	CodeNetworkFailure      Code = "NETWORK_FAILURE"
	CodeChecksumMismatch    Code = "CHECKSUM_MISMATCH"
	CodeArchiveCorrupt      Code = "ARCHIVE_CORRUPT"
	CodeSchemaCoercion      Code = "SCHEMA_COERCION_FAILED"
	CodeDecimalParse        Code = "DECIMAL_PARSE_FAILED"
	CodeMetadataUnavailable Code = "METADATA_UNAVAILABLE"
	CodeConfigInvalid       Code = "CONFIG_INVALID"
	CodeFileSystem          Code = "FILESYSTEM_ERROR"
)

// PipelineError is a classified error for one pipeline unit. Unit identifies
// the job or file the failure belongs to.
type PipelineError struct {
	Code Code
	Op   string
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	switch {
	case e.Unit != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s [%s]: %v", e.Op, e.Unit, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Code, e.Err)
	case e.Unit != "":
		return fmt.Sprintf("%s: %s [%s]", e.Op, e.Unit, e.Code)
	default:
		return fmt.Sprintf("%s [%s]", e.Op, e.Code)
	}
}

// Unwrap returns the wrapped error.
func (e *PipelineError) Unwrap() error { return e.Err }

// New creates a PipelineError without a cause.
func New(code Code, op, unit string) *PipelineError {
	return &PipelineError{Code: code, Op: op, Unit: unit}
}

// Wrap classifies an underlying error. Returns nil when err is nil.
func Wrap(code Code, op, unit string, err error) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{Code: code, Op: op, Unit: unit, Err: err}
}

// CodeOf returns the classification of err, or "" when err carries none.
func CodeOf(err error) Code {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Is reports whether err is classified with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
