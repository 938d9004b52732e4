package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies catalog failures for logs, metrics and API responses.
type Code string

const (
	CodeMissingColumn Code = "missing_required_column"
	CodeFileRead      Code = "file_read"
	CodeFileParse     Code = "file_parse"
	CodeFileWrite     Code = "file_write"
	CodeUploadFormat  Code = "upload_format"
)

var (
	// ErrMissingRequiredColumn indicates that no header resolves to a required column.
	ErrMissingRequiredColumn = errors.New("missing required column")
	// ErrFileRead indicates the backing file could not be read.
	ErrFileRead = errors.New("cannot read catalog file")
	// ErrFileParse indicates the backing file or an upload is not a readable table.
	ErrFileParse = errors.New("cannot parse catalog file")
	// ErrFileWrite indicates the backing file could not be written.
	ErrFileWrite = errors.New("cannot write catalog file")
	// ErrUploadFormat indicates an upload with an unsupported extension.
	ErrUploadFormat = errors.New("unsupported file format")
)

// Error carries a Code and the operation that failed.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "catalog: " + e.Err.Error()
	}
	return "catalog: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProblemType exposes the code as an RFC7807 problem type.
func (e *Error) ProblemType() string {
	return string(e.Code)
}

func newError(code Code, op string, sentinel error, detail any) error {
	if detail == nil {
		return &Error{Code: code, Op: op, Err: sentinel}
	}
	if err, ok := detail.(error); ok {
		return &Error{Code: code, Op: op, Err: fmt.Errorf("%w: %w", sentinel, err)}
	}
	return &Error{Code: code, Op: op, Err: fmt.Errorf("%w: %v", sentinel, detail)}
}

// CodeOf returns the catalog code carried by err, or "" when err is not a
// catalog error.
func CodeOf(err error) Code {
	var catalogErr *Error
	if errors.As(err, &catalogErr) {
		return catalogErr.Code
	}
	return ""
}

// MissingColumnsError reports required columns absent from an upload header.
func MissingColumnsError(missing []string) error {
	return newError(CodeMissingColumn, "validate upload", ErrMissingRequiredColumn, strings.Join(missing, ", "))
}
