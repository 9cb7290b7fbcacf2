// Package apperr defines the error kinds shared by every pipeline stage.
//
// Stages return *Error values whose Kind is one of the sentinels below, so callers
// classify failures with errors.Is without string matching.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFormat: unparseable or unsupported file content.
	ErrFormat = errors.New("format error")
	// ErrColumnSelection: unknown columns or an empty usable selection.
	ErrColumnSelection = errors.New("column selection error")
	// ErrInvalidK: cluster count outside [1, rows] or an invalid search range.
	ErrInvalidK = errors.New("invalid k")
	// ErrPreprocessing: degenerate numeric conditions while building the matrix.
	ErrPreprocessing = errors.New("preprocessing error")
	// ErrPrecondition: a stage was called before its upstream artifact exists.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound: unknown session.
	ErrNotFound = errors.New("not found")
	// ErrPersistence: the assignment store rejected a write.
	ErrPersistence = errors.New("persistence error")
	// ErrBadRequest: malformed request parameters outside the data itself.
	ErrBadRequest = errors.New("bad request")
)

// Error carries the kind plus the stage and, when known, the column that triggered it.
type Error struct {
	Kind   error
	Stage  string
	Column string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New builds an *Error with a formatted message.
func New(kind error, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and stage to an underlying cause.
func Wrap(kind error, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// ForColumn is New with the offending column recorded.
func ForColumn(kind error, stage, column, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, k := range []error{ErrFormat, ErrColumnSelection, ErrInvalidK, ErrPreprocessing, ErrPrecondition, ErrNotFound, ErrPersistence, ErrBadRequest} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
