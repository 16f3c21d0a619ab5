package status

import (
	"errors"
	"fmt"
)

// Error carries a catalog code and its arguments through an error return so
// that a business handler can choose the terminal status it produces.
type Error struct {
	Code string
	Args []any
	Err  error
}

// NewError returns an Error for code.
func NewError(code string, args ...any) *Error {
	return &Error{Code: code, Args: args}
}

// Wrap returns an Error for code that wraps err.
func Wrap(err error, code string, args ...any) *Error {
	return &Error{Code: code, Args: args, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %s: %v", e.Code, e.Err)
	}
	return "status " + e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the catalog code and arguments of err, if it carries any.
func CodeOf(err error) (string, []any, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Code, se.Args, true
	}
	return "", nil, false
}
