package expr

import (
	"errors"
	"fmt"
)

// SyntaxError reports a malformed expression. Token is the offending token
// text and Pos its byte offset in Input.
type SyntaxError struct {
	Message string
	Token   string
	Pos     int
	Input   string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d of %q: %s", e.Pos, e.Input, e.Message)
}

// IsSyntaxError returns true if err is or wraps a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
