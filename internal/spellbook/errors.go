package spellbook

import (
	"errors"
	"fmt"
)

// Error represents a spell that cannot be compiled.
//
// Compile errors include:
//   - Sharding key: the model's sharding key is missing from WHERE, or is
//     null in a row being written
//   - Query shape: OFFSET without LIMIT, an empty SET, or a combination the
//     compiler refuses to guess at
//   - Unsupported command: the command tag has no compiler
//
// They are programming errors in the caller and are never retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Model names the model the spell targets, if known.
	Model string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeShardingKey indicates a missing or null sharding key.
	ErrCodeShardingKey ErrorCode = "SHARDING_KEY"

	// ErrCodeQueryShape indicates a structurally invalid spell.
	ErrCodeQueryShape ErrorCode = "QUERY_SHAPE"

	// ErrCodeUnsupportedCommand indicates an unknown command tag.
	ErrCodeUnsupportedCommand ErrorCode = "UNSUPPORTED_COMMAND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsShardingKeyError returns true if err is or wraps a sharding key error.
func IsShardingKeyError(err error) bool {
	return hasCode(err, ErrCodeShardingKey)
}

// IsQueryShapeError returns true if err is or wraps a query shape error.
func IsQueryShapeError(err error) bool {
	return hasCode(err, ErrCodeQueryShape)
}

// IsUnsupportedCommandError returns true if err is or wraps an unsupported
// command error.
func IsUnsupportedCommandError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedCommand)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newShardingKeyError(model, table, key, format string) *Error {
	return &Error{
		Code:    ErrCodeShardingKey,
		Message: fmt.Sprintf(format, table+"."+key),
		Model:   model,
		Details: map[string]string{
			"table":        table,
			"sharding_key": key,
		},
	}
}

func newQueryShapeError(model, message string) *Error {
	return &Error{
		Code:    ErrCodeQueryShape,
		Message: message,
		Model:   model,
	}
}
