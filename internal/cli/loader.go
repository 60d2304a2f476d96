package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spellbook"
)

// LoadResult contains the models loaded from a directory.
type LoadResult struct {
	Registry  *schema.Registry
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads and compiles the CUE models in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// A nil result means nothing could be loaded; errors alongside a non-nil
// result are per-model compile errors.
func LoadModels(dir string, mode schema.LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := schema.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	reg, errs := schema.LoadDir(dir, mode)
	if reg == nil {
		return nil, []error{convertLoadError(errs[0], ErrCodeLoadFailed)}
	}

	result := &LoadResult{Registry: reg, FileCount: len(cueFiles)}
	loadErrs := make([]error, 0, len(errs))
	for _, err := range errs {
		loadErrs = append(loadErrs, convertLoadError(err, ErrCodeGeneric))
	}

	if reg.Len() == 0 && len(loadErrs) == 0 {
		loadErrs = append(loadErrs, &LoadError{Code: ErrCodeGeneric, Message: "no models found"})
	}

	return result, loadErrs
}

// convertLoadError converts a schema error to a LoadError with position
// info. Errors without a field fall back to code.
func convertLoadError(err error, code string) *LoadError {
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		mapped := MapFieldToErrorCode(compileErr.Field)
		if mapped == ErrCodeGeneric {
			mapped = code
		}
		return &LoadError{
			Code:    mapped,
			Message: strings.TrimSuffix(err.Error(), compileErr.Error()) + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Model validation errors
	ErrCodeModelTable       = "E101" // Missing table
	ErrCodeModelAttributes  = "E102" // No attributes defined
	ErrCodeInvalidType      = "E103" // Unknown data type
	ErrCodeShardingKey      = "E104" // Sharding key names no attribute
	ErrCodeCreatedAt        = "E105" // createdAt names no attribute
	ErrCodeModelsMissing    = "E106" // No model struct in the package

	// Spell errors
	ErrCodeSpellInvalid       = "E201" // Spell definition does not decode or build
	ErrCodeSyntax             = "E202" // Malformed expression
	ErrCodeSpellShardingKey   = "E203" // Sharding key missing from the spell
	ErrCodeQueryShape         = "E204" // Structurally invalid spell
	ErrCodeUnsupportedCommand = "E205" // Unknown command
	ErrCodeCheckFailed        = "E206" // SQLite refused the compiled statement
	ErrCodeRecordFailed       = "E207" // Statement log write failed
)

// MapFieldToErrorCode maps a model compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "table":
		return ErrCodeModelTable
	case field == "attributes":
		return ErrCodeModelAttributes
	case field == "type", strings.HasPrefix(field, "attributes.") && strings.HasSuffix(field, ".type"):
		return ErrCodeInvalidType
	case field == "shardingKey":
		return ErrCodeShardingKey
	case field == "timestamps.createdAt":
		return ErrCodeCreatedAt
	case field == "model":
		return ErrCodeModelsMissing
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// MapSpellErrorToCode maps an error from building or compiling a spell to
// an error code.
func MapSpellErrorToCode(err error) string {
	switch {
	case expr.IsSyntaxError(err):
		return ErrCodeSyntax
	case spellbook.IsShardingKeyError(err):
		return ErrCodeSpellShardingKey
	case spellbook.IsQueryShapeError(err):
		return ErrCodeQueryShape
	case spellbook.IsUnsupportedCommandError(err):
		return ErrCodeUnsupportedCommand
	default:
		return ErrCodeSpellInvalid
	}
}
