package spellbook

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/spellbook/internal/spell"
)

// Spellbook compiles spells for one dialect. It holds no mutable state and
// is safe for concurrent use.
type Spellbook struct {
	dialect Dialect
	logger  *slog.Logger
}

// Option configures a Spellbook.
type Option func(*Spellbook)

// WithLogger sets the logger receiving a debug record per compiled spell.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Spellbook) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Spellbook for dialect. Logging is discarded unless
// WithLogger is given.
func New(dialect Dialect, opts ...Option) *Spellbook {
	b := &Spellbook{
		dialect: dialect,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dialect returns the dialect the spellbook compiles for.
func (b *Spellbook) Dialect() Dialect {
	return b.dialect
}

// Format compiles s into SQL and its positional values. s is cloned first
// and never modified, so formatting the same spell twice yields identical
// results.
func (b *Spellbook) Format(s *spell.Spell) (*Result, error) {
	if s == nil || s.Model == nil {
		return nil, newQueryShapeError("", "spell has no model")
	}

	res, err := b.format(s.Clone())
	if err != nil {
		b.logger.Debug("spell rejected",
			"command", s.Command,
			"model", s.Model.Name,
			"error", err,
		)
		return nil, err
	}

	b.logger.Debug("spell formatted",
		"command", s.Command,
		"table", s.TableName(),
		"values", len(res.Values),
		"fingerprint", res.Fingerprint(),
	)
	return res, nil
}

// format dispatches a private clone to its command compiler.
func (b *Spellbook) format(s *spell.Spell) (*Result, error) {
	switch s.Command {
	case spell.Select:
		return b.formatSelect(s)
	case spell.Insert, spell.BulkInsert, spell.Upsert:
		return b.formatInsert(s)
	case spell.Update:
		return b.formatUpdate(s)
	case spell.Delete:
		return b.formatDelete(s)
	default:
		return nil, &Error{
			Code:    ErrCodeUnsupportedCommand,
			Message: fmt.Sprintf("unsupported command %q", s.Command),
			Model:   s.Model.Name,
		}
	}
}
