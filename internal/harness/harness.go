package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
	"github.com/roach88/spellbook/internal/spellbook"
	"github.com/roach88/spellbook/internal/store"
)

// Harness is the case execution engine.
// It holds no per-case state and may run many cases.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger receiving a record per compiled dialect and
// seed step.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Harness. Logging is discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a case with a default harness.
func Run(c *Case) (*Result, error) {
	return New().Run(c)
}

// RunWithRegistry executes a case against already loaded models with a
// default harness.
func RunWithRegistry(c *Case, reg *schema.Registry) (*Result, error) {
	return New().RunWithRegistry(c, reg)
}

// Run executes a case and returns the result.
//
// Execution flow:
// 1. Load the models of the case
// 2. Build and compile the spell once per dialect
// 3. Check every dialect that has an expectation
// 4. Run the SQLite statement in a fresh in-memory sandbox, if requested
// 5. Return result with pass/fail, outputs, and errors
//
// Compile errors are outputs, not failures of Run: a case may expect them.
func (h *Harness) Run(c *Case) (*Result, error) {
	reg, errs := schema.LoadDir(c.Models, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load models: %w", errs[0])
	}

	return h.RunWithRegistry(c, reg)
}

// RunWithRegistry executes a case against already loaded models.
func (h *Harness) RunWithRegistry(c *Case, reg *schema.Registry) (*Result, error) {
	result := NewResult()
	for _, name := range c.dialects() {
		out, err := h.compile(reg, name, &c.Spell)
		if err != nil {
			return nil, err
		}
		result.Outputs = append(result.Outputs, out)

		if expect, ok := c.Expect[name]; ok {
			for _, err := range assertOutput(name, expect, out) {
				result.AddError(err.Error())
			}
		}
	}

	if c.Sandbox != nil {
		if err := h.runSandbox(context.Background(), reg, c.Sandbox, result); err != nil {
			return nil, fmt.Errorf("failed to run sandbox: %w", err)
		}
	}

	h.logger.Debug("case finished", "case", c.Name, "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

// compile builds a fresh spell for one dialect and formats it. Only an
// unknown dialect is an error; everything else is recorded in the output.
func (h *Harness) compile(reg *schema.Registry, name string, def *spell.Definition) (Output, error) {
	dialect, err := spellbook.DialectFor(name)
	if err != nil {
		return Output{}, err
	}

	out := Output{Dialect: dialect.Name()}

	s, err := def.Build(reg)
	if err != nil {
		out.err = err
		out.Error = err.Error()
		return out, nil
	}

	book := spellbook.New(dialect, spellbook.WithLogger(h.logger))
	res, err := book.Format(s)
	if err != nil {
		out.err = err
		out.Error = err.Error()
		return out, nil
	}

	out.SQL = res.SQL
	out.Values = res.Values
	out.Fingerprint = res.Fingerprint()

	h.logger.Info("case compiled",
		"dialect", out.Dialect,
		"command", s.Command,
		"fingerprint", out.Fingerprint,
	)
	return out, nil
}

// runSandbox seeds a fresh in-memory database with one table per model,
// then prepares and runs the SQLite output.
func (h *Harness) runSandbox(ctx context.Context, reg *schema.Registry, sb *Sandbox, result *Result) error {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.CreateTables(ctx, reg.Models()...); err != nil {
		return err
	}

	book := spellbook.New(spellbook.SQLite{}, spellbook.WithLogger(h.logger))
	for i, step := range sb.Seed {
		model, ok := reg.Model(step.Model)
		if !ok {
			return fmt.Errorf("seed step %d: unknown model %q", i, step.Model)
		}

		seed := spell.New(spell.BulkInsert, model)
		for _, row := range step.Rows {
			seed.Sets = append(seed.Sets, spell.Row(row))
		}
		res, err := book.Format(seed)
		if err != nil {
			return fmt.Errorf("seed step %d: %w", i, err)
		}
		if _, err := st.Exec(ctx, res.SQL, res.Values...); err != nil {
			return fmt.Errorf("seed step %d: %w", i, err)
		}

		h.logger.Info("seed step completed",
			"step", i,
			"model", step.Model,
			"rows", len(step.Rows),
		)
	}

	out, ok := result.Output("sqlite")
	if !ok || out.err != nil {
		result.AddError((&AssertionError{
			Type:     "sandbox",
			Dialect:  "sqlite",
			Expected: "a compiled statement",
			Actual:   "compile error: " + out.Error,
		}).Error())
		return nil
	}

	if err := st.Check(ctx, out.SQL); err != nil {
		result.AddError((&AssertionError{
			Type:     "sandbox",
			Dialect:  "sqlite",
			Expected: "statement prepares",
			Actual:   err.Error(),
		}).Error())
		return nil
	}

	if sb.Affected != nil {
		n, err := st.Exec(ctx, out.SQL, out.Values...)
		if err != nil {
			return err
		}
		if n != *sb.Affected {
			result.AddError((&AssertionError{
				Type:     "sandbox",
				Dialect:  "sqlite",
				Expected: fmt.Sprintf("%d affected rows", *sb.Affected),
				Actual:   fmt.Sprintf("%d affected rows", n),
			}).Error())
		}
		return nil
	}

	rows, err := st.Query(ctx, out.SQL, out.Values...)
	if err != nil {
		return err
	}
	result.Rows = make([]map[string]any, len(rows))
	for i, row := range rows {
		result.Rows[i] = map[string]any(row)
	}

	if sb.Rows != nil {
		if err := assertRows(sb.Rows, result.Rows); err != nil {
			result.AddError(err.Error())
		}
	}
	return nil
}
