package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
	"github.com/roach88/spellbook/internal/spellbook"
	"github.com/roach88/spellbook/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Models   string   // models directory
	Dialects []string // dialects to compile for
	Inline   bool     // also render values inline
	Check    bool     // prepare the SQLite statement against the models
	Record   string   // statement log database
}

// CompiledStatement is one dialect's output for a spell.
type CompiledStatement struct {
	Dialect     string `json:"dialect"`
	SQL         string `json:"sql"`
	Values      []any  `json:"values"`
	Fingerprint string `json:"fingerprint"`
	Inline      string `json:"inline,omitempty"`
	Seq         int64  `json:"seq,omitempty"` // statement log sequence, with --record
}

// CompilationResult holds every dialect's statement for one spell.
type CompilationResult struct {
	Command    string              `json:"command"`
	Model      string              `json:"model"`
	Statements []CompiledStatement `json:"statements"`
	Checked    bool                `json:"checked,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spell-file>",
		Short: "Compile a spell to SQL",
		Long: `Compile a YAML spell definition to SQL for one or more dialects.

Models are loaded from the CUE package in --models. Each dialect prints
its statement, the bound values and the statement fingerprint.

Examples:
  spellbook compile ./spells/latest_posts.yaml --models ./models
  spellbook compile ./spells/latest_posts.yaml --models ./models -d postgres --inline
  spellbook compile ./spells/latest_posts.yaml --models ./models --check --record ./statements.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Models, "models", "m", "", "models directory (required)")
	_ = cmd.MarkFlagRequired("models")
	cmd.Flags().StringSliceVarP(&opts.Dialects, "dialect", "d", []string{"mysql", "postgres", "sqlite"}, "dialects to compile for")
	cmd.Flags().BoolVar(&opts.Inline, "inline", false, "render values inline (display only)")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "prepare the SQLite statement against the models")
	cmd.Flags().StringVar(&opts.Record, "record", "", "append statements to the log database at this path")

	return cmd
}

func runCompile(opts *CompileOptions, spellFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dialects := make([]spellbook.Dialect, 0, len(opts.Dialects))
	for _, name := range opts.Dialects {
		d, err := spellbook.DialectFor(name)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		dialects = append(dialects, d)
	}

	loadResult, loadErrors := LoadModels(opts.Models, schema.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Loaded %d model(s) from %d CUE file(s)", loadResult.Registry.Len(), loadResult.FileCount)

	def, err := spell.LoadDefinition(spellFile)
	if err != nil {
		return outputCompileError(formatter, ErrCodeSpellInvalid, err.Error(), nil)
	}
	s, err := def.Build(loadResult.Registry)
	if err != nil {
		return outputCompileError(formatter, MapSpellErrorToCode(err), err.Error(), nil)
	}

	result := &CompilationResult{
		Command:    string(s.Command),
		Model:      s.Model.Name,
		Statements: make([]CompiledStatement, 0, len(dialects)),
	}
	var sqliteRes *spellbook.Result
	for _, d := range dialects {
		formatter.VerboseLog("Compiling for %s", d.Name())
		res, err := spellbook.New(d, spellbook.WithLogger(logger)).Format(s)
		if err != nil {
			return outputCompileError(formatter, MapSpellErrorToCode(err), err.Error(), map[string]string{"dialect": d.Name()})
		}
		stmt := CompiledStatement{
			Dialect:     d.Name(),
			SQL:         res.SQL,
			Values:      res.Values,
			Fingerprint: res.Fingerprint(),
		}
		if stmt.Values == nil {
			stmt.Values = []any{}
		}
		if opts.Inline {
			stmt.Inline = res.Inline(d)
		}
		if d.Name() == "sqlite" {
			sqliteRes = res
		}
		result.Statements = append(result.Statements, stmt)
	}

	if opts.Check {
		if sqliteRes == nil {
			d, _ := spellbook.DialectFor("sqlite")
			sqliteRes, err = spellbook.New(d, spellbook.WithLogger(logger)).Format(s)
			if err != nil {
				return outputCompileError(formatter, MapSpellErrorToCode(err), err.Error(), map[string]string{"dialect": "sqlite"})
			}
		}
		if err := checkStatement(ctx, loadResult.Registry, sqliteRes.SQL); err != nil {
			return outputCompileError(formatter, ErrCodeCheckFailed, err.Error(), nil)
		}
		result.Checked = true
	}

	if opts.Record != "" {
		if err := recordStatements(ctx, opts.Record, result); err != nil {
			return outputCompileError(formatter, ErrCodeRecordFailed, err.Error(), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Record)
}

// checkStatement prepares query in a scratch SQLite database holding one
// table per model.
func checkStatement(ctx context.Context, reg *schema.Registry, query string) error {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.CreateTables(ctx, reg.Models()...); err != nil {
		return err
	}
	return st.Check(ctx, query)
}

// recordStatements appends every compiled statement to the log at path and
// stores the assigned sequence numbers on result.
func recordStatements(ctx context.Context, path string, result *CompilationResult) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open statement log: %w", err)
	}
	defer st.Close()

	for i := range result.Statements {
		stmt := &result.Statements[i]
		seq, err := st.WriteStatement(ctx, store.Statement{
			Fingerprint: stmt.Fingerprint,
			Dialect:     stmt.Dialect,
			Command:     result.Command,
			Model:       result.Model,
			SQL:         stmt.SQL,
			Values:      stmt.Values,
		})
		if err != nil {
			return err
		}
		stmt.Seq = seq
	}
	return nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, record string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s %s for %d dialect(s)\n\n", result.Command, result.Model, len(result.Statements))

	for _, stmt := range result.Statements {
		fmt.Fprintf(w, "%s:\n", stmt.Dialect)
		fmt.Fprintf(w, "  %s\n", stmt.SQL)
		if len(stmt.Values) > 0 {
			fmt.Fprintf(w, "  values: %v\n", stmt.Values)
		}
		if stmt.Inline != "" {
			fmt.Fprintf(w, "  inline: %s\n", stmt.Inline)
		}
		fmt.Fprintf(w, "  fingerprint: %s\n\n", stmt.Fingerprint)
	}

	if result.Checked {
		fmt.Fprintln(w, "✓ SQLite statement prepares")
	}
	if record != "" {
		fmt.Fprintf(w, "Recorded %d statement(s) in %s\n", len(result.Statements), record)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple model errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("loading models failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Loading models failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("loading models failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
