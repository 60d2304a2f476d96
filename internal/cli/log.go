package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spellbook/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database    string
	Model       string // optional - filter to one model
	Fingerprint string // optional - show a single statement
}

// LoggedStatement is one entry of the statement log.
type LoggedStatement struct {
	Seq         int64  `json:"seq"`
	Fingerprint string `json:"fingerprint"`
	Dialect     string `json:"dialect"`
	Command     string `json:"command"`
	Model       string `json:"model"`
	SQL         string `json:"sql"`
	Values      []any  `json:"values"`
}

// LogResult holds the log command output.
type LogResult struct {
	Statements []LoggedStatement `json:"statements"`
	Total      int               `json:"total"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded statements",
		Long: `Show statements recorded by compile --record, oldest first.

Statements are keyed by fingerprint, so a statement compiled many times
appears once, at the position it was first recorded.

Examples:
  spellbook log --db ./statements.db
  spellbook log --db ./statements.db --model Post
  spellbook log --db ./statements.db --fingerprint 3f2a... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Model, "model", "", "filter to one model")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "show the statement with this fingerprint")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var statements []store.Statement
	if opts.Fingerprint != "" {
		one, err := st.ReadStatement(ctx, opts.Fingerprint)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("no statement with fingerprint %s", opts.Fingerprint))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read statement", err)
		}
		statements = []store.Statement{one}
	} else {
		statements, err = st.ReadStatements(ctx, opts.Model)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read statements", err)
		}
	}

	result := LogResult{
		Statements: make([]LoggedStatement, 0, len(statements)),
		Total:      len(statements),
	}
	for _, s := range statements {
		values := s.Values
		if values == nil {
			values = []any{}
		}
		result.Statements = append(result.Statements, LoggedStatement{
			Seq:         s.Seq,
			Fingerprint: s.Fingerprint,
			Dialect:     s.Dialect,
			Command:     s.Command,
			Model:       s.Model,
			SQL:         s.SQL,
			Values:      values,
		})
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputLogText(cmd, result)
}

// outputLogText outputs the log as text.
func outputLogText(cmd *cobra.Command, result LogResult) error {
	w := cmd.OutOrStdout()

	if result.Total == 0 {
		fmt.Fprintln(w, "No statements recorded.")
		return nil
	}

	for _, s := range result.Statements {
		fmt.Fprintf(w, "[%d] %s %s %s %s\n", s.Seq, shortFingerprint(s.Fingerprint), s.Dialect, s.Command, s.Model)
		fmt.Fprintf(w, "    %s\n", s.SQL)
		if len(s.Values) > 0 {
			fmt.Fprintf(w, "    values: %v\n", s.Values)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d statement(s)\n", result.Total)
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
