package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spellbook/internal/spell"
	"github.com/roach88/spellbook/internal/spellbook"
)

// Case defines a compilation test case.
// A case compiles one spell for several dialects and checks the SQL, the
// bound values or the error each dialect produces.
type Case struct {
	// Name uniquely identifies this case. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Models is the directory of the CUE package declaring the models.
	// Relative paths are resolved against the case file location.
	Models string `yaml:"models"`

	// Dialects lists the dialects to compile for. Defaults to every
	// supported dialect.
	Dialects []string `yaml:"dialects,omitempty"`

	// Spell is the spell under test.
	Spell spell.Definition `yaml:"spell"`

	// Expect maps a dialect name to its expected output. Dialects without
	// an entry are compiled but not checked.
	Expect map[string]Expectation `yaml:"expect"`

	// Sandbox runs the SQLite output against real tables.
	Sandbox *Sandbox `yaml:"sandbox,omitempty"`
}

// Expectation is the expected output of one dialect. Either SQL or Error
// must be set.
type Expectation struct {
	// SQL is the exact statement text.
	SQL string `yaml:"sql,omitempty"`

	// Values are the bound values in placeholder order.
	// Nil skips the check; use an empty list to require no values.
	Values []any `yaml:"values,omitempty"`

	// Error is a substring of the expected error message.
	Error string `yaml:"error,omitempty"`

	// Code is the expected spellbook error code (e.g. "SHARDING_KEY").
	Code string `yaml:"code,omitempty"`
}

// Sandbox seeds an in-memory SQLite database and runs the compiled SQLite
// statement against it.
type Sandbox struct {
	// Seed contains rows inserted before the statement runs.
	Seed []SeedStep `yaml:"seed,omitempty"`

	// Rows are the expected result rows, in order.
	// Subset match - only specified columns are validated.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Affected is the expected number of affected rows for statements
	// that return none.
	Affected *int64 `yaml:"affected,omitempty"`
}

// SeedStep inserts rows of one model.
type SeedStep struct {
	Model string           `yaml:"model"`
	Rows  []map[string]any `yaml:"rows"`
}

// DefaultDialects are compiled when a case names none.
var DefaultDialects = []string{"mysql", "postgres", "sqlite"}

// LoadCase reads and parses a case YAML file, resolving the models
// directory relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	c, err := ParseCase(data)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(c.Models) {
		c.Models = filepath.Join(filepath.Dir(path), c.Models)
	}

	if err := validateCase(c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return c, nil
}

// ParseCase decodes a case with strict field validation (catches typos
// like "expects:" vs "expect:"). Paths are left as written.
func ParseCase(data []byte) (*Case, error) {
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &c, nil
}

// LoadCases loads every *.yaml file in dir, sorted by file name.
func LoadCases(dir string) ([]*Case, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no case files found in %s", dir)
	}

	cases := make([]*Case, 0, len(paths))
	for _, path := range paths {
		c, err := LoadCase(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// dialects returns the dialects the case compiles for.
func (c *Case) dialects() []string {
	if len(c.Dialects) > 0 {
		return c.Dialects
	}
	return DefaultDialects
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.Description == "" {
		return fmt.Errorf("description is required")
	}

	if c.Models == "" {
		return fmt.Errorf("models directory is required")
	}
	if _, err := os.Stat(c.Models); os.IsNotExist(err) {
		return fmt.Errorf("models directory not found: %s", c.Models)
	}

	if c.Spell.Model == "" {
		return fmt.Errorf("spell.model is required")
	}

	if len(c.Expect) == 0 {
		return fmt.Errorf("expect is required and must be non-empty")
	}

	names := c.dialects()
	for _, name := range names {
		if _, err := spellbook.DialectFor(name); err != nil {
			return fmt.Errorf("dialects: %w", err)
		}
	}

	for name, e := range c.Expect {
		if !slices.Contains(names, name) {
			return fmt.Errorf("expect.%s: dialect is not compiled by this case", name)
		}
		if e.SQL == "" && e.Error == "" && e.Code == "" {
			return fmt.Errorf("expect.%s: sql or error is required", name)
		}
		if e.SQL != "" && (e.Error != "" || e.Code != "") {
			return fmt.Errorf("expect.%s: sql and error are mutually exclusive", name)
		}
	}

	if c.Sandbox != nil {
		if !slices.Contains(names, "sqlite") {
			return fmt.Errorf("sandbox: requires the sqlite dialect")
		}
		for i, step := range c.Sandbox.Seed {
			if step.Model == "" {
				return fmt.Errorf("sandbox.seed[%d]: model is required", i)
			}
			if len(step.Rows) == 0 {
				return fmt.Errorf("sandbox.seed[%d]: rows is required and must be non-empty", i)
			}
		}
		if c.Sandbox.Rows != nil && c.Sandbox.Affected != nil {
			return fmt.Errorf("sandbox: rows and affected are mutually exclusive")
		}
	}

	return nil
}
