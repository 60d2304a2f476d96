package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures what every dialect produced for a case.
type Snapshot struct {
	Case    string   `json:"case"`
	Outputs []Output `json:"outputs"`
}

// Marshal renders the snapshot as indented JSON. SQL is kept readable:
// HTML characters such as < and > are not escaped.
func (s *Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a case and compares its outputs against a golden
// file. The golden file is stored in testdata/golden/{case.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also assert on Pass.
// Test failure (via goldie) occurs if the outputs don't match the golden file.
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(c)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, c.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's outputs against a golden file.
// This is useful when you've already run a case and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		Case:    name,
		Outputs: result.Outputs,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
