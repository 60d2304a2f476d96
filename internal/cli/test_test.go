package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessCases  = "../harness/testdata/cases"
	harnessGolden = "../harness/testdata/golden"
)

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// copyCase copies a harness case into dir, pointing it at the harness models.
func copyCase(t *testing.T, dir, name string) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(harnessCases, name+".yaml"))
	require.NoError(t, err)

	models, err := filepath.Abs("../harness/testdata/models")
	require.NoError(t, err)
	data = bytes.Replace(data, []byte("models: ../models"), []byte("models: "+models), 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentCasesDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/cases")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cases directory not found")
}

func TestTestCommandEmptyCasesDir(t *testing.T) {
	output, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No cases found.")
}

func TestTestCommandEmptyCasesDirJSON(t *testing.T) {
	output, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data.Cases)
	assert.Zero(t, resp.Data.Total)
}

func TestTestCommandRunsCases(t *testing.T) {
	output, err := executeTest(t, "text", harnessCases, "--golden", harnessGolden)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ posts_with_author\n")
	assert.Contains(t, output, "✓ upsert_user\n")
	assert.Contains(t, output, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, output, "✓ All cases passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	output, err := executeTest(t, "json", harnessCases, "--golden", harnessGolden, "--filter", "upsert_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Cases, 1)
	assert.Equal(t, CaseResult{Name: "upsert_user", Pass: true}, resp.Data.Cases[0])
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyCase(t, dir, "update_latest_post")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "update_latest_post.golden"), []byte("{}\n"), 0644))

	output, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ update_latest_post")
	assert.Contains(t, output, "do not match golden file")
	assert.Contains(t, output, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	copyCase(t, dir, "update_latest_post")

	output, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ update_latest_post (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "update_latest_post.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "update_latest_post.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// The written golden file now matches.
	output, err = executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ update_latest_post\n")
}

func TestTestCommandInvalidCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	output, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "failed to load case")
}

func TestFindCaseFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "notes.txt", "golden/a.yaml", "nested/c.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	files, err := findCaseFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	files, err = findCaseFiles(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findCaseFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
