package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeLog(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewLogCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// recordedLog compiles the update spell for mysql and postgres into a
// fresh statement log.
func recordedLog(t *testing.T) string {
	t.Helper()

	db := filepath.Join(t.TempDir(), "statements.db")
	_, err := executeCompile(t, "text", updateSpell, "--models", testModelsDir, "-d", "mysql,postgres", "--record", db)
	require.NoError(t, err)
	return db
}

func TestLogMissingDB(t *testing.T) {
	_, err := executeLog(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestLogEmpty(t *testing.T) {
	output, err := executeLog(t, "text", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, output, "No statements recorded.")
}

func TestLogText(t *testing.T) {
	db := recordedLog(t)

	output, err := executeLog(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "] mysql update Post\n    "+mysqlUpdateSQL+"\n    values: [0 2]\n")
	assert.Contains(t, output, "] postgres update Post\n    "+pgUpdateSQL+"\n")
	assert.Contains(t, output, "2 statement(s)")
}

func TestLogJSON(t *testing.T) {
	db := recordedLog(t)

	output, err := executeLog(t, "json", "--db", db, "--model", "Post")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 2, resp.Data.Total)

	first := resp.Data.Statements[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "mysql", first.Dialect)
	assert.Equal(t, "update", first.Command)
	assert.Equal(t, mysqlUpdateSQL, first.SQL)
	assert.Equal(t, []any{float64(0), float64(2)}, first.Values)
	assert.Len(t, first.Fingerprint, 64)

	output, err = executeLog(t, "json", "--db", db, "--model", "User")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Zero(t, resp.Data.Total)
	assert.Empty(t, resp.Data.Statements)
}

func TestLogFingerprint(t *testing.T) {
	db := recordedLog(t)

	output, err := executeLog(t, "json", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Statements, 2)
	pg := resp.Data.Statements[1]

	output, err = executeLog(t, "json", "--db", db, "--fingerprint", pg.Fingerprint)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Statements, 1)
	assert.Equal(t, pg, resp.Data.Statements[0])

	_, err = executeLog(t, "text", "--db", db, "--fingerprint", "feedface")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no statement with fingerprint feedface")
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortFingerprint("0123456789abcdef"))
	assert.Equal(t, "abc", shortFingerprint("abc"))
}
