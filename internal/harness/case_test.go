package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCase(t *testing.T) {
	c, err := LoadCase("testdata/cases/upsert_user.yaml")
	require.NoError(t, err)

	assert.Equal(t, "upsert_user", c.Name)
	assert.Equal(t, filepath.Join("testdata", "models"), c.Models)
	assert.Equal(t, "upsert", c.Spell.Command)
	assert.Equal(t, "User", c.Spell.Model)
	assert.Equal(t, DefaultDialects, c.dialects())
	assert.Len(t, c.Expect, 3)
	assert.Equal(t, []any{"leah", "leah@example.com", 1}, c.Expect["mysql"].Values)

	require.NotNil(t, c.Sandbox)
	require.Len(t, c.Sandbox.Seed, 1)
	assert.Equal(t, "User", c.Sandbox.Seed[0].Model)
}

func TestLoadCase_AffectedCount(t *testing.T) {
	c, err := LoadCase("testdata/cases/update_latest_post.yaml")
	require.NoError(t, err)

	require.NotNil(t, c.Sandbox.Affected)
	assert.Equal(t, int64(2), *c.Sandbox.Affected)
	assert.Nil(t, c.Sandbox.Rows)
}

func TestLoadCase_UnknownField(t *testing.T) {
	_, err := ParseCase([]byte("name: x\nexpects: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadCase_MissingFile(t *testing.T) {
	_, err := LoadCase(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read case file")
}

func TestValidateCase(t *testing.T) {
	models, err := filepath.Abs("testdata/models")
	require.NoError(t, err)

	const spell = "spell: {command: select, model: Post}\n"
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\n",
			wantErr: "description is required",
		},
		{
			name:    "missing models",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "models directory is required",
		},
		{
			name:    "models not found",
			yaml:    "name: n\ndescription: d\nmodels: /does/not/exist\n",
			wantErr: "models directory not found",
		},
		{
			name:    "missing model",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\nspell: {command: select}\n",
			wantErr: "spell.model is required",
		},
		{
			name:    "missing expect",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell,
			wantErr: "expect is required",
		},
		{
			name:    "unknown dialect",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "dialects: [oracle]\nexpect: {oracle: {sql: x}}\n",
			wantErr: "unknown dialect",
		},
		{
			name:    "expectation for skipped dialect",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "dialects: [mysql]\nexpect: {postgres: {sql: x}}\n",
			wantErr: "expect.postgres: dialect is not compiled",
		},
		{
			name:    "empty expectation",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "expect: {mysql: {values: [1]}}\n",
			wantErr: "expect.mysql: sql or error is required",
		},
		{
			name:    "sql and error",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "expect: {mysql: {sql: x, code: QUERY_SHAPE}}\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "sandbox without sqlite",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "dialects: [mysql]\nexpect: {mysql: {sql: x}}\nsandbox: {}\n",
			wantErr: "sandbox: requires the sqlite dialect",
		},
		{
			name:    "seed without rows",
			yaml:    "name: n\ndescription: d\nmodels: " + models + "\n" + spell + "expect: {mysql: {sql: x}}\nsandbox: {seed: [{model: Post}]}\n",
			wantErr: "sandbox.seed[0]: rows is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "case.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadCase(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCases_EmptyDir(t *testing.T) {
	_, err := LoadCases(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no case files")
}
