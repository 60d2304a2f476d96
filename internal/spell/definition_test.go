package spell

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
)

func registry() *schema.Registry {
	return schema.NewRegistry(postModel(), userModel())
}

func TestDefinition_BuildSelect(t *testing.T) {
	def, err := ParseDefinition([]byte(`
command: select
model: Post
columns: ["id", "title AS name"]
where:
  - expr: "title LIKE ? AND authorId IN ?"
    values:
      - "%Leah%"
      - spell:
          model: User
          columns: [id]
          where: ["status = 1"]
  - "id > 10"
group: ["authorId"]
having:
  - expr: "count(id) > ?"
    values: [2]
order: ["id DESC", "title"]
joins:
  author:
    model: User
    on: "posts.authorId = author.id"
  editor:
    model: User
    on: "posts.authorId = editor.id AND editor.status = ?"
    values: [1]
    hasMany: true
limit: 10
offset: 20
hints: ["MAX_EXECUTION_TIME(1000)"]
indexHints:
  - {type: force, scope: join, indexes: [idx_title]}
`))
	require.NoError(t, err)

	s, err := def.Build(registry())
	require.NoError(t, err)

	assert.Equal(t, Select, s.Command)
	assert.Equal(t, "Post", s.Model.Name)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, &expr.Alias{Value: "name", Args: []expr.Node{expr.NewIdentifier("title")}}, s.Columns[1])
	require.Len(t, s.Where, 2)
	assert.Len(t, s.Groups, 1)
	assert.Len(t, s.Having, 1)
	require.Len(t, s.Orders, 2)
	assert.Equal(t, Desc, s.Orders[0].Direction)
	assert.Equal(t, Asc, s.Orders[1].Direction)
	assert.Equal(t, 10, s.RowCount)
	assert.Equal(t, 20, s.Skip)
	assert.Equal(t, []Hint{{Text: "MAX_EXECUTION_TIME(1000)"}}, s.Hints)
	assert.Equal(t, []IndexHint{{Type: ForceIndex, Scope: ScopeJoin, Indexes: []string{"idx_title"}}}, s.IndexHints)

	// joins keep document order
	require.Len(t, s.Joins, 2)
	assert.Equal(t, "author", s.Joins[0].Qualifier)
	assert.Equal(t, "editor", s.Joins[1].Qualifier)
	assert.False(t, s.Joins[0].HasMany)
	assert.True(t, s.Joins[1].HasMany)

	// the nested spell is bound as a subquery
	in := s.Where[0].(*expr.Op).Args[1].(*expr.Op)
	assert.Equal(t, "in", in.Name)
	sub, ok := in.Args[1].(*expr.Subquery)
	require.True(t, ok)
	subSpell, ok := sub.Query.(*Spell)
	require.True(t, ok)
	assert.Equal(t, "User", subSpell.Model.Name)
	assert.Len(t, subSpell.Where, 1)
}

func TestDefinition_BuildSets(t *testing.T) {
	def, err := ParseDefinition([]byte(`
command: bulkInsert
model: Post
sets:
  - {id: 1, title: "a", authorId: {raw: "DEFAULT"}}
  - {id: 2, title: "b", authorId: {expr: "? + 1", values: [41]}}
attributes: [id, title]
onDuplicate: [title]
uniqueKeys: [id]
returning: true
`))
	require.NoError(t, err)

	s, err := def.Build(registry())
	require.NoError(t, err)

	require.Len(t, s.Sets, 2)
	assert.Equal(t, 1, s.Sets[0]["id"])
	assert.Equal(t, "a", s.Sets[0]["title"])
	assert.Equal(t, expr.NewRaw("DEFAULT"), s.Sets[0]["authorId"])
	assert.Equal(t, &expr.Op{Name: "+", Args: []expr.Node{
		&expr.Literal{Value: 41}, &expr.Literal{Value: int64(1)},
	}}, s.Sets[1]["authorId"])

	assert.Equal(t, []string{"id", "title"}, s.Attributes)
	assert.Equal(t, Conflict{Enabled: true, Columns: []string{"title"}}, s.UpdateOnDuplicate)
	assert.Equal(t, []string{"id"}, s.UniqueKeys)
	assert.Equal(t, Returning{Enabled: true}, s.Returning)
}

func TestDefinition_SingleRowAndFrom(t *testing.T) {
	def, err := ParseDefinition([]byte(`
model: Post
from:
  model: Post
  where: ["id > 1"]
sets: {title: "x"}
`))
	require.NoError(t, err)

	s, err := def.Build(registry())
	require.NoError(t, err)

	assert.Equal(t, Select, s.Command, "command defaults to select")
	require.Len(t, s.Sets, 1)
	require.NotNil(t, s.From)
	assert.Len(t, s.From.Where, 1)
}

func TestDefinition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "model: Post\nwher: [id = 1]\n", "field wher not found"},
		{"missing model", "command: select\n", "model is required"},
		{"unknown model", "model: Nope\n", `unknown model "Nope"`},
		{"bad where", "model: Post\nwhere: [\"a == b\"]\n", "where[0]"},
		{"unknown join model", "model: Post\njoins: {x: {model: Nope, on: \"a = b\"}}\n", `joins.x: unknown model "Nope"`},
		{"joins not a mapping", "model: Post\njoins: [a]\n", "expected a mapping"},
		{"sets scalar", "model: Post\nsets: 1\n", "sets: expected a mapping"},
		{"bad index hint", "model: Post\nindexHints: [{type: prefer, indexes: [a]}]\n", "unknown index hint type"},
		{"index hint without indexes", "model: Post\nindexHints: [{type: use}]\n", "indexes is required"},
		{"bad returning", "model: Post\nreturning: {a: 1}\n", "returning"},
		{"missing placeholder", "model: Post\nwhere: [\"id = ?\"]\n", "missing value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition([]byte(tt.yaml))
			if err == nil {
				_, err = def.Build(registry())
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("command: delete\nmodel: Post\nwhere: [\"id = 1\"]\n"), 0o644))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "delete", def.Command)

	_, err = LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read spell file")
}
