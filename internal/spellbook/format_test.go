package spellbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/spell"
)

func testFormatter(t *testing.T) *Formatter {
	t.Helper()
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	return New(Postgres{}).formatter(s)
}

func TestFormatter_FormatExpr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a - (b - c)", `"a" - ("b" - "c")`},
		{"a - b - c", `"a" - "b" - "c"`},
		{"a + (b + c)", `"a" + "b" + "c"`},
		{"a / (b * c)", `"a" / ("b" * "c")`},
		{"(a + b) * c", `("a" + "b") * "c"`},
		{"a + b * c", `"a" + "b" * "c"`},
		{"not (a or b)", `NOT ("a" OR "b")`},
		{"not a = b", `NOT "a" = "b"`},
		{"-(a + b)", `-("a" + "b")`},
		{"- -a", `-(-"a")`},
		{"~a", `~"a"`},
		{"a or b and c", `"a" OR "b" AND "c"`},
		{"(a or b) and c", `("a" OR "b") AND "c"`},
		{"a and (b and c)", `"a" AND "b" AND "c"`},
		{"title not like 'x%'", `"title" NOT LIKE ?`},
		{"posts.wordCount", `"posts"."word_count"`},
		{"author.createdAt", `"author"."created_at"`},
		{"other.createdAt", `"other"."createdAt"`},
		{"db.posts.title", `"db"."posts"."title"`},
		{"posts.*", `"posts".*`},
		{"count(distinct authorId)", `COUNT(DISTINCT "author_id")`},
		{"coalesce(title, content, 'x') as label", `COALESCE("title", "content", ?) AS "label"`},
		{"wordCount in (1, 2)", `"word_count" IN (?, ?)`},
	}

	f := testFormatter(t)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := expr.Parse(tt.input)
			require.NoError(t, err)

			got, err := f.FormatExpr(node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter_ReparsesToSameTree(t *testing.T) {
	inputs := []string{
		"a - (b - c)",
		"(a + b) * c",
		"not (a or b) and c",
		"a = 1 or b between 2 and 3",
		"x % 2 = -1",
	}

	s := spell.New(spell.Select, postModel())
	f := New(Postgres{}).formatter(s)
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			node, err := expr.Parse(input)
			require.NoError(t, err)

			var values []any
			text, err := f.format(node, &values)
			require.NoError(t, err)

			reparsed, err := expr.Parse(strings.ReplaceAll(text, `"`, ""), values...)
			require.NoError(t, err)
			assert.Equal(t, node, reparsed)
		})
	}
}

func TestFormatter_ProgrammaticNodes(t *testing.T) {
	f := testFormatter(t)
	id := expr.NewIdentifier("title")

	tests := []struct {
		name   string
		node   expr.Node
		want   string
		values []any
	}{
		{
			name:   "IN with a scalar",
			node:   &expr.Op{Name: "in", Args: []expr.Node{id, &expr.Literal{Value: "a"}}},
			want:   `"title" IN (?)`,
			values: []any{"a"},
		},
		{
			name: "equality with an empty list",
			node: &expr.Op{Name: "=", Args: []expr.Node{id, &expr.Literal{Value: []any{}}}},
			want: `"title" IN (NULL)`,
		},
		{
			name: "not equal to null",
			node: &expr.Op{Name: "!=", Args: []expr.Node{id, &expr.Literal{}}},
			want: `"title" IS NOT NULL`,
		},
		{
			name: "right nested AND",
			node: &expr.Op{Name: "and", Args: []expr.Node{
				&expr.Op{Name: "=", Args: []expr.Node{id, &expr.Literal{Value: 1}}},
				&expr.Op{Name: "and", Args: []expr.Node{&expr.Raw{Value: "x"}, &expr.Raw{Value: "y"}}},
			}},
			want:   `"title" = ? AND x AND y`,
			values: []any{1},
		},
		{
			name: "right nested OR under AND",
			node: &expr.Op{Name: "and", Args: []expr.Node{
				&expr.Raw{Value: "x"},
				&expr.Op{Name: "or", Args: []expr.Node{&expr.Raw{Value: "y"}, &expr.Raw{Value: "z"}}},
			}},
			want: `x AND (y OR z)`,
		},
		{
			name: "null literal",
			node: &expr.Literal{},
			want: "NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var values []any
			got, err := f.format(tt.node, &values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestFormatter_Errors(t *testing.T) {
	f := testFormatter(t)

	_, err := f.FormatExpr(nil)
	assert.Error(t, err)

	_, err = f.FormatExpr(&expr.Alias{Value: "x"})
	assert.Error(t, err)

	_, err = f.FormatExpr(&expr.Op{Name: "between", Args: []expr.Node{expr.NewIdentifier("a")}})
	assert.Error(t, err)

	_, err = f.FormatExpr(&expr.Subquery{Query: fakeQuery{}})
	assert.Error(t, err)
}

type fakeQuery struct{}

func (fakeQuery) IsSubquery() bool { return true }

func TestFormatter_FormatConditions(t *testing.T) {
	f := testFormatter(t)
	parse := func(text string) expr.Node {
		node, err := expr.Parse(text)
		require.NoError(t, err)
		return node
	}

	got, err := f.FormatConditions([]expr.Node{parse("a = 1 or b = 2")})
	require.NoError(t, err)
	assert.Equal(t, `"a" = ? OR "b" = ?`, got)

	got, err = f.FormatConditions([]expr.Node{parse("a = 1 or b = 2"), parse("c = 3 and d = 4")})
	require.NoError(t, err)
	assert.Equal(t, `("a" = ? OR "b" = ?) AND "c" = ? AND "d" = ?`, got)

	got, err = f.FormatConditions([]expr.Node{parse("(a = 1 or b = 2)"), parse("c = 3")})
	require.NoError(t, err)
	assert.Equal(t, `("a" = ? OR "b" = ?) AND "c" = ?`, got, "parentheses are never doubled")
}

func TestFormatter_CollectLiteralMatchesPlaceholders(t *testing.T) {
	f := testFormatter(t)
	inputs := []struct {
		text   string
		values []any
	}{
		{"a = ?", []any{1}},
		{"a in ? and b between ? and ?", []any{[]int{1, 2, 3}, 4, 5}},
		{"coalesce(a, ?, 'x') > 3 or b is null", []any{"y"}},
		{"a != ? and not (b like ?)", []any{[]string{"p", "q"}, "%z"}},
		{"-a * (? + 2) % 7", []any{8}},
	}

	for _, in := range inputs {
		t.Run(in.text, func(t *testing.T) {
			node, err := expr.Parse(in.text, in.values...)
			require.NoError(t, err)

			text, err := f.FormatExpr(node)
			require.NoError(t, err)
			var values []any
			require.NoError(t, f.CollectLiteral(node, &values))

			assert.Equal(t, strings.Count(text, "?"), len(values))
		})
	}
}
