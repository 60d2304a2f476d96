package spellbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/spell"
)

func TestFormatUpdate(t *testing.T) {
	t.Run("plain values", func(t *testing.T) {
		s := newSpell(t, spell.Update, postModel(), "id = ?", 1)
		s.Sets = []spell.Row{{"title": "x", "isPrivate": true}}

		res := mustFormat(t, Postgres{}, s)

		assert.Equal(t, `UPDATE "articles" SET "title" = ?, "is_private" = ? WHERE "id" = ?`, res.SQL)
		assert.Equal(t, []any{"x", true, 1}, res.Values)
	})

	t.Run("raw and expression values", func(t *testing.T) {
		inc, err := expr.Parse("wordCount + ?", 1)
		require.NoError(t, err)

		s := newSpell(t, spell.Update, postModel(), "id = ?", 7)
		s.Sets = []spell.Row{{"updatedAt": expr.NewRaw("CURRENT_TIMESTAMP"), "wordCount": inc}}

		res := mustFormat(t, Postgres{}, s)

		assert.Equal(t, `UPDATE "articles" SET "word_count" = "word_count" + ?, "updated_at" = CURRENT_TIMESTAMP WHERE "id" = ?`, res.SQL)
		assert.Equal(t, []any{1, 7}, res.Values)
	})

	t.Run("mysql order and limit", func(t *testing.T) {
		s := newSpell(t, spell.Update, postModel(), "authorId = ?", 3)
		s.Sets = []spell.Row{{"isPrivate": true}}
		require.NoError(t, s.AddOrder("createdAt desc"))
		s.RowCount = 5

		res := mustFormat(t, MySQL{}, s)
		assert.Equal(t, "UPDATE `articles` SET `is_private` = ? WHERE `author_id` = ? ORDER BY `created_at` DESC LIMIT 5", res.SQL)
		assert.Equal(t, []any{true, 3}, res.Values)

		pg := mustFormat(t, Postgres{}, s)
		assert.Equal(t, `UPDATE "articles" SET "is_private" = ? WHERE "author_id" = ?`, pg.SQL)
	})

	t.Run("returning", func(t *testing.T) {
		s := newSpell(t, spell.Update, postModel(), "id = ?", 1)
		s.Sets = []spell.Row{{"title": "x"}}
		s.Returning = spell.Returning{Enabled: true, Columns: []string{"updatedAt"}}

		res := mustFormat(t, Postgres{}, s)
		assert.Equal(t, `UPDATE "articles" SET "title" = ? WHERE "id" = ? RETURNING "updated_at"`, res.SQL)
	})
}

func TestFormatUpdate_EmptySet(t *testing.T) {
	for _, sets := range [][]spell.Row{nil, {{}}} {
		s := newSpell(t, spell.Update, postModel(), "id = ?", 1)
		s.Sets = sets

		_, err := New(Postgres{}).Format(s)

		require.Error(t, err)
		assert.True(t, IsQueryShapeError(err))
		assert.Contains(t, err.Error(), "empty set")
	}
}

func TestFormatUpdate_ShardingKey(t *testing.T) {
	t.Run("missing condition", func(t *testing.T) {
		s := newSpell(t, spell.Update, commentModel(), "id = ?", 1)
		s.Sets = []spell.Row{{"content": "x"}}

		_, err := New(Postgres{}).Format(s)
		assert.True(t, IsShardingKeyError(err))
	})

	t.Run("unset", func(t *testing.T) {
		s := newSpell(t, spell.Update, commentModel(), "articleId = ?", 1)
		s.Sets = []spell.Row{{"articleId": nil}}

		_, err := New(Postgres{}).Format(s)
		require.Error(t, err)
		assert.True(t, IsShardingKeyError(err))
		assert.Contains(t, err.Error(), "cannot unset sharding key comments.articleId")
	})

	t.Run("empty set reported first", func(t *testing.T) {
		s := newSpell(t, spell.Update, commentModel(), "id = ?", 1)
		s.Sets = []spell.Row{{}}

		_, err := New(Postgres{}).Format(s)
		assert.True(t, IsQueryShapeError(err))
	})

	t.Run("allowed", func(t *testing.T) {
		s := newSpell(t, spell.Update, commentModel(), "articleId = ? and id = ?", 1, 2)
		s.Sets = []spell.Row{{"content": "x", "articleId": 3}}

		res := mustFormat(t, Postgres{}, s)
		assert.Equal(t, `UPDATE "comments" SET "article_id" = ?, "content" = ? WHERE "article_id" = ? AND "id" = ?`, res.SQL)
		assert.Equal(t, []any{3, "x", 1, 2}, res.Values)
	})
}

func TestFormatDelete(t *testing.T) {
	t.Run("sharding key required", func(t *testing.T) {
		_, err := New(Postgres{}).Format(newSpell(t, spell.Delete, commentModel(), "id = ?", 1))

		require.Error(t, err)
		assert.True(t, IsShardingKeyError(err))
	})

	t.Run("with sharding key", func(t *testing.T) {
		res := mustFormat(t, Postgres{}, newSpell(t, spell.Delete, commentModel(), "articleId = ? and id = ?", 1, 2))

		assert.Equal(t, `DELETE FROM "comments" WHERE "article_id" = ? AND "id" = ?`, res.SQL)
		assert.Equal(t, []any{1, 2}, res.Values)
	})

	t.Run("mysql limit and hints", func(t *testing.T) {
		s := newSpell(t, spell.Delete, postModel(), "isPrivate = ?", true)
		s.Hints = []spell.Hint{{Text: "MAX_EXECUTION_TIME(100)"}}
		s.RowCount = 10
		s.Returning = spell.Returning{Enabled: true}

		res := mustFormat(t, MySQL{}, s)
		assert.Equal(t, "DELETE /*+ MAX_EXECUTION_TIME(100) */ FROM `articles` WHERE `is_private` = ? LIMIT 10", res.SQL)

		pg := mustFormat(t, Postgres{}, s)
		assert.Equal(t, `DELETE FROM "articles" WHERE "is_private" = ?`, pg.SQL, "DELETE never renders RETURNING")
	})

	t.Run("whole table", func(t *testing.T) {
		res := mustFormat(t, SQLite{}, spell.New(spell.Delete, postModel()))
		assert.Equal(t, `DELETE FROM "articles"`, res.SQL)
		assert.Empty(t, res.Values)
	})
}
