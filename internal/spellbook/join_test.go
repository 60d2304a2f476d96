package spellbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spellbook/internal/spell"
)

// postsWithAuthor builds the classic example: private posts by active users,
// joined with their author.
func postsWithAuthor(t *testing.T) *spell.Spell {
	t.Helper()
	user := userModel()
	users := newSpell(t, spell.Select, user, "status = ?", 1)

	s := newSpell(t, spell.Select, postModel(), "isPrivate = true and authorId in ?", users)
	require.NoError(t, s.AddJoin("author", user, "posts.authorId = author.id"))
	return s
}

func TestFormatJoin_WildcardPerQualifier(t *testing.T) {
	res := mustFormat(t, Postgres{}, postsWithAuthor(t))

	assert.Equal(t,
		`SELECT "posts".*, "author".* FROM "articles" AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id" `+
			`WHERE "posts"."is_private" = ? AND "posts"."author_id" IN (SELECT * FROM "users" WHERE "status" = ?)`,
		res.SQL)
	assert.Equal(t, []any{true, 1}, res.Values)
	assert.Equal(t, 1, strings.Count(res.SQL, "LEFT JOIN"))
}

func TestFormatJoin_LimitPromotesBaseTable(t *testing.T) {
	s := postsWithAuthor(t)
	s.RowCount = 10

	res := mustFormat(t, Postgres{}, s)

	assert.Equal(t,
		`SELECT "posts".*, "author".* FROM `+
			`(SELECT * FROM "articles" WHERE "is_private" = ? AND "author_id" IN (SELECT * FROM "users" WHERE "status" = ?) LIMIT 10) AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id"`,
		res.SQL)
	assert.Equal(t, []any{true, 1}, res.Values)
	assert.False(t, strings.HasSuffix(res.SQL, "LIMIT 10"), "LIMIT applies inside the derived table")
}

func TestFormatJoin_PromotionKeepsCrossTableParts(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddColumns("id, title, author.nickname"))
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	require.NoError(t, s.AddWhere("wordCount > ?", 100))
	require.NoError(t, s.AddWhere("author.nickname like ?", "L%"))
	require.NoError(t, s.AddOrder("createdAt desc"))
	s.RowCount, s.Skip = 5, 10

	res := mustFormat(t, Postgres{}, s)

	assert.Equal(t,
		`SELECT "posts"."id", "posts"."title", "author"."nickname" FROM `+
			`(SELECT "id", "title", "author_id", "created_at" FROM "articles" WHERE "word_count" > ? ORDER BY "created_at" DESC LIMIT 5 OFFSET 10) AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id" `+
			`WHERE "author"."nickname" LIKE ? ORDER BY "posts"."created_at" DESC`,
		res.SQL)
	assert.Equal(t, []any{100, "L%"}, res.Values)
}

func TestFormatJoin_UnqualifiedOnWithLimit(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddColumns("title"))
	require.NoError(t, s.AddJoin("author", userModel(), "authorId = author.id"))
	s.RowCount = 10

	res := mustFormat(t, Postgres{}, s)

	assert.Equal(t,
		`SELECT "posts"."title", "author".* FROM `+
			`(SELECT "title", "author_id" FROM "articles" LIMIT 10) AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id"`,
		res.SQL)
	assert.Empty(t, res.Values)
}

func TestFormatJoin_ExplicitColumns(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddColumns("title"))
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id and author.status = ?", 1))
	require.NoError(t, s.AddWhere("wordCount > ?", 10))

	res := mustFormat(t, MySQL{}, s)

	assert.Equal(t,
		"SELECT `posts`.`title`, `author`.* FROM `articles` AS `posts` "+
			"LEFT JOIN `users` AS `author` ON `posts`.`author_id` = `author`.`id` AND `author`.`status` = ? "+
			"WHERE `posts`.`word_count` > ?",
		res.SQL)
	assert.Equal(t, []any{1, 10}, res.Values, "ON values precede WHERE values")
}

func TestFormatJoin_SQLiteListsColumns(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddColumns("title"))
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))

	res := mustFormat(t, SQLite{}, s)

	assert.Equal(t,
		`SELECT "posts"."title", "author"."id" AS "author:id", "author"."nickname" AS "author:nickname", `+
			`"author"."email" AS "author:email", "author"."status" AS "author:status", "author"."created_at" AS "author:createdAt" `+
			`FROM "articles" AS "posts" LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id"`,
		res.SQL)
	assert.NotContains(t, res.SQL, ".*")
}

func TestFormatJoin_AggregatesSkipWildcards(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddColumns("authorId, count(author.id) as total"))
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	require.NoError(t, s.AddGroups("authorId"))

	res := mustFormat(t, Postgres{}, s)

	assert.Equal(t,
		`SELECT "posts"."author_id", COUNT("author"."id") AS "total" FROM "articles" AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id" GROUP BY "posts"."author_id"`,
		res.SQL)
}

func TestFormatJoin_GroupWithLimitRejected(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	require.NoError(t, s.AddGroups("authorId"))
	s.RowCount = 10

	_, err := New(Postgres{}).Format(s)

	require.Error(t, err)
	assert.True(t, IsQueryShapeError(err))
}

func TestFormatJoin_MultipleJoins(t *testing.T) {
	comment := commentModel()
	comment.ShardingKey = ""

	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	require.NoError(t, s.AddJoin("comments", comment, "comments.articleId = posts.id"))

	res := mustFormat(t, Postgres{}, s)

	assert.Equal(t,
		`SELECT "posts".*, "author".*, "comments".* FROM "articles" AS "posts" `+
			`LEFT JOIN "users" AS "author" ON "posts"."author_id" = "author"."id" `+
			`LEFT JOIN "comments" AS "comments" ON "comments"."article_id" = "posts"."id"`,
		res.SQL)
	assert.Equal(t, 2, strings.Count(res.SQL, "LEFT JOIN"))
}

func TestPromote(t *testing.T) {
	s := spell.New(spell.Select, postModel())
	require.NoError(t, s.AddJoin("author", userModel(), "posts.authorId = author.id"))
	require.NoError(t, s.AddWhere("title = ?", "a"))
	require.NoError(t, s.AddWhere("author.status = ?", 1))
	require.NoError(t, s.AddWhere("wordCount > ?", 3))
	s.IndexHints = []spell.IndexHint{{Type: spell.UseIndex, Indexes: []string{"idx_title"}}}
	s.RowCount = 20
	qualify(s)

	sub := promote(s)

	require.Len(t, sub.Where, 2)
	assert.Equal(t, "title", whereColumn(t, sub, 0))
	assert.Equal(t, "word_count", whereColumn(t, sub, 1))
	require.Len(t, s.Where, 1)
	assert.Equal(t, 20, sub.RowCount)
	assert.Zero(t, s.RowCount)
	assert.Len(t, sub.IndexHints, 1)
	assert.Empty(t, s.IndexHints)
	assert.Empty(t, sub.Columns, "no select list selects every base column")
}

func whereColumn(t *testing.T, s *spell.Spell, i int) string {
	t.Helper()
	res, err := New(Postgres{}).formatter(s).FormatExpr(s.Where[i])
	require.NoError(t, err)
	return strings.Trim(strings.Fields(res)[0], `"`)
}
