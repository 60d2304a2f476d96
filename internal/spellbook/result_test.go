package spellbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Fingerprint(t *testing.T) {
	base := &Result{SQL: `SELECT * FROM "t" WHERE "a" = ?`, Values: []any{1}}

	fp := base.Fingerprint()
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, (&Result{SQL: base.SQL, Values: []any{1}}).Fingerprint())

	t.Run("value type matters", func(t *testing.T) {
		assert.NotEqual(t, fp, (&Result{SQL: base.SQL, Values: []any{"1"}}).Fingerprint())
	})

	t.Run("integer width does not matter", func(t *testing.T) {
		assert.Equal(t, fp, (&Result{SQL: base.SQL, Values: []any{int64(1)}}).Fingerprint())
	})

	t.Run("values are length prefixed", func(t *testing.T) {
		a := &Result{SQL: "?", Values: []any{"ab", "c"}}
		b := &Result{SQL: "?", Values: []any{"a", "bc"}}
		assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("strings are NFC normalized", func(t *testing.T) {
		composed := &Result{SQL: "?", Values: []any{"caf\u00e9"}}
		decomposed := &Result{SQL: "?", Values: []any{"cafe\u0301"}}
		assert.Equal(t, composed.Fingerprint(), decomposed.Fingerprint())
	})

	t.Run("null differs from empty string", func(t *testing.T) {
		a := &Result{SQL: "?", Values: []any{nil}}
		b := &Result{SQL: "?", Values: []any{""}}
		assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	})
}

func TestResult_Inline(t *testing.T) {
	res := &Result{
		SQL:    `SELECT * FROM "a?" WHERE "x" = ? AND "y" = '?' AND "z" IN (?, ?)`,
		Values: []any{"it's", 1, nil},
	}

	assert.Equal(t, `SELECT * FROM "a?" WHERE "x" = 'it''s' AND "y" = '?' AND "z" IN (1, NULL)`, res.Inline(Postgres{}))
	assert.Equal(t, `SELECT * FROM "a?" WHERE "x" = 'it\'s' AND "y" = '?' AND "z" IN (1, NULL)`, res.Inline(MySQL{}))
}

func TestResult_InlineMissingValues(t *testing.T) {
	res := &Result{SQL: "SELECT ?, ?", Values: []any{true}}
	assert.Equal(t, "SELECT 1, ?", res.Inline(SQLite{}))
}
