package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
)

func testStatement(fingerprint, model string, values ...any) Statement {
	return Statement{
		Fingerprint: fingerprint,
		Dialect:     "sqlite",
		Command:     "select",
		Model:       model,
		SQL:         `SELECT * FROM "t" WHERE "a" < ?`,
		Values:      values,
	}
}

func TestWriteStatement_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, fp := range []string{"fp-a", "fp-b", "fp-c"} {
		seq, err := s.WriteStatement(ctx, testStatement(fp, "Post", i))
		if err != nil {
			t.Fatalf("WriteStatement(%s) failed: %v", fp, err)
		}
		if want := int64(i + 1); seq != want {
			t.Errorf("WriteStatement(%s) seq = %d, want %d", fp, seq, want)
		}
	}
}

func TestWriteStatement_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteStatement(ctx, testStatement("fp-a", "Post", 1))
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := s.WriteStatement(ctx, testStatement("fp-b", "Post", 2)); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	again, err := s.WriteStatement(ctx, testStatement("fp-a", "Post", 1))
	if err != nil {
		t.Fatalf("repeated write failed: %v", err)
	}
	if again != first {
		t.Errorf("repeated write seq = %d, want %d", again, first)
	}

	all, err := s.ReadStatements(ctx, "")
	if err != nil {
		t.Fatalf("ReadStatements() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(statements) = %d, want 2", len(all))
	}
}

func TestReadStatements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, st := range []Statement{
		testStatement("fp-1", "Post", 1, "x"),
		testStatement("fp-2", "User"),
		testStatement("fp-3", "Post", nil, true),
	} {
		if _, err := s.WriteStatement(ctx, st); err != nil {
			t.Fatalf("WriteStatement() failed: %v", err)
		}
	}

	posts, err := s.ReadStatements(ctx, "Post")
	if err != nil {
		t.Fatalf("ReadStatements() failed: %v", err)
	}
	if len(posts) != 2 || posts[0].Fingerprint != "fp-1" || posts[1].Fingerprint != "fp-3" {
		t.Fatalf("ReadStatements(Post) = %+v", posts)
	}
	if posts[1].Seq != 3 {
		t.Errorf("seq = %d, want 3", posts[1].Seq)
	}
	if posts[0].SQL != `SELECT * FROM "t" WHERE "a" < ?` {
		t.Errorf("SQL = %q", posts[0].SQL)
	}
	if got := posts[0].Values; len(got) != 2 || got[0] != json.Number("1") || got[1] != "x" {
		t.Errorf("values = %#v", got)
	}
	if got := posts[1].Values; len(got) != 2 || got[0] != nil || got[1] != true {
		t.Errorf("values = %#v", got)
	}

	none, err := s.ReadStatements(ctx, "Comment")
	if err != nil {
		t.Fatalf("ReadStatements() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ReadStatements(Comment) = %#v, want empty slice", none)
	}
}

func TestReadStatement(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteStatement(ctx, testStatement("fp-1", "User")); err != nil {
		t.Fatalf("WriteStatement() failed: %v", err)
	}

	st, err := s.ReadStatement(ctx, "fp-1")
	if err != nil {
		t.Fatalf("ReadStatement() failed: %v", err)
	}
	if st.Model != "User" || st.Dialect != "sqlite" || len(st.Values) != 0 {
		t.Errorf("ReadStatement() = %+v", st)
	}

	_, err = s.ReadStatement(ctx, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadStatement(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestMarshalValues(t *testing.T) {
	got, err := marshalValues([]any{"a < b", 1, nil})
	if err != nil {
		t.Fatalf("marshalValues() failed: %v", err)
	}
	if want := `["a < b",1,null]`; got != want {
		t.Errorf("marshalValues() = %s, want %s", got, want)
	}

	empty, err := marshalValues(nil)
	if err != nil {
		t.Fatalf("marshalValues(nil) failed: %v", err)
	}
	if empty != "[]" {
		t.Errorf("marshalValues(nil) = %s, want []", empty)
	}

	if _, err := unmarshalValues("{"); err == nil {
		t.Error("unmarshalValues() accepted invalid JSON")
	}
}
