package testutil

import (
	"reflect"
	"testing"
)

func TestSplitSQL(t *testing.T) {
	in := stripSQLComments(`-- header
CREATE TABLE a (id INT);

  -- indented comment
INSERT INTO a VALUES (1);
`)
	got := splitSQL(in)
	want := []string{"CREATE TABLE a (id INT)", "INSERT INTO a VALUES (1)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitSQL() = %q, want %q", got, want)
	}
}

func TestRepoRoot(t *testing.T) {
	if _, err := RepoRoot(); err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
}
