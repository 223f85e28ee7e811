package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:", WithSQLIDGenerator(sequentialIDs()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStoreCRUDOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	ref, err := s.Insert(ctx, "accounts", map[string]any{
		"name":  "Alice",
		"age":   30,
		"score": 1.5,
		"tags":  []any{"a", "b"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	loaded, err := s.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["name"] != "Alice" {
		t.Fatalf("unexpected name %v", loaded["name"])
	}
	if loaded["age"] != int64(30) {
		t.Fatalf("expected integral numbers as int64, got %T %v", loaded["age"], loaded["age"])
	}
	if loaded["score"] != 1.5 {
		t.Fatalf("expected float score, got %T %v", loaded["score"], loaded["score"])
	}

	if err := s.Update(ctx, ref, map[string]any{"name": "Bob"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, _ = s.Load(ctx, ref)
	if loaded["name"] != "Bob" || loaded["age"] != int64(30) {
		t.Fatalf("expected merged payload, got %+v", loaded)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := s.Update(ctx, ref, map[string]any{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestNewSQLStoreRejectsInvalidTable(t *testing.T) {
	s := openTestSQLite(t)
	if _, err := NewSQLStore(context.Background(), s.DB(), SQLite, WithTable("drop table;")); err == nil {
		t.Fatalf("expected invalid table error")
	}
}

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	s := &SQLStore{dialect: Postgres}
	got := s.rebind("SELECT payload FROM t WHERE collection = ? AND id = ?")
	want := "SELECT payload FROM t WHERE collection = $1 AND id = $2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	lite := &SQLStore{dialect: SQLite}
	if lite.rebind("a = ?") != "a = ?" {
		t.Fatalf("expected sqlite query unchanged")
	}
}

func TestSQLStoreOnPostgres(t *testing.T) {
	dsn := os.Getenv("ATTRIBUTES_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ATTRIBUTES_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, WithTable("attribute_records_test"))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer s.Close()

	ref, err := s.Insert(ctx, "accounts", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	defer func() { _ = s.Delete(ctx, ref) }()
	if err := s.Update(ctx, ref, map[string]any{"name": "Bob"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, err := s.Load(ctx, ref)
	if err != nil || loaded["name"] != "Bob" {
		t.Fatalf("unexpected load %+v (err=%v)", loaded, err)
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), ""); err == nil {
		t.Fatalf("expected dsn error")
	}
}
