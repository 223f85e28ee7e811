package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return strconv.Itoa(n)
	}
}

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     Ref
		want    string
		wantErr bool
	}{
		{name: "ok", ref: Ref{Collection: "accounts", ID: "7"}, want: "accounts/7"},
		{name: "trimmed", ref: Ref{Collection: " accounts ", ID: " 7 "}, want: "accounts/7"},
		{name: "missing collection", ref: Ref{ID: "7"}, wantErr: true},
		{name: "missing id", ref: Ref{Collection: "accounts"}, wantErr: true},
		{name: "slash in collection", ref: Ref{Collection: "a/b", ID: "1"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("expected %q, got %q (err=%v)", tc.want, got, err)
			}
		})
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithIDGenerator(sequentialIDs()))

	values := map[string]any{"name": "Alice"}
	ref, err := s.Insert(ctx, "accounts", values)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ref.ID != "1" || ref.Collection != "accounts" {
		t.Fatalf("unexpected ref %+v", ref)
	}
	values["name"] = "mutated"

	loaded, err := s.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["name"] != "Alice" {
		t.Fatalf("expected stored copy, got %+v", loaded)
	}

	if err := s.Update(ctx, ref, map[string]any{"name": "Bob", "age": 30}); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, _ = s.Load(ctx, ref)
	if loaded["name"] != "Bob" || loaded["age"] != 30 {
		t.Fatalf("expected merged update, got %+v", loaded)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	if _, err := s.Load(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, ref, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := s.Delete(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestMemoryStoreRejectsDuplicateIDs(t *testing.T) {
	s := NewMemoryStore(WithIDGenerator(func() string { return "same" }))
	if _, err := s.Insert(context.Background(), "accounts", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(context.Background(), "accounts", nil); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
