package store_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	attrs "github.com/goliatone/go-attributes"
	"github.com/goliatone/go-attributes/pkg/store"
)

func accountSchema(t *testing.T) *attrs.Schema {
	t.Helper()
	schema, err := attrs.NewSchema(attrs.ModeReadWrite, []attrs.Field{
		{Name: "id", Mode: attrs.ModeWriteOnce, Flags: attrs.Automatic},
		{Name: "name", Flags: attrs.Required},
		{Name: "cache", Flags: attrs.Volatile},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func newAccount(t *testing.T, values map[string]any) *attrs.Registry {
	t.Helper()
	r, err := attrs.New(nil, accountSchema(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Initialize(attrs.Named(values)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return r
}

func stores(t *testing.T) map[string]store.Store {
	n := 0
	next := func() string {
		n++
		return "acc-" + strconv.Itoa(n)
	}
	sqlStore, err := store.OpenSQLite(context.Background(), ":memory:", store.WithSQLIDGenerator(next))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	return map[string]store.Store{
		"memory": store.NewMemoryStore(store.WithIDGenerator(next)),
		"sqlite": sqlStore,
	}
}

func TestBindingPersistLifecycle(t *testing.T) {
	for name, backend := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := newAccount(t, map[string]any{"name": "Alice", "cache": "scratch"})
			binding := store.Bind(backend, "accounts")

			if err := binding.Persist(ctx, r); err != nil {
				t.Fatalf("persist: %v", err)
			}
			ref, ok := binding.Ref()
			if !ok {
				t.Fatalf("expected binding to learn the record id")
			}
			id, err := r.Get("id")
			if err != nil || id != ref.ID {
				t.Fatalf("expected id %q, got %v (err=%v)", ref.ID, id, err)
			}

			stored, err := backend.Load(ctx, ref)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if _, ok := stored["cache"]; ok {
				t.Fatalf("volatile attribute leaked into the store: %+v", stored)
			}

			if err := r.Set("name", "Bob"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := binding.Persist(ctx, r, attrs.ChangesOnly()); err != nil {
				t.Fatalf("update: %v", err)
			}
			stored, _ = backend.Load(ctx, ref)
			if stored["name"] != "Bob" {
				t.Fatalf("expected updated name, got %+v", stored)
			}

			if err := backend.Update(ctx, ref, map[string]any{"name": "Carol"}); err != nil {
				t.Fatalf("external update: %v", err)
			}
			if err := binding.Reload(ctx, r); err != nil {
				t.Fatalf("reload: %v", err)
			}
			if got, _ := r.Get("name"); got != "Carol" {
				t.Fatalf("expected reloaded name, got %v", got)
			}
			if changed, _ := r.ChangeMap(); len(changed) != 0 {
				t.Fatalf("expected clean registry after reload, got %v", changed)
			}

			if err := binding.Unpersist(ctx, r); err != nil {
				t.Fatalf("unpersist: %v", err)
			}
			if r.IsPersisted() {
				t.Fatalf("expected unpersisted registry")
			}
			if _, err := backend.Load(ctx, ref); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected record removed, got %v", err)
			}
			if _, ok := binding.Ref(); ok {
				t.Fatalf("expected binding to forget the deleted record")
			}
		})
	}
}

func TestBindingUsesIDAttributeForRestoredRegistry(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore(store.WithIDGenerator(func() string { return "42" }))
	ref, err := backend.Insert(ctx, "accounts", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	r, err := attrs.New(nil, accountSchema(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Initialize(attrs.Named(map[string]any{"id": ref.ID, "name": "Alice"}), attrs.AsPersisted()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	binding := store.Bind(backend, "accounts")
	if err := r.Set("name", "Dana"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := binding.Persist(ctx, r); err != nil {
		t.Fatalf("persist: %v", err)
	}
	stored, _ := backend.Load(ctx, ref)
	if stored["name"] != "Dana" {
		t.Fatalf("expected update through the id attribute, got %+v", stored)
	}
}

func TestBindingLoaderWithoutRecordFails(t *testing.T) {
	binding := store.Bind(store.NewMemoryStore(), "accounts")
	if _, err := binding.Loader()(context.Background()); !errors.Is(err, store.ErrUnbound) {
		t.Fatalf("expected ErrUnbound, got %v", err)
	}
}

func TestBindRefAndCustomIDField(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore(store.WithIDGenerator(func() string { return "9" }))
	ref, _ := backend.Insert(ctx, "users", map[string]any{"email": "a@example.com"})

	binding := store.Bind(backend, "users", store.WithIDField("uid"), store.BindRef(ref.ID))
	values, err := binding.Loader()(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if values["uid"] != "9" || values["email"] != "a@example.com" {
		t.Fatalf("unexpected values %+v", values)
	}
}
