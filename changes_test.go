package attrs

import (
	"errors"
	"reflect"
	"testing"
)

type account struct {
	id   int
	name string
}

func (a *account) UID() any { return a.id }

func TestComparisonKey(t *testing.T) {
	cases := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"map order", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 2, "a": 1}, true},
		{"nested slices", []any{1, []int{2}}, []any{1, []int{3}}, false},
		{"identifiable by uid", &account{id: 1, name: "x"}, &account{id: 1, name: "y"}, true},
		{"identifiable differs", &account{id: 1}, &account{id: 2}, false},
		{"identifiable inside slice", []any{&account{id: 1, name: "x"}}, []any{&account{id: 1, name: "y"}}, true},
		{"nil pointer is null", (*account)(nil), nil, true},
		{"typed nil slice is null", []string(nil), nil, true},
		{"bytes", []byte("ab"), []byte("ab"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := comparisonKey(tc.a) == comparisonKey(tc.b)
			if got != tc.equal {
				t.Fatalf("expected equal=%v for %#v and %#v", tc.equal, tc.a, tc.b)
			}
		})
	}

	if comparisonKey(func() {}) == 0 {
		t.Fatalf("expected unencodable values to still produce a key")
	}
}

func TestCopyValue(t *testing.T) {
	original := map[string][]string{"tags": {"a"}}
	copied := copyValue(original).(map[string][]string)
	copied["tags"][0] = "b"
	if original["tags"][0] != "a" {
		t.Fatalf("expected deep copy of nested slice")
	}

	owner := &account{id: 1}
	if copyValue(owner) != owner {
		t.Fatalf("expected identifiable values kept by reference")
	}
	if copyValue(42) != 42 {
		t.Fatalf("expected scalars returned as is")
	}
}

func TestStorageValue(t *testing.T) {
	if got := storageValue(&account{id: 5}); got != 5 {
		t.Fatalf("expected uid substitution, got %v", got)
	}
	if got := storageValue("x"); got != "x" {
		t.Fatalf("expected plain value, got %v", got)
	}
}

func TestChangeMap(t *testing.T) {
	r := newRegistry(t, ModeReadWrite, []Field{
		{Name: "name"},
		{Name: "tags"},
		{Name: "owner"},
		{Name: "cache", Flags: Volatile},
		{Name: "note"},
	})
	mustInitialize(t, r, Named(map[string]any{
		"name":  "Alice",
		"tags":  []string{"a"},
		"owner": &account{id: 1, name: "x"},
		"cache": "hot",
	}))

	changed, err := r.ChangeMap()
	if err != nil {
		t.Fatalf("ChangeMap returned error: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"name", "tags", "owner"}) {
		t.Fatalf("expected non-nil tracked values before first persistence, got %v", changed)
	}

	persistWith(t, r, nil)

	tags := mustGet(t, r, "tags").([]string)
	tags[0] = "b"
	owner := mustGet(t, r, "owner").(*account)
	owner.name = "renamed"
	if err := r.SetMany(map[string]any{"cache": "cold", "note": "new"}); err != nil {
		t.Fatalf("SetMany returned error: %v", err)
	}

	changed, err = r.ChangeMap()
	if err != nil {
		t.Fatalf("ChangeMap returned error: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"tags", "note"}) {
		t.Fatalf("expected in-place mutation and new value detected, got %v", changed)
	}

	changed, err = r.ChangeMap("note", "name")
	if err != nil {
		t.Fatalf("ChangeMap returned error: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"note"}) {
		t.Fatalf("expected restricted change map, got %v", changed)
	}

	if _, err := r.ChangeMap("ghost"); !errors.Is(err, ErrUndefinedAttribute) {
		t.Fatalf("expected ErrUndefinedAttribute, got %v", err)
	}

	if err := r.Set("owner", &account{id: 2}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if changed, _ := r.ChangeMap("owner"); !reflect.DeepEqual(changed, []string{"owner"}) {
		t.Fatalf("expected new identity detected, got %v", changed)
	}
}
