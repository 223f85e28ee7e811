package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

type account struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Tags  []string       `json:"tags,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		input     map[string]any
		opts      []DecoderOption[account]
		expect    account
		expectErr string
	}{
		{
			name:   "basic",
			input:  map[string]any{"id": 7, "name": "Alice", "tags": []string{"a"}},
			expect: account{ID: 7, Name: "Alice", Tags: []string{"a"}},
		},
		{
			name:  "use number",
			input: map[string]any{"id": 1, "extra": map[string]any{"limit": 10}},
			opts:  []DecoderOption[account]{WithUseNumber[account]()},
			expect: account{
				ID:    1,
				Extra: map[string]any{"limit": json.Number("10")},
			},
		},
		{
			name:      "disallow unknown",
			input:     map[string]any{"id": 1, "secret": "x"},
			opts:      []DecoderOption[account]{WithDisallowUnknownFields[account]()},
			expectErr: "hydrate: decode",
		},
		{
			name:      "type mismatch",
			input:     map[string]any{"id": "seven"},
			expectErr: "hydrate: decode",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewDecoder(tc.opts...).Decode(Context{Owner: "account"}, tc.input)
			if tc.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecoderNilPayload(t *testing.T) {
	_, err := NewDecoder[account]().Decode(Context{Owner: "account"}, nil)
	if err == nil || !strings.Contains(err.Error(), "payload is nil") {
		t.Fatalf("expected nil payload error, got %v", err)
	}
}

func TestDecoderHooks(t *testing.T) {
	input := map[string]any{"id": 3, "name": " bob "}
	pre := func(_ Context, payload map[string]any) (map[string]any, error) {
		payload["name"] = strings.TrimSpace(payload["name"].(string))
		return payload, nil
	}
	post := func(_ Context, a *account) error {
		a.Name = strings.ToUpper(a.Name)
		return nil
	}
	decoder := NewDecoder(WithPreHook[account](pre), WithPostHook[account](post))

	result, err := decoder.Decode(Context{Owner: "account"}, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "BOB" {
		t.Fatalf("expected hooks applied, got %q", result.Name)
	}
	if input["name"] != " bob " {
		t.Fatalf("expected input payload untouched, got %q", input["name"])
	}
}

func TestDecoderHookErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewDecoder(WithPreHook[account](func(Context, map[string]any) (map[string]any, error) {
		return nil, boom
	})).Decode(Context{Owner: "account"}, map[string]any{})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "pre-hook") {
		t.Fatalf("expected pre-hook error, got %v", err)
	}

	_, err = NewDecoder(WithPostHook[account](func(Context, *account) error {
		return boom
	})).Decode(Context{Owner: "account"}, map[string]any{})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook error, got %v", err)
	}
}
