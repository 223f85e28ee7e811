// Package hydrate turns attribute value maps into typed structs through
// their JSON form.
package hydrate

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-attributes/internal/clone"
)

// Context identifies the registry a payload was read from.
type Context struct {
	Owner string
}

// PreHook rewrites the payload before decoding. Returning nil keeps the
// current payload.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or checks the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts attribute values into T.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	useNumber bool
	strict    bool
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber decodes numbers held in interface fields as json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.useNumber = true }
}

// WithDisallowUnknownFields rejects values with no matching struct field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre-hooks over a copy of payload, decodes the result into
// T and hands it to the post-hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var out T
	if payload == nil {
		return out, fmt.Errorf("hydrate: payload is nil for %s", ctx.Owner)
	}
	payload, err := d.prepare(ctx, payload)
	if err != nil {
		return out, err
	}
	if err := d.unmarshal(payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.Owner, err)
	}
	for _, hook := range d.post {
		if err := hook(ctx, &out); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.Owner, err)
		}
	}
	return out, nil
}

func (d *Decoder[T]) prepare(ctx Context, payload map[string]any) (map[string]any, error) {
	if len(d.pre) == 0 {
		return payload, nil
	}
	current := clone.Map(payload)
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.Owner, err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

func (d *Decoder[T]) unmarshal(payload map[string]any, out *T) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.useNumber {
		dec.UseNumber()
	}
	if d.strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(out)
}
