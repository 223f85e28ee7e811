package attrs

import "github.com/goliatone/go-attributes/internal/hydrate"

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	strict    bool
	useNumber bool
	rewrites  []func(map[string]any) (map[string]any, error)
	checks    []func(any) error
}

// DecodeStrict fails when a readable value has no matching field in T.
func DecodeStrict() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.strict = true
	}
}

// DecodeNumbers keeps numbers landing in interface fields as json.Number.
func DecodeNumbers() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.useNumber = true
	}
}

// DecodeRewrite reshapes the value map before decoding. fn receives a copy.
func DecodeRewrite(fn func(values map[string]any) (map[string]any, error)) DecodeOption {
	return func(cfg *decodeConfig) {
		if fn != nil {
			cfg.rewrites = append(cfg.rewrites, fn)
		}
	}
}

// DecodeCheck runs fn against a pointer to the decoded value.
func DecodeCheck(fn func(decoded any) error) DecodeOption {
	return func(cfg *decodeConfig) {
		if fn != nil {
			cfg.checks = append(cfg.checks, fn)
		}
	}
}

// Decode returns a typed view of the registry's readable values. T is
// decoded with json struct tags; Identifiable values are encoded as they
// marshal themselves.
func Decode[T any](r *Registry, opts ...DecodeOption) (T, error) {
	var zero T
	cfg := decodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	values, err := r.Values()
	if err != nil {
		return zero, err
	}
	return hydrate.NewDecoder(decoderOptions[T](cfg)...).Decode(hydrate.Context{Owner: r.ownerLabel()}, values)
}

func decoderOptions[T any](cfg decodeConfig) []hydrate.DecoderOption[T] {
	var opts []hydrate.DecoderOption[T]
	if cfg.strict {
		opts = append(opts, hydrate.WithDisallowUnknownFields[T]())
	}
	if cfg.useNumber {
		opts = append(opts, hydrate.WithUseNumber[T]())
	}
	for _, rewrite := range cfg.rewrites {
		opts = append(opts, hydrate.WithPreHook[T](func(_ hydrate.Context, values map[string]any) (map[string]any, error) {
			return rewrite(values)
		}))
	}
	for _, check := range cfg.checks {
		opts = append(opts, hydrate.WithPostHook(func(_ hydrate.Context, decoded *T) error {
			return check(decoded)
		}))
	}
	return opts
}
