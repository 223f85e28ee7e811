package attrs

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Registry.
type Option func(*registryConfig)

// RemainderHandler receives the initialization input no attribute claimed.
type RemainderHandler func(Remainder) error

// TransientHandler receives write-once-transient values right before their
// descriptors are discarded.
type TransientHandler func(values map[string]any) error

// Recorder observes persistence operations. See pkg/metrics for a
// Prometheus implementation.
type Recorder interface {
	Observe(op string, duration time.Duration, err error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(op string, duration time.Duration, err error)

// Observe implements Recorder.
func (f RecorderFunc) Observe(op string, duration time.Duration, err error) {
	if f != nil {
		f(op, duration, err)
	}
}

type noopRecorder struct{}

func (noopRecorder) Observe(string, time.Duration, error) {}

type registryConfig struct {
	fallback  Fallback
	logger    zerolog.Logger
	recorder  Recorder
	activity  activityConfig
	remainder RemainderHandler
	transient TransientHandler
	hooks     hookSet
}

func applyOptions(opts []Option) registryConfig {
	cfg := registryConfig{
		logger:   zerolog.Nop(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFallback delegates names the registry does not define to store.
func WithFallback(store Fallback) Option {
	return func(cfg *registryConfig) {
		cfg.fallback = store
	}
}

// WithLogger attaches a zerolog logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *registryConfig) {
		cfg.logger = logger
	}
}

// WithRecorder attaches a persistence metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(cfg *registryConfig) {
		if recorder == nil {
			cfg.recorder = noopRecorder{}
			return
		}
		cfg.recorder = recorder
	}
}

// WithRemainderHandler registers the handler invoked by Initialize when
// CollectRemainder is requested.
func WithRemainderHandler(handler RemainderHandler) Option {
	return func(cfg *registryConfig) {
		cfg.remainder = handler
	}
}

// WithTransientHandler registers the consumer of write-once-transient values.
func WithTransientHandler(handler TransientHandler) Option {
	return func(cfg *registryConfig) {
		cfg.transient = handler
	}
}

// WithPreHook runs hook before a persistence operation touches name. Use
// "*" to observe every attribute.
func WithPreHook(name string, hook Hook) Option {
	return func(cfg *registryConfig) {
		cfg.hooks.addPre(name, hook)
	}
}

// WithPostHook runs hook after a persistence operation touched name. Use
// "*" to observe every attribute.
func WithPostHook(name string, hook Hook) Option {
	return func(cfg *registryConfig) {
		cfg.hooks.addPost(name, hook)
	}
}
