package activity

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultChannel is applied to events that do not name a channel.
const DefaultChannel = "attributes"

// Config controls an Emitter.
type Config struct {
	Enabled bool
	// Channel defaults to DefaultChannel.
	Channel string
	// Verbs restricts emission to the listed verbs. Empty emits every verb.
	Verbs []string
	// SuppressErrors logs hook failures instead of returning them, so an
	// unavailable sink never fails a persistence call.
	SuppressErrors bool
	// Logger receives suppressed failures. Nil discards them.
	Logger *zerolog.Logger
}

// Emitter applies Config to events before handing them to hooks.
type Emitter struct {
	hooks    Hooks
	enabled  bool
	channel  string
	verbs    map[string]struct{}
	suppress bool
	logger   zerolog.Logger
}

// NewEmitter builds an emitter. It is disabled when cfg.Enabled is false or
// no non-nil hook remains.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		hooks:    cloneHooks(hooks),
		channel:  strings.TrimSpace(cfg.Channel),
		suppress: cfg.SuppressErrors,
		logger:   zerolog.Nop(),
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if cfg.Logger != nil {
		e.logger = *cfg.Logger
	}
	if len(cfg.Verbs) > 0 {
		e.verbs = make(map[string]struct{}, len(cfg.Verbs))
		for _, verb := range cfg.Verbs {
			e.verbs[strings.ToLower(strings.TrimSpace(verb))] = struct{}{}
		}
	}
	e.enabled = cfg.Enabled && len(e.hooks) > 0
	return e
}

// Enabled reports whether Emit reaches any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emits reports whether events with verb pass the verb filter.
func (e *Emitter) Emits(verb string) bool {
	if !e.Enabled() {
		return false
	}
	if e.verbs == nil {
		return true
	}
	_, ok := e.verbs[strings.ToLower(strings.TrimSpace(verb))]
	return ok
}

// Emit fills the default channel and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Emits(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	err := e.hooks.Notify(ctx, event)
	if err != nil && e.suppress {
		e.logger.Warn().
			Err(err).
			Str("verb", event.Verb).
			Str("object_type", event.ObjectType).
			Str("object_id", event.ObjectID).
			Msg("activity hooks failed")
		return nil
	}
	return err
}

func cloneHooks(hooks Hooks) Hooks {
	var out Hooks
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}
