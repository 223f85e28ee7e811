package attrs

import "context"

// AllAttributes registers a hook for every attribute name.
const AllAttributes = "*"

// Hook observes one attribute around a persistence operation. Returning an
// error aborts the operation and the error is returned to the caller as is.
type Hook func(ctx context.Context, name string, before, after any) error

type hookSet struct {
	pre  map[string][]Hook
	post map[string][]Hook
}

func (h *hookSet) addPre(name string, hook Hook) {
	if hook == nil {
		return
	}
	if h.pre == nil {
		h.pre = make(map[string][]Hook)
	}
	h.pre[name] = append(h.pre[name], hook)
}

func (h *hookSet) addPost(name string, hook Hook) {
	if hook == nil {
		return
	}
	if h.post == nil {
		h.post = make(map[string][]Hook)
	}
	h.post[name] = append(h.post[name], hook)
}

// runHooks invokes the hooks registered for each name in order, specific hooks
// before wildcard ones, stopping at the first error.
func runHooks(ctx context.Context, hooks map[string][]Hook, names []string, before, after map[string]any) error {
	if len(hooks) == 0 {
		return nil
	}
	for _, name := range names {
		for _, hook := range hooks[name] {
			if err := hook(ctx, name, before[name], after[name]); err != nil {
				return err
			}
		}
		for _, hook := range hooks[AllAttributes] {
			if err := hook(ctx, name, before[name], after[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnPrePersist adds a pre hook after construction.
func (r *Registry) OnPrePersist(name string, hook Hook) {
	r.cfg.hooks.addPre(name, hook)
}

// OnPostPersist adds a post hook after construction.
func (r *Registry) OnPostPersist(name string, hook Hook) {
	r.cfg.hooks.addPost(name, hook)
}
