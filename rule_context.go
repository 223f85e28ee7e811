package attrs

import "time"

// RuleContext is what a rule sees: the raw value being written, the
// attribute it targets and the rule's own args and metadata.
type RuleContext struct {
	Value    any
	Name     string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

// Evaluator runs rule expressions for one engine.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	// Compile prepares expr once for repeated evaluation.
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a prepared expression.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// withDefaults fills Now and replaces nil maps so expressions can index
// args and metadata unconditionally.
func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) attributeLabel() string {
	if ctx.Name == "" {
		return "unknown"
	}
	return ctx.Name
}

// variables is the environment every engine exposes.
func (ctx RuleContext) variables() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"value":    ctx.Value,
		"name":     ctx.Name,
		"now":      *ctx.Now,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}
