//go:build js_eval

package attrs

import (
	"github.com/dop251/goja"
)

type jsEvaluator struct {
	registry *FunctionRegistry
	programs programRunner[*goja.Program]
}

// NewJSEvaluator constructs an Evaluator backed by goja. Every evaluation
// runs in a fresh runtime so rules cannot leak state into each other.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	settings := newJSSettings(opts)
	e := &jsEvaluator{registry: settings.registry}
	e.programs = programRunner[*goja.Program]{
		engine: "js",
		cache:  settings.cache,
		compile: func(expression string) (*goja.Program, error) {
			return goja.Compile("rule.js", "(function(){ return ("+expression+"); })()", false)
		},
		run: e.run,
	}
	return e
}

func (e *jsEvaluator) engineName() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return e.programs.evaluate(ctx, expression)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	return e.programs.compileRule(expression)
}

func (e *jsEvaluator) run(program *goja.Program, ctx RuleContext) (any, error) {
	vm := goja.New()
	for key, value := range ctx.variables() {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	if e.registry != nil {
		if err := vm.Set("call", e.registry.dispatch); err != nil {
			return nil, err
		}
		for _, name := range e.registry.Names() {
			if err := vm.Set(name, e.registry.bound(name)); err != nil {
				return nil, err
			}
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
