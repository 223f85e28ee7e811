package attrs

import (
	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache shares compiled programs through cache.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes registry to rules as call(name, args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
	programs programRunner[celgo.Program]
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Rules are type
// checked with value, args and metadata as dyn, name as string and now as a
// timestamp.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.programs = programRunner[celgo.Program]{
		engine:  "cel",
		cache:   e.cache,
		compile: e.compile,
		run: func(program celgo.Program, ctx RuleContext) (any, error) {
			out, _, err := program.Eval(ctx.variables())
			if err != nil {
				return nil, err
			}
			return out.Value(), nil
		},
	}
	return e
}

func (e *celEvaluator) engineName() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return e.programs.evaluate(ctx, expression)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	return e.programs.compileRule(expression)
}

func (e *celEvaluator) compile(expression string) (celgo.Program, error) {
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

// celMaxCallArgs bounds call(name, args...); CEL has no variadic overloads.
const celMaxCallArgs = 4

func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxCallArgs+1)
	args := []*celgo.Type{celgo.StringType}
	id := "call_string"
	for arity := 0; arity <= celMaxCallArgs; arity++ {
		overloads = append(overloads, celgo.Overload(id,
			append([]*celgo.Type(nil), args...),
			celgo.DynType,
			celgo.FunctionBinding(e.call),
		))
		args = append(args, celgo.DynType)
		id += "_dyn"
	}
	return overloads
}

// call adapts CEL values for the function registry.
func (e *celEvaluator) call(values ...ref.Val) ref.Val {
	args := make([]any, len(values))
	for i, val := range values {
		args[i] = val.Value()
	}
	result, err := e.registry.dispatch(args...)
	switch {
	case err != nil:
		return types.NewErr("%s", err.Error())
	case result == nil:
		return types.NullValue
	default:
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
