package attrs

import (
	"errors"
	"strings"
)

var errEmptyExpression = errors.New("expression must not be empty")

// programRunner holds what every engine shares: cached compilation keyed by
// engine and expression, context defaults and error metadata. P is the
// engine's compiled program type.
type programRunner[P any] struct {
	engine  string
	cache   ProgramCache
	compile func(expression string) (P, error)
	run     func(program P, ctx RuleContext) (any, error)
}

func (p programRunner[P]) load(expression string) (P, error) {
	var zero P
	if strings.TrimSpace(expression) == "" {
		return zero, wrapEvaluatorError(p.engine, errEmptyExpression)
	}
	key := p.engine + "\x00" + expression
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := p.compile(expression)
	if err != nil {
		return zero, wrapEvaluationError(p.engine, expression, "", err)
	}
	if p.cache != nil {
		p.cache.Set(key, program)
	}
	return program, nil
}

func (p programRunner[P]) execute(program P, ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	result, err := p.run(program, ctx)
	if err != nil {
		return nil, wrapEvaluationError(p.engine, expression, ctx.attributeLabel(), err)
	}
	return result, nil
}

func (p programRunner[P]) evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := p.load(expression)
	if err != nil {
		return nil, err
	}
	return p.execute(program, ctx, expression)
}

func (p programRunner[P]) compileRule(expression string) (CompiledRule, error) {
	program, err := p.load(expression)
	if err != nil {
		return nil, err
	}
	return compiledProgram[P]{runner: p, program: program, expression: expression}, nil
}

type compiledProgram[P any] struct {
	runner     programRunner[P]
	program    P
	expression string
}

func (c compiledProgram[P]) Evaluate(ctx RuleContext) (any, error) {
	return c.runner.execute(c.program, ctx, c.expression)
}

// namedEngine is implemented by the built-in evaluators.
type namedEngine interface {
	engineName() string
}
