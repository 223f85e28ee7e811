package attrs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRuleRejected is the cause reported when a rule evaluates to false.
var ErrRuleRejected = errors.New("attrs: value rejected by rule")

// RuleOption configures a rule validator.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	name     string
	args     map[string]any
	metadata map[string]any
	logger   EvaluatorLogger
}

// RuleName binds the attribute name exposed to the expression as name.
func RuleName(name string) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.name = name
	}
}

// RuleArgs exposes args to the expression.
func RuleArgs(args map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.args = args
	}
}

// RuleMetadata exposes metadata to the expression.
func RuleMetadata(metadata map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.metadata = metadata
	}
}

// RuleLogger records every evaluation of the rule.
func RuleLogger(logger EvaluatorLogger) RuleOption {
	return func(cfg *ruleConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// DefaultEvaluator returns the expr evaluator with the standard functions.
func DefaultEvaluator() Evaluator {
	return NewExprEvaluator(
		ExprWithProgramCache(NewProgramCache()),
		ExprWithFunctionRegistry(StandardFunctions()),
	)
}

// Rule compiles expression into a Validator. The raw value is bound as value.
// A true result accepts the raw value, false rejects it with ErrRuleRejected,
// and any other result becomes the coerced value. A nil evaluator selects
// DefaultEvaluator.
func Rule(evaluator Evaluator, expression string, opts ...RuleOption) (Validator, error) {
	if expression == "" {
		return nil, fmt.Errorf("attrs: rule expression must not be empty")
	}
	if evaluator == nil {
		evaluator = DefaultEvaluator()
	}
	cfg := ruleConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)

	return func(raw any) (any, error) {
		ctx := RuleContext{
			Value:    raw,
			Name:     cfg.name,
			Args:     cfg.args,
			Metadata: cfg.metadata,
		}.withDefaults()
		start := time.Now()
		result, evalErr := compiled.Evaluate(ctx)
		evalErr = wrapEvaluationError(engine, expression, ctx.attributeLabel(), evalErr)
		cfg.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:    engine,
			Expr:      expression,
			Attribute: ctx.attributeLabel(),
			Duration:  time.Since(start),
			Err:       evalErr,
		})
		if evalErr != nil {
			return nil, evalErr
		}
		if accepted, ok := result.(bool); ok {
			if !accepted {
				return nil, fmt.Errorf("%w: %s", ErrRuleRejected, expression)
			}
			return raw, nil
		}
		return result, nil
	}, nil
}

// MustRule is Rule that panics on error, for package-level schema tables.
func MustRule(evaluator Evaluator, expression string, opts ...RuleOption) Validator {
	validator, err := Rule(evaluator, expression, opts...)
	if err != nil {
		panic(err)
	}
	return validator
}

// Chain runs validators in order, feeding each one the previous result.
func Chain(validators ...Validator) Validator {
	return func(raw any) (any, error) {
		value := raw
		for _, validator := range validators {
			if validator == nil {
				continue
			}
			next, err := validator(value)
			if err != nil {
				return nil, err
			}
			value = next
		}
		return value, nil
	}
}

// UUIDDefault returns a DefaultFunc producing a fresh random UUID string on
// every call.
func UUIDDefault() DefaultFunc {
	return func() any { return uuid.NewString() }
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engineName()
	}
	return "custom"
}
