package attrs

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func eachEvaluator(t *testing.T, fn func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator)) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			if factory.new(nil, nil) == nil {
				t.Skipf("%s evaluator not available in this build", factory.name)
			}
			fn(t, factory.new)
		})
	}
}

func TestRuleOutcomes(t *testing.T) {
	eachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		evaluator := newEvaluator(nil, nil)

		accept, err := Rule(evaluator, "value > 3")
		if err != nil {
			t.Fatalf("Rule returned error: %v", err)
		}
		if got, err := accept(5); err != nil || got != 5 {
			t.Fatalf("expected raw value accepted, got %v (%v)", got, err)
		}
		if _, err := accept(1); !errors.Is(err, ErrRuleRejected) {
			t.Fatalf("expected ErrRuleRejected, got %v", err)
		}

		coerce, err := Rule(evaluator, `name + ":" + value`, RuleName("code"))
		if err != nil {
			t.Fatalf("Rule returned error: %v", err)
		}
		if got, err := coerce("abc"); err != nil || got != "code:abc" {
			t.Fatalf("expected coerced value, got %v (%v)", got, err)
		}

		bounded, err := Rule(evaluator, "value >= args.min", RuleArgs(map[string]any{"min": 3}))
		if err != nil {
			t.Fatalf("Rule returned error: %v", err)
		}
		if _, err := bounded(2); !errors.Is(err, ErrRuleRejected) {
			t.Fatalf("expected args bound into the rule, got %v", err)
		}
	})
}

func TestRuleWithProgramCache(t *testing.T) {
	eachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		cache := NewProgramCache()
		evaluator := newEvaluator(cache, nil)
		for i := 0; i < 3; i++ {
			if _, err := Rule(evaluator, "value != ''"); err != nil {
				t.Fatalf("Rule returned error: %v", err)
			}
		}
		if cache.Len() != 1 {
			t.Fatalf("expected one cached program, got %d", cache.Len())
		}
	})
}

func TestRuleValidatesSchemaWrites(t *testing.T) {
	age := MustRule(nil, "value >= 18", RuleName("age"))
	r := newRegistry(t, ModeReadWrite, []Field{{Name: "age", Validator: age}})

	_, err := r.Initialize(Named(map[string]any{"age": 12}))
	attrErr := attributeError(t, err, ErrInvalidValue)
	if !errors.Is(attrErr.Causes["age"], ErrRuleRejected) {
		t.Fatalf("expected rule rejection as cause, got %v", attrErr.Causes["age"])
	}
	if !errors.Is(err, ErrRuleRejected) {
		t.Fatalf("expected rejection reachable through the batch error")
	}

	mustInitialize(t, r, Named(map[string]any{"age": 30}))
	if err := r.Set("age", 17); !errors.Is(err, ErrRuleRejected) {
		t.Fatalf("expected rejected write, got %v", err)
	}
}

func TestRuleErrors(t *testing.T) {
	if _, err := Rule(nil, ""); err == nil {
		t.Fatalf("expected empty expression to fail")
	}
	if _, err := Rule(nil, "value >"); err == nil {
		t.Fatalf("expected compile error")
	}

	failing, err := Rule(nil, "value.missing.deep", RuleName("profile"))
	if err != nil {
		t.Fatalf("Rule returned error: %v", err)
	}
	_, err = failing(1)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T (%v)", err, err)
	}
	if evalErr.Engine != "expr" || evalErr.Attribute != "profile" {
		t.Fatalf("unexpected evaluation metadata %+v", evalErr)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustRule to panic")
		}
	}()
	MustRule(nil, "value >")
}

func TestRuleLogger(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})
	rule := MustRule(NewCELEvaluator(), "value > 1", RuleName("count"), RuleLogger(logger))
	_, _ = rule(2)

	if len(events) != 1 {
		t.Fatalf("expected one log event, got %d", len(events))
	}
	if events[0].Engine != "cel" || events[0].Attribute != "count" || events[0].Err != nil {
		t.Fatalf("unexpected log event %+v", events[0])
	}
	if events[0].Duration < 0 {
		t.Fatalf("expected non-negative duration")
	}
}

func TestZerologEvaluatorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ZerologEvaluatorLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	rule := MustRule(nil, "value.missing.deep", RuleName("profile"), RuleLogger(logger))
	_, _ = rule(1)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"engine":"expr"`, `"attribute":"profile"`, "attribute rule evaluated"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestChain(t *testing.T) {
	trim := func(raw any) (any, error) { return strings.TrimSpace(raw.(string)), nil }
	nonEmpty := MustRule(nil, `value != ""`)
	chain := Chain(trim, nil, nonEmpty)

	if got, err := chain("  ok "); err != nil || got != "ok" {
		t.Fatalf("expected trimmed value, got %v (%v)", got, err)
	}
	if _, err := chain("   "); !errors.Is(err, ErrRuleRejected) {
		t.Fatalf("expected rejection after trimming, got %v", err)
	}
}

func TestStandardFunctions(t *testing.T) {
	id := uuid.NewString()

	exprRule := MustRule(nil, "is_uuid(value)")
	if _, err := exprRule(id); err != nil {
		t.Fatalf("expected uuid accepted, got %v", err)
	}
	if _, err := exprRule("nope"); !errors.Is(err, ErrRuleRejected) {
		t.Fatalf("expected non uuid rejected, got %v", err)
	}

	celRule := MustRule(NewCELEvaluator(CELWithFunctionRegistry(StandardFunctions())), `call("parse_uuid", value)`)
	got, err := celRule(strings.ToUpper(id))
	if err != nil || got != id {
		t.Fatalf("expected normalized uuid %s, got %v (%v)", id, got, err)
	}

	registry := StandardFunctions()
	if err := registry.Register("UUID", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown function to fail")
	}
}

func TestUUIDDefault(t *testing.T) {
	provider := UUIDDefault()
	first, second := provider().(string), provider().(string)
	if first == second {
		t.Fatalf("expected distinct ids")
	}
	if err := uuid.Validate(first); err != nil {
		t.Fatalf("expected valid uuid, got %q", first)
	}

	r := newRegistry(t, ModeReadWrite, []Field{{Name: "token", Default: provider}})
	mustInitialize(t, r, Input{})
	if token, _ := r.Get("token"); token == nil || token == "" {
		t.Fatalf("expected generated token")
	}
}

func TestCallDispatch(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("call", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected call to be a reserved name")
	}
	if err := registry.Register("join", func(args ...any) (any, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i], _ = arg.(string)
		}
		return strings.Join(parts, "-"), nil
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	eachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		rule, err := Rule(newEvaluator(nil, registry), `call("join", value, name, "x")`, RuleName("slug"))
		if err != nil {
			t.Fatalf("Rule returned error: %v", err)
		}
		if got, err := rule("a"); err != nil || got != "a-slug-x" {
			t.Fatalf("expected joined value, got %v (%v)", got, err)
		}
	})
}
