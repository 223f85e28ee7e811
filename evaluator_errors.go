package attrs

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError reports a rule that failed to compile or run, naming the
// engine, the expression and the attribute being validated.
type EvaluationError struct {
	Engine    string
	Expr      string
	Attribute string
	Err       error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("attrs: %s evaluator %s attribute=%s: %v", e.Engine, expr, e.Attribute, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluatorError prefixes engine-level failures that carry no
// expression. Errors already owned by this package pass through.
func wrapEvaluatorError(engine string, err error) error {
	var evalErr *EvaluationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &evalErr), strings.HasPrefix(err.Error(), "attrs:"):
		return err
	}
	return fmt.Errorf("attrs: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches rule metadata to err. An EvaluationError
// already in the chain keeps its fields and only gains the missing ones.
func wrapEvaluationError(engine, expr, attribute string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Attribute: attribute, Err: err}
	}
	fill := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fill(&evalErr.Engine, engine)
	fill(&evalErr.Expr, expr)
	fill(&evalErr.Attribute, attribute)
	return evalErr
}
