//go:build !js_eval

package attrs

// NewJSEvaluator returns nil unless built with -tags js_eval. ParseSchema
// reports schemas that ask for the js engine in such builds.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator { return nil }

func jsEvaluatorAvailable() bool { return false }
