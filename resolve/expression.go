package resolve

import (
	"strings"

	opts "github.com/goliatone/go-options"
	"github.com/goliatone/go-prefer/value"
)

const (
	defaultExpressionStart = "{{"
	defaultExpressionEnd   = "}}"
)

// EvalErrorHandler decides what happens when an expression fails to
// evaluate. Return true to mark the error handled (the original string value
// stays); return false to fail the resolution pass.
type EvalErrorHandler func(expr string, err error) bool

// OnEvalLeaveUnchanged keeps failing expressions as their original strings.
func OnEvalLeaveUnchanged() EvalErrorHandler {
	return func(string, error) bool { return true }
}

// OnEvalFail surfaces evaluation errors to the caller.
func OnEvalFail() EvalErrorHandler {
	return func(string, error) bool { return false }
}

type expression struct {
	start     string
	end       string
	evaluator opts.Evaluator
	onError   EvalErrorHandler
}

// Expression evaluates strings that are exactly one {{ expr }} form against
// a snapshot of the tree, using the default expression evaluator. Embedded
// expressions are not interpolated; only full matches evaluate.
func Expression(start, end string) Resolver {
	return ExpressionWithEvaluator(start, end, nil, nil)
}

// ExpressionWithEvaluator allows a custom evaluator and error handler.
func ExpressionWithEvaluator(start, end string, eval opts.Evaluator, onErr EvalErrorHandler) Resolver {
	if start == "" {
		start = defaultExpressionStart
	}
	if end == "" {
		end = defaultExpressionEnd
	}
	if eval == nil {
		eval = opts.NewExprEvaluator()
	}
	if onErr == nil {
		onErr = OnEvalLeaveUnchanged()
	}
	return &expression{start: start, end: end, evaluator: eval, onError: onErr}
}

func (s *expression) Resolve(root value.Value) (value.Value, error) {
	snapshot, _ := root.Native().(map[string]any)
	return mapStrings(root, func(str string) (value.Value, error) {
		expr, ok := s.fullMatch(str)
		if !ok {
			return value.String(str), nil
		}
		expr = strings.TrimSpace(expr)
		result, err := s.evaluator.Evaluate(opts.RuleContext{Snapshot: snapshot}, expr)
		if err != nil {
			if s.onError(expr, err) {
				return value.String(str), nil
			}
			return value.Value{}, err
		}
		out, err := value.FromAny(result)
		if err != nil {
			if s.onError(expr, err) {
				return value.String(str), nil
			}
			return value.Value{}, err
		}
		return out, nil
	})
}

func (s *expression) fullMatch(input string) (string, bool) {
	if !strings.HasPrefix(input, s.start) || !strings.HasSuffix(input, s.end) {
		return "", false
	}
	start := len(s.start)
	end := len(input) - len(s.end)
	if end < start {
		return "", false
	}
	return input[start:end], true
}
