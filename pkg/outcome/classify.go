package outcome

import (
	"context"
	"fmt"

	"digital.vasic.repoaudit/pkg/rule"
)

// Classify runs check against subject and maps the result to an
// outcome and message. It never panics: a panicking check is
// classified as Error.
//
//   - pass          -> Pass, ""
//   - violation     -> Fail, the violation message verbatim
//   - fault, panic  -> Error, "<display name>: <message>"
func Classify[S any](
	ctx context.Context, check rule.Check[S], subject S,
) (o Outcome, message string) {
	defer func() {
		if p := recover(); p != nil {
			o = Error
			message = fmt.Sprintf("%s: %v", check.DisplayName, p)
		}
	}()

	res := check.Run(ctx, subject)
	switch {
	case res.Passed():
		return Pass, ""
	case res.Violated():
		return Fail, res.Message()
	default:
		return Error, fmt.Sprintf(
			"%s: %s", check.DisplayName, res.Message(),
		)
	}
}

// RuleVerdict folds one check outcome into a running rule
// verdict. Only mandatory checks can fail the rule.
func RuleVerdict(
	current Verdict, o Outcome, opts rule.Options,
) Verdict {
	if o.Failed() && opts.Mandatory {
		return VerdictFail
	}
	return current
}
