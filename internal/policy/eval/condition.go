package eval

import (
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/policy/lang"
)

// EvalCondition evaluates a parsed condition tree against ctx. A non-nil
// error is one of the per-rule evaluation errors (TypeMismatch,
// InvalidRegex); callers surface it as a RuleError without
// aborting the batch, rather than propagating it as a Go error up the call
// stack.
func EvalCondition(ctx *Context, c *lang.OrExpr) (bool, error) {
	return evalOr(ctx, c)
}

func evalOr(ctx *Context, o *lang.OrExpr) (bool, error) {
	result, err := evalAnd(ctx, o.Left)
	if err != nil {
		return false, err
	}
	for _, next := range o.Right {
		if result {
			return true, nil // short-circuit: still validates only evaluated operands
		}
		r, err := evalAnd(ctx, next)
		if err != nil {
			return false, err
		}
		result = r
	}
	return result, nil
}

func evalAnd(ctx *Context, a *lang.AndExpr) (bool, error) {
	result, err := evalNot(ctx, a.Left)
	if err != nil {
		return false, err
	}
	for _, next := range a.Right {
		if !result {
			return false, nil
		}
		r, err := evalNot(ctx, next)
		if err != nil {
			return false, err
		}
		result = r
	}
	return result, nil
}

func evalNot(ctx *Context, n *lang.NotExpr) (bool, error) {
	r, err := evalPrimary(ctx, n.Primary)
	if err != nil {
		return false, err
	}
	if n.Negate {
		return !r, nil
	}
	return r, nil
}

func evalPrimary(ctx *Context, p *lang.Primary) (bool, error) {
	switch {
	case p.SubCondition != nil:
		return evalOr(ctx, p.SubCondition)
	case p.Predicate != nil:
		return evalPredicate(ctx, p.Predicate)
	default:
		return false, errs.New(errs.KindInternal, "policy.eval.primary", "condition primary has no populated alternative")
	}
}

func evalPredicate(ctx *Context, p *lang.Predicate) (bool, error) {
	switch {
	case p.Existence != nil:
		isNull := ctx.Resolve(p.Field).IsNull()
		if p.Existence.Not {
			return !isNull, nil
		}
		return isNull, nil
	case p.Comparison != nil:
		return evalComparison(ctx, p.Field, p.Comparison)
	default:
		return false, errs.New(errs.KindInternal, "policy.eval.predicate", "predicate has no populated tail")
	}
}

func evalComparison(ctx *Context, field *lang.Field, c *lang.ComparisonTail) (bool, error) {
	left := ctx.Resolve(field)

	if strings.EqualFold(c.Operator, "MATCHES") {
		if c.Value.Ref != nil {
			return compareMatches(left, ctx.Resolve(c.Value.Ref).String(), false)
		}
		if c.Value.RegexLit != nil {
			return compareMatches(left, *c.Value.RegexLit, true)
		}
		if c.Value.Str != nil {
			return compareMatches(left, *c.Value.Str, false)
		}
		return false, errs.New(errs.KindInvalidRegex, "policy.eval.matches", "MATCHES requires a regex or string operand")
	}

	right, err := ctx.ResolveASTValue(c.Value)
	if err != nil {
		return false, err
	}

	if strings.EqualFold(c.Operator, "CONTAINS") {
		return compareContains(left, right)
	}
	return compare(c.Operator, left, right)
}
