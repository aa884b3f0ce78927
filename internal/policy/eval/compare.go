package eval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
)

// compare applies one of the six relational/equality operators to left and
// right (CONTAINS/MATCHES have their
// own functions below). Numeric comparisons coerce a numeric-looking string
// against a number; boolean/null use strict equality, and
// ordering on them is a TypeMismatch.
func compare(op string, left, right model.Value) (bool, error) {
	const opName = "policy.eval.compare"

	if ln, lok := coerceNumber(left); lok {
		if rn, rok := coerceNumber(right); rok {
			return compareNumbers(op, ln, rn)
		}
	}

	switch op {
	case "==":
		return left.Equal(right), nil
	case "!=":
		return !left.Equal(right), nil
	case "<", "<=", ">", ">=":
		if left.Kind() != model.KindString || right.Kind() != model.KindString {
			return false, errs.New(errs.KindTypeMismatch, opName, "ordering operators require two numbers or two strings")
		}
		ls, _ := left.AsString()
		rs, _ := right.AsString()
		return compareNumbers(op, float64(strings.Compare(ls, rs)), 0)
	default:
		return false, errs.New(errs.KindTypeMismatch, opName, "unsupported operator "+op)
	}
}

func compareNumbers(op string, l, r float64) (bool, error) {
	switch op {
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	default:
		return false, errs.New(errs.KindTypeMismatch, "policy.eval.compare_numbers", "unsupported operator "+op)
	}
}

// coerceNumber returns left's numeric value directly for KindNumber, or
// parses a numeric-looking string, so mixing a number and a
// numeric-looking string coerces the string.
func coerceNumber(v model.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if s, ok := v.AsString(); ok {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// compareContains implements CONTAINS: substring on strings, membership on
// arrays.
func compareContains(left, right model.Value) (bool, error) {
	const op = "policy.eval.contains"
	if arr, ok := left.AsArray(); ok {
		for _, e := range arr {
			if e.Equal(right) {
				return true, nil
			}
			if ln, lok := coerceNumber(e); lok {
				if rn, rok := coerceNumber(right); rok && ln == rn {
					return true, nil
				}
			}
		}
		return false, nil
	}
	if left.Kind() != model.KindString {
		return false, errs.New(errs.KindTypeMismatch, op, "CONTAINS requires a string or array left operand")
	}
	ls, _ := left.AsString()
	return strings.Contains(ls, right.String()), nil
}

// compareMatches implements MATCHES: the right operand (a regex literal or a
// plain string holding a pattern) is compiled with the flags mapped to
// Go's inline flags (i/m/s; x is accepted and ignored),
// then matched against the stringified left operand.
func compareMatches(left model.Value, rawPattern string, isRegexLiteral bool) (bool, error) {
	const op = "policy.eval.matches"
	pattern := rawPattern
	flags := ""
	if isRegexLiteral {
		pattern, flags = splitRegexLiteral(rawPattern)
	}

	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			inline.WriteByte('i')
		case 'm':
			inline.WriteByte('m')
		case 's':
			inline.WriteByte('s')
		case 'x':
			// accepted syntactically, not supported by Go's regexp; no-op.
		default:
			return false, errs.New(errs.KindInvalidRegex, op, "unsupported regex flag '"+string(f)+"'")
		}
	}
	full := pattern
	if inline.Len() > 0 {
		full = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return false, errs.Wrap(errs.KindInvalidRegex, op, "failed to compile regex", err)
	}
	return re.MatchString(left.String()), nil
}
