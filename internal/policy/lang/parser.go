package lang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// unquoteDSLString strips a "..." or '...' literal and resolves the escape
// set (\" \\ \/ \b \f \n \r \t \uXXXX), reusing
// strconv.Unquote for the double-quoted case and normalizing single-quoted
// literals to double-quoted first since Go's escape table already matches.
func unquoteDSLString(raw string) (string, error) {
	if strings.HasPrefix(raw, "'") {
		inner := raw[1 : len(raw)-1]
		inner = strings.ReplaceAll(inner, `\/`, "/")
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		inner = strings.ReplaceAll(inner, `\'`, "'")
		raw = `"` + inner + `"`
	}
	raw = strings.ReplaceAll(raw, `\/`, "/")
	return strconv.Unquote(raw)
}

var ruleSetParser = participle.MustBuild[RuleSet](
	participle.Lexer(dslLexer),
	participle.Map(func(t lexer.Token) (lexer.Token, error) {
		unquoted, err := unquoteDSLString(t.Value)
		if err != nil {
			return t, fmt.Errorf("invalid string literal %q: %w", t.Value, err)
		}
		t.Value = unquoted
		return t, nil
	}, "String"),
	participle.Elide("Whitespace", "LineComment", "BlockComment"),
	participle.CaseInsensitive("Keyword"),
)

// blankBlockComments replaces /* ... */ comments (including nested ones,
// which the regex lexer cannot express) with spaces, preserving newlines so
// parser error spans still point at the right line. String literals and
// line comments are skipped so a "/*" inside them is left alone.
func blankBlockComments(src string) string {
	out := []byte(src)
	i, depth := 0, 0
	for i < len(out) {
		c := out[i]
		if depth > 0 {
			switch {
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				depth++
				out[i], out[i+1] = ' ', ' '
				i += 2
			case c == '*' && i+1 < len(out) && out[i+1] == '/':
				depth--
				out[i], out[i+1] = ' ', ' '
				i += 2
			default:
				if c != '\n' {
					out[i] = ' '
				}
				i++
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote := c
			i++
			for i < len(out) && out[i] != quote {
				if out[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			depth++
			out[i], out[i+1] = ' ', ' '
			i += 2
		default:
			i++
		}
	}
	return string(out)
}

// ParseRuleSet parses a whole policy source file into an ordered RuleSet.
// Parser errors keep participle's source-span-carrying message.
func ParseRuleSet(name, src string) (*RuleSet, error) {
	rs, err := ruleSetParser.ParseString(name, blankBlockComments(src))
	if err != nil {
		return nil, errs.Wrap(errs.KindParseError, "policy.lang.parse", fmt.Sprintf("%s: %v", name, err), err)
	}
	return rs, nil
}

// ParseRule parses a single "[PRIORITY ...] WHEN ... THEN ..." rule, mainly
// for tests and interactive rule checking; file loading goes through
// ParseRuleSet.
func ParseRule(src string) (*Rule, error) {
	rs, err := ParseRuleSet("rule", src)
	if err != nil {
		return nil, err
	}
	if len(rs.Rules) != 1 {
		return nil, errs.New(errs.KindParseError, "policy.lang.parse_rule", "expected exactly one rule")
	}
	return rs.Rules[0], nil
}

// String renders a Field back to its dotted-path form.
func (f *Field) String() string {
	out := ""
	for i, p := range f.Parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
