package lang

import (
	"strconv"
	"strings"
)

// String renders the rule back to canonical DSL text: uppercase keywords,
// double-quoted strings, explicit PRIORITY clause only when one was given.
// Reparsing the output yields an equivalent rule, which is what the CLI's
// rule-check command relies on to echo normalized rules.
func (r *Rule) String() string {
	var b strings.Builder
	if r.PriorityLevel != nil {
		b.WriteString("PRIORITY ")
		b.WriteString(strings.ToUpper(*r.PriorityLevel))
		b.WriteByte(' ')
	}
	b.WriteString("WHEN ")
	writeOr(&b, r.Condition)
	b.WriteString(" THEN ")
	writeAction(&b, r.Then)
	return b.String()
}

func writeOr(b *strings.Builder, o *OrExpr) {
	writeAnd(b, o.Left)
	for _, next := range o.Right {
		b.WriteString(" OR ")
		writeAnd(b, next)
	}
}

func writeAnd(b *strings.Builder, a *AndExpr) {
	writeNot(b, a.Left)
	for _, next := range a.Right {
		b.WriteString(" AND ")
		writeNot(b, next)
	}
}

func writeNot(b *strings.Builder, n *NotExpr) {
	if n.Negate {
		b.WriteString("NOT ")
	}
	writePrimary(b, n.Primary)
}

func writePrimary(b *strings.Builder, p *Primary) {
	switch {
	case p.SubCondition != nil:
		b.WriteByte('(')
		writeOr(b, p.SubCondition)
		b.WriteByte(')')
	case p.Predicate != nil:
		writePredicate(b, p.Predicate)
	}
}

func writePredicate(b *strings.Builder, p *Predicate) {
	b.WriteString(p.Field.String())
	switch {
	case p.Existence != nil:
		if p.Existence.Not {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case p.Comparison != nil:
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(p.Comparison.Operator))
		b.WriteByte(' ')
		writeValue(b, p.Comparison.Value)
	}
}

func writeValue(b *strings.Builder, v *Value) {
	switch {
	case v.Str != nil:
		b.WriteString(strconv.Quote(*v.Str))
	case v.RegexLit != nil:
		b.WriteString(*v.RegexLit)
	case v.Num != nil:
		b.WriteString(strconv.FormatFloat(*v.Num, 'g', -1, 64))
	case v.Int != nil:
		b.WriteString(strconv.FormatInt(*v.Int, 10))
	case v.True:
		b.WriteString("true")
	case v.False:
		b.WriteString("false")
	case v.IsNull:
		b.WriteString("null")
	case v.Ref != nil:
		b.WriteString(v.Ref.String())
	}
}

func writeAction(b *strings.Builder, a *Action) {
	switch {
	case a.Assert != nil:
		b.WriteString("ASSERT ")
		b.WriteString(a.Assert.Field.String())
		b.WriteString(" IS ")
		writeValue(b, a.Assert.Value)
	case a.Set != nil:
		b.WriteString("SET ")
		b.WriteString(a.Set.Field.String())
		b.WriteString(" TO ")
		writeValue(b, a.Set.Value)
	case a.Apply != nil:
		b.WriteString("APPLY ")
		b.WriteString(strconv.Quote(a.Apply.Template))
	}
}
