package lang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRuleSimpleComparison(t *testing.T) {
	r, err := ParseRule(`WHEN vendor == "cisco" THEN ASSERT lifecycle IS "live"`)
	require.NoError(t, err)
	require.Equal(t, "vendor", r.Condition.Left.Left.Primary.Predicate.Field.String())
	require.Equal(t, "==", r.Condition.Left.Left.Primary.Predicate.Comparison.Operator)
	require.NotNil(t, r.Then.Assert)
	require.Equal(t, "lifecycle", r.Then.Assert.Field.String())
}

func TestParseRuleWithPriorityAndBooleanLogic(t *testing.T) {
	r, err := ParseRule(`PRIORITY CRITICAL WHEN vendor == "cisco" AND derived.system.reachable == "true" THEN SET custom_data.compliance.checked TO "true"`)
	require.NoError(t, err)
	require.NotNil(t, r.PriorityLevel)
	require.Equal(t, "CRITICAL", *r.PriorityLevel)
	require.Len(t, r.Condition.Left.Right, 1)
	require.NotNil(t, r.Then.Set)
	require.Equal(t, "custom_data.compliance.checked", r.Then.Set.Field.String())
}

func TestParseRuleExistenceAndNegation(t *testing.T) {
	r, err := ParseRule(`WHEN NOT location.name IS NULL THEN APPLY "golden/base"`)
	require.NoError(t, err)
	require.True(t, r.Condition.Left.Left.Negate)
	require.NotNil(t, r.Condition.Left.Left.Primary.Predicate.Existence)
	require.False(t, r.Condition.Left.Left.Primary.Predicate.Existence.Not)
	require.NotNil(t, r.Then.Apply)
	require.Equal(t, "golden/base", r.Then.Apply.Template)
}

func TestParseRuleParenthesizedOr(t *testing.T) {
	r, err := ParseRule(`WHEN (vendor == "cisco" OR vendor == "arista") THEN ASSERT software_version IS "1.0"`)
	require.NoError(t, err)
	sub := r.Condition.Left.Left.Primary.SubCondition
	require.NotNil(t, sub)
	require.Len(t, sub.Right, 1)
}

func TestParseRuleSetMultipleRulesPreservesOrder(t *testing.T) {
	rs, err := ParseRuleSet("test", `
PRIORITY HIGH WHEN role == "core_router" THEN ASSERT software_version IS "17.1"
PRIORITY LOW WHEN role == "access_switch" THEN SET custom_data.reviewed TO "true"
`)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 2)
	require.Equal(t, "HIGH", *rs.Rules[0].PriorityLevel)
	require.Equal(t, "LOW", *rs.Rules[1].PriorityLevel)
}

func TestParseRuleMatchesWithRegexLiteral(t *testing.T) {
	r, err := ParseRule(`WHEN model MATCHES /^ASR9[0-9]{3}$/i THEN ASSERT role IS "core_router"`)
	require.NoError(t, err)
	pred := r.Condition.Left.Left.Primary.Predicate
	require.Equal(t, "MATCHES", pred.Comparison.Operator)
	require.NotNil(t, pred.Comparison.Value.RegexLit)
}

func TestParseRuleRejectsGarbage(t *testing.T) {
	_, err := ParseRule(`THIS IS NOT A RULE`)
	require.Error(t, err)
}

func TestParseRuleSetSkipsComments(t *testing.T) {
	rs, err := ParseRuleSet("test", `
// compliance baseline
/* block comment
   /* nested block */ still inside the outer one */
WHEN vendor == "cisco" THEN ASSERT role IS "core_router"
`)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
}

func TestParseRuleLowercaseKeywordLiterals(t *testing.T) {
	r, err := ParseRule(`WHEN custom_data.enabled == true AND custom_data.retired IS NOT NULL THEN SET custom_data.flag TO false`)
	require.NoError(t, err)

	first := r.Condition.Left.Left.Primary.Predicate
	require.True(t, first.Comparison.Value.True)

	second := r.Condition.Left.Right[0].Primary.Predicate
	require.NotNil(t, second.Existence)
	require.True(t, second.Existence.Not)

	require.True(t, r.Then.Set.Value.False)
}

func TestParseRuleNumberLiterals(t *testing.T) {
	r, err := ParseRule(`WHEN derived.system.uptime_seconds > 3600 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	cmp := r.Condition.Left.Left.Primary.Predicate.Comparison
	require.NotNil(t, cmp.Value.Int)
	require.Equal(t, int64(3600), *cmp.Value.Int)

	r, err = ParseRule(`WHEN custom_data.load < 3.5 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	cmp = r.Condition.Left.Left.Primary.Predicate.Comparison
	require.NotNil(t, cmp.Value.Num)
	require.Equal(t, 3.5, *cmp.Value.Num)

	r, err = ParseRule(`WHEN custom_data.budget >= 1e3 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	cmp = r.Condition.Left.Left.Primary.Predicate.Comparison
	require.NotNil(t, cmp.Value.Num)
	require.Equal(t, 1000.0, *cmp.Value.Num)
}

func TestParseRuleContainsOperator(t *testing.T) {
	r, err := ParseRule(`WHEN model CONTAINS "catalyst" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	require.Equal(t, "CONTAINS", r.Condition.Left.Left.Primary.Predicate.Comparison.Operator)
}

func TestParseRuleFieldRefValue(t *testing.T) {
	r, err := ParseRule(`WHEN software_version != derived.actual_software_version THEN ASSERT lifecycle IS "live"`)
	require.NoError(t, err)
	cmp := r.Condition.Left.Left.Primary.Predicate.Comparison
	require.NotNil(t, cmp.Value.Ref)
	require.Equal(t, "derived.actual_software_version", cmp.Value.Ref.String())
}

func TestParseRuleSingleQuotedString(t *testing.T) {
	r, err := ParseRule(`WHEN vendor == 'cisco' THEN APPLY 'templates/base.j2'`)
	require.NoError(t, err)
	cmp := r.Condition.Left.Left.Primary.Predicate.Comparison
	require.Equal(t, "cisco", *cmp.Value.Str)
	require.Equal(t, "templates/base.j2", r.Then.Apply.Template)
}

func TestRuleStringRoundTrips(t *testing.T) {
	sources := []string{
		`WHEN vendor == "cisco" THEN ASSERT software_version IS "17.3.1"`,
		`PRIORITY CRITICAL WHEN NOT (vendor == "juniper" OR vendor == "arista") AND lifecycle == "live" THEN SET custom_data.reviewed TO true`,
		`WHEN model MATCHES /^ASR9[0-9]{3}$/i THEN APPLY "templates/core.j2"`,
		`WHEN location.name IS NOT NULL AND derived.raw.sysUpTime > 3600 THEN ASSERT role IS "core_router"`,
	}
	for _, src := range sources {
		first, err := ParseRule(src)
		require.NoError(t, err, src)
		printed := first.String()
		second, err := ParseRule(printed)
		require.NoError(t, err, printed)
		require.Equal(t, printed, second.String(), "printing is a fixpoint")
	}
}
