package eval

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/lang"
)

func testNode() *model.Node {
	return &model.Node{
		ID:              "node_1",
		Name:            "core-1",
		Vendor:          model.NewVendor(model.VendorCisco),
		Role:            model.RoleCoreRouter,
		Lifecycle:       model.LifecycleLive,
		MgmtAddr:        netip.MustParseAddr("10.0.0.1"),
		SoftwareVersion: "17.3.1",
		CustomData:      model.Object(nil),
	}
}

func TestEvalComparisonStringEquality(t *testing.T) {
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN ASSERT role IS "core_router"`)
	require.NoError(t, err)

	ctx := &Context{Node: testNode()}
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestEvalComparisonNumericStringCoercion(t *testing.T) {
	node := testNode()
	node.CustomData = model.Object(map[string]model.Value{"bgp_peers": model.String("4")})
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN custom_data.bgp_peers > 3 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestEvalOrderingOnBooleanIsTypeMismatch(t *testing.T) {
	node := testNode()
	node.CustomData = model.Object(map[string]model.Value{"flag": model.Bool(true)})
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN custom_data.flag > custom_data.flag THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	_, err = EvalCondition(ctx, rule.Condition)
	require.Error(t, err)
}

func TestEvalMatchesRegexLiteral(t *testing.T) {
	ctx := &Context{Node: testNode()}
	rule, err := lang.ParseRule(`WHEN software_version MATCHES /^17\./ THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestExecuteAssertReportsComplianceFailure(t *testing.T) {
	ctx := &Context{Node: testNode()}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN ASSERT software_version IS "99.0"`)
	require.NoError(t, err)
	_, result := ExecuteAction(ctx, ctx.Node, rule.Then, "batch_1")
	require.Equal(t, OutcomeComplianceFailure, result.Outcome)
	require.Nil(t, result.Change)
}

func TestExecuteSetCreatesPathAndJournals(t *testing.T) {
	node := testNode()
	ctx := &Context{Node: node}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN SET custom_data.compliance.checked TO "true"`)
	require.NoError(t, err)

	updated, result := ExecuteAction(ctx, node, rule.Then, "batch_1")
	require.Equal(t, OutcomeApplied, result.Outcome)
	require.NotNil(t, result.Change)
	require.Equal(t, model.ActionSet, result.Change.Action)

	got := updated.CustomData.Get([]string{"compliance", "checked"})
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "true", s)
}

func TestExecuteSetRejectsNonCustomDataTarget(t *testing.T) {
	node := testNode()
	ctx := &Context{Node: node}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN SET lifecycle TO "decommissioned"`)
	require.NoError(t, err)

	_, result := ExecuteAction(ctx, node, rule.Then, "batch_1")
	require.Equal(t, OutcomeRuleError, result.Outcome)
	require.Error(t, result.Err)
}

func TestExecuteApplyIsIdempotentWithinBatch(t *testing.T) {
	node := testNode()
	ctx := &Context{Node: node}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN APPLY "golden/base"`)
	require.NoError(t, err)

	updated, result := ExecuteAction(ctx, node, rule.Then, "batch_1")
	require.Equal(t, OutcomeApplied, result.Outcome)

	updated2, result2 := ExecuteAction(&Context{Node: updated}, updated, rule.Then, "batch_1")
	require.Equal(t, OutcomeApplied, result2.Outcome)

	arr, _ := updated2.CustomData.Get([]string{"assigned_templates"}).AsArray()
	require.Len(t, arr, 1)
}

func TestResolveLocationChain(t *testing.T) {
	node := testNode()
	node.LocationID = "loc_rack"
	ctx := &Context{
		Node: node,
		LocationChain: []*model.Location{
			{ID: "loc_dc", Name: "dc-east"},
			{ID: "loc_rack", Name: "rack-12"},
		},
	}

	rule, err := lang.ParseRule(`WHEN location.name == "rack-12" AND location.parent.name == "dc-east" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestResolveDerivedPathsAndMissingSegments(t *testing.T) {
	node := testNode()
	ctx := &Context{
		Node: node,
		Derived: &model.NodeStatus{
			NodeID:    node.ID,
			Reachable: true,
			Raw: model.Object(map[string]model.Value{
				"sysUpTime": model.Number(123456),
			}),
		},
	}

	rule, err := lang.ParseRule(`WHEN derived.reachable == true AND derived.raw.sysUpTime > 100000 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)

	// a node that has never been polled resolves every derived.* path to Null
	unpolled := &Context{Node: node}
	rule, err = lang.ParseRule(`WHEN derived.reachable IS NULL THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err = EvalCondition(unpolled, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestEvalContainsOnArrayIsMembership(t *testing.T) {
	node := testNode()
	node.CustomData = model.Object(map[string]model.Value{
		"tags": model.Array(model.String("edge"), model.String("mpls")),
	})
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN custom_data.tags CONTAINS "mpls" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)

	rule, err = lang.ParseRule(`WHEN custom_data.tags CONTAINS "wifi" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err = EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.False(t, matched)
}

func TestEvalInvalidRegexSurfacesAsInvalidRegexKind(t *testing.T) {
	ctx := &Context{Node: testNode()}
	rule, err := lang.ParseRule(`WHEN name MATCHES "[" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	_, err = EvalCondition(ctx, rule.Condition)
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidRegex, errs.KindOf(err))
}

func TestEvalMatchesStringifiesNonStringLeftOperand(t *testing.T) {
	node := testNode()
	node.CustomData = model.Object(map[string]model.Value{"asn": model.Number(65001)})
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN custom_data.asn MATCHES /^650/ THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestEvalMatchesCaseInsensitiveFlag(t *testing.T) {
	node := testNode()
	node.Model = "ASR9001"
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN model MATCHES /^asr9/i THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestInvertRemovesKeyThatDidNotExist(t *testing.T) {
	node := testNode()
	ctx := &Context{Node: node}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN SET custom_data.fresh TO "value"`)
	require.NoError(t, err)

	updated, result := ExecuteAction(ctx, node, rule.Then, "batch_1")
	require.True(t, updated.CustomData.Has([]string{"fresh"}))
	require.False(t, result.Change.PreviousExisted)

	reverted, err := Invert(updated, result.Change)
	require.NoError(t, err)
	require.False(t, reverted.CustomData.Has([]string{"fresh"}), "the key is removed, not set to null")
	require.True(t, reverted.CustomData.Equal(node.CustomData))
}

func TestInvertUndoesSet(t *testing.T) {
	node := testNode()
	ctx := &Context{Node: node}
	rule, err := lang.ParseRule(`WHEN vendor == "cisco" THEN SET custom_data.compliance.checked TO "true"`)
	require.NoError(t, err)

	updated, result := ExecuteAction(ctx, node, rule.Then, "batch_1")
	reverted, err := Invert(updated, result.Change)
	require.NoError(t, err)
	require.True(t, reverted.CustomData.Get([]string{"compliance", "checked"}).IsNull())
}

func TestEvalOrderingOnStringsIsLexicographic(t *testing.T) {
	node := testNode()
	node.SoftwareVersion = "16.11.01"
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN software_version < "16.12.04" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestEvalContainsOnNumberIsTypeMismatch(t *testing.T) {
	node := testNode()
	node.CustomData = model.Object(map[string]model.Value{"count": model.Number(4)})
	ctx := &Context{Node: node}

	rule, err := lang.ParseRule(`WHEN custom_data.count CONTAINS "4" THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	_, err = EvalCondition(ctx, rule.Condition)
	require.Error(t, err)
	require.Equal(t, errs.KindTypeMismatch, errs.KindOf(err))
}

func TestEvalNotAndParenthesesCompose(t *testing.T) {
	ctx := &Context{Node: testNode()}
	rule, err := lang.ParseRule(`WHEN NOT (vendor == "juniper" OR vendor == "arista") THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestResolveInterfaceCounters(t *testing.T) {
	node := testNode()
	ctx := &Context{
		Node: node,
		Derived: &model.NodeStatus{
			NodeID: node.ID,
			Interfaces: map[int]model.InterfaceStatus{
				3: {
					IfIndex:   3,
					OperState: "1",
					Counters:  model.Object(map[string]model.Value{"ifInErrors": model.Number(17)}),
				},
			},
		},
	}

	rule, err := lang.ParseRule(`WHEN derived.interfaces.3.counters.ifInErrors > 10 THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err := EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)

	// a non-numeric or unknown interface index resolves to Null, not an error
	rule, err = lang.ParseRule(`WHEN derived.interfaces.9.oper_state IS NULL THEN ASSERT vendor IS "cisco"`)
	require.NoError(t, err)
	matched, err = EvalCondition(ctx, rule.Condition)
	require.NoError(t, err)
	require.True(t, matched)
}
