package eval

import (
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/lang"
)

// Outcome classifies what happened when a rule's action ran.
type Outcome string

const (
	OutcomeSatisfied         Outcome = "satisfied"
	OutcomeComplianceFailure Outcome = "compliance_failure"
	OutcomeApplied           Outcome = "applied"
	OutcomeRuleError         Outcome = "rule_error"
)

// ActionResult is one rule's per-node outcome. Change is nil for Assert (it
// never mutates) and for RuleError (the action never ran).
type ActionResult struct {
	Outcome  Outcome
	Observed model.Value
	Expected model.Value
	Change   *model.ChangeRecord
	Err      error
}

var assignedTemplatesField = []string{"assigned_templates"}

// ExecuteAction runs a rule's consequent against node, assuming its
// condition already evaluated true. It returns a new *model.Node (Set/Apply
// mutate CustomData; the caller persists it) and an ActionResult describing
// the outcome plus, for Set/Apply, a rollback journal entry.
func ExecuteAction(ctx *Context, node *model.Node, act *lang.Action, batchID string) (*model.Node, *ActionResult) {
	switch {
	case act.Assert != nil:
		return node, executeAssert(ctx, act.Assert)
	case act.Set != nil:
		return executeSet(ctx, node, act.Set, batchID)
	case act.Apply != nil:
		return executeApply(node, act.Apply, batchID)
	default:
		return node, &ActionResult{
			Outcome: OutcomeRuleError,
			Err:     errs.New(errs.KindInternal, "policy.eval.action", "action AST node has no populated alternative"),
		}
	}
}

func executeAssert(ctx *Context, a *lang.AssertAction) *ActionResult {
	const op = "policy.eval.assert"
	observed := ctx.Resolve(a.Field)
	expected, err := ctx.ResolveASTValue(a.Value)
	if err != nil {
		return &ActionResult{Outcome: OutcomeRuleError, Err: err}
	}
	ok, err := compare("==", observed, expected)
	if err != nil {
		return &ActionResult{Outcome: OutcomeRuleError, Err: errs.Wrap(errs.KindTypeMismatch, op, "assert comparison failed", err)}
	}
	if ok {
		return &ActionResult{Outcome: OutcomeSatisfied, Observed: observed, Expected: expected}
	}
	return &ActionResult{Outcome: OutcomeComplianceFailure, Observed: observed, Expected: expected}
}

func executeSet(ctx *Context, node *model.Node, s *lang.SetAction, batchID string) (*model.Node, *ActionResult) {
	const op = "policy.eval.set"
	if len(s.Field.Parts) < 2 || s.Field.Parts[0] != "custom_data" {
		return node, &ActionResult{
			Outcome: OutcomeRuleError,
			Err:     errs.New(errs.KindInvalidTarget, op, "SET target must be a custom_data path").With("field", s.Field.String()),
		}
	}
	path := s.Field.Parts[1:]
	value, err := ctx.ResolveASTValue(s.Value)
	if err != nil {
		return node, &ActionResult{Outcome: OutcomeRuleError, Err: err}
	}

	previous := node.CustomData.Get(path)
	previousExisted := node.CustomData.Has(path)
	updated, setErr := node.CustomData.Set(path, value)
	if setErr != nil {
		return node, &ActionResult{
			Outcome: OutcomeRuleError,
			Err:     errs.Wrap(errs.KindPathOverflow, op, "SET path does not address an object", setErr).With("field", s.Field.String()),
		}
	}

	next := *node
	next.CustomData = updated
	return &next, &ActionResult{
		Outcome:  OutcomeApplied,
		Observed: previous,
		Expected: value,
		Change: &model.ChangeRecord{
			BatchID:         batchID,
			EntityID:        node.ID,
			FieldPath:       append([]string{"custom_data"}, path...),
			PreviousValue:   previous,
			PreviousExisted: previousExisted,
			NewValue:        value,
			Action:          model.ActionSet,
		},
	}
}

func executeApply(node *model.Node, a *lang.ApplyAction, batchID string) (*model.Node, *ActionResult) {
	const op = "policy.eval.apply"
	previous := assignedTemplates(node)

	already := false
	for _, t := range previous {
		if t == a.Template {
			already = true
			break
		}
	}
	next := previous
	if !already {
		next = append(append([]string{}, previous...), a.Template)
	}

	vals := make([]model.Value, len(next))
	for i, t := range next {
		vals[i] = model.String(t)
	}
	updated, setErr := node.CustomData.Set(assignedTemplatesField, model.Array(vals...))
	if setErr != nil {
		return node, &ActionResult{
			Outcome: OutcomeRuleError,
			Err:     errs.Wrap(errs.KindPathOverflow, op, "assigned_templates is not addressable as a set", setErr),
		}
	}

	newNode := *node
	newNode.CustomData = updated
	return &newNode, &ActionResult{
		Outcome: OutcomeApplied,
		Change: &model.ChangeRecord{
			BatchID:     batchID,
			EntityID:    node.ID,
			FieldPath:   append([]string{"custom_data"}, assignedTemplatesField...),
			Action:      model.ActionApply,
			PreviousSet: previous,
			NewSet:      next,
		},
	}
}

func assignedTemplates(node *model.Node) []string {
	v := node.CustomData.Get(assignedTemplatesField)
	arr, ok := v.AsArray()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Invert returns the ChangeRecord that undoes cr, applied to node's
// CustomData.
func Invert(node *model.Node, cr *model.ChangeRecord) (*model.Node, error) {
	const op = "policy.eval.invert"
	switch cr.Action {
	case model.ActionSet:
		path := cr.FieldPath[1:] // drop leading "custom_data"
		var updated model.Value
		if cr.PreviousExisted {
			var err error
			updated, err = node.CustomData.Set(path, cr.PreviousValue)
			if err != nil {
				return node, errs.Wrap(errs.KindPathOverflow, op, "failed to restore previous value", err)
			}
		} else {
			updated = node.CustomData.Delete(path)
		}
		next := *node
		next.CustomData = updated
		return &next, nil
	case model.ActionApply:
		vals := make([]model.Value, len(cr.PreviousSet))
		for i, t := range cr.PreviousSet {
			vals[i] = model.String(t)
		}
		updated, err := node.CustomData.Set(assignedTemplatesField, model.Array(vals...))
		if err != nil {
			return node, errs.Wrap(errs.KindPathOverflow, op, "failed to restore assigned_templates", err)
		}
		next := *node
		next.CustomData = updated
		return &next, nil
	default:
		return node, errs.New(errs.KindInvalidTarget, op, "Assert actions have no inverse")
	}
}
