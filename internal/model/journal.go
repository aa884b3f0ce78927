package model

// ActionKind identifies which policy action produced a ChangeRecord, so the
// orchestrator's rollback journal knows how to invert it.
type ActionKind string

const (
	ActionAssert ActionKind = "assert" // read-only; never journaled
	ActionSet    ActionKind = "set"
	ActionApply  ActionKind = "apply"
)

// ChangeRecord is one entry in the rollback journal: an inverse-operation
// record keyed by batch id. PreviousValue/NewValue are Null
// when the action kind doesn't use them (e.g. Apply only touches the
// assigned-template set, not a single value).
type ChangeRecord struct {
	BatchID       string
	EntityID      string
	FieldPath     []string
	PreviousValue Value
	// PreviousExisted distinguishes "the key held null" from "the key was
	// absent": Set's inverse restores the former and deletes the latter.
	PreviousExisted bool
	NewValue        Value
	Action          ActionKind

	// PreviousSet/NewSet back Apply's inverse: the assigned_templates set
	// contents before/after the action, since Apply mutates a set rather
	// than a single scalar.
	PreviousSet []string
	NewSet      []string
}
