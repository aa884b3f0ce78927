package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/model"
)

func setRecord(batchID, key string, prev model.Value, prevExisted bool, next model.Value) *model.ChangeRecord {
	return &model.ChangeRecord{
		BatchID:         batchID,
		EntityID:        "node_1",
		FieldPath:       []string{"custom_data", key},
		PreviousValue:   prev,
		PreviousExisted: prevExisted,
		NewValue:        next,
		Action:          model.ActionSet,
	}
}

func TestJournalEvictsBeyondMaxBatches(t *testing.T) {
	j := NewJournal(2, time.Hour)
	now := time.Unix(1000, 0)
	for i, id := range []string{"b1", "b2", "b3"} {
		j.Record(now.Add(time.Duration(i)*time.Second), id, "node_1",
			[]*model.ChangeRecord{setRecord(id, "k", model.Null(), false, model.Bool(true))})
	}

	_, ok := j.Lookup("b1")
	require.False(t, ok)
	_, ok = j.Lookup("b2")
	require.True(t, ok)
	_, ok = j.Lookup("b3")
	require.True(t, ok)
}

func TestJournalEvictsBeyondMaxAge(t *testing.T) {
	j := NewJournal(100, time.Minute)
	base := time.Unix(1000, 0)
	j.Record(base, "old", "node_1",
		[]*model.ChangeRecord{setRecord("old", "k", model.Null(), false, model.Bool(true))})
	j.Record(base.Add(2*time.Minute), "new", "node_1",
		[]*model.ChangeRecord{setRecord("new", "k", model.Null(), false, model.Bool(true))})

	_, ok := j.Lookup("old")
	require.False(t, ok)
	_, ok = j.Lookup("new")
	require.True(t, ok)
}

func TestJournalIgnoresEmptyBatches(t *testing.T) {
	j := NewJournal(10, time.Hour)
	j.Record(time.Unix(1000, 0), "empty", "node_1", nil)
	_, ok := j.Lookup("empty")
	require.False(t, ok)
}

// Applying a journal entry's inverses in reverse order must restore the
// node snapshot exactly, including removing keys that did not exist before
// the batch.
func TestRevertRestoresExactPriorSnapshot(t *testing.T) {
	node := &model.Node{
		ID: "node_1",
		CustomData: model.Object(map[string]model.Value{
			"existing": model.String("before"),
		}),
	}

	records := []*model.ChangeRecord{
		setRecord("b1", "existing", model.String("before"), true, model.String("after")),
		setRecord("b1", "added", model.Null(), false, model.Bool(true)),
	}

	mutated := node
	for _, r := range records {
		updated, err := mutated.CustomData.Set(r.FieldPath[1:], r.NewValue)
		require.NoError(t, err)
		next := *mutated
		next.CustomData = updated
		mutated = &next
	}
	require.Equal(t, model.String("after"), mutated.CustomData.Get([]string{"existing"}))
	require.True(t, mutated.CustomData.Has([]string{"added"}))

	entry := &BatchJournalEntry{BatchID: "b1", NodeID: "node_1", Records: records}
	reverted, err := Revert(mutated, entry)
	require.NoError(t, err)

	require.True(t, reverted.CustomData.Equal(node.CustomData))
	require.False(t, reverted.CustomData.Has([]string{"added"}))
}

func TestRevertRestoresApplySet(t *testing.T) {
	node := &model.Node{
		ID: "node_1",
		CustomData: model.Object(map[string]model.Value{
			"assigned_templates": model.Array(model.String("a.j2"), model.String("b.j2")),
		}),
	}

	entry := &BatchJournalEntry{
		BatchID: "b1",
		NodeID:  "node_1",
		Records: []*model.ChangeRecord{{
			BatchID:     "b1",
			EntityID:    "node_1",
			FieldPath:   []string{"custom_data", "assigned_templates"},
			Action:      model.ActionApply,
			PreviousSet: []string{"a.j2"},
			NewSet:      []string{"a.j2", "b.j2"},
		}},
	}

	reverted, err := Revert(node, entry)
	require.NoError(t, err)
	arr, ok := reverted.CustomData.Get([]string{"assigned_templates"}).AsArray()
	require.True(t, ok)
	require.Len(t, arr, 1)
	require.Equal(t, model.String("a.j2"), arr[0])
}
