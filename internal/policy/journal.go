package policy

import (
	"sync"
	"time"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/eval"
)

// BatchJournalEntry is one committed batch's inverse-operation record, kept
// independently of the store transaction so a higher-level caller can revert
// a committed batch later.
type BatchJournalEntry struct {
	BatchID    string
	NodeID     string
	RecordedAt time.Time
	Records    []*model.ChangeRecord
}

// Journal retains a bounded window of committed batches for revert. Default
// retention is 1000 batches or 24h,
// whichever is smaller; both are configurable per instance.
type Journal struct {
	mu         sync.Mutex
	entries    []*BatchJournalEntry
	maxBatches int
	maxAge     time.Duration
}

func NewJournal(maxBatches int, maxAge time.Duration) *Journal {
	if maxBatches <= 0 {
		maxBatches = 1000
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Journal{maxBatches: maxBatches, maxAge: maxAge}
}

// Record appends a batch's change records and evicts anything past the
// retention window, oldest first.
func (j *Journal) Record(now time.Time, batchID, nodeID string, records []*model.ChangeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(records) == 0 {
		return
	}
	j.entries = append(j.entries, &BatchJournalEntry{BatchID: batchID, NodeID: nodeID, RecordedAt: now, Records: records})
	j.evictLocked(now)
}

func (j *Journal) evictLocked(now time.Time) {
	cutoff := now.Add(-j.maxAge)
	kept := j.entries[:0:0]
	for _, e := range j.entries {
		if e.RecordedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) > j.maxBatches {
		kept = kept[len(kept)-j.maxBatches:]
	}
	j.entries = kept
}

// Lookup returns the journal entry for a batch id, if still retained.
func (j *Journal) Lookup(batchID string) (*BatchJournalEntry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].BatchID == batchID {
			return j.entries[i], true
		}
	}
	return nil, false
}

// Revert applies a batch's change records in reverse order to node,
// producing the node state as it was before the batch ran.
func Revert(node *model.Node, entry *BatchJournalEntry) (*model.Node, error) {
	const op = "policy.journal.revert"
	cur := node
	for i := len(entry.Records) - 1; i >= 0; i-- {
		cr := entry.Records[i]
		if cr.Action == model.ActionAssert {
			continue
		}
		next, err := eval.Invert(cur, cr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, op, "failed to invert change record", err)
		}
		cur = next
	}
	return cur, nil
}
