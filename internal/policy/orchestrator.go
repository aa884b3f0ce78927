package policy

import (
	"context"
	"sync"
	"time"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/ids"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/eval"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// RuleResult is one rule's outcome within a batch.
type RuleResult struct {
	Rule    *LoadedRule
	Matched bool
	Action  *eval.ActionResult
}

// BatchResult is the outcome of evaluating one node against one rule set
// (one batch = one node x one policy set).
type BatchResult struct {
	BatchID string
	NodeID  string
	Results []RuleResult
	Failed  bool
	Err     error
}

// Orchestrator schedules rule batches across nodes, respects priority
// ordering, caches results, and guarantees transactional rollback.
type Orchestrator struct {
	Store   store.Store
	Cache   *ResultCache
	Journal *Journal
	Logger  collab.Logger

	// locks holds one advisory mutex per node id so two batches for the
	// same node never interleave; batches for different nodes run in
	// parallel.
	locks sync.Map
}

func (o *Orchestrator) lockNode(nodeID string) func() {
	mu, _ := o.locks.LoadOrStore(nodeID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// EvaluateNode runs every rule in rules against node (in priority-then-
// source order), persisting any SET/APPLY mutations inside one store
// transaction. A per-rule evaluation error (TypeMismatch, InvalidRegex,
// InvalidTarget, PathOverflow) never aborts the batch; it surfaces as that
// rule's RuleError result. A store error aborts and rolls back the whole
// batch.
func (o *Orchestrator) EvaluateNode(ctx context.Context, nodeID string, rules []*LoadedRule, fp RuleSetFingerprint) (*BatchResult, error) {
	unlock := o.lockNode(nodeID)
	defer unlock()

	batch, err := o.evaluateLocked(ctx, nodeID, rules, fp)
	if err == nil && batch != nil && batch.Failed && errs.KindOf(batch.Err) == errs.KindConflict {
		// The node changed under us between read and commit; re-read and
		// retry once before surfacing the conflict.
		batch, err = o.evaluateLocked(ctx, nodeID, rules, fp)
	}
	return batch, err
}

func (o *Orchestrator) evaluateLocked(ctx context.Context, nodeID string, rules []*LoadedRule, fp RuleSetFingerprint) (*BatchResult, error) {
	const op = "policy.orchestrator.evaluate_node"

	node, err := o.Store.GetNode(ctx, nil, nodeID)
	if err != nil {
		return nil, err
	}
	derivedVersion, err := o.Store.DerivedVersion(ctx, nil, nodeID)
	if err != nil {
		return nil, err
	}

	if o.Cache != nil {
		if cached, ok := o.Cache.Get(fp, nodeID, node.Version, derivedVersion); ok {
			return cached, nil
		}
	}

	derived, err := o.Store.GetNodeStatus(ctx, nil, nodeID)
	if err != nil && errs.KindOf(err) != errs.KindNotFound {
		return nil, err
	}
	if errs.KindOf(err) == errs.KindNotFound {
		derived = nil
	}

	var chain []*model.Location
	if node.LocationID != "" {
		chain, err = o.Store.AncestorChain(ctx, nil, node.LocationID)
		if err != nil {
			return nil, err
		}
	}

	batchID := ids.New(ids.KindBatch)
	batch := &BatchResult{BatchID: batchID, NodeID: nodeID}

	cur := node
	var changes []*model.ChangeRecord
	for _, lr := range Ordered(rules) {
		evalCtx := &eval.Context{Node: cur, Derived: derived, LocationChain: chain}
		matched, condErr := eval.EvalCondition(evalCtx, lr.Rule.Condition)
		if condErr != nil {
			batch.Results = append(batch.Results, RuleResult{Rule: lr, Matched: false, Action: &eval.ActionResult{Outcome: eval.OutcomeRuleError, Err: condErr}})
			continue
		}
		if !matched {
			batch.Results = append(batch.Results, RuleResult{Rule: lr, Matched: false})
			continue
		}

		updatedNode, actionResult := eval.ExecuteAction(evalCtx, cur, lr.Rule.Then, batchID)
		batch.Results = append(batch.Results, RuleResult{Rule: lr, Matched: true, Action: actionResult})
		if actionResult.Change != nil {
			changes = append(changes, actionResult.Change)
			cur = updatedNode
		}
	}

	committedVersion := node.Version
	if cur != node {
		txErr := o.Store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			committed, err := o.Store.UpdateNode(ctx, tx, cur)
			if err != nil {
				return err
			}
			committedVersion = committed.Version
			return nil
		})
		if txErr != nil {
			batch.Failed = true
			batch.Err = errs.Wrap(errs.KindOf(txErr), op, "batch store transaction failed, rolled back", txErr)
			return batch, nil
		}
		if o.Journal != nil {
			o.Journal.Record(time.Now(), batchID, nodeID, changes)
		}
	}

	if o.Cache != nil {
		o.Cache.Put(fp, nodeID, committedVersion, derivedVersion, batch)
	}
	return batch, nil
}
