package policy

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// SchedulerConfig parameterizes the background orchestrator loop.
type SchedulerConfig struct {
	Clock          clockwork.Clock
	Interval       time.Duration
	WorkerCount    int
	QueueSize      int
	PolicySource   collab.PolicyFileSource
	DirtyNodeQuery func(ctx context.Context) ([]string, error)
}

func (c *SchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return errs.New(errs.KindValidation, "policy.scheduler.config", "interval must be positive")
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.PolicySource == nil {
		return errs.New(errs.KindValidation, "policy.scheduler.config", "policy source is required")
	}
	if c.DirtyNodeQuery == nil {
		return errs.New(errs.KindValidation, "policy.scheduler.config", "dirty node query is required")
	}
	return nil
}

// Scheduler drives the orchestrator on a tick: it selects dirty nodes,
// reloads the rule set if any policy file changed, and enqueues one batch
// per node into a bounded channel consumed by a worker pool.
type Scheduler struct {
	cfg  SchedulerConfig
	orch *Orchestrator
	log  collab.Logger

	mu          sync.Mutex
	lastModTime map[string]time.Time
	rules       []*LoadedRule
	fingerprint RuleSetFingerprint
}

func NewScheduler(cfg SchedulerConfig, orch *Orchestrator, log collab.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg, orch: orch, log: log, lastModTime: map[string]time.Time{}}, nil
}

// Run blocks, ticking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.cfg.Clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.reloadIfChanged(ctx); err != nil {
		s.log.Log(collab.LevelError, "policy scheduler: failed to reload rule set", "error", err)
		return
	}

	nodeIDs, err := s.cfg.DirtyNodeQuery(ctx)
	if err != nil {
		s.log.Log(collab.LevelError, "policy scheduler: failed to query dirty nodes", "error", err)
		return
	}

	work := make(chan string, s.cfg.QueueSize)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for nodeID := range work {
				s.evaluate(ctx, nodeID)
			}
		}()
	}
	for _, id := range nodeIDs {
		work <- id
	}
	close(work)
	wg.Wait()
}

func (s *Scheduler) evaluate(ctx context.Context, nodeID string) {
	s.mu.Lock()
	rules, fp := s.rules, s.fingerprint
	s.mu.Unlock()

	result, err := s.orch.EvaluateNode(ctx, nodeID, rules, fp)
	if err != nil {
		s.log.Log(collab.LevelError, "policy scheduler: batch evaluation failed", "node_id", nodeID, "error", err)
		return
	}
	if result.Failed {
		s.log.Log(collab.LevelWarn, "policy scheduler: batch failed and was rolled back", "node_id", nodeID, "batch_id", result.BatchID, "error", result.Err)
	}
}

func (s *Scheduler) reloadIfChanged(ctx context.Context) error {
	paths, err := s.cfg.PolicySource.ListFiles(ctx)
	if err != nil {
		return errs.Wrap(errs.KindIO, "policy.scheduler.reload", "failed to list policy files", err)
	}

	changed := false
	s.mu.Lock()
	for _, p := range paths {
		mod, err := s.cfg.PolicySource.LastModified(ctx, p)
		if err != nil {
			s.mu.Unlock()
			return errs.Wrap(errs.KindIO, "policy.scheduler.reload", "failed to stat policy file "+p, err)
		}
		if !mod.Equal(s.lastModTime[p]) {
			changed = true
			s.lastModTime[p] = mod
		}
	}
	loaded := s.rules != nil
	s.mu.Unlock()
	if !changed && loaded {
		return nil
	}

	rules, fp, err := LoadRuleSet(ctx, s.cfg.PolicySource)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rules, s.fingerprint = rules, fp
	s.mu.Unlock()
	return nil
}

// DirtyNodesSince is a DirtyNodeQuery helper for callers backed by the
// standard store: a node is "dirty" when it has not been seen before or its
// version or derived-state version has advanced since the last evaluation.
// cmd/unetd wires this with a small last-seen-version cache (both counters
// are kept per node); the store itself has no "dirty" concept.
func DirtyNodesSince(ctx context.Context, s store.Store, lastSeen map[string]int) ([]string, error) {
	res, err := s.ListNodes(ctx, nil, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range res.Items {
		dv, err := s.DerivedVersion(ctx, nil, n.ID)
		if err != nil {
			return nil, err
		}
		derivedKey := n.ID + "\x00derived"
		seen, ok := lastSeen[n.ID]
		if !ok || seen != n.Version || lastSeen[derivedKey] != dv {
			out = append(out, n.ID)
			lastSeen[n.ID] = n.Version
			lastSeen[derivedKey] = dv
		}
	}
	return out, nil
}
