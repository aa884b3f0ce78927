// Package poller implements the SNMP polling scheduler and derived-state
// reconciliation pipeline: a priority queue of per-node polling
// tasks ordered by deadline, drained by a bounded worker pool that executes
// bulk-get polls, decodes responses into a NodeStatus snapshot, and writes
// it to the store's segregated derived-state tables.
package poller

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/snmp"
	"github.com/bedecarroll/unet-sub002/internal/snmp/oid"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// SessionConfigFor builds the SNMP session configuration for a node; the
// core has no opinion on credential storage, so cmd/unetd supplies this.
type SessionConfigFor func(n *model.Node) (snmp.Config, error)

// Config parameterizes the Scheduler.
type Config struct {
	Clock           clockwork.Clock
	WorkerCount     int
	QueueSize       int
	PollTimeout     time.Duration // per bulk-get call
	MaxRepetitions  uint8
	BaseBackoff     time.Duration
	CapBackoff      time.Duration
	DefaultInterval time.Duration

	Store         store.Store
	Pool          *snmp.Pool
	Registry      *oid.Registry
	SessionConfig SessionConfigFor
	Logger        collab.Logger

	// Poller overrides how a task's poll is executed; nil uses the real
	// SNMP pipeline built from Pool/Registry/SessionConfig. Tests substitute
	// a fake to exercise scheduling/backoff without a live device.
	Poller DevicePoller

	// EnrollInterval is how often the dispatcher scans desired state to
	// register polling tasks for new nodes and run the janitor sweep that
	// drops derived state for deleted ones. Defaults to DefaultInterval.
	EnrollInterval time.Duration

	RetainDerivedOnDelete bool
}

func (c *Config) applyDefaults() error {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 8
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.MaxRepetitions == 0 {
		c.MaxRepetitions = 10
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.CapBackoff <= 0 {
		c.CapBackoff = 300 * time.Second
	}
	if c.DefaultInterval <= 0 {
		c.DefaultInterval = 60 * time.Second
	}
	if c.EnrollInterval <= 0 {
		c.EnrollInterval = c.DefaultInterval
	}
	if c.Store == nil {
		return errs.New(errs.KindValidation, "poller.scheduler.config", "store is required")
	}
	if c.Pool == nil {
		return errs.New(errs.KindValidation, "poller.scheduler.config", "snmp pool is required")
	}
	if c.Registry == nil {
		return errs.New(errs.KindValidation, "poller.scheduler.config", "oid registry is required")
	}
	if c.SessionConfig == nil && c.Poller == nil {
		return errs.New(errs.KindValidation, "poller.scheduler.config", "session config resolver is required")
	}
	if c.Logger == nil {
		return errs.New(errs.KindValidation, "poller.scheduler.config", "logger is required")
	}
	return nil
}

// Scheduler drives concurrent device polls. One dispatcher
// goroutine owns the priority queue; a fixed worker pool executes due tasks
// it hands out over a bounded channel.
type Scheduler struct {
	cfg Config

	mu sync.Mutex
	q  taskQueue

	rngMu sync.Mutex
	rng   *rand.Rand

	shutdown chan struct{}
	once     sync.Once
}

// NewScheduler validates cfg and loads every polling_task row as the
// initial queue so a restart resumes from last-known deadlines rather
// than re-polling every node at once.
func NewScheduler(ctx context.Context, cfg Config) (*Scheduler, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if cfg.Poller == nil {
		cfg.Poller = &snmpPoller{
			pool:           cfg.Pool,
			registry:       cfg.Registry,
			sessionConfig:  cfg.SessionConfig,
			maxRepetitions: cfg.MaxRepetitions,
			clock:          cfg.Clock,
		}
	}
	s := &Scheduler{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Clock.Now().UnixNano())),
		shutdown: make(chan struct{}),
	}
	rows, err := cfg.Store.ListDuePollingTasks(ctx, nil, maxInt64, 100_000)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		s.q = append(s.q, taskFromRow(r))
	}
	heap.Init(&s.q)
	return s, nil
}

const maxInt64 = int64(1<<63 - 1)

// EnsureTask registers node for polling if it has no task yet, due
// immediately with the scheduler's default interval. Idempotent.
func (s *Scheduler) EnsureTask(ctx context.Context, nodeID string) error {
	existing, err := s.cfg.Store.GetPollingTask(ctx, nil, nodeID)
	if err != nil && errs.KindOf(err) != errs.KindNotFound {
		return err
	}
	if existing != nil {
		return nil
	}
	t := &Task{
		NodeID:      nodeID,
		IntervalMS:  s.cfg.DefaultInterval.Milliseconds(),
		NextDueAtMS: s.cfg.Clock.Now().UnixMilli(),
	}
	if err := s.cfg.Store.UpsertPollingTask(ctx, nil, t.row()); err != nil {
		return err
	}
	s.mu.Lock()
	heap.Push(&s.q, t)
	s.mu.Unlock()
	return nil
}

// Run blocks, dispatching due tasks to a worker pool until ctx is
// cancelled or Shutdown is called. Workers observe the shutdown signal
// between tasks; in-flight network I/O is interrupted by its own timeout
// rather than by cancellation mid-request.
func (s *Scheduler) Run(ctx context.Context) error {
	workCh := make(chan *Task, s.cfg.QueueSize)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workCh {
				s.executeTask(ctx, t)
				select {
				case <-s.shutdown:
					return
				default:
				}
			}
		}()
	}
	defer func() {
		close(workCh)
		wg.Wait()
	}()

	janitor := &Janitor{Store: s.cfg.Store, RetainDerivedOnDelete: s.cfg.RetainDerivedOnDelete}
	var lastEnroll time.Time

	housekeeping := 1 * time.Second
	for {
		if now := s.cfg.Clock.Now(); lastEnroll.IsZero() || now.Sub(lastEnroll) >= s.cfg.EnrollInterval {
			s.enrollAndSweep(ctx, janitor)
			lastEnroll = now
		}

		wait := s.nextWait(housekeeping)
		timer := s.cfg.Clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.triggerShutdown()
			return nil
		case <-s.shutdown:
			timer.Stop()
			return nil
		case <-timer.Chan():
		}

		for {
			t := s.popDue()
			if t == nil {
				break
			}
			MetricQueueDepth.Set(float64(s.queueLen()))
			select {
			case workCh <- t:
			case <-ctx.Done():
				s.triggerShutdown()
				return nil
			}
		}
	}
}

// enrollAndSweep registers polling tasks for nodes that have none yet and
// runs the janitor pass that removes derived state for nodes deleted from
// desired state. Errors are logged, never fatal: one bad node must not
// stall the dispatcher.
func (s *Scheduler) enrollAndSweep(ctx context.Context, janitor *Janitor) {
	res, err := s.cfg.Store.ListNodes(ctx, nil, store.ListOptions{})
	if err != nil {
		s.cfg.Logger.Log(collab.LevelError, "poller: failed to list nodes for enrollment", "error", err)
		return
	}
	for _, n := range res.Items {
		if err := s.EnsureTask(ctx, n.ID); err != nil {
			s.cfg.Logger.Log(collab.LevelError, "poller: failed to enroll node", "node_id", n.ID, "error", err)
		}
	}
	if err := janitor.Sweep(ctx); err != nil {
		s.cfg.Logger.Log(collab.LevelError, "poller: janitor sweep failed", "error", err)
	}
}

func (s *Scheduler) triggerShutdown() {
	s.once.Do(func() { close(s.shutdown) })
}

// Shutdown stops the scheduler's dispatcher loop without requiring ctx
// cancellation, for callers that manage the scheduler's lifetime
// independently of the request context.
func (s *Scheduler) Shutdown() { s.triggerShutdown() }

func (s *Scheduler) nextWait(housekeeping time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.q) == 0 {
		return housekeeping
	}
	deadline := s.q[0].NextDueAtMS
	now := s.cfg.Clock.Now().UnixMilli()
	if deadline <= now {
		return 0
	}
	wait := time.Duration(deadline-now) * time.Millisecond
	if wait > housekeeping {
		return housekeeping
	}
	return wait
}

func (s *Scheduler) popDue() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.q) == 0 {
		return nil
	}
	now := s.cfg.Clock.Now().UnixMilli()
	if s.q[0].NextDueAtMS > now {
		return nil
	}
	return heap.Pop(&s.q).(*Task)
}

func (s *Scheduler) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.q)
}

func (s *Scheduler) reschedule(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.q, t)
}

// executeTask runs one poll end to end: acquire permits,
// build the OID list, bulk-get, decode into NodeStatus, write through a
// single store transaction, reschedule.
func (s *Scheduler) executeTask(ctx context.Context, t *Task) {
	start := s.cfg.Clock.Now()
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	release, err := s.cfg.Pool.Acquire(pollCtx)
	if err != nil {
		s.onFailure(ctx, t, err)
		return
	}
	defer release()

	node, err := s.cfg.Store.GetNode(ctx, nil, t.NodeID)
	if err != nil {
		s.onFailure(ctx, t, err)
		return
	}

	status, err := s.cfg.Poller.Poll(pollCtx, node)
	MetricPollDuration.Observe(s.cfg.Clock.Since(start).Seconds())
	if err != nil {
		s.onFailure(ctx, t, err)
		return
	}

	if err := s.writeSnapshot(ctx, status); err != nil {
		s.onFailure(ctx, t, err)
		return
	}

	MetricPollsTotal.WithLabelValues("success").Inc()
	if t.ConsecutiveFailures > 0 {
		MetricBackoffActive.Dec()
	}
	t.ConsecutiveFailures = 0
	t.LastError = ""
	t.NextDueAtMS = s.cfg.Clock.Now().Add(time.Duration(t.IntervalMS) * time.Millisecond).UnixMilli()
	s.persistAndReschedule(ctx, t)
}

func (s *Scheduler) onFailure(ctx context.Context, t *Task, err error) {
	MetricPollsTotal.WithLabelValues("failure").Inc()
	t.ConsecutiveFailures++
	if t.ConsecutiveFailures == 1 {
		MetricBackoffActive.Inc()
	}
	t.LastError = err.Error()

	s.rngMu.Lock()
	delay := nextBackoff(s.cfg.BaseBackoff, s.cfg.CapBackoff, t.ConsecutiveFailures, s.rng)
	s.rngMu.Unlock()

	t.NextDueAtMS = s.cfg.Clock.Now().Add(delay).UnixMilli()
	s.cfg.Logger.Log(collab.LevelWarn, "poller: poll failed, rescheduled with backoff",
		"node_id", t.NodeID, "consecutive_failures", t.ConsecutiveFailures, "delay_ms", delay.Milliseconds(), "error", err)
	s.persistAndReschedule(ctx, t)
}

func (s *Scheduler) persistAndReschedule(ctx context.Context, t *Task) {
	if err := s.cfg.Store.UpsertPollingTask(ctx, nil, t.row()); err != nil {
		s.cfg.Logger.Log(collab.LevelError, "poller: failed to persist polling task", "node_id", t.NodeID, "error", err)
	}
	s.reschedule(t)
}
