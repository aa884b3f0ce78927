package poller

import (
	"container/heap"

	"github.com/bedecarroll/unet-sub002/internal/store"
)

// Task is one node's polling schedule state: node id,
// interval, next deadline, and consecutive-failure count for backoff.
type Task struct {
	NodeID              string
	IntervalMS          int64
	NextDueAtMS         int64
	ConsecutiveFailures int
	LastError           string

	index int // heap.Interface bookkeeping
}

func taskFromRow(r *store.PollingTaskRow) *Task {
	return &Task{
		NodeID:              r.NodeID,
		IntervalMS:          r.IntervalMS,
		NextDueAtMS:         r.NextDueAtMS,
		ConsecutiveFailures: r.ConsecutiveFailures,
		LastError:           r.LastError,
	}
}

func (t *Task) row() *store.PollingTaskRow {
	return &store.PollingTaskRow{
		NodeID:              t.NodeID,
		IntervalMS:          t.IntervalMS,
		NextDueAtMS:         t.NextDueAtMS,
		ConsecutiveFailures: t.ConsecutiveFailures,
		LastError:           t.LastError,
	}
}

// taskQueue is a min-heap ordered by deadline. Not safe for concurrent
// use; Scheduler guards it with its own mutex.
type taskQueue []*Task

func (q taskQueue) Len() int           { return len(q) }
func (q taskQueue) Less(i, j int) bool { return q[i].NextDueAtMS < q[j].NextDueAtMS }
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

var _ heap.Interface = (*taskQueue)(nil)
