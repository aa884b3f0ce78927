package policy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store/memstore"
)

func discardLogger() collab.Logger {
	return collab.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSchedulerConfigValidateFillsDefaults(t *testing.T) {
	cfg := SchedulerConfig{
		Interval:       time.Second,
		PolicySource:   &fakePolicySource{},
		DirtyNodeQuery: func(ctx context.Context) ([]string, error) { return nil, nil },
	}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 4, cfg.WorkerCount)
	require.Equal(t, 256, cfg.QueueSize)
	require.NotNil(t, cfg.Clock)
}

func TestSchedulerConfigValidateRejectsMissingSource(t *testing.T) {
	cfg := SchedulerConfig{
		Interval:       time.Second,
		DirtyNodeQuery: func(ctx context.Context) ([]string, error) { return nil, nil },
	}
	require.Error(t, cfg.Validate())
}

func TestSchedulerTickEvaluatesDirtyNodes(t *testing.T) {
	ms := memstore.New()
	node := mustNode(t, ms, model.VendorCisco)

	src := &fakePolicySource{
		files: map[string]string{
			"base.unet": `WHEN vendor == "cisco" THEN SET custom_data.reviewed TO "yes"`,
		},
		modTime: map[string]time.Time{"base.unet": time.Unix(1000, 0)},
	}

	orch := &Orchestrator{Store: ms, Journal: NewJournal(10, 0)}
	lastSeen := map[string]int{}
	sched, err := NewScheduler(SchedulerConfig{
		Interval:     time.Hour, // only the immediate first tick matters here
		WorkerCount:  2,
		PolicySource: src,
		DirtyNodeQuery: func(ctx context.Context) ([]string, error) {
			return DirtyNodesSince(ctx, ms, lastSeen)
		},
	}, orch, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sched.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		n, err := ms.GetNode(context.Background(), nil, node.ID)
		if err != nil {
			return false
		}
		s, _ := n.CustomData.Get([]string{"reviewed"}).AsString()
		return s == "yes"
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestDirtyNodesSinceTracksVersionAdvance(t *testing.T) {
	ms := memstore.New()
	node := mustNode(t, ms, model.VendorCisco)
	lastSeen := map[string]int{}

	dirty, err := DirtyNodesSince(context.Background(), ms, lastSeen)
	require.NoError(t, err)
	require.Equal(t, []string{node.ID}, dirty)

	dirty, err = DirtyNodesSince(context.Background(), ms, lastSeen)
	require.NoError(t, err)
	require.Empty(t, dirty, "unchanged node is not dirty twice")

	got, err := ms.GetNode(context.Background(), nil, node.ID)
	require.NoError(t, err)
	_, err = ms.UpdateNode(context.Background(), nil, got)
	require.NoError(t, err)

	dirty, err = DirtyNodesSince(context.Background(), ms, lastSeen)
	require.NoError(t, err)
	require.Equal(t, []string{node.ID}, dirty, "version bump re-dirties the node")
}
