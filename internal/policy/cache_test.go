package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResultCacheRoundTrip(t *testing.T) {
	rc, err := NewResultCache(time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	batch := &BatchResult{BatchID: "batch_1", NodeID: "node_1"}
	rc.Put("fp", "node_1", 3, 7, batch)
	rc.Wait()

	got, ok := rc.Get("fp", "node_1", 3, 7)
	require.True(t, ok)
	require.Equal(t, "batch_1", got.BatchID)
}

func TestResultCacheMissesWhenVersionAdvances(t *testing.T) {
	rc, err := NewResultCache(time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	rc.Put("fp", "node_1", 3, 7, &BatchResult{BatchID: "batch_1"})
	rc.Wait()

	_, ok := rc.Get("fp", "node_1", 4, 7)
	require.False(t, ok, "desired-state version advanced")
	_, ok = rc.Get("fp", "node_1", 3, 8)
	require.False(t, ok, "derived-state version advanced")
	_, ok = rc.Get("other-fp", "node_1", 3, 7)
	require.False(t, ok, "different rule-set fingerprint")
}
