package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPrefixesByKind(t *testing.T) {
	id := New(KindNode)
	require.True(t, strings.HasPrefix(id, "node_"))
	require.True(t, Valid(id, KindNode))
	require.False(t, Valid(id, KindLink))
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := New(KindBatch)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestValidAnyKind(t *testing.T) {
	require.True(t, Valid(New(KindLocation), ""))
	require.False(t, Valid("loc_not-a-uuid", ""))
	require.False(t, Valid("garbage", ""))
}
