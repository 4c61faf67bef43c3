package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerBeginAssignsIncreasingIDs(t *testing.T) {
	m := NewManager(ReadCommitted)
	t1 := m.Begin()
	t2 := m.Begin()
	require.Equal(t, uint64(1), t1.ID())
	require.Equal(t, uint64(2), t2.ID())
	require.Equal(t, ReadCommitted, t1.IsolationLevel())
}
