package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stonedb/stonedb/internal/diskio"
	"github.com/stonedb/stonedb/storage/bufferpool"
)

func newHeap(t *testing.T, poolSize int) *TableHeap {
	t.Helper()
	disk := diskio.NewMemoryDiskManager()
	pool := bufferpool.New(poolSize, disk)
	h, err := New(pool)
	require.NoError(t, err)
	return h
}

func TestInsertAndGetTuple(t *testing.T) {
	h := newHeap(t, 4)
	rid, err := h.InsertTuple([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, h.FirstPageID(), rid.PageID)
	require.Equal(t, uint32(0), rid.Slot)

	tup, ok, err := h.GetTuple(rid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), tup.Data)
}

func TestRIDStableAcrossDelete(t *testing.T) {
	h := newHeap(t, 4)
	rid1, err := h.InsertTuple([]byte("a"))
	require.NoError(t, err)
	rid2, err := h.InsertTuple([]byte("b"))
	require.NoError(t, err)

	require.NoError(t, h.MarkDelete(rid1))

	_, ok, err := h.GetTuple(rid1)
	require.NoError(t, err)
	require.False(t, ok, "deleted slot must not resurface")

	tup, ok, err := h.GetTuple(rid2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), tup.Data)
	require.Equal(t, uint32(1), rid2.Slot, "rid2's slot number does not shift after rid1 is deleted")
}

func TestDoubleDeleteFails(t *testing.T) {
	h := newHeap(t, 4)
	rid, err := h.InsertTuple([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, h.MarkDelete(rid))
	require.Error(t, h.MarkDelete(rid))
}

func TestUpdateInPlace(t *testing.T) {
	h := newHeap(t, 4)
	rid, err := h.InsertTuple([]byte("abcde"))
	require.NoError(t, err)
	require.NoError(t, h.UpdateTuple([]byte("xyz"), rid))

	tup, ok, err := h.GetTuple(rid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("xyz"), tup.Data)
}

func TestUpdateTooLargeFails(t *testing.T) {
	h := newHeap(t, 4)
	rid, err := h.InsertTuple([]byte("ab"))
	require.NoError(t, err)
	require.Error(t, h.UpdateTuple([]byte("abcdefghij"), rid))
}

func TestIteratorSkipsTombstonesAndSpansPages(t *testing.T) {
	h := newHeap(t, 4)
	big := make([]byte, 3000)
	for i := range big {
		big[i] = byte(i)
	}

	var rids []RID
	for i := 0; i < 3; i++ {
		rid, err := h.InsertTuple(big)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, h.MarkDelete(rids[1]))

	it := h.Iterator()
	seen := 0
	for {
		_, rid, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NotEqual(t, rids[1], rid)
		seen++
	}
	require.Equal(t, 2, seen)
}

func TestInsertEmptyFails(t *testing.T) {
	h := newHeap(t, 2)
	_, err := h.InsertTuple(nil)
	require.Error(t, err)
}
