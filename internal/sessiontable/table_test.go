package sessiontable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otus/internal/session"
)

func TestPutGetRoundTrips(t *testing.T) {
	tbl := New(0, 0)
	s := &session.Session{ID: "ABCD1234"}
	tbl.Put(s)

	got, ok := tbl.Get("ABCD1234")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, tbl.Len())
}

func TestGetMissReturnsFalse(t *testing.T) {
	tbl := New(0, 0)
	_, ok := tbl.Get("missing")
	assert.False(t, ok)
}

func TestRemoveDropsEntry(t *testing.T) {
	tbl := New(0, 0)
	tbl.Put(&session.Session{ID: "X"})
	tbl.Remove("X")
	_, ok := tbl.Get("X")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	tbl := New(20*time.Millisecond, 5*time.Millisecond)
	tbl.Put(&session.Session{ID: "Y"})

	// Poll Len rather than Get: a Get hit refreshes the entry's TTL, so
	// polling through Get would keep the entry alive indefinitely.
	require.Eventually(t, func() bool {
		return tbl.Len() == 0
	}, time.Second, 5*time.Millisecond)
	_, ok := tbl.Get("Y")
	assert.False(t, ok)
}
