package mediacontext

import (
	"testing"

	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendRecvTermination(name string, codec mrcptypes.CodecDescriptor) *termination.Termination {
	t := termination.New(termination.KindEngine, name)
	t.Mode = mrcptypes.StreamModeSend | mrcptypes.StreamModeReceive
	t.RxCodec = &codec
	t.TxCodec = &codec
	return t
}

func pcmu8k() mrcptypes.CodecDescriptor {
	return mrcptypes.CodecDescriptor{PayloadType: 0, Name: "PCMU", SamplingRate: 8000, Channels: 1}
}

// invariant helpers (spec.md §8 properties 1-3)

func assertInvariants(t *testing.T, c *Context) {
	t.Helper()
	count := 0
	for i := range c.header {
		if c.header[i].termination == nil {
			continue
		}
		count++
		txCount, rxCount := 0, 0
		for j := 0; j < c.capacity; j++ {
			if c.matrix[i][j] {
				txCount++
			}
			if c.matrix[j][i] {
				rxCount++
			}
		}
		assert.Equal(t, txCount, c.header[i].txCount, "tx_count slot %d", i)
		assert.Equal(t, rxCount, c.header[i].rxCount, "rx_count slot %d", i)
	}
	assert.Equal(t, count, c.count)
	assert.Equal(t, count > 0, c.InRing())
}

func TestAddTerminationFillsFirstFreeSlot(t *testing.T) {
	f := NewFactory()
	c := New(f, 3)
	assert.False(t, c.InRing())

	t1 := termination.New(termination.KindRTP, "rtp")
	require.True(t, c.AddTermination(t1))
	assert.Equal(t, 0, t1.Slot)
	assert.True(t, c.InRing())
	assertInvariants(t, c)
}

func TestAddTerminationFailsWhenFull(t *testing.T) {
	f := NewFactory()
	c := New(f, 1)
	t1 := termination.New(termination.KindRTP, "a")
	t2 := termination.New(termination.KindRTP, "b")
	require.True(t, c.AddTermination(t1))
	assert.False(t, c.AddTermination(t2))
	assertInvariants(t, c)
}

func TestSubtractTerminationClearsAssociationsAndUnlinksRing(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	rtp := sendRecvTermination("rtp", codec)
	eng := sendRecvTermination("eng", codec)
	require.True(t, c.AddTermination(rtp))
	require.True(t, c.AddTermination(eng))
	require.True(t, c.AddAssociation(rtp, eng))
	require.True(t, c.AddAssociation(eng, rtp))
	assertInvariants(t, c)

	require.True(t, c.SubtractTermination(rtp))
	assert.Equal(t, termination.Unattached, rtp.Slot)
	assert.Equal(t, 0, c.header[eng.Slot].txCount)
	assert.Equal(t, 0, c.header[eng.Slot].rxCount)
	assertInvariants(t, c)

	require.True(t, c.SubtractTermination(eng))
	assert.False(t, c.InRing())
	assert.Equal(t, 0, c.Count())
}

func TestAddAssociationRequiresModeCompatibility(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	sendOnly := termination.New(termination.KindEngine, "send-only")
	sendOnly.Mode = mrcptypes.StreamModeSend
	sendOnly.RxCodec, sendOnly.TxCodec = &codec, &codec
	recvOnly := termination.New(termination.KindRTP, "recv-only")
	recvOnly.Mode = mrcptypes.StreamModeReceive
	recvOnly.RxCodec, recvOnly.TxCodec = &codec, &codec

	require.True(t, c.AddTermination(sendOnly))
	require.True(t, c.AddTermination(recvOnly))

	// send-only -> recv-only: src lacks RECEIVE, sink lacks SEND: neither direction qualifies.
	require.True(t, c.AddAssociation(sendOnly, recvOnly))
	assert.False(t, c.matrix[sendOnly.Slot][recvOnly.Slot])
	assert.False(t, c.matrix[recvOnly.Slot][sendOnly.Slot])
	assertInvariants(t, c)
}

func TestAddThenRemoveAssociationRestoresMatrix(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	a := sendRecvTermination("a", codec)
	b := sendRecvTermination("b", codec)
	require.True(t, c.AddTermination(a))
	require.True(t, c.AddTermination(b))

	before := snapshotMatrix(c)
	require.True(t, c.AddAssociation(a, b))
	require.True(t, c.RemoveAssociation(a, b))
	after := snapshotMatrix(c)
	assert.Equal(t, before, after)
	assertInvariants(t, c)
}

func TestResetAssociationsIsIdempotent(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	a := sendRecvTermination("a", codec)
	b := sendRecvTermination("b", codec)
	require.True(t, c.AddTermination(a))
	require.True(t, c.AddTermination(b))
	require.True(t, c.AddAssociation(a, b))

	c.ResetAssociations()
	first := snapshotMatrix(c)
	c.ResetAssociations()
	second := snapshotMatrix(c)
	assert.Equal(t, first, second)
	assertInvariants(t, c)
}

func TestApplyTopologyBuildsNullBridgeForMatchingCodecs(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	a := sendRecvTermination("a", codec)
	b := sendRecvTermination("b", codec)
	require.True(t, c.AddTermination(a))
	require.True(t, c.AddTermination(b))
	require.True(t, c.AddAssociation(a, b))
	require.True(t, c.AddAssociation(b, a))

	c.ApplyTopology()
	assert.Len(t, c.topology, 2)
	for _, obj := range c.topology {
		_, ok := obj.(*nullBridge)
		assert.True(t, ok)
	}
}

func TestApplyTopologySkipsSamplingRateMismatch(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	var warned string
	c.Warnf = func(format string, args ...any) { warned = format }

	rx := mrcptypes.CodecDescriptor{Name: "PCMA", SamplingRate: 16000, Channels: 1}
	tx := mrcptypes.CodecDescriptor{Name: "PCMA", SamplingRate: 8000, Channels: 1}
	a := termination.New(termination.KindEngine, "a")
	a.Mode = mrcptypes.StreamModeSend | mrcptypes.StreamModeReceive
	a.RxCodec, a.TxCodec = &rx, &rx
	b := termination.New(termination.KindRTP, "b")
	b.Mode = mrcptypes.StreamModeSend | mrcptypes.StreamModeReceive
	b.RxCodec, b.TxCodec = &tx, &tx

	require.True(t, c.AddTermination(a))
	require.True(t, c.AddTermination(b))
	require.True(t, c.AddAssociation(a, b))

	c.ApplyTopology()
	assert.Empty(t, c.topology)
	assert.NotEmpty(t, warned)
}

func TestApplyDestroyApplyHasSameObservableBehavior(t *testing.T) {
	f := NewFactory()
	c := New(f, 2)
	codec := pcmu8k()
	a := sendRecvTermination("a", codec)
	b := sendRecvTermination("b", codec)
	require.True(t, c.AddTermination(a))
	require.True(t, c.AddTermination(b))
	require.True(t, c.AddAssociation(a, b))

	c.ApplyTopology()
	firstLen := len(c.topology)
	c.DestroyTopology()
	c.ApplyTopology()
	assert.Equal(t, firstLen, len(c.topology))
}

func TestFactoryProcessWalksRingInOrder(t *testing.T) {
	f := NewFactory()
	c1 := New(f, 1)
	c2 := New(f, 1)
	t1 := termination.New(termination.KindEngine, "t1")
	t2 := termination.New(termination.KindEngine, "t2")
	require.True(t, c1.AddTermination(t1))
	require.True(t, c2.AddTermination(t2))
	assert.Equal(t, 2, f.Len())
	assert.Same(t, c1, f.ring.Front().Value)
	assert.Same(t, c2, f.ring.Back().Value)

	f.Process() // no compiled objects; must not panic

	require.True(t, c1.SubtractTermination(t1))
	assert.Equal(t, 1, f.Len())
}

func snapshotMatrix(c *Context) [][]bool {
	out := make([][]bool, len(c.matrix))
	for i, row := range c.matrix {
		out[i] = append([]bool(nil), row...)
	}
	return out
}
