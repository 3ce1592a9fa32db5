package session

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/mediaengine"
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/profile"
	"firestige.xyz/otus/internal/termination"
)

func newTestHarness(t *testing.T, prof *profile.Profile) (*mediaengine.Engine, *Session) {
	t.Helper()
	e := mediaengine.New("test", 5*time.Millisecond, nil)
	e.Allocate = func() (mrcptypes.AudioEndpoint, error) {
		return mrcptypes.AudioEndpoint{IP: "198.51.100.9", Port: 30000}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() { cancel(); e.Stop() })

	s := New(e, prof, logrus.NewEntry(logrus.StandardLogger()))

	pumpCtx, pumpCancel := context.WithCancel(context.Background())
	go func() {
		for {
			select {
			case <-pumpCtx.Done():
				return
			case ev := <-s.MediaEvents():
				s.HandleMediaEvent(ev)
			}
		}
	}()
	t.Cleanup(pumpCancel)

	return e, s
}

func resourceFactory(name string) profile.EngineChannelFactory {
	return func(resourceName string) (channel.EngineChannel, error) {
		term := termination.New(termination.KindEngine, name)
		return channel.NewSyncEngineChannel(term, methodfsm.NewGeneric()), nil
	}
}

func audioOnlyOffer(cmid, mid string, resourceName string) *mrcptypes.SessionDescriptor {
	return &mrcptypes.SessionDescriptor{
		Control: []mrcptypes.MediaDescriptor{
			{Kind: mrcptypes.MediaControl, ResourceName: resourceName, Cmid: cmid},
		},
		Audio: []mrcptypes.MediaDescriptor{
			{
				Kind:   mrcptypes.MediaAudio,
				Mid:    mid,
				Remote: mrcptypes.AudioEndpoint{IP: "203.0.113.5", Port: 6000},
				Codec:  mrcptypes.CodecDescriptor{Name: "PCMU", SamplingRate: 8000, Channels: 1},
				Mode:   mrcptypes.StreamModeSend | mrcptypes.StreamModeReceive,
			},
		},
	}
}

func waitAnswer(t *testing.T, ch <-chan *mrcptypes.SessionDescriptor) *mrcptypes.SessionDescriptor {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for answer")
		return nil
	}
}

// S1: single-resource MRCPv2 happy path.
func TestSessionSingleResourceHappyPath(t *testing.T) {
	prof := profile.New("p1", 5)
	prof.RegisterResource("synth", resourceFactory("synth"))
	_, s := newTestHarness(t, prof)

	answers := make(chan *mrcptypes.SessionDescriptor, 1)
	s.OnAnswer = func(a *mrcptypes.SessionDescriptor) { answers <- a }

	s.Enqueue(Message{Kind: MsgOffer, Offer: audioOnlyOffer("m1", "m1", "synth")})

	answer := waitAnswer(t, answers)
	assert.Equal(t, mrcptypes.StatusOK, answer.Status)
	require.Len(t, s.Channels, 1)
	assert.True(t, s.Channels[0].Resolved())
	require.NotNil(t, answer.Audio[0].Local)
	assert.Equal(t, "198.51.100.9", answer.Audio[0].Local.IP)
	assert.NotEmpty(t, s.ID)

	require.Len(t, answer.Control, 1)
	assert.False(t, answer.Control[0].IsNull)
	require.NotNil(t, answer.Control[0].Local)
	assert.Equal(t, 0, answer.Control[0].Local.Port)
}

// S2: unknown resource name still completes the offer, with a non-OK status.
func TestSessionUnknownResource(t *testing.T) {
	prof := profile.New("p2", 5)
	_, s := newTestHarness(t, prof)

	answers := make(chan *mrcptypes.SessionDescriptor, 1)
	s.OnAnswer = func(a *mrcptypes.SessionDescriptor) { answers <- a }

	s.Enqueue(Message{Kind: MsgOffer, Offer: audioOnlyOffer("m1", "m1", "no-such-resource")})

	answer := waitAnswer(t, answers)
	assert.Equal(t, mrcptypes.StatusNoSuchResource, answer.Status)
	require.Len(t, s.Channels, 1)
	assert.False(t, s.Channels[0].Resolved())
}

// S3: two resources grouped onto one RTP stream via a shared cmid/mid.
func TestSessionTwoResourcesOneStream(t *testing.T) {
	prof := profile.New("p3", 5)
	prof.RegisterResource("recog", resourceFactory("recog"))
	prof.RegisterResource("synth", resourceFactory("synth"))
	_, s := newTestHarness(t, prof)

	answers := make(chan *mrcptypes.SessionDescriptor, 1)
	s.OnAnswer = func(a *mrcptypes.SessionDescriptor) { answers <- a }

	offer := &mrcptypes.SessionDescriptor{
		Control: []mrcptypes.MediaDescriptor{
			{Kind: mrcptypes.MediaControl, ResourceName: "recog", Cmid: "m1"},
			{Kind: mrcptypes.MediaControl, ResourceName: "synth", Cmid: "m1"},
		},
		Audio: []mrcptypes.MediaDescriptor{
			{
				Kind: mrcptypes.MediaAudio, Mid: "m1",
				Remote: mrcptypes.AudioEndpoint{IP: "203.0.113.5", Port: 6000},
				Codec:  mrcptypes.CodecDescriptor{Name: "PCMU", SamplingRate: 8000, Channels: 1},
				Mode:   mrcptypes.StreamModeSend | mrcptypes.StreamModeReceive,
			},
		},
	}
	s.Enqueue(Message{Kind: MsgOffer, Offer: offer})

	answer := waitAnswer(t, answers)
	assert.Equal(t, mrcptypes.StatusOK, answer.Status)
	require.Len(t, s.Channels, 2)
	require.Len(t, s.Slots, 1)
	assert.Len(t, s.Slots[0].channelIdx, 2)
	require.NotNil(t, answer.Audio[0].Local)

	require.Len(t, answer.Control, 2)
	assert.False(t, answer.Control[0].IsNull)
	assert.False(t, answer.Control[1].IsNull)
}

// S4: TERMINATE queued immediately behind an in-flight OFFER runs after
// the offer's answer has been delivered (FIFO serialization).
func TestSessionTerminateQueuedBehindOffer(t *testing.T) {
	prof := profile.New("p4", 5)
	prof.RegisterResource("synth", resourceFactory("synth"))
	_, s := newTestHarness(t, prof)

	var order []string
	done := make(chan struct{}, 1)
	s.OnAnswer = func(*mrcptypes.SessionDescriptor) { order = append(order, "answer") }
	s.OnTerminateResponse = func() {
		order = append(order, "terminate")
		done <- struct{}{}
	}

	s.Enqueue(Message{Kind: MsgOffer, Offer: audioOnlyOffer("m1", "m1", "synth")})
	s.Enqueue(Message{Kind: MsgTerminate})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for terminate response")
	}
	require.Equal(t, []string{"answer", "terminate"}, order)
	assert.Empty(t, s.Channels)
	assert.Empty(t, s.Slots)
}

// S5: overlapping CONTROL requests on the same channel are serialized
// through the FIFO and each produce exactly one outbound response.
func TestSessionOverlappingControlRequests(t *testing.T) {
	prof := profile.New("p5", 5)
	prof.RegisterResource("synth", resourceFactory("synth"))
	_, s := newTestHarness(t, prof)

	answers := make(chan *mrcptypes.SessionDescriptor, 1)
	s.OnAnswer = func(a *mrcptypes.SessionDescriptor) { answers <- a }
	s.Enqueue(Message{Kind: MsgOffer, Offer: audioOnlyOffer("m1", "m1", "synth")})
	waitAnswer(t, answers)

	var responses []methodfsm.Outbound
	s.OnControlResponse = func(_ int, out methodfsm.Outbound) { responses = append(responses, out) }

	s.Enqueue(Message{Kind: MsgControl, ChannelID: 0, Request: methodfsm.Request{Method: "SPEAK"}})
	s.Enqueue(Message{Kind: MsgControl, ChannelID: 0, Request: methodfsm.Request{Method: "STOP"}})

	require.Len(t, responses, 2)
	assert.Equal(t, "SPEAK", responses[0].Method)
	assert.Equal(t, "STOP", responses[1].Method)
}

// eventOnlyMachine delivers every request as an EVENT, never a
// RESPONSE, to exercise the queue-advancement gate on IsEvent.
type eventOnlyMachine struct{}

func (m *eventOnlyMachine) Name() string { return "EVENT-ONLY" }

func (m *eventOnlyMachine) Dispatch(req methodfsm.Request, deliver func(methodfsm.Outbound)) error {
	deliver(methodfsm.Outbound{IsEvent: true, Method: req.Method})
	return nil
}

func (m *eventOnlyMachine) Deactivate(done func()) { done() }
func (m *eventOnlyMachine) IsTerminated() bool     { return false }

func eventOnlyResourceFactory(name string) profile.EngineChannelFactory {
	return func(resourceName string) (channel.EngineChannel, error) {
		term := termination.New(termination.KindEngine, name)
		return channel.NewSyncEngineChannel(term, &eventOnlyMachine{}), nil
	}
}

// A CONTROL dispatch that only delivers an EVENT (methodfsm.Outbound.IsEvent
// true) must not advance the signaling queue (spec.md §4.3 "Method state
// machine dispatch").
func TestSessionControlEventDoesNotAdvanceQueue(t *testing.T) {
	prof := profile.New("p6", 5)
	prof.RegisterResource("synth", eventOnlyResourceFactory("synth"))
	_, s := newTestHarness(t, prof)

	answers := make(chan *mrcptypes.SessionDescriptor, 1)
	s.OnAnswer = func(a *mrcptypes.SessionDescriptor) { answers <- a }
	s.Enqueue(Message{Kind: MsgOffer, Offer: audioOnlyOffer("m1", "m1", "synth")})
	waitAnswer(t, answers)

	var responses []methodfsm.Outbound
	s.OnControlResponse = func(_ int, out methodfsm.Outbound) { responses = append(responses, out) }

	s.Enqueue(Message{Kind: MsgControl, ChannelID: 0, Request: methodfsm.Request{Method: "RECOGNITION-START-OF-INPUT"}})
	s.Enqueue(Message{Kind: MsgControl, ChannelID: 0, Request: methodfsm.Request{Method: "STOP"}})

	require.Len(t, responses, 1)
	assert.True(t, responses[0].IsEvent)
	assert.NotNil(t, s.active)
	assert.Len(t, s.queue, 1)
}
