// Package session implements the Server Session Orchestrator: the
// per-session state machine that processes offer/answer exchanges,
// allocates control channels and RTP terminations, drives asynchronous
// sub-requests against the media engine and the channels, and
// reassembles their completions into a single answer (spec.md §4.3).
//
// Grounded on internal/task's Task struct (task.go) for the mutable
// state + lifecycle shape, without its mutex (a Session holds no lock
// and is driven from one goroutine at a time), and on
// plugins/handler/skywalking/dialog/context.go's DialogContext for the
// "one mutable record threaded through a message-driven state machine"
// idiom — generalized here from a SIP dialog to an MRCP session.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/eventexport"
	"firestige.xyz/otus/internal/mediacontext"
	"firestige.xyz/otus/internal/mediaengine"
	"firestige.xyz/otus/internal/metrics"
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/profile"
	"firestige.xyz/otus/internal/termination"
)

// Session is the server-side state for one MRCP signaling session.
type Session struct {
	ID      string
	Profile *profile.Profile
	Context *mediacontext.Context

	Channels []*channel.Channel
	Slots    []*terminationSlot

	Offer  *mrcptypes.SessionDescriptor
	Answer *mrcptypes.SessionDescriptor

	queue  []Message
	active *Message

	pendingBatch    *mediaengine.Batch
	subrequestCount int
	state           State

	engine      *mediaengine.Engine
	mediaEvents chan mediaengine.CompletionEvent

	log *logrus.Entry

	// OnAnswer, OnControlResponse and OnTerminateResponse are the
	// orchestrator's outbound calls to the signaling front-end (spec.md
	// §6 "Orchestrator -> Signaling front-end").
	OnAnswer            func(*mrcptypes.SessionDescriptor)
	OnControlResponse   func(channelID int, out methodfsm.Outbound)
	OnTerminateResponse func()

	// RemoveFromTable is called once, during step 2 of terminate
	// processing, to drop this session from the global session table.
	RemoveFromTable func()

	// Events publishes lifecycle events for external consumption, nil
	// to disable (the default: sessions work without an event export
	// sink configured).
	Events *eventexport.Publisher

	answerStart    time.Time
	terminateStart time.Time
}

// publishEvent fires ev at the configured event publisher, if any, on
// its own goroutine so a slow or unreachable broker never blocks the
// orchestrator's single goroutine.
func (s *Session) publishEvent(kind eventexport.EventKind, status mrcptypes.Status) {
	if s.Events == nil {
		return
	}
	ev := eventexport.Event{
		Kind: kind, SessionID: s.ID, Status: status, Timestamp: time.Now(),
	}
	if s.Profile != nil {
		ev.Profile = s.Profile.Name
	}
	go func() {
		if err := s.Events.Publish(context.Background(), ev); err != nil {
			s.log.WithError(err).Warn("lifecycle event publish failed")
		}
	}()
}

// New creates a session against engine/prof, not yet assigned an ID
// (generated on the first offer, per spec.md §4.3 step 1).
func New(engine *mediaengine.Engine, prof *profile.Profile, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	profileName := "unknown"
	if prof != nil {
		profileName = prof.Name
	}
	metrics.SessionsTotal.WithLabelValues(profileName).Inc()
	metrics.SessionsActive.Inc()
	return &Session{
		Profile:     prof,
		engine:      engine,
		mediaEvents: make(chan mediaengine.CompletionEvent, 32),
		log:         log,
		state:       StateNone,
	}
}

// generateID produces a 16-character uppercase hex session ID (spec.md
// §6 "Session ID format").
func generateID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// Enqueue pushes an arriving signaling message onto the FIFO queue and
// dispatches it immediately if none is currently active (spec.md §4.3
// "Signaling message serialization").
func (s *Session) Enqueue(msg Message) {
	s.queue = append(s.queue, msg)
	if s.active == nil {
		s.dispatchNext()
	}
}

// dispatchNext pops the head of the queue and processes it, if any and
// if none is already active.
func (s *Session) dispatchNext() {
	if s.active != nil || len(s.queue) == 0 {
		return
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	s.active = &msg
	switch msg.Kind {
	case MsgOffer:
		s.handleOffer(msg.Offer)
	case MsgControl:
		s.handleControl(msg.ChannelID, msg.Request)
	case MsgTerminate:
		s.handleTerminate()
	}
}

// completeActive clears the active message and advances the queue.
// Called once the active message's work has fully drained.
func (s *Session) completeActive() {
	s.active = nil
	s.dispatchNext()
}

// enterState resets subrequest_count to 0 defensively on entry — a
// non-zero count at this point is a bug, not a recoverable condition
// (spec.md §4.3 "Entering any state resets subrequest_count").
func (s *Session) enterState(next State) {
	if s.subrequestCount != 0 {
		s.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"from":       s.state,
			"to":         next,
			"count":      s.subrequestCount,
		}).Warn("non-zero sub-request count on state entry, forcing to 0")
		s.subrequestCount = 0
	}
	s.state = next
}

// bump increments the sub-request counter by n (n commands added to a
// batch about to be sent).
func (s *Session) bump(n int) { s.subrequestCount += n }

// drain decrements the sub-request counter by one completion and
// reports whether it just reached zero.
func (s *Session) drain() bool {
	s.subrequestCount--
	return s.subrequestCount == 0
}

// MediaEvents returns the channel the session's goroutine should select
// on (alongside its own signaling message source) to receive media
// engine completions (spec.md §5 "Suspension points").
func (s *Session) MediaEvents() <-chan mediaengine.CompletionEvent { return s.mediaEvents }

// HandleMediaEvent processes one completion event from the media
// engine (spec.md §4.3 "Termination response handling").
func (s *Session) HandleMediaEvent(ev mediaengine.CompletionEvent) {
	switch ev.Kind {
	case mediaengine.AddTermination, mediaengine.ModifyTermination:
		s.handleTerminationResponse(ev)
	case mediaengine.SubtractTermination:
		s.handleSubtractResponse(ev)
	default:
		// ADD/REMOVE/RESET_ASSOCIATIONS, APPLY/DESTROY_TOPOLOGY: pure
		// bookkeeping decrement.
	}
	s.afterSubrequestCompletion()
}

// afterSubrequestCompletion drains one sub-request and, if the count
// has reached zero, lets the active message finish its state-specific
// completion handling.
func (s *Session) afterSubrequestCompletion() {
	if !s.drain() {
		return
	}
	switch s.state {
	case StateAnswering:
		s.finishAnswer()
	case StateDeactivating:
		s.finishDeactivate()
	case StateTerminating:
		s.finishTerminate()
	}
}

func (s *Session) slotByMid(mid string) *terminationSlot {
	for _, slot := range s.Slots {
		if slot.Mid == mid {
			return slot
		}
	}
	return nil
}

func (s *Session) slotByTermination(t *termination.Termination) *terminationSlot {
	for _, slot := range s.Slots {
		if slot.Term == t {
			return slot
		}
	}
	return nil
}

func (s *Session) channelByEngineTermination(t *termination.Termination) *channel.Channel {
	for _, c := range s.Channels {
		if c.Engine != nil && c.Engine.Termination() == t {
			return c
		}
	}
	return nil
}
