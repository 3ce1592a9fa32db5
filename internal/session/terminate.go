package session

import (
	"time"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/eventexport"
	"firestige.xyz/otus/internal/mediaengine"
	"firestige.xyz/otus/internal/metrics"
	"firestige.xyz/otus/internal/mrcptypes"
)

// handleTerminate runs spec.md §4.3 "Terminate processing" steps 1-3:
// deactivate every channel's method state machine, then tear down
// associations and terminations, then destroy the channels themselves.
func (s *Session) handleTerminate() {
	s.terminateStart = time.Now()
	s.enterState(StateDeactivating)

	pending := make([]*channel.Channel, 0, len(s.Channels))
	for _, c := range s.Channels {
		if c.Machine != nil && !c.Machine.IsTerminated() {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		s.finishDeactivate()
		return
	}
	// Bump for the whole set before invoking any Deactivate, so a
	// machine that completes synchronously cannot drain the counter to
	// zero (and fire finishDeactivate) before its siblings are even
	// asked to deactivate.
	s.bump(len(pending))
	for _, c := range pending {
		c.Machine.Deactivate(func() {
			if s.drain() {
				s.finishDeactivate()
			}
		})
	}
}

// finishDeactivate enters TERMINATING and tears down every termination
// and association this session owns (spec.md §4.3 terminate step 2).
func (s *Session) finishDeactivate() {
	s.enterState(StateTerminating)

	if s.RemoveFromTable != nil {
		s.RemoveFromTable()
		s.RemoveFromTable = nil
	}

	if s.Context == nil {
		s.finishTerminate()
		return
	}

	batch := mediaengine.NewBatch(s.Context)
	batch.ResetAssociations()

	for _, c := range s.Channels {
		if c.Control != nil {
			if pending := c.Control.Remove(); pending {
				c.WaitingForChannel = true
				s.bump(1)
			}
		}
		if c.Engine == nil {
			continue
		}
		if term := c.Engine.Termination(); term != nil {
			batch.SubtractTermination(term)
			c.WaitingForTermination = true
		}
		if pending := c.Engine.Close(); pending {
			c.WaitingForChannel = true
			s.bump(1)
		}
	}

	for _, slot := range s.Slots {
		batch.SubtractTermination(slot.Term)
		slot.Waiting = true
	}

	n := batch.Len()
	if n > 0 {
		s.bump(n)
		s.engine.Send(batch, s.mediaEvents)
	}

	if s.subrequestCount == 0 {
		s.finishTerminate()
	}
}

// finishTerminate destroys the session's channels and notifies the
// front-end that termination is complete (spec.md §4.3 terminate step 3).
func (s *Session) finishTerminate() {
	if s.Context != nil && s.engine != nil {
		s.engine.ReleaseContext(s.ID)
	}
	s.Channels = nil
	s.Slots = nil
	s.enterState(StateNone)
	if !s.terminateStart.IsZero() {
		metrics.TerminateLatencySeconds.Observe(time.Since(s.terminateStart).Seconds())
	}
	metrics.SessionsActive.Dec()
	s.publishEvent(eventexport.EventTerminated, mrcptypes.StatusOK)
	if s.OnTerminateResponse != nil {
		s.OnTerminateResponse()
	}
	s.completeActive()
}
