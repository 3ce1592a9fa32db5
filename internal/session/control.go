package session

import "firestige.xyz/otus/internal/methodfsm"

// handleControl dispatches a CONTROL message's request into the
// addressed channel's method state machine and forwards whatever it
// delivers back out through the control channel and the front-end
// (spec.md §4.3 "Control message dispatch").
func (s *Session) handleControl(channelID int, req methodfsm.Request) {
	c := s.channelAt(channelID)
	if c == nil || c.Machine == nil {
		s.completeActive()
		return
	}

	sawResponse := false
	deliver := func(out methodfsm.Outbound) {
		if !out.IsEvent {
			sawResponse = true
		}
		if c.Control != nil {
			_ = c.Control.Send(out)
		}
		if s.OnControlResponse != nil {
			s.OnControlResponse(channelID, out)
		}
	}

	if c.Engine != nil {
		_ = c.Engine.Dispatch(req, deliver)
	} else {
		_ = c.Machine.Dispatch(req, deliver)
	}

	// A RESPONSE advances the signaling queue; an EVENT is delivered to
	// the client the same way but leaves the active message in place,
	// since the machine may still owe a RESPONSE for it.
	if sawResponse {
		s.completeActive()
	}
}
