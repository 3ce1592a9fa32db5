package session

import (
	"time"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/eventexport"
	"firestige.xyz/otus/internal/mediaengine"
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/metrics"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
)

// handleOffer runs spec.md §4.3 "Offer processing" steps 1-7.
func (s *Session) handleOffer(offer *mrcptypes.SessionDescriptor) {
	if s.ID == "" {
		s.ID = generateID()
		s.Context = s.engine.NewContext(s.ID, s.Profile.ContextCapacity)
	}
	s.Offer = offer
	s.Answer = mrcptypes.NewAnswerFrom(offer)
	s.answerStart = time.Now()
	s.enterState(StateAnswering)

	s.pendingBatch = mediaengine.NewBatch(s.Context)
	s.pendingBatch.ResetAssociations()

	if len(offer.Control) > 0 {
		s.processControlOffer(offer.Control)
	} else if offer.ResourceName != "" {
		s.processImplicitResourceOffer(offer)
	}
	s.processAudioOffer(offer.Audio)

	s.pendingBatch.ApplyTopology()
	n := s.pendingBatch.Len()
	s.bump(n)
	s.engine.Send(s.pendingBatch, s.mediaEvents)
	s.pendingBatch = nil

	if s.subrequestCount == 0 {
		s.finishAnswer()
	}
}

// processImplicitResourceOffer handles MRCPv1's single resource carried
// directly on the offer descriptor, reusing the same channel-resolution
// logic as one MRCPv2 control position.
func (s *Session) processImplicitResourceOffer(offer *mrcptypes.SessionDescriptor) {
	desc := mrcptypes.MediaDescriptor{Kind: mrcptypes.MediaControl, ID: 0, ResourceName: offer.ResourceName}
	s.resolveControlPosition(desc, nil)
}

// processControlOffer runs spec.md §4.3 "Resource / control-media offer"
// over every position in an MRCPv2 offer's control array.
func (s *Session) processControlOffer(control []mrcptypes.MediaDescriptor) {
	for i := range control {
		desc := control[i]
		desc.ID = i
		if existing := s.channelAt(i); existing != nil {
			s.modifyChannel(existing, desc)
			continue
		}
		s.resolveControlPosition(desc, s.controlTransportFor(desc))
	}
}

// controlTransportFor builds the MRCPv2 control-channel transport half
// for a fresh channel. MRCPv1 passes nil (no per-channel transport; the
// session-level signaling carries control traffic directly).
func (s *Session) controlTransportFor(mrcptypes.MediaDescriptor) channel.ControlChannel {
	return channel.NewSyncControlChannel()
}

func (s *Session) channelAt(id int) *channel.Channel {
	for _, c := range s.Channels {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) modifyChannel(c *channel.Channel, desc mrcptypes.MediaDescriptor) {
	if c.Control == nil {
		return // MRCPv1: modify is a no-op, no transport to renegotiate
	}
	pending, err := c.Control.Modify(desc, func(port int) { s.setControlAnswer(desc, port) })
	if err != nil {
		s.Answer.Status = mrcptypes.StatusUnavailableResource
		return
	}
	if pending {
		c.WaitingForChannel = true
		s.bump(1)
	}
}

// setControlAnswer synthesizes the answer for one MRCPv2 control
// position once its channel work is known to have settled: port 0 for
// the no-async-work case, the real negotiated port once a control
// transport supplies one on async completion, mirroring the original's
// mrcp_server_control_media_offer_process / mrcp_server_on_channel_modify.
func (s *Session) setControlAnswer(desc mrcptypes.MediaDescriptor, port int) {
	if desc.ID < 0 || desc.ID >= len(s.Answer.Control) {
		return
	}
	s.Answer.Control[desc.ID] = mrcptypes.MediaDescriptor{
		Kind:         mrcptypes.MediaControl,
		ID:           desc.ID,
		Mid:          desc.Mid,
		Cmid:         desc.Cmid,
		ResourceName: desc.ResourceName,
		Local:        &mrcptypes.AudioEndpoint{Port: port},
	}
}

// resolveControlPosition resolves resourceName to an engine channel,
// creates the Channel record and its method state machine, and opens
// the engine channel (spec.md §4.3 bullet 2-4).
func (s *Session) resolveControlPosition(desc mrcptypes.MediaDescriptor, ctl channel.ControlChannel) {
	c := &channel.Channel{ResourceName: desc.ResourceName, Control: ctl, ID: desc.ID, Mid: desc.Cmid}
	s.Channels = append(s.Channels, c)

	factory, err := s.Profile.Resolve(desc.ResourceName)
	if err != nil {
		s.Answer.Status = mrcptypes.StatusNoSuchResource
		return
	}
	engineChannel, err := factory(desc.ResourceName)
	if err != nil {
		s.Answer.Status = mrcptypes.StatusUnacceptableResource
		return
	}
	c.ResourceHandle = engineChannel
	c.Engine = engineChannel
	c.Machine = methodfsm.NewGeneric()

	onOpen := func(port int) {
		if ctl != nil {
			s.setControlAnswer(desc, port)
		}
	}
	if pending, err := c.Engine.Open(onOpen); err != nil {
		s.Answer.Status = mrcptypes.StatusUnavailableResource
	} else if pending {
		c.WaitingForChannel = true
		s.bump(1)
	}

	if term := c.Engine.Termination(); term != nil {
		s.pendingBatch.AddTermination(term, nil)
	}
}

// processAudioOffer runs spec.md §4.3 "Audio-media offer" over every
// position in the offer's audio array.
func (s *Session) processAudioOffer(audio []mrcptypes.MediaDescriptor) {
	for i := range audio {
		desc := audio[i]
		desc.ID = i
		if desc.Mid == "" {
			continue
		}
		slot := s.slotByMid(desc.Mid)
		isNew := slot == nil
		if isNew {
			slot = &terminationSlot{Mid: desc.Mid, Term: termination.New(termination.KindRTP, desc.Mid)}
			s.Slots = append(s.Slots, slot)
		}

		slot.channelIdx = slot.channelIdx[:0]
		for idx, c := range s.Channels {
			if c.Mid == desc.Mid {
				slot.channelIdx = append(slot.channelIdx, idx)
			}
		}

		rtpDesc := &mrcptypes.RTPDescriptor{Remote: desc.Remote, Codec: desc.Codec, Mode: desc.Mode}
		if isNew {
			s.pendingBatch.AddTermination(slot.Term, rtpDesc)
		} else {
			s.pendingBatch.ModifyTermination(slot.Term, rtpDesc)
		}
		slot.Waiting = true

		for _, idx := range slot.channelIdx {
			c := s.Channels[idx]
			if c.Engine == nil {
				continue
			}
			if engTerm := c.Engine.Termination(); engTerm != nil {
				s.pendingBatch.AddAssociation(slot.Term, engTerm)
			}
		}
	}
}

// finishAnswer sends the assembled answer to the front-end and
// re-enters NONE, popping the next queued signaling message (spec.md
// §4.3 step 7 and "Signaling message serialization").
func (s *Session) finishAnswer() {
	s.enterState(StateNone)
	if !s.answerStart.IsZero() {
		metrics.AnswerLatencySeconds.Observe(time.Since(s.answerStart).Seconds())
	}
	metrics.AnswerStatusTotal.WithLabelValues(s.Answer.Status.String()).Inc()
	s.publishEvent(eventexport.EventAnswered, s.Answer.Status)
	if s.OnAnswer != nil {
		s.OnAnswer(s.Answer)
	}
	s.completeActive()
}

// handleTerminationResponse applies spec.md §4.3 "Termination response
// handling" for ADD_TERMINATION/MODIFY_TERMINATION completions.
func (s *Session) handleTerminationResponse(ev mediaengine.CompletionEvent) {
	if slot := s.slotByTermination(ev.Term); slot != nil && slot.Waiting {
		slot.Waiting = false
		if ev.Local != nil {
			i := s.slotIndex(slot)
			if i >= 0 && i < len(s.Answer.Audio) {
				s.Answer.Audio[i] = mrcptypes.MediaDescriptor{
					Kind: mrcptypes.MediaAudio, ID: i, Mid: slot.Mid,
					Local: ev.Local, Remote: *ev.Local, Mode: ev.Term.Mode,
				}
			}
		}
		return
	}
	if c := s.channelByEngineTermination(ev.Term); c != nil && c.WaitingForTermination {
		c.WaitingForTermination = false
	}
}

// handleSubtractResponse applies the same bookkeeping for
// SUBTRACT_TERMINATION completions, without copying any descriptor.
func (s *Session) handleSubtractResponse(ev mediaengine.CompletionEvent) {
	if slot := s.slotByTermination(ev.Term); slot != nil {
		slot.Waiting = false
		return
	}
	if c := s.channelByEngineTermination(ev.Term); c != nil {
		c.WaitingForTermination = false
	}
}

func (s *Session) slotIndex(target *terminationSlot) int {
	for i, slot := range s.Slots {
		if slot == target {
			return i
		}
	}
	return -1
}
