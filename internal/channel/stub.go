package channel

import (
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
)

// SyncEngineChannel is a synchronous EngineChannel: Open/Close/Dispatch
// complete immediately, never returning pending=true. Resource engine
// plugins (recognizer, synthesizer, recorder logic) are out of scope
// (spec.md §1); this is the stand-in the session core can wire up and
// test against in place of a real plugin, analogous to
// methodfsm.Generic standing in for a real method state machine.
type SyncEngineChannel struct {
	term    *termination.Termination
	machine methodfsm.Machine
}

// NewSyncEngineChannel builds a channel owning term (nil for a
// resource with no audio stream of its own) and dispatching through
// machine.
func NewSyncEngineChannel(term *termination.Termination, machine methodfsm.Machine) *SyncEngineChannel {
	return &SyncEngineChannel{term: term, machine: machine}
}

func (c *SyncEngineChannel) Open(onComplete func(port int)) (pending bool, err error) {
	onComplete(0)
	return false, nil
}
func (c *SyncEngineChannel) Close() (pending bool) { return false }

func (c *SyncEngineChannel) Termination() *termination.Termination { return c.term }

func (c *SyncEngineChannel) Dispatch(req methodfsm.Request, deliver func(methodfsm.Outbound)) error {
	return c.machine.Dispatch(req, deliver)
}

// SyncControlChannel is a synchronous ControlChannel: Modify/Remove
// complete immediately. Send records the last outbound message sent,
// standing in for a real MRCPv2 transport (out of scope, spec.md §1).
type SyncControlChannel struct {
	last *methodfsm.Outbound
}

// NewSyncControlChannel builds an empty synchronous control channel.
func NewSyncControlChannel() *SyncControlChannel { return &SyncControlChannel{} }

func (c *SyncControlChannel) Modify(_ mrcptypes.MediaDescriptor, onComplete func(port int)) (pending bool, err error) {
	onComplete(0)
	return false, nil
}

func (c *SyncControlChannel) Remove() (pending bool) { return false }

func (c *SyncControlChannel) Send(out methodfsm.Outbound) error {
	c.last = &out
	return nil
}

// Last returns the most recent outbound message handed to Send, or nil.
func (c *SyncControlChannel) Last() *methodfsm.Outbound { return c.last }
