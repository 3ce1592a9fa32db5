// Package channel models a session's per-resource control leg: the
// Control Channel half of MRCPv2 signaling transport, and the Engine
// Channel handle to a resource engine instance. The wire codec and the
// resource engine's own logic are external collaborators (spec.md §1);
// this package only defines the interfaces the orchestrator drives and
// the Channel record that holds a resource's state.
package channel

import (
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
)

// ControlChannel is the per-channel half of MRCPv2's signaling
// transport (modify/add/remove + message send). MRCPv1 carries its
// single resource over the session-level transport directly, so a v1
// Channel leaves this nil.
type ControlChannel interface {
	// Modify renegotiates desc against the control transport. onComplete
	// is invoked exactly once with the negotiated port: synchronously
	// before Modify returns if no async work was needed, or later once
	// the transport's own negotiation settles if pending is true.
	Modify(desc mrcptypes.MediaDescriptor, onComplete func(port int)) (pending bool, err error)
	Remove() (pending bool)
	Send(out methodfsm.Outbound) error
}

// EngineChannel is a per-channel handle to a resource engine instance:
// it owns a termination (or none), and turns client request messages
// into engine-specific processing.
type EngineChannel interface {
	// Open resolves the channel against the resource engine. onComplete
	// is invoked exactly once with the negotiated control port, the
	// same way ControlChannel.Modify's callback is: synchronously if
	// opening completed immediately, asynchronously once pending work
	// finishes.
	Open(onComplete func(port int)) (pending bool, err error)
	Close() (pending bool)
	Termination() *termination.Termination
	Dispatch(req methodfsm.Request, deliver func(methodfsm.Outbound)) error
}

// Channel is one resource's control leg within a session (spec.md §3
// "Channel"). Created during offer processing, destroyed when the
// session sends its terminate response.
type Channel struct {
	ResourceName   string
	ResourceHandle any // nil until resolved; presence indicates resolution succeeded

	Control ControlChannel // nil for MRCPv1
	Engine  EngineChannel
	Machine methodfsm.Machine

	ID  int    // position in the SDP control array
	Mid string // grouping tag linking this channel to an audio m-line

	WaitingForChannel     bool
	WaitingForTermination bool
}

// Resolved reports whether resource_name was successfully mapped to an
// engine channel (spec.md §7 "Unknown resource name").
func (c *Channel) Resolved() bool { return c.ResourceHandle != nil }
