package session

import (
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/mrcptypes"
)

// MessageKind discriminates the three signaling message kinds a
// front-end feeds the orchestrator (spec.md §6).
type MessageKind int

const (
	MsgOffer MessageKind = iota
	MsgControl
	MsgTerminate
)

// Message is one entry in the session's FIFO signaling queue. Exactly
// one is "active" at a time (spec.md §3 invariant).
type Message struct {
	Kind MessageKind

	// MsgOffer
	Offer *mrcptypes.SessionDescriptor

	// MsgControl
	ChannelID int
	Request   methodfsm.Request
}
