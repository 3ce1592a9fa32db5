// Package termination wraps one audio endpoint inside a media context:
// either an RTP termination (talks to the network) or an engine-owned
// termination (talks to a resource engine instance).
package termination

import "firestige.xyz/otus/internal/mrcptypes"

// Unattached is the sentinel slot index carried by a Termination that is
// not currently held by any Media Context, resolving the context<->
// termination cyclic reference via an arena index instead of a pointer
// cycle (spec.md §9 "Cyclic ownership").
const Unattached = -1

// Kind distinguishes the two termination flavors the core allocates.
type Kind int

const (
	KindRTP Kind = iota
	KindEngine
)

// Termination is one endpoint of audio within a Media Context.
type Termination struct {
	Kind Kind
	Name string

	Mode     mrcptypes.StreamMode
	RxCodec  *mrcptypes.CodecDescriptor
	TxCodec  *mrcptypes.CodecDescriptor
	Endpoint mrcptypes.AudioEndpoint // RTP terminations only

	// Slot is the index into the owning Media Context's header array, or
	// Unattached when the termination is not currently held by any context.
	Slot int
}

// New creates a termination with both directions unnegotiated and no
// owning context.
func New(kind Kind, name string) *Termination {
	return &Termination{Kind: kind, Name: name, Slot: Unattached}
}

// CanReceive reports whether this termination's stream accepts RECEIVE
// (i.e. can act as an association source).
func (t *Termination) CanReceive() bool {
	return t != nil && t.Mode.Has(mrcptypes.StreamModeReceive)
}

// CanSend reports whether this termination's stream accepts SEND (i.e.
// can act as an association sink).
func (t *Termination) CanSend() bool {
	return t != nil && t.Mode.Has(mrcptypes.StreamModeSend)
}

// Attached reports whether the termination currently belongs to a Media
// Context.
func (t *Termination) Attached() bool {
	return t.Slot != Unattached
}

// HasDecodeVTable reports whether the rx codec requires an explicit
// decode step before bridging (i.e. it isn't raw/linear PCM).
func (t *Termination) HasDecodeVTable() bool {
	return t.RxCodec != nil && t.RxCodec.Name != "L16" && t.RxCodec.Name != ""
}

// HasEncodeVTable reports whether the tx codec requires an explicit
// encode step after bridging.
func (t *Termination) HasEncodeVTable() bool {
	return t.TxCodec != nil && t.TxCodec.Name != "L16" && t.TxCodec.Name != ""
}
