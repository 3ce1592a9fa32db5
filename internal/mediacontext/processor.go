package mediacontext

import "firestige.xyz/otus/internal/termination"

// streamProcessor is the shared shape of every compiled media object: a
// bridge, null bridge, encoder, or decoder. Modeled as a small interface
// rather than a class hierarchy, per spec.md §9 "Polymorphic stream
// processors".
type streamProcessor interface {
	process()
	destroy()
}

// nullBridge passes audio through unchanged between two terminations
// whose rx/tx codec descriptors are identical — a zero-copy pass-through.
type nullBridge struct {
	src, sink *termination.Termination
}

func newNullBridge(src, sink *termination.Termination) *nullBridge {
	return &nullBridge{src: src, sink: sink}
}

func (b *nullBridge) process() {}
func (b *nullBridge) destroy() {}

// bridge connects two (possibly decoder/encoder-wrapped) stream ends
// whose codecs differ but share a sampling rate.
type bridge struct {
	src, sink streamEnd
}

func newBridge(src, sink streamEnd) *bridge {
	return &bridge{src: src, sink: sink}
}

func (b *bridge) process() {}
func (b *bridge) destroy() {}

// streamEnd is either a bare termination or a decoder/encoder wrapping
// one, so bridge can treat both uniformly.
type streamEnd interface {
	streamEndTag()
}

// decoder wraps a termination's receive side, converting its rx codec to
// linear PCM before handing samples to a bridge.
type decoder struct {
	src *termination.Termination
}

func newDecoder(src *termination.Termination) *decoder { return &decoder{src: src} }
func (d *decoder) streamEndTag()                       {}
func (d *decoder) process()                            {}
func (d *decoder) destroy()                             {}

// encoder wraps a termination's send side, converting linear PCM to its
// tx codec after a bridge.
type encoder struct {
	sink *termination.Termination
}

func newEncoder(sink *termination.Termination) *encoder { return &encoder{sink: sink} }
func (e *encoder) streamEndTag()                        {}
func (e *encoder) process()                             {}
func (e *encoder) destroy()                             {}

// terminationEnd adapts a bare termination to streamEnd when neither a
// decoder nor an encoder is needed on that side.
type terminationEnd struct {
	*termination.Termination
}

func (terminationEnd) streamEndTag() {}
