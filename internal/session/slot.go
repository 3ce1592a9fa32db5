package session

import "firestige.xyz/otus/internal/termination"

// terminationSlot is one entry in the session's ordered sequence of RTP
// termination slots (spec.md §3 "Session... ordered sequence of RTP
// termination slots").
type terminationSlot struct {
	Mid     string
	Term    *termination.Termination
	Waiting bool
	// channelIdx lists the indices into Session.Channels whose Mid
	// matches this slot's, built fresh on every audio-media offer pass.
	channelIdx []int
}
