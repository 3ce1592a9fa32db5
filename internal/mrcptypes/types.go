// Package mrcptypes defines the value types exchanged across the MRCP
// session core's external interfaces: offer/answer descriptors, media
// line descriptors, codec descriptors, and the status codes observable
// in an answer. Wire-level SDP/RTSP/MRCPv2 codecs are out of scope —
// these are the in-memory shapes a signaling front-end already produced.
package mrcptypes

// Version distinguishes the MRCPv1 (RTSP-carried) and MRCPv2 (SDP m-line)
// signaling discriminant carried on the signaling agent.
type Version int

const (
	VersionUnknown Version = iota
	VersionV1
	VersionV2
)

// Status is an answer status code observable by the client.
type Status int

const (
	StatusOK Status = iota
	StatusNoSuchResource
	StatusUnacceptableResource
	StatusUnavailableResource
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoSuchResource:
		return "NO_SUCH_RESOURCE"
	case StatusUnacceptableResource:
		return "UNACCEPTABLE_RESOURCE"
	case StatusUnavailableResource:
		return "UNAVAILABLE_RESOURCE"
	default:
		return "UNKNOWN"
	}
}

// StreamMode is a bitmask of directions a termination's audio stream
// supports.
type StreamMode int

const (
	StreamModeNone    StreamMode = 0
	StreamModeSend    StreamMode = 1 << 0
	StreamModeReceive StreamMode = 1 << 1
)

func (m StreamMode) Has(flag StreamMode) bool { return m&flag == flag }

// CodecDescriptor identifies a negotiated codec on one direction of a
// termination's audio stream.
type CodecDescriptor struct {
	PayloadType  uint8
	Name         string
	SamplingRate uint32
	Channels     uint8
}

// Matches reports whether two descriptors represent the identical codec,
// sample rate and channel count — the null-bridge eligibility test.
func (d CodecDescriptor) Matches(other CodecDescriptor) bool {
	return d.Name == other.Name &&
		d.SamplingRate == other.SamplingRate &&
		d.Channels == other.Channels
}

// AudioEndpoint is the network-facing half of an RTP termination's
// negotiated address, filled in by the media engine on ADD/MODIFY_TERMINATION
// completion and copied into the answer's audio media descriptor.
type AudioEndpoint struct {
	IP    string
	ExtIP string
	Port  int
}

// RTPDescriptor is what the session batches into ADD_TERMINATION /
// MODIFY_TERMINATION for an RTP termination: the remote offer. The
// media engine does not write Local; it reports the local endpoint on
// the command's CompletionEvent instead.
type RTPDescriptor struct {
	Remote AudioEndpoint
	Codec  CodecDescriptor
	Mode   StreamMode
	Local  *AudioEndpoint // not filled in by the media engine
}

// MediaDescriptor is one m-line position in an offer or answer: audio,
// video, or an MRCPv2 control (application/mrcpv2) line.
type MediaDescriptor struct {
	Kind         MediaKind
	ID           int    // position in the owning array (SDP m-line index)
	Mid          string // audio/video grouping tag
	Cmid         string // control-media grouping tag, links to an audio Mid
	ResourceName string // control lines only
	Mode         StreamMode
	Codec        CodecDescriptor
	Remote       AudioEndpoint
	Local        *AudioEndpoint
	IsNull       bool // true for an unanswered/placeholder media line
}

// MediaKind discriminates a MediaDescriptor's role.
type MediaKind int

const (
	MediaAudio MediaKind = iota
	MediaVideo
	MediaControl
)

// SessionDescriptor is the offer or in-progress answer carried by an
// OFFER message / produced by the orchestrator. MRCPv1 sessions populate
// ResourceName/ResourceState/Status directly; MRCPv2 sessions populate
// the Control array instead.
type SessionDescriptor struct {
	ResourceName  string
	ResourceState string
	Status        Status
	Control       []MediaDescriptor
	Audio         []MediaDescriptor
	Video         []MediaDescriptor
}

// NewAnswerFrom builds a fresh answer descriptor by copying the
// resource-level scalar fields from offer and filling every control and
// audio slot with a null placeholder, per spec §4.3 step 2. Video
// entries are copied from the offer unchanged (inert pass-through).
func NewAnswerFrom(offer *SessionDescriptor) *SessionDescriptor {
	answer := &SessionDescriptor{
		ResourceName:  offer.ResourceName,
		ResourceState: offer.ResourceState,
		Status:        offer.Status,
		Control:       make([]MediaDescriptor, len(offer.Control)),
		Audio:         make([]MediaDescriptor, len(offer.Audio)),
		Video:         make([]MediaDescriptor, len(offer.Video)),
	}
	for i := range answer.Control {
		answer.Control[i] = MediaDescriptor{Kind: MediaControl, ID: i, IsNull: true}
	}
	for i := range answer.Audio {
		answer.Audio[i] = MediaDescriptor{Kind: MediaAudio, ID: i, IsNull: true}
	}
	for i := range answer.Video {
		answer.Video[i] = offer.Video[i]
	}
	return answer
}
