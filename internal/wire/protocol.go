package wire

// MulticastAddrIPv4 and Port are the demo scouting group this package's
// UDP transport binds to. They have no bearing on the session core
// itself — wire format and transport are independent concerns from
// subscription/query matching — they only let cmd/zenlited demonstrate
// put/get/sub over a real socket.
const (
	MulticastAddrIPv4 = "224.0.1.22"
	Port              = 7447
)

// FrameKind tags a wire frame's payload shape.
type FrameKind uint8

const (
	FrameSample FrameKind = iota
	FramePartialReply
	FrameFinalReply
	FrameDeclareResource
	FrameDeclareSubscription
	FrameQuery
)

// Frame header bit flags, mirroring the reply_context.header_flags the
// session core expects on FrameKind == FramePartialReply/FrameFinalReply.
const (
	FlagFinal     uint8 = 1 << 0
	FlagTimestamp uint8 = 1 << 1
)
