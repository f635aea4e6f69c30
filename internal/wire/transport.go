package wire

import (
	"context"
	"fmt"
	"net"
)

// Frame is exactly one decoded wire frame, outbound or inbound. Exactly
// one of Sample, Reply or Query is non-nil; ReplyFinal only applies when
// Reply is set.
//
// Putting the frame-kind switch here, in the transport boundary, means
// callers never handle raw bytes: a peer either hands Transport.Send a
// Frame built from session types, or gets one back from Transport.Receive
// already decoded and ready to feed to a Session method.
type Frame struct {
	Sample     *SampleFrame
	Reply      *ReplyFrame
	Query      *QueryFrame
	ReplyFinal bool
}

// encode serializes f to its wire form.
func (f Frame) encode() ([]byte, error) {
	switch {
	case f.Sample != nil:
		return EncodeSample(*f.Sample), nil
	case f.Reply != nil:
		return EncodeReply(*f.Reply, f.ReplyFinal), nil
	case f.Query != nil:
		return EncodeQuery(*f.Query), nil
	default:
		return nil, fmt.Errorf("wire: empty frame has nothing to encode")
	}
}

// decodeFrame parses a raw packet into a Frame by switching on its
// leading FrameKind byte.
func decodeFrame(packet []byte) (Frame, error) {
	if len(packet) == 0 {
		return Frame{}, fmt.Errorf("wire: empty packet")
	}

	switch FrameKind(packet[0]) {
	case FrameSample:
		f, err := DecodeSample(packet)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Sample: &f}, nil

	case FramePartialReply, FrameFinalReply:
		f, final, err := DecodeReply(packet)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Reply: &f, ReplyFinal: final}, nil

	case FrameQuery:
		f, err := DecodeQuery(packet)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Query: &f}, nil

	default:
		return Frame{}, fmt.Errorf("wire: unrecognized frame kind %d", packet[0])
	}
}

// Transport abstracts network operations for sending and receiving
// frames, decoupling the demo codec from a specific network
// implementation so tests can substitute an in-process fake.
//
// Implementations:
//   - UDPv4Transport: multicast transport used by cmd/zenlited
//   - any in-process fake a test wants to substitute
type Transport interface {
	// Send encodes frame and transmits it to dest.
	Send(ctx context.Context, frame Frame, dest net.Addr) error

	// Receive waits for an incoming packet, decodes it, and returns the
	// result along with the sender and the OS interface index that
	// received it (0 if unknown). Respects context cancellation/deadline.
	Receive(ctx context.Context) (frame Frame, srcAddr net.Addr, interfaceIndex int, err error)

	// Close releases network resources.
	Close() error
}
