package wire

import (
	"encoding/binary"
	"fmt"
)

// SampleFrame is the decoded form of a FrameSample wire frame.
type SampleFrame struct {
	KeyExpr    string
	Payload    []byte
	Encoding   string
	Kind       uint8
	Time       uint64
	ReplierID  string // unused for samples; reserved for frame symmetry
}

// ReplyFrame is the decoded form of a FramePartialReply/FrameFinalReply
// wire frame.
type ReplyFrame struct {
	KeyExpr     string
	Payload     []byte
	ReplierID   string
	QueryID     uint64
	ReplierKind uint32
	Flags       uint8
	HasTime     bool
	Time        uint64
}

// QueryFrame is the decoded form of a FrameQuery wire frame: a query
// issued by some peer, this one or another. This package only encodes
// and decodes it; answering an inbound one is left to the caller
// (cmd/zenlited's peer does so).
type QueryFrame struct {
	KeyExpr    string
	Predicate  string
	QueryID    uint64
	TargetKind uint32
}

// EncodeQuery serializes an outbound query frame.
func EncodeQuery(f QueryFrame) []byte {
	buf := []byte{byte(FrameQuery), 0}
	buf = appendUint64(buf, f.QueryID)
	buf = appendUint32(buf, f.TargetKind)
	buf = appendString(buf, f.KeyExpr)
	buf = appendString(buf, f.Predicate)
	return buf
}

// DecodeQuery parses a frame previously produced by EncodeQuery.
func DecodeQuery(b []byte) (QueryFrame, error) {
	if len(b) < 2 || FrameKind(b[0]) != FrameQuery {
		return QueryFrame{}, fmt.Errorf("wire: not a query frame")
	}
	rest := b[2:]

	var f QueryFrame
	var err error
	f.QueryID, rest, err = readUint64(rest)
	if err != nil {
		return QueryFrame{}, err
	}
	f.TargetKind, rest, err = readUint32(rest)
	if err != nil {
		return QueryFrame{}, err
	}
	f.KeyExpr, rest, err = readString(rest)
	if err != nil {
		return QueryFrame{}, err
	}
	f.Predicate, _, err = readString(rest)
	if err != nil {
		return QueryFrame{}, err
	}
	return f, nil
}

// EncodeSample serializes a data sample frame.
func EncodeSample(f SampleFrame) []byte {
	buf := []byte{byte(FrameSample), f.Kind}
	buf = appendUint64(buf, f.Time)
	buf = appendString(buf, f.KeyExpr)
	buf = appendString(buf, f.Encoding)
	buf = appendBytes(buf, f.Payload)
	return buf
}

// DecodeSample parses a frame previously produced by EncodeSample.
func DecodeSample(b []byte) (SampleFrame, error) {
	if len(b) < 2 || FrameKind(b[0]) != FrameSample {
		return SampleFrame{}, fmt.Errorf("wire: not a sample frame")
	}
	f := SampleFrame{Kind: b[1]}
	rest := b[2:]

	var err error
	f.Time, rest, err = readUint64(rest)
	if err != nil {
		return SampleFrame{}, err
	}
	f.KeyExpr, rest, err = readString(rest)
	if err != nil {
		return SampleFrame{}, err
	}
	f.Encoding, rest, err = readString(rest)
	if err != nil {
		return SampleFrame{}, err
	}
	f.Payload, _, err = readBytes(rest)
	if err != nil {
		return SampleFrame{}, err
	}
	return f, nil
}

// EncodeReply serializes a partial or final reply frame. final selects
// FrameFinalReply and sets FlagFinal; a final frame carries only its
// flags, the query id it terminates and the replier kind — the time,
// key, replier id and payload fields are not written.
func EncodeReply(f ReplyFrame, final bool) []byte {
	kind := FramePartialReply
	flags := f.Flags
	if final {
		kind = FrameFinalReply
		flags |= FlagFinal
	}
	if f.HasTime {
		flags |= FlagTimestamp
	}

	buf := []byte{byte(kind), flags}
	buf = appendUint64(buf, f.QueryID)
	buf = appendUint32(buf, f.ReplierKind)
	if final {
		return buf
	}
	buf = appendUint64(buf, f.Time)
	buf = appendString(buf, f.KeyExpr)
	buf = appendString(buf, f.ReplierID)
	buf = appendBytes(buf, f.Payload)
	return buf
}

// DecodeReply parses a frame previously produced by EncodeReply.
func DecodeReply(b []byte) (ReplyFrame, bool, error) {
	if len(b) < 2 {
		return ReplyFrame{}, false, fmt.Errorf("wire: reply frame too short")
	}
	kind := FrameKind(b[0])
	if kind != FramePartialReply && kind != FrameFinalReply {
		return ReplyFrame{}, false, fmt.Errorf("wire: not a reply frame")
	}
	final := kind == FrameFinalReply
	f := ReplyFrame{Flags: b[1], HasTime: b[1]&FlagTimestamp != 0}
	rest := b[2:]

	var err error
	f.QueryID, rest, err = readUint64(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	f.ReplierKind, rest, err = readUint32(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	if final {
		return f, true, nil
	}

	f.Time, rest, err = readUint64(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	f.KeyExpr, rest, err = readString(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	f.ReplierID, rest, err = readString(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	f.Payload, _, err = readBytes(rest)
	if err != nil {
		return ReplyFrame{}, false, err
	}
	return f, false, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func appendBytes(buf []byte, b []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(b)))
	buf = append(buf, tmp[:]...)
	return append(buf, b...)
}

func readUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("wire: truncated uint64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func readUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("wire: truncated uint32")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func readBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("wire: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, fmt.Errorf("wire: truncated payload")
	}
	return b[:n], b[n:], nil
}

func readString(b []byte) (string, []byte, error) {
	raw, rest, err := readBytes(b)
	if err != nil {
		return "", nil, err
	}
	return string(raw), rest, nil
}
