package wire

import (
	"bytes"
	"testing"
)

func frameRoundTrip(t *testing.T, f Frame) Frame {
	t.Helper()
	packet, err := f.encode()
	if err != nil {
		t.Fatalf("Frame.encode() error = %v", err)
	}
	got, err := decodeFrame(packet)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	return got
}

func TestFrame_EncodeDecode_Sample(t *testing.T) {
	in := Frame{Sample: &SampleFrame{KeyExpr: "a/b", Payload: []byte("v"), Encoding: "text/plain"}}
	got := frameRoundTrip(t, in)
	if got.Sample == nil {
		t.Fatal("decodeFrame() Sample = nil, want non-nil")
	}
	if got.Sample.KeyExpr != in.Sample.KeyExpr || !bytes.Equal(got.Sample.Payload, in.Sample.Payload) {
		t.Errorf("round trip = %+v, want %+v", got.Sample, in.Sample)
	}
}

func TestFrame_EncodeDecode_PartialReply(t *testing.T) {
	in := Frame{Reply: &ReplyFrame{KeyExpr: "a/b", Payload: []byte("v"), QueryID: 3}}
	got := frameRoundTrip(t, in)
	if got.Reply == nil || got.ReplyFinal {
		t.Fatalf("decodeFrame() = %+v, want non-final reply", got)
	}
	if got.Reply.QueryID != in.Reply.QueryID {
		t.Errorf("QueryID = %d, want %d", got.Reply.QueryID, in.Reply.QueryID)
	}
}

func TestFrame_EncodeDecode_FinalReply(t *testing.T) {
	in := Frame{Reply: &ReplyFrame{QueryID: 3}, ReplyFinal: true}
	got := frameRoundTrip(t, in)
	if got.Reply == nil || !got.ReplyFinal {
		t.Fatalf("decodeFrame() = %+v, want final reply", got)
	}
}

func TestFrame_EncodeDecode_Query(t *testing.T) {
	in := Frame{Query: &QueryFrame{KeyExpr: "a/b", QueryID: 9, TargetKind: 1}}
	got := frameRoundTrip(t, in)
	if got.Query == nil {
		t.Fatal("decodeFrame() Query = nil, want non-nil")
	}
	if got.Query.QueryID != in.Query.QueryID || got.Query.KeyExpr != in.Query.KeyExpr {
		t.Errorf("round trip = %+v, want %+v", got.Query, in.Query)
	}
}

func TestFrame_EncodeEmptyErrors(t *testing.T) {
	if _, err := (Frame{}).encode(); err == nil {
		t.Error("Frame{}.encode() error = nil, want error")
	}
}

func TestDecodeFrame_EmptyPacketErrors(t *testing.T) {
	if _, err := decodeFrame(nil); err == nil {
		t.Error("decodeFrame(nil) error = nil, want error")
	}
}

func TestDecodeFrame_UnknownKindErrors(t *testing.T) {
	if _, err := decodeFrame([]byte{255}); err == nil {
		t.Error("decodeFrame(unknown kind) error = nil, want error")
	}
}
