package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeSample_RoundTrip(t *testing.T) {
	in := SampleFrame{
		KeyExpr:  "a/b/c",
		Payload:  []byte("hello"),
		Encoding: "text/plain",
		Kind:     1,
		Time:     42,
	}

	got, err := DecodeSample(EncodeSample(in))
	if err != nil {
		t.Fatalf("DecodeSample() error = %v", err)
	}
	if got.KeyExpr != in.KeyExpr || !bytes.Equal(got.Payload, in.Payload) || got.Encoding != in.Encoding || got.Kind != in.Kind || got.Time != in.Time {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestEncodeDecodeReply_Partial_RoundTrip(t *testing.T) {
	in := ReplyFrame{
		KeyExpr:     "a/b",
		Payload:     []byte("P1"),
		ReplierID:   "peer-1",
		QueryID:     7,
		ReplierKind: 1,
		HasTime:     true,
		Time:        99,
	}

	got, final, err := DecodeReply(EncodeReply(in, false))
	if err != nil {
		t.Fatalf("DecodeReply() error = %v", err)
	}
	if final {
		t.Fatal("DecodeReply() final = true, want false")
	}
	if got.KeyExpr != in.KeyExpr || !bytes.Equal(got.Payload, in.Payload) || got.ReplierID != in.ReplierID ||
		got.QueryID != in.QueryID || got.ReplierKind != in.ReplierKind || got.Time != in.Time || !got.HasTime {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestEncodeDecodeReply_Final_RoundTrip(t *testing.T) {
	in := ReplyFrame{QueryID: 7, ReplierKind: 1}

	got, final, err := DecodeReply(EncodeReply(in, true))
	if err != nil {
		t.Fatalf("DecodeReply() error = %v", err)
	}
	if !final {
		t.Fatal("DecodeReply() final = false, want true")
	}
	if got.QueryID != in.QueryID {
		t.Errorf("QueryID = %d, want %d", got.QueryID, in.QueryID)
	}
}

func TestDecodeReply_TruncatedErrors(t *testing.T) {
	if _, _, err := DecodeReply([]byte{1}); err == nil {
		t.Error("DecodeReply(short) error = nil, want error")
	}
}

func TestDecodeSample_WrongKindErrors(t *testing.T) {
	reply := EncodeReply(ReplyFrame{QueryID: 1}, true)
	if _, err := DecodeSample(reply); err == nil {
		t.Error("DecodeSample(reply frame) error = nil, want error")
	}
}
