package wire

import "testing"

func TestCanonicalizeIdempotent(t *testing.T) {
	cases := []string{"foo", "foo\nbar", "", "foo\n\x00garbage", "exactly-sixty-three-bytes-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}
	for _, c := range cases {
		once := Canonicalize(c, ChannelMax)
		twice := Canonicalize(once, ChannelMax)
		if once != twice {
			t.Fatalf("canonicalize not idempotent for %q: once=%q twice=%q", c, once, twice)
		}
	}
}

func TestCanonicalizeNewlineBecomesTerminator(t *testing.T) {
	got := Canonicalize("foo\nbar", ChannelMax)
	if got != "foo" {
		t.Fatalf("expected %q, got %q", "foo", got)
	}
}

func TestS2SJoinRoundTrip(t *testing.T) {
	origin := Addr{IP: [4]byte{10, 0, 0, 1}, Port: 9001}
	j := NewS2SJoin(origin, "test-chan")
	frame := j.Marshal()

	tag, f, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if tag != TagS2SJoin {
		t.Fatalf("expected TagS2SJoin, got %v", tag)
	}
	got := f.(*S2SJoin)
	if !got.Origin.Equal(origin) {
		t.Fatalf("expected origin %v, got %v", origin, got.Origin)
	}
	if got.Channel != "test-chan" {
		t.Fatalf("expected channel %q, got %q", "test-chan", got.Channel)
	}
}

func TestS2SSayRoundTrip(t *testing.T) {
	origin := Addr{IP: [4]byte{127, 0, 0, 1}, Port: 9002}
	s := NewS2SSay(origin, 42, "alice", "X", "hi")
	frame := s.Marshal()

	tag, f, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if tag != TagS2SSay {
		t.Fatalf("expected TagS2SSay, got %v", tag)
	}
	got := f.(*S2SSay)
	if got.Id != 42 || got.User != "alice" || got.Channel != "X" || got.Text != "hi" {
		t.Fatalf("unexpected roundtrip result: %+v", got)
	}
}

func TestDecodeTruncatedFrame(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2}); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	frame := make([]byte, 4)
	byteOrder.PutUint32(frame, 9999)
	if _, _, err := Decode(frame); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}
