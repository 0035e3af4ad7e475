package clientreq

import (
	"testing"

	"github.com/thejanjan/duckchat/internal/membership"
	"github.com/thejanjan/duckchat/internal/topology"
	"github.com/thejanjan/duckchat/internal/wire"
)

type fakeSender struct {
	sent []sentFrame
}

type sentFrame struct {
	to    wire.Addr
	frame []byte
}

func newFakeSender() *fakeSender { return &fakeSender{} }

func (s *fakeSender) SendTo(addr wire.Addr, frame []byte) error {
	s.sent = append(s.sent, sentFrame{addr, frame})
	return nil
}

func (s *fakeSender) last(to wire.Addr) []byte {
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].to == to {
			return s.sent[i].frame
		}
	}
	return nil
}

func (s *fakeSender) countTo(to wire.Addr) int {
	n := 0
	for _, f := range s.sent {
		if f.to == to {
			n++
		}
	}
	return n
}

func addr(port uint16) wire.Addr {
	return wire.Addr{IP: [4]byte{127, 0, 0, 1}, Port: port}
}

func newHandler(sender *fakeSender, peers []wire.Addr) (*Handler, *membership.Store, *topology.Topology) {
	self := addr(9001)
	store := membership.New(sender)
	topo := topology.New(self, peers, store, sender, nil)
	h := New(self, store, topo, sender, nil)
	return h, store, topo
}

func TestLoginForceJoinsCommonAndFloodsOnce(t *testing.T) {
	sender := newFakeSender()
	peer := addr(9002)
	h, store, _ := newHandler(sender, []wire.Addr{peer})
	client := addr(1)

	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})

	if !store.IsInChannel(client, "Common") {
		t.Fatal("expected login to force-join the Common channel")
	}
	if sender.countTo(peer) != 1 {
		t.Fatalf("expected one JOIN flood for the newly created Common channel, got %d", sender.countTo(peer))
	}
}

func TestLoginReplacesStaleSession(t *testing.T) {
	sender := newFakeSender()
	h, store, _ := newHandler(sender, nil)
	client := addr(1)

	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})
	h.handleLogin(client, &wire.ReqLogin{Username: "alice2"})

	u, ok := store.GetUser(client)
	if !ok || u.Username != "alice2" {
		t.Fatal("expected the second login to replace the first session")
	}
}

func TestJoinRejectsWhenNotLoggedIn(t *testing.T) {
	sender := newFakeSender()
	h, _, _ := newHandler(sender, nil)
	client := addr(1)

	h.handleJoin(client, &wire.ReqJoin{Channel: "X"})

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one error reply, got %d", len(sender.sent))
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	sender := newFakeSender()
	h, _, _ := newHandler(sender, nil)
	client := addr(1)
	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})
	h.handleJoin(client, &wire.ReqJoin{Channel: "X"})

	before := len(sender.sent)
	h.handleJoin(client, &wire.ReqJoin{Channel: "X"})

	if len(sender.sent) != before+1 {
		t.Fatal("expected exactly one more reply (the rejection) on duplicate join")
	}
}

func TestLeaveSendsS2SLeaveWhenChannelDrainsLocally(t *testing.T) {
	sender := newFakeSender()
	peer := addr(9002)
	h, store, _ := newHandler(sender, []wire.Addr{peer})
	client := addr(1)
	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})
	h.handleJoin(client, &wire.ReqJoin{Channel: "X"})

	before := sender.countTo(peer)
	h.handleLeave(client, &wire.ReqLeave{Channel: "X"})

	if store.HasChannel("X") {
		t.Fatal("expected the local channel record to be gone once the only member leaves")
	}
	if sender.countTo(peer) != before+1 {
		t.Fatal("expected a LEAVE to be flooded once the channel drains locally")
	}
}

func TestSayDeliversLocallyAndFloodsDownstream(t *testing.T) {
	sender := newFakeSender()
	peer := addr(9002)
	h, store, topo := newHandler(sender, []wire.Addr{peer})
	client := addr(1)
	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})
	h.handleJoin(client, &wire.ReqJoin{Channel: "X"})
	topo.JoinRecv(peer, "X") // peer is downstream-subscribed to X

	before := sender.countTo(peer)
	beforeClient := sender.countTo(client)
	h.handleSay(client, &wire.ReqSay{Channel: "X", Text: "hi"})

	if sender.countTo(client) != beforeClient+1 {
		t.Fatal("expected the say to be delivered to the local channel member")
	}
	if sender.countTo(peer) != before+1 {
		t.Fatal("expected the say to be forwarded to the subscribed peer")
	}
	if !store.IsInChannel(client, "X") {
		t.Fatal("sanity: sender should still be in the channel")
	}
}

func TestWhoRejectsUnknownChannel(t *testing.T) {
	sender := newFakeSender()
	h, _, _ := newHandler(sender, nil)
	client := addr(1)
	h.handleLogin(client, &wire.ReqLogin{Username: "alice"})

	h.handleWho(client, &wire.ReqWho{Channel: "nonexistent"})

	if len(sender.sent) == 0 {
		t.Fatal("expected an error reply for an unknown channel")
	}
}
