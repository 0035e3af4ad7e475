package topology

import (
	"testing"

	"github.com/thejanjan/duckchat/internal/wire"
)

// network is a tiny in-process simulation of three servers exchanging real
// wire frames, used to exercise loop pruning across a cycle of peers end to end rather than one Topology in isolation.
type network struct {
	nodes    map[wire.Addr]*Topology
	pending  []pendingFrame
	counting bool
	sayCount int
}

type pendingFrame struct {
	from, to wire.Addr
	frame    []byte
}

type netSender struct {
	net  *network
	from wire.Addr
}

func (s *netSender) SendTo(to wire.Addr, frame []byte) error {
	if s.net.counting {
		if tag, err := wire.PeekTag(frame); err == nil && tag == wire.TagS2SSay {
			s.net.sayCount++
		}
	}
	s.net.pending = append(s.net.pending, pendingFrame{from: s.from, to: to, frame: frame})
	return nil
}

// drain processes every queued frame in FIFO order, handing each to its
// destination's Topology as the dispatcher would. Processing a frame may
// enqueue more frames (a forward, a prune LEAVE), so draining continues
// until the network is quiescent, matching real convergence rather than a fixed
// number of hops.
func (n *network) drain() {
	for len(n.pending) > 0 {
		f := n.pending[0]
		n.pending = n.pending[1:]
		tag, frame, err := wire.Decode(f.frame)
		if err != nil {
			continue
		}
		topo := n.nodes[f.to]
		switch tag {
		case wire.TagS2SJoin:
			j := frame.(*wire.S2SJoin)
			topo.JoinRecv(f.from, j.Channel)
		case wire.TagS2SLeave:
			l := frame.(*wire.S2SLeave)
			topo.LeaveRecv(f.from, l.Channel)
		case wire.TagS2SSay:
			s := frame.(*wire.S2SSay)
			topo.SayRecv(f.from, s.Id, s.User, s.Channel, s.Text)
		}
	}
}

// newTriangle builds three servers, each already holding a local record
// for "X" with one local user (so the leaf-prune rule never fires), and
// converges their routing tables via one real JOIN flood round so every
// edge of the triangle is populated before the SAY scenario starts.
func newTriangle(t *testing.T) (*network, map[string]wire.Addr) {
	t.Helper()
	ids := map[string]wire.Addr{"A": addr(9001), "B": addr(9002), "C": addr(9003)}
	net := &network{nodes: map[wire.Addr]*Topology{}}

	for name, self := range ids {
		var peers []wire.Addr
		for other, a := range ids {
			if other != name {
				peers = append(peers, a)
			}
		}
		m := newFakeMembership()
		m.channels["X"] = true
		m.users["X"] = 1
		topo := New(self, peers, m, &netSender{net: net, from: self}, nil)
		net.nodes[self] = topo
	}

	for _, topo := range net.nodes {
		topo.JoinSend("X", nil)
	}
	net.drain()

	for name, self := range ids {
		topo := net.nodes[self]
		for _, p := range topo.Peers() {
			if !p.routing.Has("X") {
				t.Fatalf("expected %s's routing table to contain X for peer %s after setup", name, p.Addr)
			}
		}
	}
	return net, ids
}

// TestTriangleFirstSayPrunesRedundantEdge: a SAY injected at A in a fully
// connected A-B-C triangle produces at most 2*edges frames, and the
// duplicate arrivals at B and C trigger LEAVEs that prune the B-C edge.
func TestTriangleFirstSayPrunesRedundantEdge(t *testing.T) {
	net, ids := newTriangle(t)
	a, b, c := ids["A"], ids["B"], ids["C"]

	net.counting = true
	net.nodes[a].SaySend("alice", "X", "m", 0, nil)
	net.drain()

	const edges = 3
	if net.sayCount > 2*edges {
		t.Fatalf("expected at most %d SAY frames on the wire, got %d", 2*edges, net.sayCount)
	}

	// B and C each forward to the other and each receive the other's
	// forward as a duplicate, so both sides of the B-C edge are pruned by
	// duplicate-triggered LEAVEs. A never receives a duplicate, so it
	// sends no LEAVE and keeps its entries for B and C.
	bHasC := net.nodes[b].FindPeer(c).routing.Has("X")
	cHasB := net.nodes[c].FindPeer(b).routing.Has("X")
	if bHasC || cHasB {
		t.Fatalf("expected the redundant B<->C edge to be pruned on both sides after the duplicate, got bHasC=%v cHasB=%v", bHasC, cHasB)
	}
	if !net.nodes[a].FindPeer(b).routing.Has("X") || !net.nodes[a].FindPeer(c).routing.Has("X") {
		t.Fatal("expected A's own routing entries for B and C to survive untouched")
	}

	// At-most-once local delivery: B and C each deliver exactly once. The
	// routing core delivers nothing at origin A, since SaySend only
	// forwards; local delivery at the origin is the client request
	// handler's job.
	for name, self := range ids {
		want := 1
		if self == a {
			want = 0
		}
		m := net.nodes[self].membership.(*fakeMembership)
		if len(m.delivered) != want {
			t.Fatalf("expected %d local delivery at %s, got %d", want, name, len(m.delivered))
		}
	}
}

// TestTriangleSecondSayStopsAtPrunedEdge: once the redundant edge is
// pruned, a subsequent SAY from A produces only the two direct
// A-originated frames: neither B nor C re-forwards across the edge that
// was pruned by the first round's duplicate.
func TestTriangleSecondSayStopsAtPrunedEdge(t *testing.T) {
	net, ids := newTriangle(t)
	a := ids["A"]

	net.nodes[a].SaySend("alice", "X", "first", 0, nil)
	net.drain()

	net.counting = true
	net.sayCount = 0
	net.nodes[a].SaySend("alice", "X", "second", 0, nil)
	net.drain()

	const edges = 3
	if net.sayCount > edges-1 {
		t.Fatalf("expected at most %d SAY frames once the redundant edge is pruned, got %d", edges-1, net.sayCount)
	}
}
