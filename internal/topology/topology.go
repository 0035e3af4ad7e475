// Package topology implements the S2S federation core: per-peer routing
// tables, id-pool loop suppression, and the join/leave/say protocol that
// builds and heals a per-channel spanning subtree over the peer graph.
package topology

import (
	"github.com/thejanjan/duckchat/internal/wire"
)

// PeersMax bounds the configured peer list.
const PeersMax = 100

// Membership is the subset of the membership store's contract the routing
// core needs. A concrete implementation lives in internal/membership; this
// interface exists here, not there, so topology depends on membership's
// shape without membership needing to know about topology.
type Membership interface {
	// HasChannel reports whether the server holds a local record for name.
	HasChannel(name string) bool
	// EnsureChannel creates an empty local channel record if absent,
	// reporting whether it was newly created.
	EnsureChannel(name string) bool
	// UserCount reports how many local users are currently in name.
	UserCount(name string) int
	// DeleteChannel removes the local channel record.
	DeleteChannel(name string)
	// LocalChannels lists every channel the server currently holds locally.
	LocalChannels() []string
	// Deliver hands a say to every local user currently in channel,
	// on-wire as TXT_SAY.
	Deliver(channel, user, text string)
}

// Sender abstracts the shared outbound datagram socket so the routing
// core's sends are non-blocking and testable without a real socket.
type Sender interface {
	SendTo(addr wire.Addr, frame []byte) error
}

// Logger emits the external S2S logging line: one line per send/recv,
// never decorated with timestamps or levels.
type Logger interface {
	LogS2S(self, peer wire.Addr, direction, op, args string)
}

// Topology owns every peer state and the process-wide id pool. It is the
// sole mutator of routing tables; the dispatcher borrows it for the
// lifetime of each datagram.
type Topology struct {
	self       wire.Addr
	peers      []*Peer
	ids        *idPool
	membership Membership
	sender     Sender
	log        Logger
}

// New builds a Topology for the given self address and fixed peer list.
// Peer states are created once at startup and never added to or removed
// from at runtime.
func New(self wire.Addr, peerAddrs []wire.Addr, m Membership, s Sender, l Logger) *Topology {
	peers := make([]*Peer, 0, len(peerAddrs))
	for _, a := range peerAddrs {
		peers = append(peers, newPeer(a))
	}
	return &Topology{
		self:       self,
		peers:      peers,
		ids:        newIdPool(),
		membership: m,
		sender:     s,
		log:        l,
	}
}

// Peers returns the configured peer list, in configuration order.
func (t *Topology) Peers() []*Peer {
	return t.peers
}

// FindPeer returns the Peer matching addr, or nil if addr is not
// configured. Linear scan; the peer list is bounded to PeersMax and this
// is a cold path relative to per-datagram dispatch.
func (t *Topology) FindPeer(addr wire.Addr) *Peer {
	return t.findPeer(addr)
}

func (t *Topology) findPeer(addr wire.Addr) *Peer {
	for _, p := range t.peers {
		if p.Addr.Equal(addr) {
			return p
		}
	}
	return nil
}

func (t *Topology) send(p *Peer, frame []byte, op, args string) {
	if err := t.sender.SendTo(p.Addr, frame); err != nil {
		// Transient transport failure: log and continue. The routing
		// table is already mutated as if the send succeeded; the peer
		// will refresh or prune on its own schedule.
		if t.log != nil {
			t.log.LogS2S(t.self, p.Addr, "send-failed", op, args)
		}
		return
	}
	if t.log != nil {
		t.log.LogS2S(t.self, p.Addr, "send", op, args)
	}
}

func (t *Topology) logRecv(p wire.Addr, op, args string) {
	if t.log != nil {
		t.log.LogS2S(t.self, p, "recv", op, args)
	}
}

// JoinSend floods an S2S_JOIN to every configured peer other than
// exceptPeer. exceptPeer may be nil for a locally originated send (a user
// joined, or the periodic refresh tick).
func (t *Topology) JoinSend(channel string, exceptPeer *Peer) {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	for _, p := range t.peers {
		if p == exceptPeer {
			continue
		}
		p.routing.Add(channel)
		frame := wire.NewS2SJoin(t.self, channel).Marshal()
		t.send(p, frame, "JOIN", channel)
	}
}

// LeaveSend prunes channel from target's routing table and emits one
// S2S_LEAVE, or from every peer's table if target is nil. Leaves are
// never flooded recursively.
func (t *Topology) LeaveSend(channel string, target *Peer) {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	if target != nil {
		t.leaveSendOne(channel, target)
		return
	}
	for _, p := range t.peers {
		t.leaveSendOne(channel, p)
	}
}

func (t *Topology) leaveSendOne(channel string, p *Peer) {
	p.routing.Remove(channel)
	frame := wire.NewS2SLeave(t.self, channel).Marshal()
	t.send(p, frame, "LEAVE", channel)
}

// SaySend forwards a say to every peer downstream for channel, other than
// exceptPeer. If id is zero the caller is the origin: a fresh id is drawn
// and stored before forwarding. Returns the id used and whether any peer
// was sent to; the latter drives the leaf-prune rule in SayRecv.
func (t *Topology) SaySend(user, channel, text string, id uint64, exceptPeer *Peer) (sentID uint64, sentAny bool) {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	if id == 0 {
		fresh, ok := newId()
		if !ok {
			// Non-blocking entropy source unavailable; fall back to 0
			// rather than stall the single dispatcher thread.
			fresh = 0
		}
		id = fresh
		t.ids.store(id)
	}

	for _, p := range t.peers {
		if p == exceptPeer {
			continue
		}
		if !p.routing.Has(channel) {
			continue
		}
		frame := wire.NewS2SSay(t.self, id, user, channel, text).Marshal()
		t.send(p, frame, "SAY", user+" "+channel+" \""+text+"\"")
		sentAny = true
	}
	return id, sentAny
}

// JoinRecv handles an inbound S2S_JOIN. fromAddr is the wire-level source
// address. If it does not match a configured peer there is no routing
// table to update, so that step is skipped, but the channel-record
// creation and re-flood below still run unconditionally: an inbound JOIN
// from an unrecognized address still needs the local channel to exist so
// a subsequent SAY for it isn't discarded as having no local interest.
func (t *Topology) JoinRecv(fromAddr wire.Addr, channel string) {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	t.logRecv(fromAddr, "JOIN", channel)

	fromPeer := t.findPeer(fromAddr)
	if fromPeer != nil {
		fromPeer.routing.Add(channel)
	}

	if t.membership.EnsureChannel(channel) {
		t.JoinSend(channel, fromPeer)
	}

	if fromPeer != nil {
		fromPeer.routing.Renew(channel)
	}
}

// LeaveRecv handles an inbound S2S_LEAVE: remove channel from fromAddr's
// routing table. No onward flood, no local deletion. If fromAddr is not
// configured, drop silently, not even logged, since there is no peer
// identity to attribute the line to.
func (t *Topology) LeaveRecv(fromAddr wire.Addr, channel string) {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	fromPeer := t.findPeer(fromAddr)
	if fromPeer == nil {
		return
	}
	t.logRecv(fromPeer.Addr, "LEAVE", channel)
	fromPeer.routing.Remove(channel)
}

// SayRecv handles an inbound S2S_SAY: duplicate suppression, local-interest
// check, forwarding, leaf prune, and local delivery. fromAddr may not
// match a configured peer, in which case routing-table mutation is
// skipped but id-pool and delivery still run.
func (t *Topology) SayRecv(fromAddr wire.Addr, id uint64, user, channel, text string) bool {
	channel = wire.Canonicalize(channel, wire.ChannelMax)
	t.logRecv(fromAddr, "SAY", user+" "+channel+" \""+text+"\"")
	fromPeer := t.findPeer(fromAddr)

	if t.ids.has(id) {
		// Already seen: prune the redundant link for this channel. Only
		// when fromPeer is a configured peer: LeaveSend(channel, nil)
		// means "every peer", which would be wrong here: an unconfigured
		// sender has no routing-table entry to prune.
		if fromPeer != nil {
			t.LeaveSend(channel, fromPeer)
		}
		return false
	}

	if !t.membership.HasChannel(channel) {
		// Genuinely a leaf off-tree for this channel; no pre-emptive
		// prune, since the channel may still exist further downstream.
		return false
	}

	t.ids.store(id)

	_, sentAny := t.SaySend(user, channel, text, id, fromPeer)

	if !sentAny && t.membership.UserCount(channel) == 0 {
		// Leaf-with-no-users prune: detach entirely.
		t.LeaveSend(channel, nil)
		t.membership.DeleteChannel(channel)
	}

	t.membership.Deliver(channel, user, text)
	return true
}

// Renew runs the periodic refresh tick: re-announce every locally held
// channel to all peers, then age and prune every peer's routing table.
func (t *Topology) Renew() {
	for _, channel := range t.membership.LocalChannels() {
		t.JoinSend(channel, nil)
	}

	for _, p := range t.peers {
		p.routing.Age()
		for {
			expired, ok := p.routing.FindExpired()
			if !ok {
				break
			}
			// Synthesize an inbound leave-recv: P stopped renewing us,
			// so purge local state rather than notifying P.
			t.LeaveRecv(p.Addr, expired)
		}
	}
}
