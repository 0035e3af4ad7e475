package topology

import (
	"github.com/thejanjan/duckchat/internal/channelset"
	"github.com/thejanjan/duckchat/internal/wire"
)

// Peer is one configured S2S neighbor: its transport address and the
// routing table of channels it is currently downstream for. The socket
// handle is shared process-wide, so a peer here is just an address plus a
// channel set. DuckChat multiplexes everything on one UDP socket rather
// than giving each neighbor its own transport-level mailbox.
type Peer struct {
	Addr    wire.Addr
	routing *channelset.Set
}

func newPeer(addr wire.Addr) *Peer {
	return &Peer{Addr: addr, routing: channelset.New()}
}

// String returns the peer's address in host:port form, used by the
// external logging contract.
func (p *Peer) String() string {
	return p.Addr.String()
}
