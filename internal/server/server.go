// Package server wires the shared datagram socket to the routing core,
// the membership store, and the client request handler, and drives the
// two periodic background tasks the process needs: the S2S refresh tick
// and the user-keepalive reaper. Both run as ticks on the same select
// loop that dispatches incoming datagrams, so there is never more than
// one goroutine touching the routing tables or membership store.
package server

import (
	"net"
	"time"

	"github.com/thejanjan/duckchat/internal/clientreq"
	"github.com/thejanjan/duckchat/internal/membership"
	"github.com/thejanjan/duckchat/internal/topology"
	"github.com/thejanjan/duckchat/internal/wire"
)

// bufferSize bounds one read; comfortably larger than the largest frame
// (S2S_SAY: tag + addr + id + USERNAME_MAX + CHANNEL_MAX + SAY_MAX).
const bufferSize = 2048

// Logger is the full ambient+contract logging surface the server wires
// into its collaborators.
type Logger interface {
	topology.Logger
	clientreq.Logger
	Info(component, msg string)
	Warn(component, msg string, err error)
	Fatal(component, msg string, err error)
}

// Conn is the subset of *net.UDPConn the dispatcher needs, narrowed so
// the dispatch loop is testable without a real socket.
type Conn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	Close() error
}

// Server owns the shared socket and the per-process singletons it wires
// together: the membership store, the routing core, and the client
// request handler.
type Server struct {
	self   wire.Addr
	conn   Conn
	store  *membership.Store
	topo   *topology.Topology
	client *clientreq.Handler
	log    Logger

	refreshInterval time.Duration
}

// New builds a Server. peers is the fixed, startup-configured peer list:
// it is never added to or removed from at runtime.
func New(self wire.Addr, peers []wire.Addr, conn Conn, log Logger, refreshInterval time.Duration) *Server {
	s := &Server{self: self, conn: conn, log: log, refreshInterval: refreshInterval}
	s.store = membership.New(s)
	s.topo = topology.New(self, peers, s.store, s, log)
	s.client = clientreq.New(self, s.store, s.topo, s, log)
	return s
}

// SendTo implements topology.Sender, membership.Sender and
// clientreq.Sender alike: a non-blocking write to the shared socket.
func (s *Server) SendTo(addr wire.Addr, frame []byte) error {
	_, err := s.conn.WriteToUDP(frame, addr.UDPAddr())
	return err
}

// Close releases the underlying socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

type datagramEvent struct {
	from    wire.Addr
	payload []byte
}

// Run starts the dispatcher loop and blocks until stop is closed. All
// topology, membership, and client-request mutation happens on this one
// goroutine, so there are no parallel readers/writers on the routing tables; the
// socket reader runs on its own goroutine only because net.UDPConn has
// no select-compatible non-blocking read, and hands decoded datagrams
// back over a channel so dispatch stays serialized.
func (s *Server) Run(stop <-chan struct{}) {
	datagrams := make(chan datagramEvent, 64)
	go s.recvLoop(datagrams, stop)

	refresh := time.NewTicker(s.refreshInterval)
	defer refresh.Stop()
	keepalive := time.NewTicker(membership.KeepAlive)
	defer keepalive.Stop()

	for {
		select {
		case d, ok := <-datagrams:
			if !ok {
				return
			}
			s.dispatch(d.from, d.payload)
		case <-refresh.C:
			s.topo.Renew()
		case <-keepalive.C:
			s.reapUsers()
		case <-stop:
			return
		}
	}
}

func (s *Server) recvLoop(out chan<- datagramEvent, stop <-chan struct{}) {
	buf := make([]byte, bufferSize)
	for {
		select {
		case <-stop:
			close(out)
			return
		default:
		}

		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-stop:
				close(out)
				return
			default:
			}
			// Transient transport error: log and continue.
			s.log.Warn("server", "recv failed", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		select {
		case out <- datagramEvent{from: wire.AddrFromUDP(addr), payload: payload}:
		case <-stop:
			close(out)
			return
		}
	}
}

// dispatch classifies one datagram by its leading tag and routes it
// either to the routing core (S2S_* tags) or the client request handler
// (everything else).
func (s *Server) dispatch(from wire.Addr, payload []byte) {
	tag, frame, err := wire.Decode(payload)
	if err != nil {
		// Unknown tag or truncated frame: silently drop, never echoed
		// back to the sender.
		return
	}

	switch tag {
	case wire.TagS2SJoin:
		j := frame.(*wire.S2SJoin)
		s.topo.JoinRecv(from, j.Channel)
	case wire.TagS2SLeave:
		l := frame.(*wire.S2SLeave)
		s.topo.LeaveRecv(from, l.Channel)
	case wire.TagS2SSay:
		say := frame.(*wire.S2SSay)
		s.topo.SayRecv(from, say.Id, say.User, say.Channel, say.Text)
	default:
		// Every client-boundary request implicitly heartbeats its
		// sender, regardless of which request it turns out to be.
		s.store.Heartbeat(from)
		s.client.Handle(from, tag, frame)
	}
}

func (s *Server) reapUsers() {
	for _, addr := range s.store.ReapExpired(time.Now()) {
		s.log.Info("server", "removing a user (failed to respond to heartbeat): "+addr.String())
	}
}
