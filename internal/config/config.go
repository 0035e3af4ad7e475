// Package config parses DuckChat's startup configuration: a fixed
// positional argv contract plus a handful of operational flags layered
// on top (no config file, no sub-commands).
package config

import (
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/thejanjan/duckchat/internal/wire"
)

// PeersMax bounds the peer list accepted on the command line. A peer
// list this long is almost certainly a misconfiguration, so it is
// rejected at startup rather than silently truncated.
const PeersMax = 100

// DefaultRefreshInterval is the periodic S2S renew tick: a 60s refresh
// gives roughly a 120s soft-state lifetime for each routing entry.
const DefaultRefreshInterval = 60 * time.Second

// Config is the fully-resolved startup configuration for one server.
type Config struct {
	Self            wire.Addr
	Peers           []wire.Addr
	Verbose         bool
	RefreshInterval time.Duration
	LogJSON         bool
}

// Parse parses argv of the form:
// `duckchatd [flags] <bind-host> <bind-port> [<peer-host> <peer-port>] ...`.
// flag.FlagSet consumes any leading `-flag` tokens first; the remaining
// positional arguments are the fixed host/port pairs, which are never
// reordered or otherwise changed.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("duckchatd", flag.ContinueOnError)
	verbose := fs.Bool("verbose", false, "log ambient per-request activity at debug level (S2S exchanges are always logged)")
	refresh := fs.Duration("refresh-interval", DefaultRefreshInterval, "S2S routing refresh tick interval")
	logJSON := fs.Bool("log-json", false, "emit ambient logs as JSON instead of colored console text")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) < 2 || len(rest)%2 != 0 {
		return nil, fmt.Errorf("usage: duckchatd [flags] <bind-host> <bind-port> [<peer-host> <peer-port>] ...")
	}

	self, err := resolveAddr(rest[0], rest[1])
	if err != nil {
		return nil, fmt.Errorf("resolving bind address: %w", err)
	}

	peerArgs := rest[2:]
	if n := len(peerArgs) / 2; n > PeersMax {
		return nil, fmt.Errorf("too many peers: %d exceeds PeersMax=%d", n, PeersMax)
	}

	peers := make([]wire.Addr, 0, len(peerArgs)/2)
	for i := 0; i < len(peerArgs); i += 2 {
		addr, err := resolveAddr(peerArgs[i], peerArgs[i+1])
		if err != nil {
			return nil, fmt.Errorf("resolving peer %s:%s: %w", peerArgs[i], peerArgs[i+1], err)
		}
		peers = append(peers, addr)
	}

	return &Config{
		Self:            self,
		Peers:           peers,
		Verbose:         *verbose,
		RefreshInterval: *refresh,
		LogJSON:         *logJSON,
	}, nil
}

// resolveAddr resolves a host/port pair once, at startup, into the wire
// form compared bit-equal thereafter: no DNS re-resolution happens at
// comparison time.
func resolveAddr(host, port string) (wire.Addr, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, port))
	if err != nil {
		return wire.Addr{}, err
	}
	return wire.AddrFromUDP(udpAddr), nil
}
