// Command duckchatd runs one DuckChat server: a single datagram socket
// multiplexing client and server-to-server traffic, the S2S routing core,
// the membership store, and the client request surface.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/thejanjan/duckchat/internal/config"
	"github.com/thejanjan/duckchat/internal/logging"
	"github.com/thejanjan/duckchat/internal/server"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogJSON, cfg.Verbose)

	conn, err := net.ListenUDP("udp4", cfg.Self.UDPAddr())
	if err != nil {
		log.Fatal("server", "socket bind failed", err)
		return // unreachable: Fatal exits the process
	}

	srv := server.New(cfg.Self, cfg.Peers, conn, log, cfg.RefreshInterval)
	defer srv.Close()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()

	log.Info("server", fmt.Sprintf("duckchatd listening on %s, %d peer(s) configured", cfg.Self, len(cfg.Peers)))
	srv.Run(stop)
}
