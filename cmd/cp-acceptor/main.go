// Command cp-acceptor is a reference ET server: it terminates TLS, runs the
// ET handshake against each connecting agent, and then logs the events each
// agent sends while ACKing them automatically. It sends no events of its own.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"cloudproto/internal/cpconfig"
	"cloudproto/internal/telemetry"
	"cloudproto/pkg/cloudproto/et"
	"cloudproto/pkg/cloudproto/framing"
)

func main() {
	var cfgPath string
	var metricsAddr string
	flag.StringVar(&cfgPath, "c", "config.yaml", "config path")
	flag.StringVar(&metricsAddr, "metrics", "", "metrics listen address, e.g. :9100")
	flag.Parse()

	cfg, err := cpconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if metricsAddr != "" {
		telemetry.Enable()
		go func() {
			if err := telemetry.StartServer(ctx, metricsAddr); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		log.Printf("metrics listening on %s", metricsAddr)
	}

	tlsCert, err := tls.LoadX509KeyPair(cfg.Listen.CertFile, cfg.Listen.KeyFile)
	if err != nil {
		log.Fatalf("load tls cert: %v", err)
	}
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{tlsCert}, MinVersion: tls.VersionTLS12}

	ln, err := tls.Listen("tcp", cfg.Listen.Address, tlsConfig)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.Listen.Address, err)
	}
	log.Printf("ET acceptor listening on %s", cfg.Listen.Address)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutting down...")
		cancel()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(ctx, cfg, conn)
	}
}

func handleConn(ctx context.Context, cfg *cpconfig.Config, conn net.Conn) {
	defer conn.Close()

	sock := framing.NewSocketWithMaxFrameLength(conn, cfg.Framing.MaxFrameLength)
	acceptor, info, err := et.Listen(sock)
	if err != nil {
		log.Printf("handshake: %v", err)
		return
	}

	reply := et.ConnectResponse{AgentIDStatus: et.AgentIDUnchanged, AID: info.AID}
	session, err := acceptor.Accept(reply)
	if err != nil {
		log.Printf("accept: %v", err)
		return
	}
	log.Printf("ET session %s established for cid=%x", session.ID(), info.CID)

	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := session.Receive()
		if err != nil {
			log.Printf("session %s ended: %v", session.ID(), err)
			return
		}
		telemetry.EventReceived()
		telemetry.AckSent()
		log.Printf("session %s: received event %s (%d bytes)", session.ID(), ev.IDString(), len(ev.Data))
	}
}
