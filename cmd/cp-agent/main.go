// Command cp-agent is a reference client: it opens an ET session against a
// CP backend, exchanges a handshake, drains inbound events (ACKing each
// automatically) and periodically sends a heartbeat event, reconnecting
// with a jittered backoff whenever the session drops.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudproto/internal/backoff"
	"cloudproto/internal/cpconfig"
	"cloudproto/internal/telemetry"
	"cloudproto/internal/transport"
	"cloudproto/pkg/cloudproto/et"
	"cloudproto/pkg/cloudproto/ff"
	"cloudproto/pkg/cloudproto/framing"
)

func main() {
	var cfgPath string
	var metricsAddr string
	var fetchPath string
	flag.StringVar(&cfgPath, "c", "config.yaml", "config path")
	flag.StringVar(&metricsAddr, "metrics", "", "metrics listen address, e.g. :9100")
	flag.StringVar(&fetchPath, "fetch", "", "fetch a single remote file via FF and exit, instead of running the ET session loop")
	flag.Parse()

	cfg, err := cpconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if fetchPath != "" {
		dialer := transport.NewTLSDialer(cfg.Server.Address, cfg.Server.Port, cfg.Server.ServerName, cfg.Fwmark)
		dialer.Timeout = cfg.DialTimeout
		data, err := fetchFile(ctx, cfg, dialer, fetchPath)
		if err != nil {
			log.Fatalf("fetch %s: %v", fetchPath, err)
		}
		log.Printf("fetched %s: %d bytes", fetchPath, len(data))
		os.Stdout.Write(data)
		return
	}

	if metricsAddr != "" {
		telemetry.Enable()
		go func() {
			if err := telemetry.StartServer(ctx, metricsAddr); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		log.Printf("metrics listening on %s", metricsAddr)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutting down...")
		cancel()
	}()

	dialer := transport.NewTLSDialer(cfg.Server.Address, cfg.Server.Port, cfg.Server.ServerName, cfg.Fwmark)
	dialer.Timeout = cfg.DialTimeout

	b := backoff.New()
	attempt := 0
	for ctx.Err() == nil {
		if err := runSession(ctx, cfg, dialer); err != nil {
			log.Printf("session ended: %v", err)
			telemetry.Reconnect()
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.Next(attempt)):
			}
			attempt++
			continue
		}
		attempt = 0
	}
}

func runSession(ctx context.Context, cfg *cpconfig.Config, dialer *transport.TLSDialer) error {
	conn, err := dialer.DialContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sock := framing.NewSocketWithMaxFrameLength(conn, cfg.Framing.MaxFrameLength)

	info, err := connectInfo(cfg)
	if err != nil {
		return err
	}
	session, err := et.Connect(sock, info)
	if err != nil {
		return err
	}
	log.Printf("ET session %s established", session.ID())

	errc := make(chan error, 2)
	go func() { errc <- receiveLoop(ctx, session) }()
	go func() { errc <- heartbeatLoop(ctx, session) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

func receiveLoop(ctx context.Context, session *et.Session) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := session.Receive()
		if err != nil {
			return err
		}
		telemetry.EventReceived()
		telemetry.AckSent()
		log.Printf("received event %s (%d bytes)", ev.IDString(), len(ev.Data))
	}
}

func heartbeatLoop(ctx context.Context, session *et.Session) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := session.Send(et.NewEvent(et.EventAgentOnline, nil)); err != nil {
				return err
			}
			telemetry.EventSent()
		}
	}
}

// fetchFile dials a fresh connection, issues a single FF request for
// remotePath over it, and returns the decompressed, hash-verified file
// contents. FF has no session state, so each fetch gets its own socket.
func fetchFile(ctx context.Context, cfg *cpconfig.Config, dialer *transport.TLSDialer, remotePath string) ([]byte, error) {
	conn, err := dialer.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sock := framing.NewSocketWithMaxFrameLength(conn, cfg.Framing.MaxFrameLength)

	cid, err := cfg.CIDBytes()
	if err != nil {
		return nil, err
	}
	aid, err := cfg.AIDBytes()
	if err != nil {
		return nil, err
	}
	req := ff.NewRequest(cid, aid, ff.CompressionXz, remotePath)

	pkt := framing.Packet{
		Magic:   framing.MagicLFO,
		Kind:    ff.GetFileRequest.Byte(),
		Version: framing.VersionConnect,
		Payload: req.Encode(),
	}
	if err := sock.WritePacket(pkt); err != nil {
		return nil, err
	}
	if err := sock.Flush(); err != nil {
		return nil, err
	}

	reply, err := sock.ReadPacket()
	if err != nil {
		return nil, err
	}
	resp, err := ff.ResponseFromPacket(reply)
	if err != nil {
		return nil, err
	}
	data, err := resp.Data()
	if err != nil {
		return nil, err
	}
	telemetry.FFBytesFetched(uint64(len(data)))
	return data, nil
}

func connectInfo(cfg *cpconfig.Config) (et.ConnectInfo, error) {
	cid, err := cfg.CIDBytes()
	if err != nil {
		return et.ConnectInfo{}, err
	}
	unk0, err := cfg.Unk0Bytes()
	if err != nil {
		return et.ConnectInfo{}, err
	}
	aid, err := cfg.AIDBytes()
	if err != nil {
		return et.ConnectInfo{}, err
	}
	bootID, err := cfg.BootIDBytes()
	if err != nil {
		return et.ConnectInfo{}, err
	}
	pt, err := cfg.PTBytes()
	if err != nil {
		return et.ConnectInfo{}, err
	}
	return et.NewConnectInfo(cid, unk0, aid, bootID, pt), nil
}
