package et

import (
	"encoding/binary"
	"fmt"
	"net"
	"testing"

	"cloudproto/pkg/cloudproto/framing"
)

func newPipe() (*framing.Socket, *framing.Socket) {
	a, b := net.Pipe()
	return framing.NewSocket(a), framing.NewSocket(b)
}

func TestConnectHandshake(t *testing.T) {
	clientSock, serverSock := newPipe()
	info := NewSimpleConnectInfo([16]byte{0xAA, 0xBB})

	serverDone := make(chan error, 1)
	go func() {
		pkt, err := serverSock.ReadPacket()
		if err != nil {
			serverDone <- err
			return
		}
		if pkt.Magic != framing.MagicTS || PacketKindFromByte(pkt.Kind).Tag != KindConnect || pkt.Version != framing.VersionConnect {
			serverDone <- fmt.Errorf("unexpected connect packet: %+v", pkt)
			return
		}
		resp := ConnectResponse{AgentIDStatus: AgentIDUnchanged, AID: info.AID}
		reply := framing.Packet{
			Magic:   framing.MagicTS,
			Kind:    ConnectionEstablished.Byte(),
			Version: framing.VersionNormal,
			Payload: resp.Encode(),
		}
		if err := serverSock.WritePacket(reply); err != nil {
			serverDone <- err
			return
		}
		serverDone <- serverSock.Flush()
	}()

	session, err := Connect(clientSock, info)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server side: %v", err)
	}
	if session == nil {
		t.Fatal("expected a non-nil session")
	}
}

func TestListenAndAccept(t *testing.T) {
	clientSock, serverSock := newPipe()
	info := NewSimpleConnectInfo([16]byte{0x01})

	clientDone := make(chan error, 1)
	go func() {
		pkt := framing.Packet{
			Magic:   framing.MagicTS,
			Kind:    Connect.Byte(),
			Version: framing.VersionConnect,
			Payload: info.Encode(),
		}
		if err := clientSock.WritePacket(pkt); err != nil {
			clientDone <- err
			return
		}
		if err := clientSock.Flush(); err != nil {
			clientDone <- err
			return
		}
		clientDone <- nil
		// Read the ConnectionEstablished reply so Accept's flush over the
		// unbuffered pipe can complete.
		_, _ = clientSock.ReadPacket()
	}()

	acceptor, gotInfo, err := Listen(serverSock)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := <-clientDone; err != nil {
		t.Fatalf("client side: %v", err)
	}
	if gotInfo != info {
		t.Fatalf("Listen() info = %+v, want %+v", gotInfo, info)
	}

	session, err := acceptor.Accept(ConnectResponse{AgentIDStatus: AgentIDUnchanged, AID: info.AID})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if session == nil {
		t.Fatal("expected a non-nil session")
	}
}

// TestReceiveAcksEveryEvent drives a Session's receive side against a peer
// whose event-writing goroutine never reads ACKs, and checks that each
// event arrives exactly once, in order, and that an ACK with the matching
// txid was sent for each one (P4, P5). The ACKs are read off the peer's
// socket by a separate goroutine running concurrently with event
// production: Receive only has to buffer an ACK for write, not wait for it
// to be flushed (see sendAck), but actually flushing it over the
// unbuffered pipe still needs a reader on the other end.
func TestReceiveAcksEveryEvent(t *testing.T) {
	peerSock, sessionSock := newPipe()
	session := newSession(sessionSock)

	const n = 5
	peerDone := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			ev := NewRawEvent(uint32(0x1000+i), []byte{byte(i)})
			payload := make([]byte, 8, 8+EvtHdrLen+len(ev.Data))
			binary.BigEndian.PutUint64(payload, uint64(0x200+i*0x100))
			payload = append(payload, ev.encode()...)
			pkt := framing.Packet{Magic: framing.MagicTS, Kind: Event.Byte(), Version: framing.VersionNormal, Payload: payload}
			if err := peerSock.WritePacket(pkt); err != nil {
				peerDone <- err
				return
			}
			if err := peerSock.Flush(); err != nil {
				peerDone <- err
				return
			}
		}
		peerDone <- nil
	}()

	type ackResult struct {
		txids []uint64
		err   error
	}
	ackDone := make(chan ackResult, 1)
	go func() {
		var txids []uint64
		for i := 0; i < n; i++ {
			ackPkt, err := peerSock.ReadPacket()
			if err != nil {
				ackDone <- ackResult{txids, err}
				return
			}
			if PacketKindFromByte(ackPkt.Kind).Tag != KindAck {
				ackDone <- ackResult{txids, fmt.Errorf("expected an Ack packet, got kind %#x", ackPkt.Kind)}
				return
			}
			txids = append(txids, binary.BigEndian.Uint64(ackPkt.Payload))
		}
		ackDone <- ackResult{txids, nil}
	}()

	for i := 0; i < n; i++ {
		ev, err := session.Receive()
		if err != nil {
			t.Fatalf("Receive() #%d: %v", i, err)
		}
		if ev.RawEventID != uint32(0x1000+i) {
			t.Fatalf("event #%d raw id = %#x, want %#x", i, ev.RawEventID, 0x1000+i)
		}
	}

	if err := <-peerDone; err != nil {
		t.Fatalf("peer side: %v", err)
	}
	acks := <-ackDone
	if acks.err != nil {
		t.Fatalf("reading acks: %v", acks.err)
	}
	if len(acks.txids) != n {
		t.Fatalf("got %d acks, want %d", len(acks.txids), n)
	}
	for i, got := range acks.txids {
		want := uint64(0x200 + i*0x100)
		if got != want {
			t.Fatalf("ack #%d txid = %#x, want %#x", i, got, want)
		}
	}
}

// TestSendTxidSequence checks outbound txids follow 0x200, 0x300, ... (P6).
func TestSendTxidSequence(t *testing.T) {
	peerSock, sessionSock := newPipe()
	session := newSession(sessionSock)

	const n = 3
	recvDone := make(chan []uint64, 1)
	go func() {
		var got []uint64
		for i := 0; i < n; i++ {
			pkt, err := peerSock.ReadPacket()
			if err != nil {
				recvDone <- got
				return
			}
			got = append(got, binary.BigEndian.Uint64(pkt.Payload[:8]))
		}
		recvDone <- got
	}()

	for i := 0; i < n; i++ {
		if err := session.Send(NewRawEvent(uint32(i), nil)); err != nil {
			t.Fatalf("Send() #%d: %v", i, err)
		}
	}

	got := <-recvDone
	want := []uint64{0x200, 0x300, 0x400}
	if len(got) != len(want) {
		t.Fatalf("got %d txids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("txid #%d = %#x, want %#x", i, got[i], want[i])
		}
	}
}
