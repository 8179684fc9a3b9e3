package et

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"cloudproto/pkg/cloudproto/framing"
)

const (
	hdrTxidSize = 8
	// Values observed from the official client. The server returns large,
	// quickly incrementing txids, but these values are fine for a client.
	firstTxid     = 0x200
	txidIncrement = 0x100
)

// Session streams Events over an established ET connection. Every inbound
// Event is ACKed before it's handed back from Receive; outbound events are
// never tracked for ACKs (see Send).
type Session struct {
	sock *framing.Socket
	id   uuid.UUID

	writeMu  sync.Mutex
	nextTxid uint64

	// pendingAckTxid/pendingEvent implement the single-slot ACK-before-
	// deliver buffer: once an Event is decoded off the wire, its txid is
	// latched here together with the Event until the ACK has been queued
	// for write (not necessarily flushed). If queuing the ACK fails, both
	// stay latched and the next Receive call retries the ACK before
	// returning the Event, so a WritePacket error partway through doesn't
	// silently drop the ACK obligation.
	hasPending     bool
	pendingAckTxid uint64
	pendingEvent   Event
}

func newSession(sock *framing.Socket) *Session {
	return &Session{sock: sock, id: uuid.New(), nextTxid: firstTxid}
}

// Connect performs the ET client handshake over sock and returns a
// connected Session.
func Connect(sock *framing.Socket, info ConnectInfo) (*Session, error) {
	pkt := framing.Packet{
		Magic:   framing.MagicTS,
		Kind:    Connect.Byte(),
		Version: framing.VersionConnect,
		Payload: info.Encode(),
	}
	if err := sock.WritePacket(pkt); err != nil {
		return nil, err
	}
	if err := sock.Flush(); err != nil {
		return nil, err
	}

	reply, err := sock.ReadPacket()
	if err != nil {
		if err == io.EOF {
			return nil, &framing.ClosedByPeerError{Msg: "ET server closed connection"}
		}
		return nil, err
	}
	log.Printf("et: received connect reply: %s", hex.EncodeToString(reply.Payload))

	if reply.Magic != framing.MagicTS {
		return nil, &framing.BadMagicError{Got: reply.Magic, Want: framing.MagicTS}
	}
	replyKind := PacketKindFromByte(reply.Kind)
	if replyKind.Tag != KindConnectionEstablished {
		log.Printf("et: bad connect reply kind %#x, payload %s", reply.Kind, hex.EncodeToString(reply.Payload))
		return nil, &framing.WrongPacketKindError{Got: reply.Kind, Want: ConnectionEstablished.Byte()}
	}
	if reply.Version != framing.VersionNormal {
		log.Printf("et: bad connect reply version %#x, payload %s", reply.Version.Uint16(), hex.EncodeToString(reply.Payload))
		return nil, &framing.BadVersionError{Got: reply.Version, Want: framing.VersionNormal}
	}

	switch {
	case len(reply.Payload) != 17:
		log.Printf("et: connect reply has unexpected size %d, continuing anyway", len(reply.Payload))
	case reply.Payload[0] == byte(AgentIDUnchanged):
		log.Printf("et: connected, AgentID unchanged, received aid=%s", hex.EncodeToString(reply.Payload[1:]))
		if !bytes.Equal(info.AID[:], reply.Payload[1:]) {
			log.Printf("et: server says to keep our AgentID, but replied with a different one")
		}
	case reply.Payload[0] == byte(AgentIDChanged):
		log.Printf("et: connected, AgentID changed, received aid=%s", hex.EncodeToString(reply.Payload[1:]))
		if bytes.Equal(info.AID[:], reply.Payload[1:]) {
			log.Printf("et: server says to change our AgentID, but replied with the same one")
		}
	default:
		log.Printf("et: unexpected agent_id_status byte %#x from server", reply.Payload[0])
	}

	return newSession(sock), nil
}

// Send encodes ev under the next sequential txid and writes it out.
// Outbound ACK tracking is deliberately omitted: the reference server
// never honors it, and tying the send path to the receive path to collect
// ACKs would risk deadlocking a caller that only sends. CP runs over TLS,
// which already guarantees delivery, so there's nothing for ACKs to buy
// here in practice.
func (s *Session) Send(ev Event) error {
	txid := s.nextTxid
	s.nextTxid += txidIncrement

	payload := make([]byte, hdrTxidSize, hdrTxidSize+EvtHdrLen+len(ev.Data))
	binary.BigEndian.PutUint64(payload, txid)
	payload = append(payload, ev.encode()...)

	pkt := framing.Packet{
		Magic:   framing.MagicTS,
		Kind:    Event.Byte(),
		Version: framing.VersionNormal,
		Payload: payload,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.sock.WritePacket(pkt); err != nil {
		return err
	}
	return s.sock.Flush()
}

// Receive blocks until the next Event is available, the peer has cleanly
// closed (io.EOF), or an error occurs. Every Event is ACKed before this
// function returns it, per the ACK-before-deliver invariant: received Ack
// packets and unrecognized packet kinds are consumed and skipped
// internally. ACKing only requires the ack packet to be buffered for
// write, not drained by the peer — see sendAck.
func (s *Session) Receive() (Event, error) {
	for {
		if s.hasPending {
			if err := s.sendAck(s.pendingAckTxid); err != nil {
				return Event{}, err
			}
			s.hasPending = false
			ev := s.pendingEvent
			s.pendingEvent = Event{}
			return ev, nil
		}

		pkt, err := s.sock.ReadPacket()
		if err != nil {
			return Event{}, err
		}

		kind := PacketKindFromByte(pkt.Kind)
		switch kind.Tag {
		case KindAck:
			if len(pkt.Payload) == 8 {
				txid := binary.BigEndian.Uint64(pkt.Payload)
				log.Printf("et: received ack for txid %#x", txid)
			} else {
				log.Printf("et: received ack packet with invalid size %d", len(pkt.Payload))
			}
		case KindEvent:
			if len(pkt.Payload) < hdrTxidSize+EvtHdrLen {
				return Event{}, &framing.PayloadTooShortError{Got: len(pkt.Payload), Min: hdrTxidSize + EvtHdrLen}
			}
			txid := binary.BigEndian.Uint64(pkt.Payload[:hdrTxidSize])
			ev, err := decodeEvent(pkt.Payload[hdrTxidSize:])
			if err != nil {
				return Event{}, err
			}
			log.Printf("et: received event with txid %#x, preparing ack", txid)
			s.hasPending = true
			s.pendingAckTxid = txid
			s.pendingEvent = ev
		default:
			log.Printf("et: received unexpected packet kind %#x, payload %s", pkt.Kind, hex.EncodeToString(pkt.Payload))
		}
	}
}

// sendAck buffers an Ack packet for txid and returns as soon as it's
// queued, without waiting for the peer to drain it. Flushing happens in a
// background goroutine: the reference server never reads acks, so
// requiring a completed flush here would let a passive peer stall Receive
// forever, exactly the deadlock §4.4's AckPending/EventReady split exists
// to avoid. The flush goroutine still takes writeMu, so it can never race
// a concurrent Send's bytes onto the wire out of order.
func (s *Session) sendAck(txid uint64) error {
	payload := make([]byte, hdrTxidSize)
	binary.BigEndian.PutUint64(payload, txid)
	pkt := framing.Packet{
		Magic:   framing.MagicTS,
		Kind:    Ack.Byte(),
		Version: framing.VersionNormal,
		Payload: payload,
	}

	s.writeMu.Lock()
	err := s.sock.WritePacket(pkt)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if err := s.sock.Flush(); err != nil {
			log.Printf("et: flush of ack for txid %#x failed: %v", txid, err)
		}
	}()
	return nil
}

// ID returns a per-session correlation identifier suitable for log lines.
func (s *Session) ID() uuid.UUID { return s.id }
