package et

import (
	"io"

	"cloudproto/pkg/cloudproto/framing"
)

// Acceptor waits for an incoming ET client and, once the caller decides how
// to answer, turns into a connected Session.
type Acceptor struct {
	sock *framing.Socket
}

// Listen waits for one ET Connect packet on sock and returns an Acceptor
// plus the ConnectInfo the client sent. Validation happens in order, each
// step failing with a distinct error so a caller can tell a bad magic from
// a bad version from a short payload.
func Listen(sock *framing.Socket) (*Acceptor, ConnectInfo, error) {
	pkt, err := sock.ReadPacket()
	if err != nil {
		if err == io.EOF {
			return nil, ConnectInfo{}, &framing.ClosedByPeerError{Msg: "ET client closed connection"}
		}
		return nil, ConnectInfo{}, err
	}
	if pkt.Magic != framing.MagicTS {
		return nil, ConnectInfo{}, &framing.BadMagicError{Got: pkt.Magic, Want: framing.MagicTS}
	}
	kind := PacketKindFromByte(pkt.Kind)
	if kind.Tag != KindConnect {
		return nil, ConnectInfo{}, &framing.WrongPacketKindError{Got: pkt.Kind, Want: Connect.Byte()}
	}
	if pkt.Version != framing.VersionConnect {
		return nil, ConnectInfo{}, &framing.BadVersionError{Got: pkt.Version, Want: framing.VersionConnect}
	}
	if len(pkt.Payload) != ConnectInfoLen {
		return nil, ConnectInfo{}, &framing.PayloadInvalidSizeError{Got: len(pkt.Payload), Want: ConnectInfoLen}
	}
	info := DecodeConnectInfo(pkt.Payload)
	return &Acceptor{sock: sock}, info, nil
}

// Accept replies with reply and returns a connected Session.
func (a *Acceptor) Accept(reply ConnectResponse) (*Session, error) {
	pkt := framing.Packet{
		Magic:   framing.MagicTS,
		Kind:    ConnectionEstablished.Byte(),
		Version: framing.VersionNormal,
		Payload: reply.Encode(),
	}
	if err := a.sock.WritePacket(pkt); err != nil {
		return nil, err
	}
	if err := a.sock.Flush(); err != nil {
		return nil, err
	}
	return newSession(a.sock), nil
}
