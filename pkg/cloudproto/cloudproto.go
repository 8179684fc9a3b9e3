// Package cloudproto provides a small public surface for reusing this
// repository as a library. The implementation lives in the framing, et and
// ff packages and may be easier to consume directly for advanced use.
package cloudproto

import (
	"cloudproto/pkg/cloudproto/et"
	"cloudproto/pkg/cloudproto/ff"
	"cloudproto/pkg/cloudproto/framing"
)

// --- Framing ---

type Packet = framing.Packet
type Magic = framing.Magic
type Version = framing.Version
type Socket = framing.Socket

func NewSocket(conn framing.Conn) *Socket { return framing.NewSocket(conn) }

func NewSocketWithMaxFrameLength(conn framing.Conn, maxFrameLength int) *Socket {
	return framing.NewSocketWithMaxFrameLength(conn, maxFrameLength)
}

func DecodePacket(frame []byte) (Packet, error) { return framing.Decode(frame) }

// --- ET (event transport) ---

type Event = et.Event
type EventID = et.EventID
type ConnectInfo = et.ConnectInfo
type ConnectResponse = et.ConnectResponse
type Session = et.Session
type Acceptor = et.Acceptor

func NewSimpleConnectInfo(cid [16]byte) ConnectInfo { return et.NewSimpleConnectInfo(cid) }

func NewConnectInfo(cid, unk0, aid, bootID [16]byte, pt [8]byte) ConnectInfo {
	return et.NewConnectInfo(cid, unk0, aid, bootID, pt)
}

func NewEvent(id EventID, data []byte) Event { return et.NewEvent(id, data) }

func NewRawEvent(rawEventID uint32, data []byte) Event { return et.NewRawEvent(rawEventID, data) }

// ETConnect performs the ET client handshake and returns a connected
// Session.
func ETConnect(sock *Socket, info ConnectInfo) (*Session, error) { return et.Connect(sock, info) }

// ETListen waits for an incoming ET client connection.
func ETListen(sock *Socket) (*Acceptor, ConnectInfo, error) { return et.Listen(sock) }

// --- FF (file fetch) ---

type FFRequest = ff.Request
type FFResponse = ff.Response
type FFFileHeader = ff.FileHeader
type CompressionFormat = ff.CompressionFormat

func NewSimpleFFRequest(remotePath string) FFRequest { return ff.NewSimpleRequest(remotePath) }

func NewFFRequest(cid, aid [16]byte, compression CompressionFormat, remotePath string) FFRequest {
	return ff.NewRequest(cid, aid, compression, remotePath)
}

func FFResponseFromPacket(pkt Packet) (*FFResponse, error) { return ff.ResponseFromPacket(pkt) }
