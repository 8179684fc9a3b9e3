package et

import "testing"

func TestConnectInfoRoundTrip(t *testing.T) {
	info := NewConnectInfo(
		[16]byte{1, 2, 3},
		[16]byte{4, 5, 6},
		[16]byte{7, 8, 9},
		[16]byte{10, 11, 12},
		[8]byte{13, 14},
	)
	encoded := info.Encode()
	if len(encoded) != ConnectInfoLen {
		t.Fatalf("Encode() produced %d bytes, want %d", len(encoded), ConnectInfoLen)
	}
	got := DecodeConnectInfo(encoded)
	if got != info {
		t.Fatalf("DecodeConnectInfo(Encode(info)) = %+v, want %+v", got, info)
	}
}

func TestNewSimpleConnectInfoUsesDefaults(t *testing.T) {
	cid := [16]byte{0xAA}
	info := NewSimpleConnectInfo(cid)
	if info.CID != cid {
		t.Fatalf("CID = %x, want %x", info.CID, cid)
	}
	if info.AID != ([16]byte{}) {
		t.Fatalf("expected zero AID by default, got %x", info.AID)
	}
	zeroUnk0 := [16]byte{}
	if info.Unk0 == zeroUnk0 {
		t.Fatal("expected a non-zero default unk0")
	}
}

func TestConnectResponseEncode(t *testing.T) {
	resp := ConnectResponse{AgentIDStatus: AgentIDUnchanged, AID: [16]byte{0x01, 0x02}}
	got := resp.Encode()
	if len(got) != 17 {
		t.Fatalf("Encode() produced %d bytes, want 17", len(got))
	}
	if got[0] != byte(AgentIDUnchanged) {
		t.Fatalf("status byte = %#x, want %#x", got[0], byte(AgentIDUnchanged))
	}
}
