package framing

import (
	"bytes"
	"errors"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	cases := []Packet{
		{Magic: MagicTS, Kind: 3, Version: VersionNormal, Payload: nil},
		{Magic: MagicLFO, Kind: 1, Version: VersionConnect, Payload: []byte{0x01, 0x02, 0x03}},
		{Magic: OtherMagic(0xAB), Kind: 0xFE, Version: OtherVersion(0xBEEF), Payload: bytes.Repeat([]byte{0x42}, 300)},
	}
	for i, p := range cases {
		got, err := Decode(p.Encode())
		if err != nil {
			t.Fatalf("case %d: Decode(Encode(p)) failed: %v", i, err)
		}
		if got.Magic != p.Magic || got.Kind != p.Kind || got.Version != p.Version || !bytes.Equal(got.Payload, p.Payload) {
			t.Fatalf("case %d: round trip mismatch: got %+v, want %+v", i, got, p)
		}
	}
}

// TestPacketScenarioS1 pins the exact wire bytes for a representative packet.
func TestPacketScenarioS1(t *testing.T) {
	p := Packet{
		Magic:   OtherMagic(0xFF),
		Kind:    0x73,
		Version: OtherVersion(0x10E9),
		Payload: []byte("Hello world"),
	}
	want := []byte{0xFF, 0x73, 0x10, 0xE9, 0x00, 0x00, 0x00, 0x13}
	want = append(want, []byte("Hello world")...)

	got := p.Encode()
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % x, want % x", got, want)
	}

	decoded, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Magic != p.Magic || decoded.Kind != p.Kind || decoded.Version != p.Version || !bytes.Equal(decoded.Payload, p.Payload) {
		t.Fatalf("Decode() = %+v, want %+v", decoded, p)
	}
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	if _, err := Decode([]byte{0x8F, 0x01, 0x00, 0x01}); err == nil {
		t.Fatal("expected error decoding a frame shorter than the common header")
	}
}

func TestDecodeRejectsMismatchedLength(t *testing.T) {
	frame := []byte{0x8F, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0C, 0x01, 0x02}
	_, err := Decode(frame)
	if err == nil {
		t.Fatal("expected error decoding a frame whose announced length disagrees with its actual size")
	}
	var sizeErr *BadFrameSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *BadFrameSizeError, got %T: %v", err, err)
	}
}
