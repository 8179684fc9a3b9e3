package et

import "testing"

func TestPacketKindByteRoundTrip(t *testing.T) {
	for b := 0; b <= 0xff; b++ {
		got := PacketKindFromByte(uint8(b)).Byte()
		if got != uint8(b) {
			t.Fatalf("PacketKindFromByte(%#x).Byte() = %#x, want %#x", b, got, b)
		}
	}
}

func TestPacketKindNamedVariants(t *testing.T) {
	cases := []struct {
		b    uint8
		want PacketKindTag
	}{
		{1, KindConnect},
		{2, KindConnectionEstablished},
		{3, KindEvent},
		{4, KindAck},
		{0xAA, KindOther},
	}
	for _, c := range cases {
		if got := PacketKindFromByte(c.b).Tag; got != c.want {
			t.Errorf("PacketKindFromByte(%#x).Tag = %v, want %v", c.b, got, c.want)
		}
	}
}
