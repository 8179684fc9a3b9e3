package backoff

import "testing"

func TestNextGrowsAndCaps(t *testing.T) {
	b := &Backoff{Min: 1, Max: 8, Factor: 2, Jitter: 0}
	got := []int64{int64(b.Next(0)), int64(b.Next(1)), int64(b.Next(2)), int64(b.Next(5))}
	want := []int64{1, 2, 4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next(%d) = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestNextStaysNonNegativeUnderJitter(t *testing.T) {
	b := &Backoff{Min: 1, Max: 1, Factor: 1, Jitter: 100}
	for i := 0; i < 1000; i++ {
		if d := b.Next(0); d < 0 {
			t.Fatalf("Next returned negative duration %v", d)
		}
	}
}

func TestNewHasSaneDefaults(t *testing.T) {
	b := New()
	if b.Min <= 0 || b.Max <= b.Min || b.Factor <= 1 {
		t.Fatalf("unexpected defaults: %+v", b)
	}
}
