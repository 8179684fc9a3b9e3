// Package backoff computes jittered reconnect delays for cp-agent's dial
// loop.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	rngMu.Lock()
	v := rng.Int63n(n)
	rngMu.Unlock()
	return v
}

// Backoff computes exponentially growing, jittered delays between reconnect
// attempts.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter time.Duration
}

// New returns a Backoff with the reference client's reconnect defaults.
func New() *Backoff {
	return &Backoff{
		Min:    1 * time.Second,
		Max:    30 * time.Second,
		Factor: 1.6,
		Jitter: 200 * time.Millisecond,
	}
}

// Next returns the delay to wait before reconnect attempt number attempt
// (0-based: attempt 0 is the first retry after an initial failure).
func (b *Backoff) Next(attempt int) time.Duration {
	d := b.Min
	for i := 0; i < attempt; i++ {
		d = minDur(time.Duration(float64(d)*b.Factor), b.Max)
	}
	return applyJitter(d, b.Jitter)
}

func applyJitter(d, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return d
	}
	j := randInt63n(int64(2*jitter)+1) - int64(jitter)
	if d+time.Duration(j) < 0 {
		return d
	}
	return d + time.Duration(j)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
