// Package telemetry exposes plain-text counters for cp-agent/cp-acceptor at
// /metrics, in the same hand-rolled exposition format the reference client
// uses instead of pulling in a Prometheus client library.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

type counters struct {
	enabled bool
	mu      sync.RWMutex

	eventsSent     uint64
	eventsReceived uint64
	acksSent       uint64
	ffBytesFetched uint64
	reconnects     uint64
}

var (
	metricsMu sync.RWMutex
	metrics   = counters{}
)

// Enable turns on counter collection; calls before Enable are no-ops.
func Enable() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metrics.enabled = true
}

// StartServer runs an HTTP server exposing /metrics until ctx is done.
func StartServer(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty metrics address")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", metricsHandler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// EventSent records one ET event handed to the transport.
func EventSent() { bump(&metrics.eventsSent) }

// EventReceived records one ET event delivered to the caller.
func EventReceived() { bump(&metrics.eventsReceived) }

// AckSent records one ET ack written to the peer.
func AckSent() { bump(&metrics.acksSent) }

// FFBytesFetched records n decompressed bytes returned from an FF response.
func FFBytesFetched(n uint64) {
	metricsMu.RLock()
	if !metrics.enabled {
		metricsMu.RUnlock()
		return
	}
	metrics.mu.Lock()
	metricsMu.RUnlock()
	defer metrics.mu.Unlock()
	metrics.ffBytesFetched += n
}

// Reconnect records one dial-loop reconnect attempt.
func Reconnect() { bump(&metrics.reconnects) }

func bump(counter *uint64) {
	metricsMu.RLock()
	if !metrics.enabled {
		metricsMu.RUnlock()
		return
	}
	metrics.mu.Lock()
	metricsMu.RUnlock()
	defer metrics.mu.Unlock()
	*counter++
}

// Snapshot is a point-in-time copy of the counters, for tests and direct
// inspection without scraping the HTTP handler.
type Snapshot struct {
	EventsSent     uint64
	EventsReceived uint64
	AcksSent       uint64
	FFBytesFetched uint64
	Reconnects     uint64
}

// Read returns the current counter values.
func Read() Snapshot {
	metrics.mu.RLock()
	defer metrics.mu.RUnlock()
	return Snapshot{
		EventsSent:     metrics.eventsSent,
		EventsReceived: metrics.eventsReceived,
		AcksSent:       metrics.acksSent,
		FFBytesFetched: metrics.ffBytesFetched,
		Reconnects:     metrics.reconnects,
	}
}

func metricsHandler(w http.ResponseWriter, _ *http.Request) {
	metricsMu.RLock()
	enabled := metrics.enabled
	metricsMu.RUnlock()
	if !enabled {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("# metrics disabled\n"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	s := Read()
	fmt.Fprintf(w, "cloudproto_events_sent_total %d\n", s.EventsSent)
	fmt.Fprintf(w, "cloudproto_events_received_total %d\n", s.EventsReceived)
	fmt.Fprintf(w, "cloudproto_acks_sent_total %d\n", s.AcksSent)
	fmt.Fprintf(w, "cloudproto_ff_bytes_fetched_total %d\n", s.FFBytesFetched)
	fmt.Fprintf(w, "cloudproto_reconnects_total %d\n", s.Reconnects)
}
