package telemetry

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func resetForTest() {
	metricsMu.Lock()
	metrics = counters{}
	metricsMu.Unlock()
}

func TestCountersNoopUntilEnabled(t *testing.T) {
	resetForTest()
	EventSent()
	if Read().EventsSent != 0 {
		t.Fatal("counter incremented before Enable")
	}
}

func TestCountersIncrementOnceEnabled(t *testing.T) {
	resetForTest()
	Enable()
	EventSent()
	EventSent()
	EventReceived()
	AckSent()
	FFBytesFetched(100)
	FFBytesFetched(50)
	Reconnect()

	s := Read()
	if s.EventsSent != 2 {
		t.Errorf("EventsSent = %d, want 2", s.EventsSent)
	}
	if s.EventsReceived != 1 {
		t.Errorf("EventsReceived = %d, want 1", s.EventsReceived)
	}
	if s.AcksSent != 1 {
		t.Errorf("AcksSent = %d, want 1", s.AcksSent)
	}
	if s.FFBytesFetched != 150 {
		t.Errorf("FFBytesFetched = %d, want 150", s.FFBytesFetched)
	}
	if s.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", s.Reconnects)
	}
}

func TestStartServerServesMetrics(t *testing.T) {
	resetForTest()
	Enable()
	EventSent()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- StartServer(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "cloudproto_events_sent_total 1") {
		t.Errorf("unexpected metrics body: %s", body)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("StartServer: %v", err)
	}
}

func TestStartServerRejectsEmptyAddr(t *testing.T) {
	if err := StartServer(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty address")
	}
}
