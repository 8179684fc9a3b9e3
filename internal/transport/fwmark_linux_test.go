//go:build linux

package transport

import "testing"

func TestSetSocketMarkNoopWithZeroMark(t *testing.T) {
	if err := setSocketMark(0, 0); err != nil {
		t.Fatalf("setSocketMark(fd=0, mark=0) should be a no-op, got %v", err)
	}
}
