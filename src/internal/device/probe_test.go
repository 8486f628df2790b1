package device

import (
	"context"
	"errors"
	"testing"
)

type stubLookup struct {
	ip  string
	err error
}

func (s *stubLookup) Lookup(ctx context.Context) (string, error) {
	return s.ip, s.err
}

func TestUserIPFailOpen(t *testing.T) {
	probe := NewProbe("test-agent", &stubLookup{err: errors.New("timeout")})
	if ip := probe.UserIP(context.Background()); ip != FallbackIP {
		t.Fatalf("expected fallback ip, got %q", ip)
	}
}

func TestUserIPSuccess(t *testing.T) {
	probe := NewProbe("test-agent", &stubLookup{ip: "203.0.113.7"})
	if ip := probe.UserIP(context.Background()); ip != "203.0.113.7" {
		t.Fatalf("unexpected ip %q", ip)
	}
}

func TestDeviceInfoAlwaysPopulated(t *testing.T) {
	probe := NewProbe("test-agent", nil)
	info := probe.DeviceInfo()
	if info.DeviceType == "" || info.OSName == "" || info.UserAgent != "test-agent" {
		t.Fatalf("unexpected device info: %+v", info)
	}
}
