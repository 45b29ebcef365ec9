package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"

	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

type stubResolver struct {
	addrs []netip.Addr
	err   error
	calls int
}

func (s *stubResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	s.calls++
	return s.addrs, s.err
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.1:5000", "10.0.0.1:5000"},
		{"0.0.0.0:0", "0.0.0.0:0"},
		{"192.0.2.7:65535", "192.0.2.7:65535"},
		{" 127.0.0.1:9 ", "127.0.0.1:9"},
		{"[::1]:5000", "[::1]:5000"},
		{"::1:5000", "[::1]:5000"},
		{"[::ffff:10.0.0.1]:5000", "10.0.0.1:5000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ep, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if ep.String() != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, ep, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"not-an-ip:abc",
		"10.0.0.1",
		"10.0.0.1:",
		"10.0.0.1:65536",
		"10.0.0.1:-1",
		"10.0.0.1:+80",
		"10.0.0.1:0x50",
		":5000",
		"not-an-ip:5000",
		"",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", in)
			}
			if !errors.Is(err, replayerrors.ErrConfig) {
				t.Errorf("Parse(%q) error %v is not a config error", in, err)
			}
		})
	}
}

func TestParseWithResolver(t *testing.T) {
	t.Run("resolves names", func(t *testing.T) {
		r := &stubResolver{addrs: []netip.Addr{netip.MustParseAddr("2001:db8::1"), netip.MustParseAddr("198.51.100.4")}}
		ep, err := ParseWithResolver(context.Background(), "peer.example:7000", r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ep.String() != "198.51.100.4:7000" {
			t.Errorf("got %s, want IPv4 preferred", ep)
		}
	})

	t.Run("bad port skips lookup", func(t *testing.T) {
		r := &stubResolver{}
		_, err := ParseWithResolver(context.Background(), "not-an-ip:abc", r)
		if !errors.Is(err, replayerrors.ErrConfig) {
			t.Fatalf("expected config error, got %v", err)
		}
		if r.calls != 0 {
			t.Errorf("resolver called %d times before port validation", r.calls)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		r := &stubResolver{err: fmt.Errorf("no such host")}
		_, err := ParseWithResolver(context.Background(), "missing.example:7000", r)
		if !errors.Is(err, replayerrors.ErrConfig) {
			t.Fatalf("expected config error, got %v", err)
		}
	})

	t.Run("no addresses", func(t *testing.T) {
		_, err := ParseWithResolver(context.Background(), "empty.example:7000", &stubResolver{})
		if !errors.Is(err, replayerrors.ErrConfig) {
			t.Fatalf("expected config error, got %v", err)
		}
	})
}

func TestEndpointMatches(t *testing.T) {
	ep, err := Parse("10.0.0.1:5000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ep.Matches(netip.MustParseAddr("10.0.0.1"), 5000) {
		t.Error("expected exact match")
	}
	if !ep.Matches(netip.MustParseAddr("::ffff:10.0.0.1"), 5000) {
		t.Error("expected IPv4-mapped match")
	}
	if ep.Matches(netip.MustParseAddr("10.0.0.1"), 5001) {
		t.Error("port mismatch should not match")
	}
	if ep.Matches(netip.MustParseAddr("10.0.0.2"), 5000) {
		t.Error("address mismatch should not match")
	}
	if ep.Network() != "udp4" {
		t.Errorf("Network() = %q, want udp4", ep.Network())
	}
}
