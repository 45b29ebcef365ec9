// Package endpoint parses and compares IP:PORT endpoints.
package endpoint

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// Endpoint is an IP address and UDP port.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// Resolver looks up host names that are not IP literals.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// AddrPort returns the endpoint as a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.Addr, e.Port)
}

// UDPAddr returns the endpoint as a *net.UDPAddr for socket calls.
func (e Endpoint) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(e.AddrPort())
}

// Network returns "udp4" or "udp6" depending on the address family.
func (e Endpoint) Network() string {
	if e.Addr.Is4() {
		return "udp4"
	}
	return "udp6"
}

// Matches reports whether addr and port equal the endpoint.
// IPv4-mapped IPv6 addresses compare equal to their IPv4 form.
func (e Endpoint) Matches(addr netip.Addr, port uint16) bool {
	return e.Port == port && e.Addr.Unmap() == addr.Unmap()
}

func (e Endpoint) String() string {
	return e.AddrPort().String()
}

// Parse parses an IP:PORT string whose host is an IP literal.
func Parse(s string) (Endpoint, error) {
	return ParseWithResolver(context.Background(), s, nil)
}

// ParseWithResolver parses an IP:PORT string. The string is split on its last
// colon; the port must be base-10 in [0, 65535]. When the host is not an IP
// literal and r is non-nil, it is resolved and the first address is used.
func ParseWithResolver(ctx context.Context, s string, r Resolver) (Endpoint, error) {
	const op = "parse endpoint"

	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: missing port", s)
	}
	host, portStr := s[:idx], s[idx+1:]

	port, err := parsePort(portStr)
	if err != nil {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: %v", s, err)
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: missing host", s)
	}

	addr, err := netip.ParseAddr(host)
	if err == nil {
		return Endpoint{Addr: addr.Unmap(), Port: port}, nil
	}
	if r == nil || strings.Contains(host, ":") {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: host %q is not an IP address", s, host)
	}

	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: resolve host %q: %v", s, host, err)
	}
	if len(addrs) == 0 {
		return Endpoint{}, replayerrors.Newf(replayerrors.KindConfig, op, "%q: host %q has no addresses", s, host)
	}
	// Prefer IPv4 so the bind family matches typical captures.
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return Endpoint{Addr: a.Unmap(), Port: port}, nil
		}
	}
	return Endpoint{Addr: addrs[0], Port: port}, nil
}

func parsePort(s string) (uint16, error) {
	if s == "" {
		return 0, fmt.Errorf("missing port")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid port %q", s)
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("port %q out of range", s)
	}
	return uint16(n), nil
}
