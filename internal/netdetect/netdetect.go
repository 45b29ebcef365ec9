package netdetect

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// InterfaceInfo represents a network interface with its properties.
type InterfaceInfo struct {
	Name       string       // System interface name (e.g., "en0", "eth0")
	Index      int          // Kernel interface index
	Addresses  []netip.Addr // IP addresses assigned to this interface
	IsUp       bool
	IsLoopback bool
}

// ListInterfaces returns the host's interfaces and their unicast addresses.
func ListInterfaces() ([]InterfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}

	interfaces := make([]InterfaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		info := InterfaceInfo{
			Name:       iface.Name,
			Index:      iface.Index,
			IsUp:       iface.Flags&net.FlagUp != 0,
			IsLoopback: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("addresses of %s: %w", iface.Name, err)
		}
		info.Addresses = prefixAddrs(addrs)
		interfaces = append(interfaces, info)
	}
	return interfaces, nil
}

func prefixAddrs(addrs []net.Addr) []netip.Addr {
	var out []netip.Addr
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			out = append(out, addr.Unmap())
		}
	}
	return out
}

// FindInterface returns the interface that owns addr. Unspecified addresses
// match the first up interface.
func FindInterface(interfaces []InterfaceInfo, addr netip.Addr) (InterfaceInfo, bool) {
	addr = addr.Unmap()
	for _, iface := range interfaces {
		if addr.IsUnspecified() {
			if iface.IsUp {
				return iface, true
			}
			continue
		}
		for _, a := range iface.Addresses {
			if a == addr {
				return iface, true
			}
		}
	}
	return InterfaceInfo{}, false
}

// IsLocalAddr reports whether addr can be bound on this host.
func IsLocalAddr(addr netip.Addr) (bool, error) {
	if addr.IsUnspecified() || addr.IsLoopback() {
		return true, nil
	}
	interfaces, err := ListInterfaces()
	if err != nil {
		return false, err
	}
	_, ok := FindInterface(interfaces, addr)
	return ok, nil
}

// GetInterfaceAddressString returns a comma-separated list of up to three
// interface addresses.
func GetInterfaceAddressString(info InterfaceInfo) string {
	if len(info.Addresses) == 0 {
		return "no addresses"
	}
	parts := make([]string, 0, 3)
	for i := 0; i < len(info.Addresses) && i < 3; i++ {
		parts = append(parts, info.Addresses[i].String())
	}
	result := strings.Join(parts, ", ")
	if len(info.Addresses) > 3 {
		result += fmt.Sprintf(" (+%d more)", len(info.Addresses)-3)
	}
	return result
}
