// Package fixtures builds synthetic capture files for tests and demos.
package fixtures

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Frame is one link-layer frame with its capture timestamp.
type Frame struct {
	Timestamp time.Time
	Data      []byte
}

// BaseTime is the default capture start used by At.
var BaseTime = time.Unix(1700000000, 0).UTC()

// At returns BaseTime plus the given offset.
func At(offset time.Duration) time.Time {
	return BaseTime.Add(offset)
}

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
)

func ipLayer(srcIP, dstIP string, proto layers.IPProtocol) (gopacket.SerializableLayer, gopacket.NetworkLayer, layers.EthernetType, error) {
	src := net.ParseIP(srcIP)
	dst := net.ParseIP(dstIP)
	if src == nil || dst == nil {
		return nil, nil, 0, fmt.Errorf("invalid address %q -> %q", srcIP, dstIP)
	}
	if src.To4() != nil && dst.To4() != nil {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			SrcIP:    src.To4(),
			DstIP:    dst.To4(),
			Protocol: proto,
		}
		return ip, ip, layers.EthernetTypeIPv4, nil
	}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		SrcIP:      src.To16(),
		DstIP:      dst.To16(),
		NextHeader: proto,
	}
	return ip, ip, layers.EthernetTypeIPv6, nil
}

func serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		return nil, fmt.Errorf("serialize packet: %w", err)
	}
	return buf.Bytes(), nil
}

// UDPFrame builds an Ethernet/IP/UDP frame. IPv6 is used when either
// address is not IPv4.
func UDPFrame(srcIP, dstIP string, srcPort, dstPort uint16, payload []byte) ([]byte, error) {
	ip, nl, ethType, err := ipLayer(srcIP, dstIP, layers.IPProtocolUDP)
	if err != nil {
		return nil, err
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(nl); err != nil {
		return nil, err
	}
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: ethType}
	return serialize(eth, ip, udp, gopacket.Payload(payload))
}

// TCPFrame builds an Ethernet/IPv4/TCP frame carrying payload.
func TCPFrame(srcIP, dstIP string, srcPort, dstPort uint16, payload []byte) ([]byte, error) {
	ip, nl, ethType, err := ipLayer(srcIP, dstIP, layers.IPProtocolTCP)
	if err != nil {
		return nil, err
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     1,
		ACK:     true,
		PSH:     true,
		Window:  14600,
	}
	if err := tcp.SetNetworkLayerForChecksum(nl); err != nil {
		return nil, err
	}
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: ethType}
	return serialize(eth, ip, tcp, gopacket.Payload(payload))
}

// ARPFrame builds a non-IP Ethernet frame.
func ARPFrame() ([]byte, error) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{10, 0, 0, 9},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 0, 0, 1},
	}
	return serialize(eth, arp)
}

// FragmentFrame builds an IPv4 UDP frame with the more-fragments flag set.
func FragmentFrame(srcIP, dstIP string, srcPort, dstPort uint16, payload []byte) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Flags:    layers.IPv4MoreFragments,
		SrcIP:    net.ParseIP(srcIP).To4(),
		DstIP:    net.ParseIP(dstIP).To4(),
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	return serialize(eth, ip, udp, gopacket.Payload(payload))
}

// WritePCAP writes frames to a classic pcap file with Ethernet link type.
func WritePCAP(path string, frames []Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pcap: %w", err)
	}
	defer file.Close()

	writer := pcapgo.NewWriterNanos(file)
	if err := writer.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("write pcap header: %w", err)
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     frame.Timestamp,
			CaptureLength: len(frame.Data),
			Length:        len(frame.Data),
		}
		if err := writer.WritePacket(ci, frame.Data); err != nil {
			return fmt.Errorf("write packet %d: %w", i, err)
		}
	}
	return nil
}

// WritePCAPNG writes frames to a pcapng file with a single Ethernet interface.
func WritePCAPNG(path string, frames []Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pcapng: %w", err)
	}
	defer file.Close()

	writer, err := pcapgo.NewNgWriter(file, layers.LinkTypeEthernet)
	if err != nil {
		return fmt.Errorf("write pcapng header: %w", err)
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     frame.Timestamp,
			CaptureLength: len(frame.Data),
			Length:        len(frame.Data),
		}
		if err := writer.WritePacket(ci, frame.Data); err != nil {
			return fmt.Errorf("write packet %d: %w", i, err)
		}
	}
	return writer.Flush()
}
