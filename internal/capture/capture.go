// Package capture loads pcap and pcapng files into timestamped packet records.
package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// Kind tags what a record carries.
type Kind int

const (
	// KindOther is any frame without a complete network and UDP layer:
	// non-IP traffic, TCP, ICMP, IP fragments, or frames that fail to decode.
	KindOther Kind = iota
	// KindUDP is a network-layer packet with a UDP transport layer.
	KindUDP
)

func (k Kind) String() string {
	if k == KindUDP {
		return "udp"
	}
	return "other"
}

// Record is one captured frame. Address and payload fields are only set
// for KindUDP records.
type Record struct {
	Index     int
	Timestamp time.Time
	Kind      Kind
	SrcAddr   netip.Addr
	DstAddr   netip.Addr
	SrcPort   uint16
	DstPort   uint16
	Payload   []byte
}

// Source returns the sender endpoint of a UDP record.
func (r Record) Source() netip.AddrPort {
	return netip.AddrPortFrom(r.SrcAddr, r.SrcPort)
}

// Destination returns the receiver endpoint of a UDP record.
func (r Record) Destination() netip.AddrPort {
	return netip.AddrPortFrom(r.DstAddr, r.DstPort)
}

// pcapng section header block type
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// ReadFile loads every frame of a pcap or pcapng file, in file order.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, replayerrors.New(replayerrors.KindCaptureLoad, "open capture", err)
	}
	defer file.Close()

	records, err := Read(file)
	if err != nil {
		return nil, replayerrors.New(replayerrors.KindCaptureLoad, fmt.Sprintf("read capture %s", path), err)
	}
	return records, nil
}

// Read loads every frame from a pcap or pcapng stream.
func Read(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read file header: %w", err)
	}

	var (
		data     gopacket.PacketDataSource
		linkType layers.LinkType
	)
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("open pcapng: %w", err)
		}
		data, linkType = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open pcap: %w", err)
		}
		data, linkType = pr, pr.LinkType()
	}

	var records []Record
	for {
		frame, ci, err := data.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packet %d: %w", len(records)+1, err)
		}
		packet := gopacket.NewPacket(frame, linkType, gopacket.Default)
		rec := Decode(packet)
		rec.Index = len(records)
		rec.Timestamp = ci.Timestamp
		records = append(records, rec)
	}
	return records, nil
}

// Decode classifies a decoded packet into a Record. Timestamp and Index are
// left for the caller.
func Decode(packet gopacket.Packet) Record {
	var rec Record

	var src, dst netip.Addr
	switch nl := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		// Fragments are out of scope; only whole datagrams are replayable.
		if nl.Flags&layers.IPv4MoreFragments != 0 || nl.FragOffset != 0 {
			return rec
		}
		src, _ = netip.AddrFromSlice(nl.SrcIP)
		dst, _ = netip.AddrFromSlice(nl.DstIP)
	case *layers.IPv6:
		if packet.Layer(layers.LayerTypeIPv6Fragment) != nil {
			return rec
		}
		src, _ = netip.AddrFromSlice(nl.SrcIP)
		dst, _ = netip.AddrFromSlice(nl.DstIP)
	default:
		return rec
	}

	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return rec
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok || udp == nil {
		return rec
	}

	payload := make([]byte, len(udp.Payload))
	copy(payload, udp.Payload)

	rec.Kind = KindUDP
	rec.SrcAddr = src.Unmap()
	rec.DstAddr = dst.Unmap()
	rec.SrcPort = uint16(udp.SrcPort)
	rec.DstPort = uint16(udp.DstPort)
	rec.Payload = payload
	return rec
}
