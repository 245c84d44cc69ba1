// Package pcap reads capture files and maps IPv4 packets to traffic-log records.
package pcap

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// pcapng section header block type, little endian on disk either way.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Reader reads packets from a pcap or pcapng stream.
type Reader struct {
	closer    io.Closer
	source    *gopacket.PacketSource
	extractor *Extractor
}

// NewFileReader opens a capture file.
func NewFileReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := FromReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// FromReader reads a capture from src, detecting pcap and pcapng framing.
func FromReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, errors.New("pcap: stream too short for a capture header")
	}

	var source *gopacket.PacketSource
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		source = gopacket.NewPacketSource(ng, ng.LinkType())
	} else {
		classic, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, err
		}
		source = gopacket.NewPacketSource(classic, classic.LinkType())
	}
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true}

	return &Reader{source: source, extractor: NewExtractor()}, nil
}

// Read returns a record for every IPv4 packet in the capture.
func (r *Reader) Read() ([]logs.Record, error) {
	var records []logs.Record
	for packet := range r.source.Packets() {
		if record := r.extractor.Extract(packet); record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

// Stream returns a channel of records for incremental processing.
func (r *Reader) Stream(ctx context.Context) (<-chan logs.Record, error) {
	out := make(chan logs.Record, 1000)
	packets := r.source.Packets()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packets:
				if !ok {
					return
				}
				record := r.extractor.Extract(packet)
				if record == nil {
					continue
				}
				select {
				case out <- record:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Extractor maps decoded packets to log records.
type Extractor struct{}

// NewExtractor creates a packet extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract converts an IPv4 packet to a record holding timestamp, addresses, ports,
// protocol, packet length, packet type and traffic type. Other packets yield nil.
// Every record carries all of these keys; values that do not apply are nil.
func (e *Extractor) Extract(packet gopacket.Packet) logs.Record {
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil
	}
	ip := ipLayer.(*layers.IPv4)

	record := logs.Record{
		logs.FieldTimestamp:     nil,
		logs.FieldSourceIP:      ip.SrcIP.String(),
		logs.FieldDestinationIP: ip.DstIP.String(),
		logs.FieldSourcePort:    nil,
		logs.FieldDestPort:      nil,
		logs.FieldPacketLength:  float64(len(packet.Data())),
		logs.FieldPacketType:    nil,
		logs.FieldTrafficType:   nil,
	}

	if md := packet.Metadata(); md != nil {
		if !md.Timestamp.IsZero() {
			record[logs.FieldTimestamp] = md.Timestamp.UTC()
		}
		if md.Length > 0 {
			record[logs.FieldPacketLength] = float64(md.Length)
		}
	}

	var srcPort, dstPort uint16
	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		srcPort, dstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
		record[logs.FieldProtocol] = "TCP"
		record[logs.FieldPacketType] = tcpPacketType(tcp)
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		srcPort, dstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
		record[logs.FieldProtocol] = "UDP"
		record[logs.FieldPacketType] = "Data"
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		record[logs.FieldProtocol] = "ICMP"
		record[logs.FieldPacketType] = "Control"
	default:
		record[logs.FieldProtocol] = ip.Protocol.String()
	}

	if srcPort != 0 || dstPort != 0 {
		record[logs.FieldSourcePort] = float64(srcPort)
		record[logs.FieldDestPort] = float64(dstPort)
	}
	if traffic := trafficType(srcPort, dstPort); traffic != "" {
		record[logs.FieldTrafficType] = traffic
	}

	return record
}

// tcpPacketType classifies handshake and teardown segments without payload as control
// traffic.
func tcpPacketType(tcp *layers.TCP) string {
	if (tcp.SYN || tcp.FIN || tcp.RST) && len(tcp.LayerPayload()) == 0 {
		return "Control"
	}
	return "Data"
}

// trafficType names the application protocol by well-known port.
func trafficType(src, dst uint16) string {
	for _, port := range [2]uint16{dst, src} {
		switch port {
		case 53:
			return "DNS"
		case 80, 443, 8080:
			return "HTTP"
		case 20, 21:
			return "FTP"
		}
	}
	return ""
}

