package pcap

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors/iforest"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
	gio "github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

var _ gio.Reader = (*Reader)(nil)

var (
	clientMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	serverMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
	client    = net.IP{192, 168, 1, 10}
	server    = net.IP{10, 0, 0, 53}
	epoch     = time.Date(2023, 5, 30, 6, 33, 58, 0, time.UTC)
)

func serialize(t *testing.T, transport ...gopacket.SerializableLayer) []byte {
	t.Helper()

	ip := &layers.IPv4{
		Version: 4,
		IHL:     5,
		TTL:     64,
		SrcIP:   client,
		DstIP:   server,
	}
	switch l := transport[0].(type) {
	case *layers.TCP:
		ip.Protocol = layers.IPProtocolTCP
		require.NoError(t, l.SetNetworkLayerForChecksum(ip))
	case *layers.UDP:
		ip.Protocol = layers.IPProtocolUDP
		require.NoError(t, l.SetNetworkLayerForChecksum(ip))
	case *layers.ICMPv4:
		ip.Protocol = layers.IPProtocolICMPv4
	}

	all := append([]gopacket.SerializableLayer{
		&layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4},
		ip,
	}, transport...)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, all...))
	return buf.Bytes()
}

func capture(t *testing.T, packets ...[]byte) []byte {
	t.Helper()

	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for i, data := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     epoch.Add(time.Duration(i) * time.Second),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return out.Bytes()
}

func testCapture(t *testing.T) []byte {
	return capture(t,
		serialize(t, &layers.TCP{SrcPort: 51000, DstPort: 443, SYN: true}),
		serialize(t, &layers.TCP{SrcPort: 51000, DstPort: 80, ACK: true, PSH: true}, gopacket.Payload("GET / HTTP/1.1\r\n\r\n")),
		serialize(t, &layers.UDP{SrcPort: 40000, DstPort: 53}, gopacket.Payload{0, 1, 2, 3}),
		serialize(t, &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}),
	)
}

func TestRead(t *testing.T) {
	r, err := FromReader(bytes.NewReader(testCapture(t)))
	require.NoError(t, err)
	defer r.Close()

	records, err := r.Read()
	require.NoError(t, err)
	require.Len(t, records, 4)

	syn := records[0]
	assert.Equal(t, "192.168.1.10", syn[logs.FieldSourceIP])
	assert.Equal(t, "10.0.0.53", syn[logs.FieldDestinationIP])
	assert.Equal(t, 51000.0, syn[logs.FieldSourcePort])
	assert.Equal(t, 443.0, syn[logs.FieldDestPort])
	assert.Equal(t, "TCP", syn[logs.FieldProtocol])
	assert.Equal(t, "Control", syn[logs.FieldPacketType])
	assert.Equal(t, "HTTP", syn[logs.FieldTrafficType])
	ts, ok := syn[logs.FieldTimestamp].(time.Time)
	require.True(t, ok)
	assert.True(t, epoch.Equal(ts))

	get := records[1]
	assert.Equal(t, "Data", get[logs.FieldPacketType])
	assert.Equal(t, "HTTP", get[logs.FieldTrafficType])
	length, ok := get.Float(logs.FieldPacketLength)
	require.True(t, ok)
	assert.Greater(t, length, 54.0)

	dns := records[2]
	assert.Equal(t, "UDP", dns[logs.FieldProtocol])
	assert.Equal(t, "DNS", dns[logs.FieldTrafficType])

	icmp := records[3]
	assert.Equal(t, "ICMP", icmp[logs.FieldProtocol])
	assert.Equal(t, "Control", icmp[logs.FieldPacketType])
	assert.False(t, icmp.Has(logs.FieldSourcePort))
	assert.False(t, icmp.Has(logs.FieldTrafficType))

	// every packet carries the same keys so single records share the batch layout
	for _, r := range records {
		for _, field := range []string{
			logs.FieldTimestamp, logs.FieldSourceIP, logs.FieldDestinationIP,
			logs.FieldSourcePort, logs.FieldDestPort, logs.FieldProtocol,
			logs.FieldPacketLength, logs.FieldPacketType, logs.FieldTrafficType,
		} {
			assert.Contains(t, r, field)
		}
	}
}

func TestTrainedCaptureScoresEveryPacket(t *testing.T) {
	var packets [][]byte
	for i := 0; i < 40; i++ {
		packets = append(packets,
			serialize(t, &layers.TCP{SrcPort: layers.TCPPort(50000 + i), DstPort: 443, ACK: true}),
			serialize(t, &layers.UDP{SrcPort: layers.UDPPort(40000 + i), DstPort: 9999}, gopacket.Payload{byte(i)}),
			serialize(t, &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Seq: uint16(i)}),
		)
	}

	r, err := FromReader(bytes.NewReader(capture(t, packets...)))
	require.NoError(t, err)
	records, err := gio.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, records, 120)

	artifact, err := anomaly.Train(context.Background(), features.NewEncoder(nil), records,
		iforest.WithTrees(20), iforest.WithSeed(1))
	require.NoError(t, err)

	for i, record := range records {
		_, err := artifact.Score([]logs.Record{record})
		require.NoError(t, err, "packet %d", i)
	}
}

func TestSkipsNonIPv4(t *testing.T) {
	arp := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(arp, gopacket.SerializeOptions{FixLengths: true},
		&layers.Ethernet{SrcMAC: clientMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   clientMAC,
			SourceProtAddress: client,
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    server,
		},
	))

	r, err := FromReader(bytes.NewReader(capture(t, arp.Bytes())))
	require.NoError(t, err)

	records, err := r.Read()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStream(t *testing.T) {
	r, err := FromReader(bytes.NewReader(testCapture(t)))
	require.NoError(t, err)

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	var protocols []string
	for record := range ch {
		protocols = append(protocols, record.String(logs.FieldProtocol))
	}
	assert.Equal(t, []string{"TCP", "TCP", "UDP", "ICMP"}, protocols)
}

func TestNewFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.pcap")
	require.NoError(t, os.WriteFile(path, testCapture(t), 0o600))

	r, err := NewFileReader(path)
	require.NoError(t, err)

	records, err := r.Read()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Len(t, records, 4)
}

func TestRejectsGarbage(t *testing.T) {
	_, err := FromReader(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)

	_, err = FromReader(bytes.NewReader([]byte("this is not a capture file")))
	assert.Error(t, err)
}

func TestTrafficType(t *testing.T) {
	tests := []struct {
		src, dst uint16
		want     string
	}{
		{50000, 53, "DNS"},
		{53, 50000, "DNS"},
		{50000, 443, "HTTP"},
		{50000, 21, "FTP"},
		{50000, 22, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, trafficType(tt.src, tt.dst))
	}
}
