package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"NetSentinel/internal/model"
)

// writeTestPcap writes a capture file with one TCP SYN packet.
func writeTestPcap(t *testing.T) string {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP("10.0.0.2").To4(),
		DstIP:    net.ParseIP("10.0.0.1").To4(),
	}
	tcp := &layers.TCP{SrcPort: 51324, DstPort: 80, SYN: true, Window: 65535}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum setup: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create pcap: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("write header: %v", err)
	}
	data := buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(data), Length: len(data)}
	if err := w.WritePacket(ci, data); err != nil {
		t.Fatalf("write packet: %v", err)
	}
	return path
}

func TestReaderReadPackets(t *testing.T) {
	reader, err := NewReader(writeTestPcap(t))
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	out := make(chan *model.Packet)
	go reader.ReadPackets(out)

	var pkts []*model.Packet
	for p := range out {
		pkts = append(pkts, p)
	}

	if len(pkts) != 1 {
		t.Fatalf("Expected to read 1 packet, but got %d", len(pkts))
	}
	p := pkts[0]
	if p.Protocol != 6 || p.SrcPort != 51324 || p.DstPort != 80 {
		t.Errorf("unexpected packet metadata: proto=%d %d->%d", p.Protocol, p.SrcPort, p.DstPort)
	}
	if !p.Flags.Has(model.FlagSYN) {
		t.Errorf("SYN flag not parsed")
	}
}
