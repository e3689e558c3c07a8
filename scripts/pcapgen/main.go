package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Generates a synthetic capture for exercising the pcap-analyzer:
// complete TCP sessions against well-known services, DNS exchanges and
// an optional SYN burst from a single source.
func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	sessionCount := flag.Int("sessions", 50, "Number of complete TCP sessions to generate")
	dnsCount := flag.Int("dns", 20, "Number of DNS query/response pairs to generate")
	synBurst := flag.Int("synburst", 0, "Number of bare SYNs to emit from one source (scan-like traffic)")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	g := &generator{w: w, now: time.Now()}

	services := []layers.TCPPort{80, 443, 22, 25}
	for i := 0; i < *sessionCount; i++ {
		client := lanIP()
		server := net.IP{10, 0, 0, byte(rand.Intn(20) + 1)}
		g.tcpSession(client, server, ephemeralPort(), services[rand.Intn(len(services))])
	}
	for i := 0; i < *dnsCount; i++ {
		g.dnsExchange(lanIP(), net.IP{10, 0, 0, 53})
	}
	if *synBurst > 0 {
		attacker := net.IP{192, 168, 99, 99}
		target := net.IP{10, 0, 0, 1}
		for i := 0; i < *synBurst; i++ {
			g.packet(attacker, target, &layers.TCP{
				SrcPort: ephemeralPort(), DstPort: 80, SYN: true, Seq: rand.Uint32(), Window: 1024,
			}, nil)
		}
	}

	log.Printf("Wrote %d packets to %s", g.count, *outputFile)
}

type generator struct {
	w     *pcapgo.Writer
	now   time.Time
	count int
}

// tcpSession writes a handshake, a small data exchange and a FIN.
func (g *generator) tcpSession(client, server net.IP, cport, sport layers.TCPPort) {
	seq := rand.Uint32()
	ack := rand.Uint32()

	g.packet(client, server, &layers.TCP{SrcPort: cport, DstPort: sport, SYN: true, Seq: seq, Window: 65535}, nil)
	g.packet(server, client, &layers.TCP{SrcPort: sport, DstPort: cport, SYN: true, ACK: true, Seq: ack, Ack: seq + 1, Window: 29200}, nil)
	g.packet(client, server, &layers.TCP{SrcPort: cport, DstPort: sport, ACK: true, Seq: seq + 1, Ack: ack + 1, Window: 65535}, nil)

	payload := make([]byte, rand.Intn(1200)+100)
	rand.Read(payload)
	g.packet(client, server, &layers.TCP{SrcPort: cport, DstPort: sport, ACK: true, PSH: true, Seq: seq + 1, Ack: ack + 1, Window: 65535}, payload)

	reply := make([]byte, rand.Intn(1200)+100)
	rand.Read(reply)
	g.packet(server, client, &layers.TCP{SrcPort: sport, DstPort: cport, ACK: true, PSH: true, Seq: ack + 1, Ack: seq + 1 + uint32(len(payload)), Window: 29200}, reply)

	g.packet(client, server, &layers.TCP{SrcPort: cport, DstPort: sport, ACK: true, FIN: true, Seq: seq + 1 + uint32(len(payload)), Ack: ack + 1 + uint32(len(reply)), Window: 65535}, nil)
}

// dnsExchange writes a UDP query and its response.
func (g *generator) dnsExchange(client, server net.IP) {
	cport := layers.UDPPort(rand.Intn(65535-1024) + 1024)
	query := make([]byte, rand.Intn(40)+20)
	rand.Read(query)
	g.udpPacket(client, server, cport, 53, query)

	response := make([]byte, rand.Intn(200)+40)
	rand.Read(response)
	g.udpPacket(server, client, 53, cport, response)
}

func (g *generator) packet(src, dst net.IP, tcp *layers.TCP, payload []byte) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{SrcIP: src, DstIP: dst, Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP}
	tcp.SetNetworkLayerForChecksum(ip)
	g.write(eth, ip, tcp, payload)
}

func (g *generator) udpPacket(src, dst net.IP, sport, dport layers.UDPPort, payload []byte) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{SrcIP: src, DstIP: dst, Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP}
	udp := &layers.UDP{SrcPort: sport, DstPort: dport}
	udp.SetNetworkLayerForChecksum(ip)
	g.write(eth, ip, udp, payload)
}

func (g *generator) write(eth *layers.Ethernet, ip *layers.IPv4, transport gopacket.SerializableLayer, payload []byte) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

	serialized := []gopacket.SerializableLayer{eth, ip, transport}
	if payload != nil {
		serialized = append(serialized, gopacket.Payload(payload))
	}
	if err := gopacket.SerializeLayers(buf, opts, serialized...); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}

	g.now = g.now.Add(time.Duration(rand.Intn(5)+1) * time.Millisecond)
	ci := gopacket.CaptureInfo{
		Timestamp:     g.now,
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}
	if err := g.w.WritePacket(ci, buf.Bytes()); err != nil {
		log.Fatalf("Failed to write packet: %v", err)
	}
	g.count++
}

func lanIP() net.IP {
	return net.IP{192, 168, 1, byte(rand.Intn(200) + 2)}
}

func ephemeralPort() layers.TCPPort {
	return layers.TCPPort(rand.Intn(65535-1024) + 1024)
}
