package capture

import (
	"NetSentinel/internal/model"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	httpMethods   = [][]byte{[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("DELETE ")}
	ftpCommands   = [][]byte{[]byte("USER "), []byte("PASS "), []byte("LIST"), []byte("RETR "), []byte("STOR "), []byte("CWD "), []byte("PWD"), []byte("QUIT")}
	contentLenRe  = regexp.MustCompile(`Content-Length:\s*(\d+)`)
	httpVersionTag = []byte("HTTP/1.")
)

// ParsePacket uses gopacket to decode a raw packet and extract the metadata
// the flow tracker consumes. Non-IPv4 packets are rejected; every IPv4
// packet is accepted, with zeroed ports for protocols that carry none.
func ParsePacket(data []byte, ts time.Time) (*model.Packet, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ipLayer := l.(*layers.IPv4)

	info := &model.Packet{
		Timestamp: ts,
		SrcIP:     ipLayer.SrcIP,
		DstIP:     ipLayer.DstIP,
		Protocol:  uint8(ipLayer.Protocol),
		Length:    len(data),
		TTL:       ipLayer.TTL,
	}
	if info.Timestamp.IsZero() {
		info.Timestamp = time.Now()
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
	}

	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcpLayer := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		info.SrcPort = uint16(tcpLayer.SrcPort)
		info.DstPort = uint16(tcpLayer.DstPort)
		info.Window = tcpLayer.Window
		info.Seq = tcpLayer.Seq
		info.Flags = tcpFlags(tcpLayer)
		scanPayload(tcpLayer.Payload, info)
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udpLayer := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		info.SrcPort = uint16(udpLayer.SrcPort)
		info.DstPort = uint16(udpLayer.DstPort)
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		icmpLayer := packet.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
		// ICMP carries no ports; type and code act as pseudo-ports so
		// request and reply aggregate into distinct flows.
		info.SrcPort = uint16(icmpLayer.TypeCode.Type())
		info.DstPort = uint16(icmpLayer.TypeCode.Code())
	}

	return info, nil
}

func tcpFlags(tcp *layers.TCP) model.TCPFlags {
	var f model.TCPFlags
	if tcp.FIN {
		f |= model.FlagFIN
	}
	if tcp.SYN {
		f |= model.FlagSYN
	}
	if tcp.RST {
		f |= model.FlagRST
	}
	if tcp.PSH {
		f |= model.FlagPSH
	}
	if tcp.ACK {
		f |= model.FlagACK
	}
	if tcp.URG {
		f |= model.FlagURG
	}
	return f
}

// scanPayload records coarse application observations used by the HTTP and
// FTP features. It never fails: unreadable payloads simply contribute
// nothing.
func scanPayload(payload []byte, info *model.Packet) {
	if len(payload) == 0 {
		return
	}
	for _, m := range httpMethods {
		if bytes.Contains(payload, m) {
			info.HTTPMethod = true
			break
		}
	}
	if bytes.Contains(payload, httpVersionTag) {
		info.HTTPResponse = true
		if m := contentLenRe.FindSubmatch(payload); m != nil {
			if n, err := strconv.Atoi(string(m[1])); err == nil {
				info.ContentLen = n
			}
		}
	}
	if bytes.Contains(payload, []byte("USER ")) || bytes.Contains(payload, []byte("PASS ")) {
		info.FTPLogin = true
	}
	for _, cmd := range ftpCommands {
		if bytes.Contains(payload, cmd) {
			info.FTPCommand = true
			break
		}
	}
}
