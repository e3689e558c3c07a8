package pcap

import (
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"NetSentinel/internal/capture"
	"NetSentinel/internal/model"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadPackets parses every packet in the file and sends the results to
// out, closing it when the file is exhausted. Packets the parser cannot
// handle are logged and skipped, never fatal.
func (r *Reader) ReadPackets(out chan<- *model.Packet) {
	defer close(out)

	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range source.Packets() {
		pkt, err := capture.ParsePacket(packet.Data(), packet.Metadata().Timestamp)
		if err != nil {
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		out <- pkt
	}
}
