package flow

import (
	"net"
	"testing"

	"NetSentinel/internal/model"
)

func TestKeyForTCPBidirectional(t *testing.T) {
	fwd := &model.Packet{
		SrcIP: net.ParseIP("10.0.0.2"), DstIP: net.ParseIP("10.0.0.1"),
		SrcPort: 51324, DstPort: 80, Protocol: ProtoTCP,
	}
	rev := &model.Packet{
		SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("10.0.0.2"),
		SrcPort: 80, DstPort: 51324, Protocol: ProtoTCP,
	}
	if KeyFor(fwd) != KeyFor(rev) {
		t.Fatalf("directions map to different keys: %v vs %v", KeyFor(fwd), KeyFor(rev))
	}
}

func TestKeyForUDPBidirectional(t *testing.T) {
	fwd := &model.Packet{
		SrcIP: net.ParseIP("192.168.1.9"), DstIP: net.ParseIP("8.8.8.8"),
		SrcPort: 40001, DstPort: 53, Protocol: ProtoUDP,
	}
	rev := &model.Packet{
		SrcIP: net.ParseIP("8.8.8.8"), DstIP: net.ParseIP("192.168.1.9"),
		SrcPort: 53, DstPort: 40001, Protocol: ProtoUDP,
	}
	if KeyFor(fwd) != KeyFor(rev) {
		t.Fatalf("directions map to different keys")
	}
}

func TestKeyForICMPOrdered(t *testing.T) {
	// Echo request (type 8) and echo reply (type 0) are distinct flows.
	req := &model.Packet{
		SrcIP: net.ParseIP("10.0.0.2"), DstIP: net.ParseIP("10.0.0.1"),
		SrcPort: 8, DstPort: 0, Protocol: ProtoICMP,
	}
	rep := &model.Packet{
		SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("10.0.0.2"),
		SrcPort: 0, DstPort: 0, Protocol: ProtoICMP,
	}
	if KeyFor(req) == KeyFor(rep) {
		t.Fatalf("request and reply collapsed into one key")
	}
}

func TestKeyForOtherProtocolZeroPorts(t *testing.T) {
	p := &model.Packet{
		SrcIP: net.ParseIP("10.0.0.2"), DstIP: net.ParseIP("10.0.0.1"),
		SrcPort: 1234, DstPort: 4321, Protocol: 47,
	}
	key := KeyFor(p)
	if key.PortA != 0 || key.PortB != 0 {
		t.Fatalf("ports not zeroed for portless protocol: %v", key)
	}
	if key.AddrA != "10.0.0.2" || key.AddrB != "10.0.0.1" {
		t.Fatalf("address order not preserved: %v", key)
	}
}
