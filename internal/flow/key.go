package flow

import (
	"NetSentinel/internal/model"
)

// IP protocol numbers the key rules distinguish.
const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)

// KeyFor derives the canonical flow identity for a packet.
//
// TCP/UDP keys are the unordered endpoint pair, so both directions of a
// connection share one flow. ICMP keys are the ordered pair
// ((src, type), (dst, code)): request and reply differ in type/code and
// aggregate into distinct flows. Every other protocol falls back to the
// ordered address pair with zeroed ports, so no traffic is dropped for
// lacking a port concept.
func KeyFor(p *model.Packet) model.FlowKey {
	src := p.SrcIP.String()
	dst := p.DstIP.String()

	switch p.Protocol {
	case ProtoTCP, ProtoUDP:
		if endpointLess(dst, p.DstPort, src, p.SrcPort) {
			return model.FlowKey{
				AddrA: dst, PortA: p.DstPort,
				AddrB: src, PortB: p.SrcPort,
				Protocol: p.Protocol,
			}
		}
		return model.FlowKey{
			AddrA: src, PortA: p.SrcPort,
			AddrB: dst, PortB: p.DstPort,
			Protocol: p.Protocol,
		}
	case ProtoICMP:
		return model.FlowKey{
			AddrA: src, PortA: p.SrcPort,
			AddrB: dst, PortB: p.DstPort,
			Protocol: p.Protocol,
		}
	default:
		return model.FlowKey{
			AddrA:    src,
			AddrB:    dst,
			Protocol: p.Protocol,
		}
	}
}

// endpointLess orders (addr, port) pairs for bidirectional key
// canonicalization.
func endpointLess(addrA string, portA uint16, addrB string, portB uint16) bool {
	if addrA != addrB {
		return addrA < addrB
	}
	return portA < portB
}
