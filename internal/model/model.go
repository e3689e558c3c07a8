package model

import (
	"fmt"
	"net"
	"time"
)

// TCPFlags is a bitmask of the TCP control bits observed on a packet.
type TCPFlags uint8

const (
	FlagFIN TCPFlags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
)

// Has reports whether all bits in mask are set.
func (f TCPFlags) Has(mask TCPFlags) bool { return f&mask == mask }

// Packet holds the metadata extracted from a single captured packet.
// For ICMP, SrcPort carries the message type and DstPort the code.
type Packet struct {
	Timestamp time.Time `json:"timestamp"`
	SrcIP     net.IP    `json:"src_ip"`
	DstIP     net.IP    `json:"dst_ip"`
	SrcPort   uint16    `json:"src_port"`
	DstPort   uint16    `json:"dst_port"`
	Protocol  uint8     `json:"protocol"`
	Length    int       `json:"length"`
	TTL       uint8     `json:"ttl"`
	Flags     TCPFlags  `json:"flags"`
	Window    uint16    `json:"window"`
	Seq       uint32    `json:"seq"`

	// Lightweight application-payload observations, filled by the parser.
	HTTPMethod   bool `json:"http_method,omitempty"`
	HTTPResponse bool `json:"http_response,omitempty"`
	ContentLen   int  `json:"content_len,omitempty"`
	FTPLogin     bool `json:"ftp_login,omitempty"`
	FTPCommand   bool `json:"ftp_command,omitempty"`
}

// FlowKey is the canonical identity used to group packets into a flow.
// For TCP/UDP the endpoints are stored in sorted order so both directions
// of a connection map to the same key; for ICMP and portless protocols the
// endpoints keep packet order.
type FlowKey struct {
	AddrA    string
	PortA    uint16
	AddrB    string
	PortB    uint16
	Protocol uint8
}

// String renders the key in the same form the open-flow table hashes.
func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%d-%s:%d-%d", k.AddrA, k.PortA, k.AddrB, k.PortB, k.Protocol)
}

// FlowState is the lifecycle state of a tracked flow.
type FlowState int

const (
	FlowNew FlowState = iota
	FlowActive
	FlowClosed
)

// CloseReason records why the tracker closed a flow.
type CloseReason int

const (
	CloseNone CloseReason = iota
	CloseIdle
	CloseLifetime
	CloseTerminal
	CloseFlush
)

func (r CloseReason) String() string {
	switch r {
	case CloseIdle:
		return "idle"
	case CloseLifetime:
		return "lifetime"
	case CloseTerminal:
		return "terminal"
	case CloseFlush:
		return "flush"
	default:
		return "none"
	}
}

// FlowRecord is the aggregate state of one flow. It is owned and mutated
// exclusively by the flow tracker while open and becomes immutable once
// State is FlowClosed.
type FlowRecord struct {
	Key         FlowKey
	State       FlowState
	CloseReason CloseReason

	// Initiator endpoint, as seen on the first packet of the flow. The
	// "source" direction of every counter below is the initiator's.
	SrcAddr  string
	SrcPort  uint16
	DstAddr  string
	DstPort  uint16
	Protocol uint8

	FirstSeen time.Time
	LastSeen  time.Time

	SrcPackets uint64
	DstPackets uint64
	SrcBytes   uint64
	DstBytes   uint64

	SrcTTL    uint8
	DstTTL    uint8
	SrcWindow uint16
	DstWindow uint16
	SrcSeq    uint32
	DstSeq    uint32

	FlagUnion TCPFlags

	// Directional arrival times, for inter-packet and jitter features.
	SrcTimes []time.Time
	DstTimes []time.Time

	// TCP handshake timestamps for round-trip features; zero when unseen.
	SYNTime    time.Time
	SYNACKTime time.Time
	ACKTime    time.Time

	// Application-payload accumulators.
	HTTPMethods int
	TransDepth  int
	RespBodyLen int
	FTPLogin    bool
	FTPCommands int
}

// TotalPackets returns the packet count across both directions.
func (r *FlowRecord) TotalPackets() uint64 { return r.SrcPackets + r.DstPackets }

// TotalBytes returns the byte count across both directions.
func (r *FlowRecord) TotalBytes() uint64 { return r.SrcBytes + r.DstBytes }

// Duration returns the observed lifetime of the flow.
func (r *FlowRecord) Duration() time.Duration { return r.LastSeen.Sub(r.FirstSeen) }
