package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetSentinel/internal/model"
)

func shortTCPRecord(dur time.Duration) *model.FlowRecord {
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	return &model.FlowRecord{
		Key:        model.FlowKey{AddrA: "10.0.0.1", PortA: 80, AddrB: "10.0.0.2", PortB: 51324, Protocol: 6},
		State:      model.FlowClosed,
		SrcAddr:    "10.0.0.2",
		SrcPort:    51324,
		DstAddr:    "10.0.0.1",
		DstPort:    80,
		Protocol:   6,
		FirstSeen:  base,
		LastSeen:   base.Add(dur),
		SrcPackets: 2,
		DstPackets: 1,
		SrcBytes:   540,
		DstBytes:   60,
		SrcTTL:     64,
		DstTTL:     128,
		SrcWindow:  65535,
		DstWindow:  29200,
		FlagUnion:  model.FlagSYN | model.FlagACK | model.FlagFIN,
		SrcTimes:   []time.Time{base, base.Add(dur)},
		DstTimes:   []time.Time{base.Add(dur / 2)},
	}
}

func TestExtractShortTCPFlow(t *testing.T) {
	fv := Extract(shortTCPRecord(54 * time.Millisecond))

	assert.InDelta(t, 0.054, fv.Dur, 1e-9)
	assert.Equal(t, int64(2), fv.Spkts)
	assert.Equal(t, int64(1), fv.Dpkts)
	assert.Equal(t, "tcp", fv.Proto)
	assert.Equal(t, "http", fv.Service)
	assert.Equal(t, "FIN", fv.State)

	require.Greater(t, fv.Rate, 0.0)
	require.Greater(t, fv.Sload, 0.0)
	require.Greater(t, fv.Dload, 0.0)
	assert.False(t, math.IsInf(fv.Rate, 0) || math.IsNaN(fv.Rate))
	assert.False(t, math.IsInf(fv.Sload, 0) || math.IsNaN(fv.Sload))

	assert.InDelta(t, 270.0, fv.Smean, 1e-9)
	assert.InDelta(t, 60.0, fv.Dmean, 1e-9)
	assert.Equal(t, "10.0.0.2", fv.SourceAddr)
}

func TestExtractZeroDurationRatios(t *testing.T) {
	rec := shortTCPRecord(0)
	rec.SrcTimes = rec.SrcTimes[:1]
	rec.SrcPackets = 1

	fv := Extract(rec)

	assert.Zero(t, fv.Dur)
	assert.Zero(t, fv.Rate)
	assert.Zero(t, fv.Sload)
	assert.Zero(t, fv.Dload)
	assert.Zero(t, fv.Sinpkt)
}

func TestExtractOneSidedFlow(t *testing.T) {
	rec := shortTCPRecord(100 * time.Millisecond)
	rec.DstPackets = 0
	rec.DstBytes = 0
	rec.DstTimes = nil

	fv := Extract(rec)

	assert.Zero(t, fv.Dload)
	assert.Zero(t, fv.Dmean)
	assert.Zero(t, fv.Dinpkt)
	assert.Zero(t, fv.Djit)
}

func TestExtractStateInference(t *testing.T) {
	cases := []struct {
		flags model.TCPFlags
		want  string
	}{
		{model.FlagFIN | model.FlagSYN | model.FlagACK, "FIN"},
		{model.FlagRST | model.FlagSYN, "RST"},
		{model.FlagSYN | model.FlagACK, "CON"},
		{model.FlagSYN, "REQ"},
		{model.FlagACK, "INT"},
	}
	for _, tc := range cases {
		rec := shortTCPRecord(time.Millisecond)
		rec.FlagUnion = tc.flags
		assert.Equal(t, tc.want, Extract(rec).State, "flags %b", tc.flags)
	}

	udp := shortTCPRecord(time.Millisecond)
	udp.Protocol = 17
	assert.Equal(t, "INT", Extract(udp).State)
}

func TestExtractServiceFallsBackToSourcePort(t *testing.T) {
	rec := shortTCPRecord(time.Millisecond)
	rec.DstPort = 51324
	rec.SrcPort = 22
	assert.Equal(t, "ssh", Extract(rec).Service)

	rec.SrcPort = 50000
	assert.Equal(t, "-", Extract(rec).Service)
}

func TestExtractJitter(t *testing.T) {
	rec := shortTCPRecord(40 * time.Millisecond)
	base := rec.FirstSeen
	// Gaps of 10ms and 30ms: mean 20ms, mean absolute deviation 10ms.
	rec.SrcTimes = []time.Time{base, base.Add(10 * time.Millisecond), base.Add(40 * time.Millisecond)}
	rec.SrcPackets = 3

	fv := Extract(rec)
	assert.InDelta(t, 10.0, fv.Sjit, 1e-9)
	assert.InDelta(t, 20.0, fv.Sinpkt, 1e-9)
}

func TestSanitizeScrubsNonFinite(t *testing.T) {
	fv := &model.FeatureVector{
		Dur:   math.NaN(),
		Rate:  math.Inf(1),
		Dload: math.Inf(-1),
		Smean: 270,
	}
	Sanitize(fv)
	assert.Zero(t, fv.Dur)
	assert.Zero(t, fv.Rate)
	assert.Zero(t, fv.Dload)
	assert.Equal(t, 270.0, fv.Smean)
}
