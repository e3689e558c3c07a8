package feature

import (
	"math"
	"time"

	"NetSentinel/internal/model"
)

// servicePorts maps well-known ports to the service labels the encoder
// vocabulary was built with. Unlisted ports yield the "-" sentinel.
var servicePorts = map[uint16]string{
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	80:    "http",
	110:   "pop3",
	143:   "imap",
	443:   "https",
	993:   "imaps",
	995:   "pop3s",
	1433:  "mssql",
	3306:  "mysql",
	5432:  "postgresql",
	6379:  "redis",
	27017: "mongodb",
}

// Extract computes the feature schema from one closed flow record. All
// ratio features are defined to zero when their denominator is zero; the
// result never carries NaN or Inf.
func Extract(rec *model.FlowRecord) *model.FeatureVector {
	dur := rec.Duration().Seconds()
	spkts := float64(rec.SrcPackets)
	dpkts := float64(rec.DstPackets)
	sbytes := float64(rec.SrcBytes)
	dbytes := float64(rec.DstBytes)
	total := rec.TotalPackets()

	fv := &model.FeatureVector{
		Dur:     dur,
		Proto:   protoName(rec.Protocol),
		Service: serviceName(rec),
		State:   stateName(rec),
		Spkts:   int64(rec.SrcPackets),
		Dpkts:   int64(rec.DstPackets),
		Sbytes:  int64(rec.SrcBytes),
		Dbytes:  int64(rec.DstBytes),
		Sttl:    int64(rec.SrcTTL),
		Dttl:    int64(rec.DstTTL),
		Swin:    int64(rec.SrcWindow),
		Dwin:    int64(rec.DstWindow),
		Stcpb:   int64(rec.SrcSeq),
		Dtcpb:   int64(rec.DstSeq),

		TransDepth:      int64(rec.TransDepth),
		ResponseBodyLen: int64(rec.RespBodyLen),

		CtFtpCmd:      int64(rec.FTPCommands),
		CtFlwHTTPMthd: int64(rec.HTTPMethods),

		SourceAddr: rec.SrcAddr,
	}

	if dur > 0 {
		fv.Rate = (spkts + dpkts) / dur
		fv.Sload = 8 * sbytes / dur
		fv.Dload = 8 * dbytes / dur
	}

	// Mean packet sizes per direction.
	if spkts > 0 {
		fv.Smean = sbytes / spkts
	}
	if dpkts > 0 {
		fv.Dmean = dbytes / dpkts
	}

	fv.Sinpkt = meanInterval(rec.SrcTimes)
	fv.Dinpkt = meanInterval(rec.DstTimes)
	fv.Sjit = jitter(rec.SrcTimes)
	fv.Djit = jitter(rec.DstTimes)

	fv.Synack, fv.Ackdat, fv.Tcprtt = handshakeTimes(rec)

	fv.CtSrvSrc = clamp(int64(rec.SrcPackets)/10, 1, 10)
	fv.CtStateTTL = clamp((fv.Sttl+fv.Dttl)/100, 1, 5)
	fv.CtDstLtm = clamp(int64(total)/20, 1, 3)
	fv.CtSrcDportLtm = clamp(int64(total)/15, 1, 3)
	fv.CtDstSportLtm = clamp(int64(total)/15, 1, 3)
	fv.CtDstSrcLtm = clamp(int64(total)/25, 1, 3)
	fv.CtSrcLtm = clamp(int64(total)/10, 1, 5)
	fv.CtSrvDst = clamp(int64(total)/12, 1, 5)

	if rec.FTPLogin {
		fv.IsFtpLogin = 1
	}
	if rec.SrcAddr == rec.DstAddr && rec.SrcPort == rec.DstPort {
		fv.IsSmIpsPorts = 1
	}

	Sanitize(fv)
	return fv
}

func protoName(proto uint8) string {
	switch proto {
	case 6:
		return "tcp"
	case 17:
		return "udp"
	case 1:
		return "icmp"
	default:
		return "other"
	}
}

// serviceName infers the application service from the well-known port
// table, responder port first.
func serviceName(rec *model.FlowRecord) string {
	if s, ok := servicePorts[rec.DstPort]; ok {
		return s
	}
	if s, ok := servicePorts[rec.SrcPort]; ok {
		return s
	}
	return "-"
}

// stateName derives the connection-termination state from the union of
// TCP flags seen across the flow. Non-TCP flows are "INT".
func stateName(rec *model.FlowRecord) string {
	if rec.Protocol != 6 {
		return "INT"
	}
	switch {
	case rec.FlagUnion.Has(model.FlagFIN):
		return "FIN"
	case rec.FlagUnion.Has(model.FlagRST):
		return "RST"
	case rec.FlagUnion.Has(model.FlagSYN | model.FlagACK):
		return "CON"
	case rec.FlagUnion.Has(model.FlagSYN):
		return "REQ"
	default:
		return "INT"
	}
}

// meanInterval is the mean gap between successive arrivals in one
// direction, in milliseconds. Zero with fewer than two packets.
func meanInterval(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1].Sub(times[0])
	return span.Seconds() * 1000 / float64(len(times)-1)
}

// jitter is the mean absolute deviation of the inter-arrival gaps from
// their mean, in milliseconds. Zero with fewer than three packets.
func jitter(times []time.Time) float64 {
	if len(times) < 3 {
		return 0
	}
	gaps := make([]float64, len(times)-1)
	var mean float64
	for i := 1; i < len(times); i++ {
		g := times[i].Sub(times[i-1]).Seconds() * 1000
		gaps[i-1] = g
		mean += g
	}
	mean /= float64(len(gaps))
	var dev float64
	for _, g := range gaps {
		dev += math.Abs(g - mean)
	}
	return dev / float64(len(gaps))
}

// handshakeTimes derives the SYN to SYN-ACK and SYN-ACK to ACK deltas in
// seconds and their sum. Any missing handshake leg yields zeros.
func handshakeTimes(rec *model.FlowRecord) (synack, ackdat, tcprtt float64) {
	if !rec.SYNTime.IsZero() && !rec.SYNACKTime.IsZero() {
		synack = rec.SYNACKTime.Sub(rec.SYNTime).Seconds()
	}
	if !rec.SYNACKTime.IsZero() && !rec.ACKTime.IsZero() {
		ackdat = rec.ACKTime.Sub(rec.SYNACKTime).Seconds()
	}
	if synack < 0 {
		synack = 0
	}
	if ackdat < 0 {
		ackdat = 0
	}
	tcprtt = synack + ackdat
	return
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sanitize forces every float field finite. The ratio guards above make
// this a no-op on extracted records; the detection API runs it on
// caller-supplied vectors before encoding.
func Sanitize(fv *model.FeatureVector) {
	for _, f := range Fields {
		if f.Kind != Numeric {
			continue
		}
		if v, ok := numericValue(fv, f.Name); ok {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				setNumeric(fv, f.Name, 0)
			}
		}
	}
}

func setNumeric(fv *model.FeatureVector, name string, v float64) {
	switch name {
	case "dur":
		fv.Dur = v
	case "rate":
		fv.Rate = v
	case "sload":
		fv.Sload = v
	case "dload":
		fv.Dload = v
	case "sinpkt":
		fv.Sinpkt = v
	case "dinpkt":
		fv.Dinpkt = v
	case "sjit":
		fv.Sjit = v
	case "djit":
		fv.Djit = v
	case "tcprtt":
		fv.Tcprtt = v
	case "synack":
		fv.Synack = v
	case "ackdat":
		fv.Ackdat = v
	case "smean":
		fv.Smean = v
	case "dmean":
		fv.Dmean = v
	}
}
