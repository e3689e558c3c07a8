package feature

import "NetSentinel/internal/model"

// FieldKind distinguishes how a field is encoded.
type FieldKind int

const (
	Numeric FieldKind = iota
	Categorical
)

// Field is one entry of the model feature schema.
type Field struct {
	Name string
	Kind FieldKind
}

// Fields is the ordered feature schema the scaler, the encoder tables and
// every model artifact are trained against. Changing this order or length
// invalidates deployed artifacts; the loader checks the count at startup.
var Fields = []Field{
	{"dur", Numeric},
	{"proto", Categorical},
	{"service", Categorical},
	{"state", Categorical},
	{"spkts", Numeric},
	{"dpkts", Numeric},
	{"sbytes", Numeric},
	{"dbytes", Numeric},
	{"rate", Numeric},
	{"sttl", Numeric},
	{"dttl", Numeric},
	{"sload", Numeric},
	{"dload", Numeric},
	{"sloss", Numeric},
	{"dloss", Numeric},
	{"sinpkt", Numeric},
	{"dinpkt", Numeric},
	{"sjit", Numeric},
	{"djit", Numeric},
	{"swin", Numeric},
	{"stcpb", Numeric},
	{"dtcpb", Numeric},
	{"dwin", Numeric},
	{"tcprtt", Numeric},
	{"synack", Numeric},
	{"ackdat", Numeric},
	{"smean", Numeric},
	{"dmean", Numeric},
	{"trans_depth", Numeric},
	{"response_body_len", Numeric},
	{"ct_srv_src", Numeric},
	{"ct_state_ttl", Numeric},
	{"ct_dst_ltm", Numeric},
	{"ct_src_dport_ltm", Numeric},
	{"ct_dst_sport_ltm", Numeric},
	{"ct_dst_src_ltm", Numeric},
	{"is_ftp_login", Numeric},
	{"ct_ftp_cmd", Numeric},
	{"ct_flw_http_mthd", Numeric},
	{"ct_src_ltm", Numeric},
	{"ct_srv_dst", Numeric},
	{"is_sm_ips_ports", Numeric},
}

// NumFields is the encoded vector length models must accept.
var NumFields = len(Fields)

// numericValue returns the numeric fields of a vector by schema name.
// Categorical fields go through stringValue instead.
func numericValue(fv *model.FeatureVector, name string) (float64, bool) {
	switch name {
	case "dur":
		return fv.Dur, true
	case "spkts":
		return float64(fv.Spkts), true
	case "dpkts":
		return float64(fv.Dpkts), true
	case "sbytes":
		return float64(fv.Sbytes), true
	case "dbytes":
		return float64(fv.Dbytes), true
	case "rate":
		return fv.Rate, true
	case "sttl":
		return float64(fv.Sttl), true
	case "dttl":
		return float64(fv.Dttl), true
	case "sload":
		return fv.Sload, true
	case "dload":
		return fv.Dload, true
	case "sloss":
		return float64(fv.Sloss), true
	case "dloss":
		return float64(fv.Dloss), true
	case "sinpkt":
		return fv.Sinpkt, true
	case "dinpkt":
		return fv.Dinpkt, true
	case "sjit":
		return fv.Sjit, true
	case "djit":
		return fv.Djit, true
	case "swin":
		return float64(fv.Swin), true
	case "stcpb":
		return float64(fv.Stcpb), true
	case "dtcpb":
		return float64(fv.Dtcpb), true
	case "dwin":
		return float64(fv.Dwin), true
	case "tcprtt":
		return fv.Tcprtt, true
	case "synack":
		return fv.Synack, true
	case "ackdat":
		return fv.Ackdat, true
	case "smean":
		return fv.Smean, true
	case "dmean":
		return fv.Dmean, true
	case "trans_depth":
		return float64(fv.TransDepth), true
	case "response_body_len":
		return float64(fv.ResponseBodyLen), true
	case "ct_srv_src":
		return float64(fv.CtSrvSrc), true
	case "ct_state_ttl":
		return float64(fv.CtStateTTL), true
	case "ct_dst_ltm":
		return float64(fv.CtDstLtm), true
	case "ct_src_dport_ltm":
		return float64(fv.CtSrcDportLtm), true
	case "ct_dst_sport_ltm":
		return float64(fv.CtDstSportLtm), true
	case "ct_dst_src_ltm":
		return float64(fv.CtDstSrcLtm), true
	case "is_ftp_login":
		return float64(fv.IsFtpLogin), true
	case "ct_ftp_cmd":
		return float64(fv.CtFtpCmd), true
	case "ct_flw_http_mthd":
		return float64(fv.CtFlwHTTPMthd), true
	case "ct_src_ltm":
		return float64(fv.CtSrcLtm), true
	case "ct_srv_dst":
		return float64(fv.CtSrvDst), true
	case "is_sm_ips_ports":
		return float64(fv.IsSmIpsPorts), true
	default:
		return 0, false
	}
}

// stringValue returns the categorical fields of a vector by schema name.
func stringValue(fv *model.FeatureVector, name string) (string, bool) {
	switch name {
	case "proto":
		return fv.Proto, true
	case "service":
		return fv.Service, true
	case "state":
		return fv.State, true
	default:
		return "", false
	}
}
