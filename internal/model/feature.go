package model

// FeatureVector is the fixed UNSW-NB15 feature schema derived from one
// closed flow. Field order is owned by the feature package; this struct is
// the record shape shared with the detection API, which accepts
// already-aggregated vectors as JSON or CSV.
type FeatureVector struct {
	ID int64 `json:"id"`

	Dur     float64 `json:"dur"`
	Proto   string  `json:"proto"`
	Service string  `json:"service"`
	State   string  `json:"state"`
	Spkts   int64   `json:"spkts"`
	Dpkts   int64   `json:"dpkts"`
	Sbytes  int64   `json:"sbytes"`
	Dbytes  int64   `json:"dbytes"`
	Rate    float64 `json:"rate"`
	Sttl    int64   `json:"sttl"`
	Dttl    int64   `json:"dttl"`
	Sload   float64 `json:"sload"`
	Dload   float64 `json:"dload"`
	Sloss   int64   `json:"sloss"`
	Dloss   int64   `json:"dloss"`
	Sinpkt  float64 `json:"sinpkt"`
	Dinpkt  float64 `json:"dinpkt"`
	Sjit    float64 `json:"sjit"`
	Djit    float64 `json:"djit"`
	Swin    int64   `json:"swin"`
	Stcpb   int64   `json:"stcpb"`
	Dtcpb   int64   `json:"dtcpb"`
	Dwin    int64   `json:"dwin"`
	Tcprtt  float64 `json:"tcprtt"`
	Synack  float64 `json:"synack"`
	Ackdat  float64 `json:"ackdat"`
	Smean   float64 `json:"smean"`
	Dmean   float64 `json:"dmean"`

	TransDepth      int64 `json:"trans_depth"`
	ResponseBodyLen int64 `json:"response_body_len"`

	CtSrvSrc     int64 `json:"ct_srv_src"`
	CtStateTTL   int64 `json:"ct_state_ttl"`
	CtDstLtm     int64 `json:"ct_dst_ltm"`
	CtSrcDportLtm int64 `json:"ct_src_dport_ltm"`
	CtDstSportLtm int64 `json:"ct_dst_sport_ltm"`
	CtDstSrcLtm  int64 `json:"ct_dst_src_ltm"`
	IsFtpLogin   int64 `json:"is_ftp_login"`
	CtFtpCmd     int64 `json:"ct_ftp_cmd"`
	CtFlwHTTPMthd int64 `json:"ct_flw_http_mthd"`
	CtSrcLtm     int64 `json:"ct_src_ltm"`
	CtSrvDst     int64 `json:"ct_srv_dst"`
	IsSmIpsPorts int64 `json:"is_sm_ips_ports"`

	// SourceAddr is carried for alert correlation; it is not part of the
	// model feature set and is never encoded.
	SourceAddr string `json:"-"`
}

// EncodedVector is a FeatureVector after categorical encoding and scaling,
// in schema order, ready for model inference.
type EncodedVector []float64

// Prediction is the output of a single constituent model.
type Prediction struct {
	Model string  `json:"model"`
	Label int     `json:"label"`
	// Probs holds the class probabilities: index 0 normal, index 1 attack.
	Probs [2]float64 `json:"probs"`
}
