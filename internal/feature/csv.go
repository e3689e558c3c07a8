package feature

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"NetSentinel/internal/model"
)

// ParseCSV reads already-aggregated feature records in bulk. The first
// row is a header of schema field names; unknown columns are ignored and
// absent columns leave the zero value, matching the encoder's missing
// value policy. An optional src_ip column is carried into SourceAddr for
// correlation.
func ParseCSV(r io.Reader) ([]*model.FeatureVector, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var out []*model.FeatureVector
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		fv := &model.FeatureVector{}
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			if err := setField(fv, col, rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d column %q: %w", line, col, err)
			}
		}
		out = append(out, fv)
	}
	return out, nil
}

// setField assigns one named column. Unknown names are skipped so files
// with extra columns (labels, attack_cat) load as-is.
func setField(fv *model.FeatureVector, name, value string) error {
	switch name {
	case "proto":
		fv.Proto = value
		return nil
	case "service":
		fv.Service = value
		return nil
	case "state":
		fv.State = value
		return nil
	case "src_ip", "srcip":
		fv.SourceAddr = value
		return nil
	}

	if value == "" {
		return nil
	}
	switch name {
	case "id":
		return setInt(&fv.ID, value)
	case "dur":
		return setFloat(&fv.Dur, value)
	case "spkts":
		return setInt(&fv.Spkts, value)
	case "dpkts":
		return setInt(&fv.Dpkts, value)
	case "sbytes":
		return setInt(&fv.Sbytes, value)
	case "dbytes":
		return setInt(&fv.Dbytes, value)
	case "rate":
		return setFloat(&fv.Rate, value)
	case "sttl":
		return setInt(&fv.Sttl, value)
	case "dttl":
		return setInt(&fv.Dttl, value)
	case "sload":
		return setFloat(&fv.Sload, value)
	case "dload":
		return setFloat(&fv.Dload, value)
	case "sloss":
		return setInt(&fv.Sloss, value)
	case "dloss":
		return setInt(&fv.Dloss, value)
	case "sinpkt":
		return setFloat(&fv.Sinpkt, value)
	case "dinpkt":
		return setFloat(&fv.Dinpkt, value)
	case "sjit":
		return setFloat(&fv.Sjit, value)
	case "djit":
		return setFloat(&fv.Djit, value)
	case "swin":
		return setInt(&fv.Swin, value)
	case "stcpb":
		return setInt(&fv.Stcpb, value)
	case "dtcpb":
		return setInt(&fv.Dtcpb, value)
	case "dwin":
		return setInt(&fv.Dwin, value)
	case "tcprtt":
		return setFloat(&fv.Tcprtt, value)
	case "synack":
		return setFloat(&fv.Synack, value)
	case "ackdat":
		return setFloat(&fv.Ackdat, value)
	case "smean":
		return setFloat(&fv.Smean, value)
	case "dmean":
		return setFloat(&fv.Dmean, value)
	case "trans_depth":
		return setInt(&fv.TransDepth, value)
	case "response_body_len":
		return setInt(&fv.ResponseBodyLen, value)
	case "ct_srv_src":
		return setInt(&fv.CtSrvSrc, value)
	case "ct_state_ttl":
		return setInt(&fv.CtStateTTL, value)
	case "ct_dst_ltm":
		return setInt(&fv.CtDstLtm, value)
	case "ct_src_dport_ltm":
		return setInt(&fv.CtSrcDportLtm, value)
	case "ct_dst_sport_ltm":
		return setInt(&fv.CtDstSportLtm, value)
	case "ct_dst_src_ltm":
		return setInt(&fv.CtDstSrcLtm, value)
	case "is_ftp_login":
		return setInt(&fv.IsFtpLogin, value)
	case "ct_ftp_cmd":
		return setInt(&fv.CtFtpCmd, value)
	case "ct_flw_http_mthd":
		return setInt(&fv.CtFlwHTTPMthd, value)
	case "ct_src_ltm":
		return setInt(&fv.CtSrcLtm, value)
	case "ct_srv_dst":
		return setInt(&fv.CtSrvDst, value)
	case "is_sm_ips_ports":
		return setInt(&fv.IsSmIpsPorts, value)
	default:
		return nil
	}
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt(dst *int64, value string) error {
	// Exported datasets often carry integer columns as floats.
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = int64(v)
	return nil
}
