package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetSentinel/internal/config"
)

// FlowVerdictRow is one persisted classification, as served by the API.
type FlowVerdictRow struct {
	Timestamp  time.Time `json:"timestamp"`
	RecordID   int64     `json:"record_id"`
	SrcAddr    string    `json:"src_addr"`
	SrcPort    uint16    `json:"src_port"`
	DstAddr    string    `json:"dst_addr"`
	DstPort    uint16    `json:"dst_port"`
	Proto      string    `json:"proto"`
	Service    string    `json:"service"`
	State      string    `json:"state"`
	Duration   float64   `json:"duration"`
	Attack     bool      `json:"attack"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
}

// VerdictFilter narrows a recent-flows query.
type VerdictFilter struct {
	SrcAddr    string
	Category   string
	AttackOnly bool
	Since      time.Time
	Limit      int
}

// VerdictSummary aggregates the stored verdict population.
type VerdictSummary struct {
	Flows      uint64  `json:"flows"`
	Attacks    uint64  `json:"attacks"`
	AvgConf    float64 `json:"avg_confidence"`
	TotalBytes uint64  `json:"total_bytes"`
}

// Querier reads classified flows back out of ClickHouse.
type Querier struct {
	conn driver.Conn
}

// NewQuerier connects with the same options as the writer.
func NewQuerier(cfg config.ClickHouseConfig) (*Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &Querier{conn: conn}, nil
}

// RecentFlows returns the latest stored verdicts matching the filter,
// newest first.
func (q *Querier) RecentFlows(ctx context.Context, f VerdictFilter) ([]FlowVerdictRow, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT
			Timestamp, RecordID, SrcAddr, SrcPort, DstAddr, DstPort,
			Proto, Service, State, Duration, Attack, Category, Confidence
		FROM flow_verdicts
	`)

	var where []string
	var args []any
	if f.SrcAddr != "" {
		where = append(where, "SrcAddr = ?")
		args = append(args, f.SrcAddr)
	}
	if f.Category != "" {
		where = append(where, "Category = ?")
		args = append(args, f.Category)
	}
	if f.AttackOnly {
		where = append(where, "Attack = 1")
	}
	if !f.Since.IsZero() {
		where = append(where, "Timestamp >= ?")
		args = append(args, f.Since)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fmt.Fprintf(&b, " ORDER BY Timestamp DESC LIMIT %d", limit)

	rows, err := q.conn.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var out []FlowVerdictRow
	for rows.Next() {
		var r FlowVerdictRow
		var attack uint8
		if err := rows.Scan(
			&r.Timestamp, &r.RecordID, &r.SrcAddr, &r.SrcPort, &r.DstAddr, &r.DstPort,
			&r.Proto, &r.Service, &r.State, &r.Duration, &attack, &r.Category, &r.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		r.Attack = attack == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates everything stored since the given time.
func (q *Querier) Summary(ctx context.Context, since time.Time) (*VerdictSummary, error) {
	query := `
		SELECT
			COUNT(*) AS Flows,
			countIf(Attack = 1) AS Attacks,
			avg(Confidence) AS AvgConf,
			SUM(SrcBytes + DstBytes) AS TotalBytes
		FROM flow_verdicts
		WHERE Timestamp >= ?
	`
	row := q.conn.QueryRow(ctx, query, since)

	var s VerdictSummary
	if err := row.Scan(&s.Flows, &s.Attacks, &s.AvgConf, &s.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	return &s, nil
}

func (q *Querier) Close() error {
	return q.conn.Close()
}
