package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_verdicts (
    Timestamp    DateTime,
    RecordID     Int64,
    SrcAddr      String,
    SrcPort      UInt16,
    DstAddr      String,
    DstPort      UInt16,
    Proto        String,
    Service      String,
    State        String,
    StartTime    DateTime,
    EndTime      DateTime,
    Duration     Float64,
    SrcPackets   UInt64,
    DstPackets   UInt64,
    SrcBytes     UInt64,
    DstBytes     UInt64,
    CloseReason  String,
    Attack       UInt8,
    Category     String,
    Confidence   Float64,
    AttackProb   Float64,
    AnomalyScore Float64,
    Degraded     UInt8
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, SrcAddr);
`

// ClickHouseWriter persists classified flows for offline analysis.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects, verifies the connection and ensures the
// flow_verdicts table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.RecordWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")
	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write inserts one classified flow into the flow_verdicts table.
func (w *ClickHouseWriter) Write(rec *model.FlowRecord, fv *model.FeatureVector, verdict *model.Verdict) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO flow_verdicts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	err = batch.Append(
		verdict.Timestamp,
		verdict.RecordID,
		rec.SrcAddr,
		rec.SrcPort,
		rec.DstAddr,
		rec.DstPort,
		fv.Proto,
		fv.Service,
		fv.State,
		rec.FirstSeen,
		rec.LastSeen,
		fv.Dur,
		rec.SrcPackets,
		rec.DstPackets,
		rec.SrcBytes,
		rec.DstBytes,
		rec.CloseReason.String(),
		boolToUInt8(verdict.Attack),
		verdict.Category,
		verdict.Confidence,
		verdict.AttackProb,
		verdict.AnomalyScore,
		boolToUInt8(verdict.Degraded),
	)
	if err != nil {
		return fmt.Errorf("failed to append flow to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
