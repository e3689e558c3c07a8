package pipeline

import (
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/config"
	"NetSentinel/internal/correlator"
	"NetSentinel/internal/ensemble"
	"NetSentinel/internal/feature"
	"NetSentinel/internal/hybrid"
	"NetSentinel/internal/model"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []*model.Alert
}

func (n *captureNotifier) Name() string { return "email" }

func (n *captureNotifier) Send(alert *model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, alert)
	return nil
}

type captureWriter struct {
	mu   sync.Mutex
	rows int
}

func (w *captureWriter) Write(_ *model.FlowRecord, _ *model.FeatureVector, _ *model.Verdict) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows++
	return nil
}

func (w *captureWriter) Close() error { return nil }

// testBundle builds an in-memory artifact bundle whose single model
// scores everything as an attack with near-certain probability, and
// whose anomaly detector never fires.
func testBundle(t *testing.T) *artifact.Bundle {
	t.Helper()
	n := feature.NumFields

	means := make([]float64, n)
	stds := make([]float64, n)
	for i := range stds {
		stds[i] = 1
	}
	enc, err := feature.NewEncoder(map[string]map[string]float64{
		"proto":   {"tcp": 0, "udp": 1, "icmp": 2, "other": 3},
		"service": {"-": 0, "http": 1, "dns": 2},
		"state":   {"INT": 0, "FIN": 1, "CON": 2, "REQ": 3, "RST": 4},
	}, -1, means, stds)
	require.NoError(t, err)

	det, err := hybrid.NewZScoreDetector(means, stds, 1e9)
	require.NoError(t, err)

	return &artifact.Bundle{
		Encoder:  enc,
		Models:   []model.Classifier{ensemble.NewLogisticModel("knn", 12, make([]float64, n), 0.5)},
		Weights:  map[string]float64{"knn": 1},
		Detector: det,
	}
}

func testPipelineConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Tracker.NumShards = 8
	cfg.Tracker.NumWorkers = 2
	cfg.Tracker.SizeOfPacketChannel = 256
	cfg.Tracker.SweepInterval = "1h"
	return cfg
}

func newTestPipeline(t *testing.T) (*Pipeline, *captureNotifier, *captureWriter) {
	t.Helper()
	cfg := testPipelineConfig()
	cfg.Correlator.NotifyRetryBackoff = "1ms"
	cfg.Correlator.Routes = map[string][]string{
		"critical": {"email"},
		"high":     {"email"},
		"medium":   {"email"},
		"low":      {"email"},
	}

	notifier := &captureNotifier{}
	corr, err := correlator.New(&cfg.Correlator, map[string]model.Notifier{"email": notifier}, nil)
	require.NoError(t, err)

	writer := &captureWriter{}
	p, err := New(cfg, testBundle(t), corr, writer)
	require.NoError(t, err)
	return p, notifier, writer
}

func TestPipelineEndToEnd(t *testing.T) {
	p, notifier, writer := newTestPipeline(t)
	p.Start()

	base := time.Now()
	src := net.ParseIP("10.0.0.2")
	dst := net.ParseIP("10.0.0.1")
	pkts := []*model.Packet{
		{Timestamp: base, SrcIP: src, DstIP: dst, SrcPort: 51324, DstPort: 80, Protocol: 6, Length: 60, TTL: 64, Flags: model.FlagSYN},
		{Timestamp: base.Add(20 * time.Millisecond), SrcIP: dst, DstIP: src, SrcPort: 80, DstPort: 51324, Protocol: 6, Length: 60, TTL: 128, Flags: model.FlagSYN | model.FlagACK},
		{Timestamp: base.Add(54 * time.Millisecond), SrcIP: src, DstIP: dst, SrcPort: 51324, DstPort: 80, Protocol: 6, Length: 52, TTL: 64, Flags: model.FlagACK | model.FlagFIN},
	}
	for _, pkt := range pkts {
		p.Input() <- pkt
	}
	p.Stop()

	writer.mu.Lock()
	assert.Equal(t, 1, writer.rows)
	writer.mu.Unlock()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 1)
	alert := notifier.sent[0]
	assert.Equal(t, model.CategoryIntrusion, alert.Category)
	assert.Equal(t, "10.0.0.2", alert.SourceAddr)
	assert.GreaterOrEqual(t, alert.Confidence, 0.7)
}

func TestPipelineDetectBypassesTracker(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	v, err := p.Detect(&model.FeatureVector{
		Dur: 0.054, Proto: "tcp", Service: "http", State: "FIN",
		Spkts: 2, Dpkts: 1, SourceAddr: "10.0.0.2",
	})
	require.NoError(t, err)
	assert.True(t, v.Attack)
	assert.Equal(t, "10.0.0.2", v.SourceAddr)
}

func TestPipelineDetectScrubsNonFiniteInput(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	v, err := p.Detect(&model.FeatureVector{
		Dur: math.NaN(), Rate: math.Inf(1), Sload: math.NaN(),
		Proto: "tcp", Service: "http", State: "FIN",
		Spkts: 2, Dpkts: 1, SourceAddr: "10.0.0.2",
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(v.Confidence))
	assert.GreaterOrEqual(t, v.Confidence, 0.0)
	assert.LessOrEqual(t, v.Confidence, 1.0)
	assert.False(t, math.IsNaN(v.AttackProb))
	assert.False(t, math.IsNaN(v.AnomalyScore))
}

func TestPipelineRejectsUnknownStrategy(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Ensemble.Strategy = "plurality"
	_, err := New(cfg, testBundle(t), nil, nil)
	require.Error(t, err)
}

func TestPipelineStartsWithDegradedStackingBundle(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Ensemble.Strategy = "stacking"

	bundle := testBundle(t)
	bundle.Degraded = true
	bundle.Stacking = nil

	p, err := New(cfg, bundle, nil, nil)
	require.NoError(t, err)

	v, err := p.Detect(&model.FeatureVector{
		Proto: "tcp", Service: "http", State: "FIN",
		Spkts: 2, Dpkts: 1, SourceAddr: "10.0.0.2",
	})
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.False(t, math.IsNaN(v.Confidence))
}
