package correlator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// fakeNotifier records deliveries and can fail a set number of times.
type fakeNotifier struct {
	mu       sync.Mutex
	name     string
	failures int
	sent     []*model.Alert
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(alert *model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("channel down")
	}
	f.sent = append(f.sent, alert)
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testConfig() *config.CorrelatorConfig {
	cfg := &config.CorrelatorConfig{NotifyRetryBackoff: "1ms"}
	full := &config.Config{Correlator: *cfg}
	full.ApplyDefaults()
	full.Correlator.NotifyRetryBackoff = "1ms"
	return &full.Correlator
}

func newTestCorrelator(t *testing.T) (*Correlator, *fakeNotifier, *fakeNotifier) {
	t.Helper()
	email := &fakeNotifier{name: "email"}
	dash := &fakeNotifier{name: "dashboard"}
	c, err := New(testConfig(), map[string]model.Notifier{
		"email":     email,
		"dashboard": dash,
	}, nil)
	require.NoError(t, err)
	return c, email, dash
}

func verdict(source string, confidence float64, ts time.Time) *model.Verdict {
	return &model.Verdict{
		SourceAddr: source,
		Category:   model.CategoryIntrusion,
		Attack:     true,
		Confidence: confidence,
		AttackProb: confidence,
		Timestamp:  ts,
	}
}

func TestProcessBelowThresholdProducesNoAlert(t *testing.T) {
	c, email, dash := newTestCorrelator(t)
	assert.Nil(t, c.Process(verdict("10.0.0.2", 0.5, time.Now())))
	assert.Nil(t, c.Process(&model.Verdict{Attack: false, Confidence: 0.99, Timestamp: time.Now()}))
	assert.Zero(t, email.sentCount())
	assert.Zero(t, dash.sentCount())
}

func TestProcessHighConfidenceSeverity(t *testing.T) {
	c, email, _ := newTestCorrelator(t)
	a := c.Process(verdict("10.0.0.2", 0.95, time.Now()))
	require.NotNil(t, a)

	// Base 2, +1 intrusion, +1 confidence above 0.9.
	assert.Equal(t, 4, a.Severity)
	assert.Equal(t, model.TierCritical, a.Tier)
	assert.Equal(t, model.StatusNew, a.Status)
	assert.Equal(t, 1, a.RepeatCount)
	// Critical routes to email and sms; only email is configured.
	assert.Equal(t, 1, email.sentCount())
	assert.Equal(t, []string{"email"}, a.NotifiedVia)
}

func TestProcessModerateConfidenceSeverity(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	a := c.Process(verdict("10.0.0.2", 0.75, time.Now()))
	require.NotNil(t, a)
	assert.Equal(t, 3, a.Severity)
	assert.Equal(t, model.TierHigh, a.Tier)
}

func TestDeduplicationWithinWindow(t *testing.T) {
	c, email, _ := newTestCorrelator(t)
	now := time.Now()

	first := c.Process(verdict("10.0.0.2", 0.75, now))
	require.NotNil(t, first)
	assert.Equal(t, 1, email.sentCount())

	second := c.Process(verdict("10.0.0.2", 0.75, now.Add(30*time.Second)))
	require.NotNil(t, second)

	assert.Same(t, first, second)
	assert.Equal(t, 2, second.RepeatCount)
	// Repeat bonus escalates high to critical and re-notifies.
	assert.Equal(t, 4, second.Severity)
	assert.Equal(t, model.TierCritical, second.Tier)
	assert.Equal(t, 2, email.sentCount())
	assert.Len(t, c.List("", "", 0, 0), 1)
}

func TestDeduplicationRepeatWithoutEscalationStaysQuiet(t *testing.T) {
	c, email, _ := newTestCorrelator(t)
	now := time.Now()

	c.Process(verdict("10.0.0.2", 0.95, now))
	a := c.Process(verdict("10.0.0.2", 0.95, now.Add(time.Second)))
	require.NotNil(t, a)

	// Severity caps at 5 but the tier is still critical: no re-notify.
	assert.Equal(t, 5, a.Severity)
	assert.Equal(t, model.TierCritical, a.Tier)
	assert.Equal(t, 1, email.sentCount())
}

func TestSeparateSourcesSeparateAlerts(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	now := time.Now()
	a := c.Process(verdict("10.0.0.2", 0.75, now))
	b := c.Process(verdict("10.0.0.3", 0.75, now))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, c.List("", "", 0, 0), 2)
}

func TestOutsideWindowCreatesNewAlert(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	now := time.Now()
	a := c.Process(verdict("10.0.0.2", 0.75, now))
	b := c.Process(verdict("10.0.0.2", 0.75, now.Add(6*time.Minute)))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 1, b.RepeatCount)
}

func TestAcknowledgeIsTerminal(t *testing.T) {
	c, email, _ := newTestCorrelator(t)
	now := time.Now()
	a := c.Process(verdict("10.0.0.2", 0.75, now))
	require.NotNil(t, a)

	acked, err := c.Acknowledge(a.ID, "analyst")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAcknowledged, acked.Status)
	assert.Equal(t, "analyst", acked.AcknowledgedBy)

	_, err = c.MarkFalsePositive(a.ID, "analyst")
	require.Error(t, err)

	// A repeat landing on a handled alert never notifies again, even
	// when the tier escalates.
	sent := email.sentCount()
	c.Process(verdict("10.0.0.2", 0.75, now.Add(time.Minute)))
	assert.Equal(t, sent, email.sentCount())
}

func TestMarkFalsePositive(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	a := c.Process(verdict("10.0.0.2", 0.75, time.Now()))
	fp, err := c.MarkFalsePositive(a.ID, "analyst")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFalsePositive, fp.Status)
	assert.Equal(t, "analyst", fp.MarkedFPBy)
}

func TestTransitionUnknownAlert(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	_, err := c.Acknowledge("no-such-id", "analyst")
	require.Error(t, err)
}

func TestNotifyRetriesThenDelivers(t *testing.T) {
	email := &fakeNotifier{name: "email", failures: 2}
	c, err := New(testConfig(), map[string]model.Notifier{"email": email}, nil)
	require.NoError(t, err)

	a := c.Process(verdict("10.0.0.2", 0.95, time.Now()))
	require.NotNil(t, a)
	assert.Equal(t, 1, email.sentCount())
	assert.Contains(t, a.NotifiedVia, "email")
}

func TestNotifyExhaustedRetriesLogged(t *testing.T) {
	email := &fakeNotifier{name: "email", failures: 10}
	c, err := New(testConfig(), map[string]model.Notifier{"email": email}, nil)
	require.NoError(t, err)

	a := c.Process(verdict("10.0.0.2", 0.95, time.Now()))
	require.NotNil(t, a)
	assert.Empty(t, a.NotifiedVia)
}

func TestOnAlertCallback(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	var got []*model.Alert
	c.OnAlert = func(a *model.Alert) { got = append(got, a) }

	now := time.Now()
	c.Process(verdict("10.0.0.2", 0.75, now))
	c.Process(verdict("10.0.0.2", 0.75, now.Add(time.Second)))

	// Only the creation publishes, not the repeat.
	assert.Len(t, got, 1)
}

func TestListPaginationAndStats(t *testing.T) {
	c, _, _ := newTestCorrelator(t)
	now := time.Now()
	for i, src := range []string{"10.0.0.2", "10.0.0.3", "10.0.0.4"} {
		c.Process(verdict(src, 0.75, now.Add(time.Duration(i)*time.Second)))
	}

	page := c.List("", "", 0, 2)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, "10.0.0.4", page[0].SourceAddr)

	rest := c.List("", "", 2, 2)
	require.Len(t, rest, 1)

	byTier := c.List("", model.TierHigh, 0, 0)
	assert.Len(t, byTier, 3)
	assert.Empty(t, c.List("", model.TierCritical, 0, 0))

	stats := c.Stats()
	assert.Equal(t, 3, stats["status"]["new"])
	assert.Equal(t, 3, stats["category"][model.CategoryIntrusion])
}
