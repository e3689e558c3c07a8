package correlator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// Correlator turns threshold-crossing verdicts into managed alerts:
// severity scoring, deduplication inside a sliding window, tier-based
// notification routing and the acknowledge/false-positive transitions.
//
// The recent-alert window and the alert index share one mutex; the
// critical sections only touch in-memory state, notification and
// persistence happen outside the lock.
type Correlator struct {
	alertThreshold float64
	highConfidence float64
	window         time.Duration
	recentCount    int
	maxSeverity    int
	baseSeverity   map[string]int
	routes         map[string][]string
	retries        int
	backoff        time.Duration

	notifiers map[string]model.Notifier
	store     *Store

	// OnAlert, when set, receives every newly created alert after local
	// processing. The pipeline hooks the message bus here.
	OnAlert func(*model.Alert)

	mu     sync.Mutex
	recent []*model.Alert
	byID   map[string]*model.Alert
}

// New builds a correlator. The notifier set is keyed by channel name as
// referenced in the routing table; routes naming an absent channel are
// logged at delivery time, not rejected here.
func New(cfg *config.CorrelatorConfig, notifiers map[string]model.Notifier, store *Store) (*Correlator, error) {
	window, err := time.ParseDuration(cfg.RepeatWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid repeat_window: %w", err)
	}
	backoff, err := time.ParseDuration(cfg.NotifyRetryBackoff)
	if err != nil {
		return nil, fmt.Errorf("invalid notify_retry_backoff: %w", err)
	}
	return &Correlator{
		alertThreshold: cfg.AlertThreshold,
		highConfidence: cfg.HighConfidence,
		window:         window,
		recentCount:    cfg.RecentCount,
		maxSeverity:    cfg.MaxSeverity,
		baseSeverity:   cfg.BaseSeverity,
		routes:         cfg.Routes,
		retries:        cfg.NotifyRetries,
		backoff:        backoff,
		notifiers:      notifiers,
		store:          store,
		byID:           make(map[string]*model.Alert),
	}, nil
}

// Process evaluates one verdict. It returns the alert the verdict
// landed on (new or deduplicated) or nil when the verdict does not
// cross the alerting bar.
func (c *Correlator) Process(v *model.Verdict) *model.Alert {
	if !v.Attack || v.Confidence < c.alertThreshold {
		return nil
	}

	c.mu.Lock()
	if existing := c.findRecent(v.SourceAddr, v.Category, v.Timestamp); existing != nil {
		existing.RepeatCount++
		existing.LastSeen = v.Timestamp
		if v.Confidence > existing.Confidence {
			existing.Confidence = v.Confidence
		}
		prevTier := existing.Tier
		existing.Severity = c.score(v.Category, v.Confidence, true)
		existing.Tier = model.TierForScore(existing.Severity)
		escalated := existing.Tier != prevTier
		terminal := existing.Status != model.StatusNew
		c.mu.Unlock()

		c.persist(existing, true)
		// Repeats stay quiet unless the severity tier moved, and a
		// handled alert never notifies again.
		if escalated && !terminal {
			c.notify(existing)
		}
		return existing
	}

	alert := &model.Alert{
		ID:          uuid.NewString(),
		Category:    v.Category,
		Confidence:  v.Confidence,
		AttackProb:  v.AttackProb,
		SourceAddr:  v.SourceAddr,
		Message:     fmt.Sprintf("detected %s traffic from %s", v.Category, v.SourceAddr),
		FirstSeen:   v.Timestamp,
		LastSeen:    v.Timestamp,
		RepeatCount: 1,
		Status:      model.StatusNew,
	}
	alert.Severity = c.score(v.Category, v.Confidence, false)
	alert.Tier = model.TierForScore(alert.Severity)

	c.recent = append([]*model.Alert{alert}, c.recent...)
	if len(c.recent) > c.recentCount {
		c.recent = c.recent[:c.recentCount]
	}
	c.byID[alert.ID] = alert
	c.mu.Unlock()

	c.persist(alert, false)
	c.notify(alert)
	if c.OnAlert != nil {
		c.OnAlert(alert)
	}
	return alert
}

// findRecent scans the window for an open alert with the same source
// and category. Caller holds the mutex.
func (c *Correlator) findRecent(source, category string, now time.Time) *model.Alert {
	for _, a := range c.recent {
		if a.SourceAddr == source && a.Category == category && now.Sub(a.LastSeen) <= c.window {
			return a
		}
	}
	return nil
}

// score computes the severity of an alert: category base, plus one for
// an active intrusion, plus one for high confidence, plus one for a
// repeat inside the window, capped.
func (c *Correlator) score(category string, confidence float64, repeated bool) int {
	s, ok := c.baseSeverity[category]
	if !ok {
		s = model.MinSeverity
	}
	if category == model.CategoryIntrusion {
		s++
	}
	if confidence > c.highConfidence {
		s++
	}
	if repeated {
		s++
	}
	if s > c.maxSeverity {
		s = c.maxSeverity
	}
	if s < model.MinSeverity {
		s = model.MinSeverity
	}
	return s
}

// notify routes the alert to every channel of its tier, retrying each
// with linear backoff. Failed deliveries are logged, never dropped
// silently.
func (c *Correlator) notify(alert *model.Alert) {
	for _, channel := range c.routes[alert.Tier] {
		n, ok := c.notifiers[channel]
		if !ok {
			log.Printf("alert %s: channel %q not configured", alert.ID, channel)
			continue
		}
		if err := c.deliver(n, alert); err != nil {
			log.Printf("alert %s undelivered via %s: %v", alert.ID, channel, err)
			continue
		}
		c.mu.Lock()
		alert.NotifiedVia = append(alert.NotifiedVia, channel)
		c.mu.Unlock()
	}
}

func (c *Correlator) deliver(n model.Notifier, alert *model.Alert) error {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err = n.Send(alert); err == nil {
			return nil
		}
		if attempt < c.retries {
			time.Sleep(time.Duration(attempt) * c.backoff)
		}
	}
	return err
}

func (c *Correlator) persist(alert *model.Alert, update bool) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	if update {
		err = c.store.Update(ctx, alert)
	} else {
		err = c.store.Save(ctx, alert)
	}
	if err != nil {
		log.Printf("alert %s not persisted: %v", alert.ID, err)
	}
}

// Acknowledge transitions an alert out of the notification path.
func (c *Correlator) Acknowledge(id, by string) (*model.Alert, error) {
	return c.transition(id, by, model.StatusAcknowledged)
}

// MarkFalsePositive transitions an alert out of the notification path
// and flags it for model feedback.
func (c *Correlator) MarkFalsePositive(id, by string) (*model.Alert, error) {
	return c.transition(id, by, model.StatusFalsePositive)
}

func (c *Correlator) transition(id, by string, to model.AlertStatus) (*model.Alert, error) {
	c.mu.Lock()
	alert, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("alert %s not found", id)
	}
	if alert.Status != model.StatusNew {
		c.mu.Unlock()
		return nil, fmt.Errorf("alert %s already %s", id, alert.Status)
	}
	alert.Status = to
	now := time.Now()
	switch to {
	case model.StatusAcknowledged:
		alert.AcknowledgedBy = by
		alert.AcknowledgedAt = now
	case model.StatusFalsePositive:
		alert.MarkedFPBy = by
		alert.MarkedFPAt = now
	}
	c.mu.Unlock()

	c.persist(alert, true)
	return alert, nil
}

// Get returns one alert by ID.
func (c *Correlator) Get(id string) (*model.Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.byID[id]
	return a, ok
}

// List returns alerts newest-first, optionally filtered by status and
// severity tier, with offset/limit pagination.
func (c *Correlator) List(status model.AlertStatus, tier string, offset, limit int) []*model.Alert {
	c.mu.Lock()
	all := make([]*model.Alert, 0, len(c.byID))
	for _, a := range c.byID {
		if status != "" && a.Status != status {
			continue
		}
		if tier != "" && a.Tier != tier {
			continue
		}
		all = append(all, a)
	}
	c.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].LastSeen.After(all[j].LastSeen) })
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// Stats summarizes the alert population by status, tier and category.
func (c *Correlator) Stats() map[string]map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := map[string]map[string]int{
		"status":   {},
		"tier":     {},
		"category": {},
	}
	for _, a := range c.byID {
		stats["status"][string(a.Status)]++
		stats["tier"][a.Tier]++
		stats["category"][a.Category]++
	}
	return stats
}
