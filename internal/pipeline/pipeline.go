package pipeline

import (
	"fmt"
	"log"
	"sync"
	"time"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/config"
	"NetSentinel/internal/correlator"
	"NetSentinel/internal/ensemble"
	"NetSentinel/internal/feature"
	"NetSentinel/internal/flow"
	"NetSentinel/internal/hybrid"
	"NetSentinel/internal/model"
)

// drainTimeout bounds how long Stop waits for in-flight classification
// before giving up.
const drainTimeout = 30 * time.Second

// Pipeline wires the detection stages together: the flow tracker feeds
// closed records through feature extraction, encoding and hybrid
// classification, then into the alert correlator and the optional
// persistence writer.
type Pipeline struct {
	tracker    *flow.Tracker
	encoder    *feature.Encoder
	fuser      *hybrid.Fuser
	correlator *correlator.Correlator
	writer     model.RecordWriter

	// OnVerdict, when set, observes every verdict produced by the flow
	// path. Used by the offline analyzer for reporting.
	OnVerdict func(*model.Verdict)

	numWorkers int
	wg         sync.WaitGroup
}

// New assembles the pipeline from loaded artifacts. The correlator and
// writer are optional; the detection stages always run.
func New(cfg *config.Config, bundle *artifact.Bundle, corr *correlator.Correlator, writer model.RecordWriter) (*Pipeline, error) {
	strategy, err := ensemble.ParseStrategy(cfg.Ensemble.Strategy)
	if err != nil {
		return nil, err
	}
	ens, err := ensemble.New(bundle.Models, bundle.Weights, strategy, bundle.Stacking, bundle.Degraded)
	if err != nil {
		return nil, fmt.Errorf("build ensemble: %w", err)
	}

	tracker, err := flow.NewTracker(&cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("build tracker: %w", err)
	}

	return &Pipeline{
		tracker:    tracker,
		encoder:    bundle.Encoder,
		fuser:      hybrid.NewFuser(ens, bundle.Detector, cfg.Fusion.ConfidenceThreshold),
		correlator: corr,
		writer:     writer,
		numWorkers: cfg.Tracker.NumWorkers,
	}, nil
}

// Input returns the packet submission channel.
func (p *Pipeline) Input() chan<- *model.Packet {
	return p.tracker.Input()
}

// Start launches the tracker and the classification workers.
func (p *Pipeline) Start() {
	p.tracker.Start()
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.classifyLoop()
	}
	log.Printf("detection pipeline started with %d classification workers", p.numWorkers)
}

// Stop flushes open flows and waits for in-flight classification to
// drain, bounded by drainTimeout.
func (p *Pipeline) Stop() {
	p.tracker.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		log.Printf("pipeline drain timed out after %s", drainTimeout)
	}

	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			log.Printf("writer close: %v", err)
		}
	}
	log.Printf("detection pipeline stopped")
}

// classifyLoop consumes closed flows until the tracker output closes.
// Errors are contained per record; one bad flow never stops the loop.
func (p *Pipeline) classifyLoop() {
	defer p.wg.Done()
	for rec := range p.tracker.Output() {
		fv := feature.Extract(rec)
		verdict, err := p.Detect(fv)
		if err != nil {
			log.Printf("classification failed for flow %s: %v", rec.Key, err)
			continue
		}
		if p.writer != nil {
			if err := p.writer.Write(rec, fv, verdict); err != nil {
				log.Printf("persist flow %s: %v", rec.Key, err)
			}
		}
		if p.correlator != nil {
			p.correlator.Process(verdict)
		}
		if p.OnVerdict != nil {
			p.OnVerdict(verdict)
		}
	}
}

// Detect classifies one already-aggregated feature vector. This is the
// entry point for the detection API, which bypasses the flow tracker.
// Caller-supplied values are scrubbed so a NaN or Inf field cannot
// poison the verdict scores.
func (p *Pipeline) Detect(fv *model.FeatureVector) (*model.Verdict, error) {
	feature.Sanitize(fv)
	vec := p.encoder.Encode(fv)
	return p.fuser.Evaluate(fv, vec)
}
