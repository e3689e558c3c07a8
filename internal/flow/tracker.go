package flow

import (
	"hash/fnv"
	"log"
	"sync"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

type shard struct {
	mu    sync.RWMutex
	flows map[model.FlowKey]*model.FlowRecord
}

type job struct {
	pkt   *model.Packet
	key   model.FlowKey
	shard uint32
}

// Tracker aggregates packets into bidirectional flow records. Packets
// entering via Input are hashed on their flow key and routed to a fixed
// worker, so all packets of one flow are applied in arrival order.
// Closed records are delivered on Output.
type Tracker struct {
	shards     []*shard
	numShards  uint32
	numWorkers int

	idleTimeout time.Duration
	lifetime    time.Duration
	sweepEvery  time.Duration

	input      chan *model.Packet
	workerChs  []chan *job
	out        chan *model.FlowRecord
	workerWg   sync.WaitGroup
	dispatchWg sync.WaitGroup

	stopSweep chan struct{}
	sweepWg   sync.WaitGroup
}

// NewTracker builds a Tracker from the tracker section of the config.
// Durations are parsed during config load; zero values fall back to the
// documented defaults there, not here.
func NewTracker(cfg *config.TrackerConfig) (*Tracker, error) {
	idle, err := time.ParseDuration(cfg.IdleTimeout)
	if err != nil {
		return nil, err
	}
	lifetime, err := time.ParseDuration(cfg.Lifetime)
	if err != nil {
		return nil, err
	}
	sweep, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		shards:      make([]*shard, cfg.NumShards),
		numShards:   uint32(cfg.NumShards),
		numWorkers:  cfg.NumWorkers,
		idleTimeout: idle,
		lifetime:    lifetime,
		sweepEvery:  sweep,
		input:       make(chan *model.Packet, cfg.SizeOfPacketChannel),
		workerChs:   make([]chan *job, cfg.NumWorkers),
		out:         make(chan *model.FlowRecord, cfg.SizeOfPacketChannel),
		stopSweep:   make(chan struct{}),
	}
	for i := range t.shards {
		t.shards[i] = &shard{flows: make(map[model.FlowKey]*model.FlowRecord)}
	}
	for i := range t.workerChs {
		t.workerChs[i] = make(chan *job, cfg.SizeOfPacketChannel/cfg.NumWorkers+1)
	}
	return t, nil
}

// Input returns the channel packets are submitted on.
func (t *Tracker) Input() chan<- *model.Packet {
	return t.input
}

// Output returns the channel closed flow records are delivered on.
func (t *Tracker) Output() <-chan *model.FlowRecord {
	return t.out
}

// Start launches the dispatcher, the worker pool and the eviction
// sweeper.
func (t *Tracker) Start() {
	for i := 0; i < t.numWorkers; i++ {
		t.workerWg.Add(1)
		go t.worker(t.workerChs[i])
	}

	t.dispatchWg.Add(1)
	go t.dispatch()

	t.sweepWg.Add(1)
	go t.sweeper()

	log.Printf("flow tracker started: %d shards, %d workers, idle=%s lifetime=%s",
		t.numShards, t.numWorkers, t.idleTimeout, t.lifetime)
}

// Stop drains pending packets, flushes every open flow as a record with
// close reason flush and closes the output channel. The input channel
// must not be written to after Stop is called.
func (t *Tracker) Stop() {
	close(t.input)
	t.dispatchWg.Wait()
	for _, ch := range t.workerChs {
		close(ch)
	}
	t.workerWg.Wait()

	close(t.stopSweep)
	t.sweepWg.Wait()

	t.flushAll()
	close(t.out)
	log.Printf("flow tracker stopped")
}

func (t *Tracker) dispatch() {
	defer t.dispatchWg.Done()
	for pkt := range t.input {
		key := KeyFor(pkt)
		idx := t.shardIndex(key)
		t.workerChs[idx%uint32(t.numWorkers)] <- &job{pkt: pkt, key: key, shard: idx}
	}
}

func (t *Tracker) worker(ch chan *job) {
	defer t.workerWg.Done()
	for j := range ch {
		if closed := t.apply(j); closed != nil {
			for _, rec := range closed {
				t.out <- rec
			}
		}
	}
}

func (t *Tracker) shardIndex(key model.FlowKey) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return h.Sum32() % t.numShards
}

// apply updates the flow the packet belongs to, creating a new record
// when none is open. It returns records that closed as a consequence of
// this packet: a stale flow replaced under the same key, or the flow
// itself on a terminal TCP flag.
func (t *Tracker) apply(j *job) []*model.FlowRecord {
	sh := t.shards[j.shard]
	var closed []*model.FlowRecord

	sh.mu.Lock()
	rec, ok := sh.flows[j.key]
	if ok && t.expired(rec, j.pkt.Timestamp) {
		// A packet arriving after its flow timed out opens a fresh
		// flow under the same key.
		rec.State = model.FlowClosed
		closed = append(closed, rec)
		ok = false
	}
	if !ok {
		rec = newRecord(j.key, j.pkt)
		sh.flows[j.key] = rec
	} else {
		updateRecord(rec, j.pkt)
	}
	if rec.CloseReason == model.CloseTerminal {
		rec.State = model.FlowClosed
		delete(sh.flows, j.key)
		closed = append(closed, rec)
	}
	sh.mu.Unlock()

	return closed
}

func (t *Tracker) expired(rec *model.FlowRecord, now time.Time) bool {
	if now.Sub(rec.LastSeen) > t.idleTimeout {
		rec.CloseReason = model.CloseIdle
		return true
	}
	if now.Sub(rec.FirstSeen) > t.lifetime {
		rec.CloseReason = model.CloseLifetime
		return true
	}
	return false
}

func (t *Tracker) sweeper() {
	defer t.sweepWg.Done()
	ticker := time.NewTicker(t.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-t.stopSweep:
			return
		}
	}
}

// sweep evicts idle and over-age flows. Eviction commits under the
// shard lock, so a packet racing the sweeper either lands on the flow
// before it is removed or starts a new one after.
func (t *Tracker) sweep(now time.Time) {
	for _, sh := range t.shards {
		var evicted []*model.FlowRecord
		sh.mu.Lock()
		for key, rec := range sh.flows {
			if t.expired(rec, now) {
				rec.State = model.FlowClosed
				delete(sh.flows, key)
				evicted = append(evicted, rec)
			}
		}
		sh.mu.Unlock()
		for _, rec := range evicted {
			t.out <- rec
		}
	}
}

func (t *Tracker) flushAll() {
	for _, sh := range t.shards {
		sh.mu.Lock()
		for key, rec := range sh.flows {
			rec.State = model.FlowClosed
			rec.CloseReason = model.CloseFlush
			delete(sh.flows, key)
			t.out <- rec
		}
		sh.mu.Unlock()
	}
}

// newRecord opens a flow record from its first packet. The first
// packet's sender is the flow initiator; direction attribution for
// every later packet compares against it.
func newRecord(key model.FlowKey, p *model.Packet) *model.FlowRecord {
	rec := &model.FlowRecord{
		Key:       key,
		State:     model.FlowActive,
		SrcAddr:   p.SrcIP.String(),
		SrcPort:   p.SrcPort,
		DstAddr:   p.DstIP.String(),
		DstPort:   p.DstPort,
		Protocol:  p.Protocol,
		FirstSeen: p.Timestamp,
		LastSeen:  p.Timestamp,
	}
	applyDirectional(rec, p, true)
	applyCommon(rec, p, true)
	return rec
}

func updateRecord(rec *model.FlowRecord, p *model.Packet) {
	forward := p.SrcIP.String() == rec.SrcAddr && p.SrcPort == rec.SrcPort
	rec.LastSeen = p.Timestamp
	applyDirectional(rec, p, forward)
	applyCommon(rec, p, forward)
}

func applyDirectional(rec *model.FlowRecord, p *model.Packet, forward bool) {
	if forward {
		rec.SrcPackets++
		rec.SrcBytes += uint64(p.Length)
		rec.SrcTimes = append(rec.SrcTimes, p.Timestamp)
		if rec.SrcTTL == 0 {
			rec.SrcTTL = p.TTL
		}
		if rec.SrcWindow == 0 {
			rec.SrcWindow = p.Window
		}
		if rec.SrcSeq == 0 {
			rec.SrcSeq = p.Seq
		}
	} else {
		rec.DstPackets++
		rec.DstBytes += uint64(p.Length)
		rec.DstTimes = append(rec.DstTimes, p.Timestamp)
		if rec.DstTTL == 0 {
			rec.DstTTL = p.TTL
		}
		if rec.DstWindow == 0 {
			rec.DstWindow = p.Window
		}
		if rec.DstSeq == 0 {
			rec.DstSeq = p.Seq
		}
	}
}

func applyCommon(rec *model.FlowRecord, p *model.Packet, forward bool) {
	if p.Protocol == ProtoTCP {
		rec.FlagUnion |= p.Flags
		trackHandshake(rec, p, forward)
		if p.Flags.Has(model.FlagFIN) || p.Flags.Has(model.FlagRST) {
			rec.CloseReason = model.CloseTerminal
		}
	}
	if p.HTTPMethod {
		rec.HTTPMethods++
		rec.TransDepth++
	}
	if p.HTTPResponse {
		rec.RespBodyLen += p.ContentLen
	}
	if p.FTPLogin {
		rec.FTPLogin = true
	}
	if p.FTPCommand {
		rec.FTPCommands++
	}
}

// trackHandshake records the timestamps of the three-way handshake so
// synack and ackdat round-trip components can be derived later.
func trackHandshake(rec *model.FlowRecord, p *model.Packet, forward bool) {
	syn := p.Flags.Has(model.FlagSYN)
	ack := p.Flags.Has(model.FlagACK)
	switch {
	case forward && syn && !ack && rec.SYNTime.IsZero():
		rec.SYNTime = p.Timestamp
	case !forward && syn && ack && rec.SYNACKTime.IsZero():
		rec.SYNACKTime = p.Timestamp
	case forward && ack && !syn && !rec.SYNACKTime.IsZero() && rec.ACKTime.IsZero():
		rec.ACKTime = p.Timestamp
	}
}
