package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DigestSink receives batches of aggregated warnings and errors.
type DigestSink interface {
	PublishDigest(ctx context.Context, entries []DigestEntry) error
}

type DigestConfig struct {
	Interval  time.Duration // flush interval
	Threshold int           // distinct entries that force a flush
	Sink      DigestSink
}

// DigestEntry counts repeats of one (level, message, fields) combination.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest collapses repeated warnings and errors, such as the same solver
// failure across a chain, into counted entries flushed periodically.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Digest{cfg: cfg, entries: make(map[string]*DigestEntry), cancel: cancel}
	d.wg.Add(1)
	go d.loop(ctx)
	return d
}

func (d *Digest) add(level, msg string, fields []Field) {
	if d == nil {
		return
	}
	fm := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.GetKeyValue()
		fm[k] = v
	}
	key := digestKey(level, msg, fm)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{Level: level, Message: msg, Fields: fm, Count: 1, FirstSeen: now, LastSeen: now}
	}
	if len(d.entries) >= d.cfg.Threshold {
		d.flushLocked(false)
	}
}

// Snapshot returns the pending entries without flushing them.
func (d *Digest) Snapshot() []DigestEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	return out
}

func digestKey(level, msg string, fields map[string]interface{}) string {
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
	}{level, msg, fields})
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (d *Digest) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.flushLocked(false)
			d.mu.Unlock()
		case <-ctx.Done():
			d.mu.Lock()
			d.flushLocked(true)
			d.mu.Unlock()
			return
		}
	}
}

// flushLocked hands the pending entries to the sink; d.mu must be held.
func (d *Digest) flushLocked(wait bool) {
	if len(d.entries) == 0 || d.cfg.Sink == nil {
		return
	}
	batch := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		batch = append(batch, *e)
	}
	d.entries = make(map[string]*DigestEntry)

	send := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cfg.Sink.PublishDigest(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log digest: publish failed: %v\n", err)
		}
	}
	if wait {
		send()
		return
	}
	go send()
}

// Close stops the flush loop after a final flush.
func (d *Digest) Close() {
	d.cancel()
	d.wg.Wait()
}
