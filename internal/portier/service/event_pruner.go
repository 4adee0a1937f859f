package service

import (
	"context"
	"log"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/store"
)

// EventPruner periodically deletes scan events older than a configurable
// retention period.  The audit log is append-only by contract, so the
// default retention of 0 disables pruning entirely; the knob exists for
// deployments with data-retention obligations.
type EventPruner struct {
	events    store.ScanEventStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionDays is how many days of scan history to keep.
	// 0 means keep everything (the pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 24.
	IntervalHours int
}

// NewEventPruner creates a pruner but does not start it.
func NewEventPruner(events store.ScanEventStore, cfg PrunerConfig, logger *log.Logger) *EventPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &EventPruner{
		events:    events,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins the background loop: an immediate prune, then one per
// interval, until ctx is cancelled or Stop is called.
func (p *EventPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("scan event pruner disabled (retention=0, audit log kept forever)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Printf("scan event pruner started (retention=%dd, interval=%dh)",
		int(p.retention.Hours()/24), int(p.interval.Hours()))
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *EventPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *EventPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *EventPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.events.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("scan event prune error: %v", err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("scan event prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
}
