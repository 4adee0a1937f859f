package mqttbus

import (
	"context"
	"log"
	"sync"

	"github.com/portier-acs/portier/server/internal/metrics"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// perScannerQueueCap bounds each scanner's backlog.  A scanner produces at
// most a few scans per second; a full queue means the store is wedged and
// dropping beats unbounded growth.
const perScannerQueueCap = 64

// Dispatcher fans inbound scan messages out to one goroutine per scanner,
// so decisions for a single scanner are published in arrival order while
// different scanners process fully in parallel.
type Dispatcher struct {
	ctx     context.Context
	handle  func(ctx context.Context, msg types.ScanMessage)
	logger  *log.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	queues map[string]chan types.ScanMessage
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher whose workers run under ctx.  handle
// is invoked serially per scanner uid.
func NewDispatcher(ctx context.Context, handle func(ctx context.Context, msg types.ScanMessage), logger *log.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		ctx:     ctx,
		handle:  handle,
		logger:  logger,
		metrics: m,
		queues:  make(map[string]chan types.ScanMessage),
	}
}

// Enqueue routes the message onto its scanner's queue, spawning the
// scanner's worker on first sight.  A full queue drops the message with a
// log entry rather than blocking the subscriber callback.  The send
// happens under d.mu: Close closes the queues under the same mutex, so a
// send can never land on a closed channel.
func (d *Dispatcher) Enqueue(msg types.ScanMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	q, ok := d.queues[msg.ScannerUID]
	if !ok {
		q = make(chan types.ScanMessage, perScannerQueueCap)
		d.queues[msg.ScannerUID] = q
		d.wg.Add(1)
		go d.worker(q)
	}

	select {
	case q <- msg:
	default:
		d.logger.Printf("scan dropped: queue full for scanner %q", msg.ScannerUID)
		d.metrics.DroppedMessages.WithLabelValues("queue_full").Inc()
	}
}

func (d *Dispatcher) worker(q <-chan types.ScanMessage) {
	defer d.wg.Done()
	for msg := range q {
		d.handle(d.ctx, msg)
	}
}

// Close stops accepting messages, drains every queue and waits for the
// workers to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
