package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/core/domain"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Processor handles one session event.
type Processor interface {
	Process(ctx context.Context, ev domain.SessionEvent) error
}

// Dispatcher routes session events to a fixed set of workers using consistent
// hashing on the session ID, guaranteeing per-session event ordering.
// It implements ports.EventSink.
type Dispatcher struct {
	workers []chan domain.SessionEvent
	proc    Processor
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, proc Processor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.SessionEvent, numWorkers),
		proc:    proc,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SessionEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Record sends an event to the worker responsible for its session. It never
// blocks: when the worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Record(ev domain.SessionEvent) {
	idx := d.shardIndex(ev.SessionID)
	select {
	case d.workers[idx] <- ev:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("session_id", ev.SessionID).Str("kind", string(ev.Kind)).Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a session ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SessionEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.proc.Process(ctx, ev); err != nil {
				d.log.Error().Err(err).
					Str("session_id", ev.SessionID).
					Int("worker_id", id).
					Msg("audit event processing failed")
			}
		}
	}
}
