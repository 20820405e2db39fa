// Package analytics collects recommendation events and aggregates them into
// usage statistics.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/kafka"
)

// Sink receives batches of events.
type Sink interface {
	Publish(ctx context.Context, events ...RecommendEvent) error
}

// KafkaSink publishes events to Kafka keyed by mode.
type KafkaSink struct {
	Producer *kafka.Producer
}

func (s KafkaSink) Publish(ctx context.Context, events ...RecommendEvent) error {
	batch := make([]kafka.Event, len(events))
	for i, e := range events {
		batch[i] = kafka.Event{Key: e.Mode, Value: e}
	}
	return s.Producer.Publish(ctx, batch...)
}

const (
	defaultBuffer    = 10000
	maxBatch         = 100
	flushInterval    = 200 * time.Millisecond
	flushTimeout     = 5 * time.Second
)

// Collector decouples request handling from event delivery. Track never
// blocks; events are dropped when the buffer is full.
type Collector struct {
	sink    Sink
	eventCh chan RecommendEvent
	done    chan struct{}
	dropped atomic.Int64
	logger  *slog.Logger
}

func NewCollector(sink Sink, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Collector{
		sink:    sink,
		eventCh: make(chan RecommendEvent, bufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the delivery loop. It runs until Close is called. Flushes
// keep ctx's values but not its cancellation, so batches buffered while the
// caller shuts down are still delivered.
func (c *Collector) Start(ctx context.Context) {
	flushCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		batch := make([]RecommendEvent, 0, maxBatch)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(flushCtx, flushTimeout)
			defer cancel()
			if err := c.sink.Publish(ctx, batch...); err != nil {
				c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
			}
			batch = batch[:0]
		}
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					flush()
					return
				}
				batch = append(batch, event)
				if len(batch) == maxBatch {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event RecommendEvent) {
	select {
	case c.eventCh <- event:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("analytics buffer full, dropping events", "dropped_total", c.dropped.Load())
		}
	}
}

// Dropped returns the number of events discarded because the buffer was full.
func (c *Collector) Dropped() int64 { return c.dropped.Load() }

// Close stops accepting events, delivers what is buffered and waits for the
// loop to exit. Track must not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}
