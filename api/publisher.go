package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"mock-server/domain"
)

const (
	defaultPublishBuffer  = 1024
	defaultPublishTimeout = 2 * time.Second
)

// PublisherConfig tunes a ChangePublisher.
type PublisherConfig struct {
	Buffer  int
	Timeout time.Duration
}

// ChangePublisher moves store changes off the request path. Notify never
// blocks; a single worker forwards changes to the sink in the order they were
// handed over. Changes arriving while the buffer is full are dropped.
type ChangePublisher struct {
	sink    ChangeSink
	logger  *log.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan domain.Change
	done   chan struct{}

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewChangePublisher starts the worker goroutine. Call Close to drain it.
func NewChangePublisher(sink ChangeSink, cfg PublisherConfig, logger *log.Logger) *ChangePublisher {
	if sink == nil {
		panic("api.NewChangePublisher: sink is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultPublishBuffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPublishTimeout
	}

	p := &ChangePublisher{
		sink:    sink,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan domain.Change, cfg.Buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	p.logger.Infof("change publisher started, buffer: %d, timeout: %v", cfg.Buffer, cfg.Timeout)
	return p
}

// Notify queues change for publication. It is meant to be used as a store
// observer and therefore must not block.
func (p *ChangePublisher) Notify(change domain.Change) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}

	select {
	case p.jobs <- change:
	default:
		p.dropped.Add(1)
		p.logger.WithFields(log.Fields{
			"change_id": change.ID,
			"task_id":   change.TaskID,
			"revision":  change.Revision,
		}).Warn("change buffer saturated; dropping change")
	}
}

// Close stops accepting changes and waits until queued ones are published.
func (p *ChangePublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	<-p.done

	published, dropped, failed := p.Stats()
	p.logger.WithFields(log.Fields{
		"published": published,
		"dropped":   dropped,
		"failed":    failed,
	}).Info("change publisher stopped")
}

// Stats reports how many changes were published, dropped and failed.
func (p *ChangePublisher) Stats() (published, dropped, failed int64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}

func (p *ChangePublisher) run() {
	defer close(p.done)
	for change := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.sink.Publish(ctx, change)
		cancel()

		if err != nil {
			p.failed.Add(1)
			p.logger.WithFields(log.Fields{
				"change_id": change.ID,
				"task_id":   change.TaskID,
				"revision":  change.Revision,
			}).Errorf("publish change failed: %v", err)
			continue
		}
		p.published.Add(1)
	}
}
