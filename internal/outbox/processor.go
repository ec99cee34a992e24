package outbox

import (
	"context"
	"time"

	domain_outbox "instoo/internal/domain/outbox"
	"instoo/internal/events"
	"instoo/internal/metrics"
	"instoo/internal/repository"
	"instoo/pkg/logger"

	"go.uber.org/zap"
)

// Processor moves committed outbox rows to a Publisher.
type Processor struct {
	repo       repository.OutboxRepository
	publisher  events.Publisher
	resolver   events.ChannelResolver
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
	maxRetries int

	// claimTimeout is how long a PROCESSING claim may sit before it is released.
	claimTimeout time.Duration
	lastRelease  time.Time
}

func NewProcessor(repo repository.OutboxRepository, publisher events.Publisher, m *metrics.Metrics, batchSize int, interval time.Duration, maxRetries int) *Processor {
	return &Processor{
		repo:         repo,
		publisher:    publisher,
		resolver:     events.NewAggregateChannelResolver(),
		metrics:      m,
		batchSize:    batchSize,
		interval:     interval,
		maxRetries:   maxRetries,
		claimTimeout: time.Minute,
	}
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(p.lastRelease) >= p.claimTimeout {
				p.ReleaseStale(ctx, time.Now())
			}
			p.ProcessBatch(ctx)
		}
	}
}

// ReleaseStale requeues claims older than claimTimeout as of now.
func (p *Processor) ReleaseStale(ctx context.Context, now time.Time) int64 {
	p.lastRelease = now
	n, err := p.repo.ReleaseStale(ctx, now.Add(-p.claimTimeout))
	if err != nil {
		logger.GetGlobalLogger().Warn(ctx, "outbox release stale claims failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.GetGlobalLogger().Info(ctx, "outbox released stale claims", zap.Int64("count", n))
	}
	return n
}

// ProcessBatch publishes up to batchSize pending events and returns how many were delivered.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil {
		logger.GetGlobalLogger().Error(ctx, "outbox fetch failed", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, e := range batch {
		if p.process(ctx, e) {
			delivered++
		}
	}
	return delivered
}

func (p *Processor) process(ctx context.Context, e domain_outbox.OutboxEvent) bool {
	claimed, err := p.repo.MarkProcessing(ctx, e.ID)
	if err != nil || !claimed {
		return false
	}

	env := events.EnvelopeOf(e)
	payload, err := env.Marshal()
	if err != nil {
		_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
		p.metrics.ObserveOutbox(e.EventType, "failed")
		return false
	}

	if err := p.publisher.Publish(ctx, p.resolver.ResolveChannel(env), payload); err != nil {
		if e.RetryCount+1 >= p.maxRetries {
			_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
			p.metrics.ObserveOutbox(e.EventType, "failed")
			logger.GetGlobalLogger().Error(ctx, "outbox event gave up",
				zap.String("event_id", e.ID.String()),
				zap.String("event_type", e.EventType),
				zap.Error(err))
			return false
		}
		_ = p.repo.IncrementRetry(ctx, e.ID, err.Error())
		p.metrics.ObserveOutbox(e.EventType, "retry")
		return false
	}

	if err := p.repo.MarkCompleted(ctx, e.ID); err != nil {
		logger.GetGlobalLogger().Warn(ctx, "outbox mark completed failed", zap.String("event_id", e.ID.String()), zap.Error(err))
	}
	p.metrics.ObserveOutbox(e.EventType, "published")
	return true
}
