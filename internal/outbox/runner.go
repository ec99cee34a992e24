package outbox

import (
	"context"
	"time"

	domain_outbox "instoo/internal/domain/outbox"
	"instoo/internal/events"
	"instoo/internal/metrics"
	"instoo/internal/repository"
)

type Runner struct {
	processor *Processor
}

func NewRunner(processor *Processor) *Runner {
	return &Runner{processor: processor}
}

func (r *Runner) Start(ctx context.Context) {
	go r.processor.Run(ctx)
}

func DefaultProcessor(repo repository.OutboxRepository, publisher events.Publisher, m *metrics.Metrics, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return NewProcessor(repo, publisher, m, 100, interval, domain_outbox.MaxRetries)
}
