package scheduler

import (
	"context"
	"time"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/metrics"
	"claimdesk_backend/platform/logger"
)

const defaultPendingBacklogInterval = time.Minute

// ActiveCounter counts claim records awaiting review.
type ActiveCounter interface {
	CountActive(ctx context.Context, kind domain.Kind) (int, error)
}

// PendingBacklog periodically exports the review backlog per claim kind.
type PendingBacklog struct {
	counter  ActiveCounter
	log      *logger.Logger
	interval time.Duration
}

func NewPendingBacklog(counter ActiveCounter, log *logger.Logger, interval time.Duration) *PendingBacklog {
	if interval <= 0 {
		interval = defaultPendingBacklogInterval
	}
	return &PendingBacklog{counter: counter, log: log, interval: interval}
}

func (p *PendingBacklog) Run(ctx context.Context) {
	if p == nil || p.counter == nil {
		return
	}

	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *PendingBacklog) refresh(ctx context.Context) {
	for _, kind := range []domain.Kind{domain.KindRefund, domain.KindEscalation, domain.KindPayout} {
		n, err := p.counter.CountActive(ctx, kind)
		if err != nil {
			p.log.Warn("pending backlog refresh failed", "kind", kind, "error", err)
			continue
		}
		metrics.PendingClaims.WithLabelValues(string(kind)).Set(float64(n))
	}
}
