package scheduler

import (
	"context"
	"fmt"

	"claimdesk_backend/internal/events"
	"claimdesk_backend/platform/logger"
)

// DeferredRefinements moves policy rewrites the request path could not finish
// onto the task queue.
type DeferredRefinements struct {
	queue RefinementQueue
	log   *logger.Logger
}

func NewDeferredRefinements(queue RefinementQueue, log *logger.Logger) *DeferredRefinements {
	return &DeferredRefinements{queue: queue, log: log}
}

// RegisterHandlers subscribes to deferred refinement events.
func (d *DeferredRefinements) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.PolicyRefinementDeferred{}.EventName(), d)
}

func (d *DeferredRefinements) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PolicyRefinementDeferred)
	if !ok {
		return nil
	}

	err := d.queue.EnqueuePolicyRefinement(ctx, RefinePolicyPayload{
		CompanyID:    e.CompanyID.String(),
		IssueContext: e.IssueContext,
		Correction:   e.Correction,
	})
	if err != nil {
		return fmt.Errorf("enqueue policy refinement: %w", err)
	}
	d.log.Info("policy refinement queued", "companyId", e.CompanyID)
	return nil
}

var _ events.Handler = (*DeferredRefinements)(nil)
