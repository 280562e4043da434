package scheduler

import (
	"context"
	"errors"
	"fmt"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/service"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// PolicyRefiner rewrites a company policy and reports failures.
type PolicyRefiner interface {
	RefinePolicy(ctx context.Context, req service.RefinementRequest) (string, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	refiner PolicyRefiner
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, refiner PolicyRefiner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(refiner, log)
	w.server = server
	return w, nil
}

func newWorker(refiner PolicyRefiner, log *logger.Logger) *Worker {
	w := &Worker{
		mux:     asynq.NewServeMux(),
		refiner: refiner,
		log:     log,
	}
	w.mux.HandleFunc(TaskRefinePolicy, w.handleRefinePolicy)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRefinePolicy(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRefinePolicyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("%w: invalid company id: %v", asynq.SkipRetry, err)
	}

	_, err = w.refiner.RefinePolicy(ctx, service.RefinementRequest{
		CompanyID:    companyID,
		IssueContext: payload.IssueContext,
		Correction:   payload.Correction,
	})
	if errors.Is(err, agent.ErrEmptyCompletion) {
		w.log.Warn("policy refinement produced no text, keeping current policy", "companyId", companyID)
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("deferred policy refinement applied", "companyId", companyID)
	return nil
}
