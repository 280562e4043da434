package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"claimdesk_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	refinePolicyMaxRetry = 5
	refinePolicyTimeout  = 2 * time.Minute
	// Corrections for the same company and wording within this window collapse
	// into one task.
	refinePolicyUniqueTTL = 10 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

// RefinementQueue defers a policy rewrite to the background worker.
type RefinementQueue interface {
	EnqueuePolicyRefinement(ctx context.Context, payload RefinePolicyPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueuePolicyRefinement(ctx context.Context, payload RefinePolicyPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRefinePolicyTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(refinePolicyMaxRetry),
		asynq.Timeout(refinePolicyTimeout),
		asynq.Unique(refinePolicyUniqueTTL),
	)
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
