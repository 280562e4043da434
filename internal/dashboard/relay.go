package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis channel shared by all API replicas.
const DefaultRelayChannel = "claimdesk:dashboard"

type envelope struct {
	Origin    string    `json:"origin"`
	Broadcast Broadcast `json:"broadcast"`
}

// Relay forwards broadcasts between API replicas over Redis pub/sub so every
// dashboard stream sees every event. Locally produced broadcasts are already
// delivered in-process, so the relay skips messages carrying its own origin.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	local   Subscriber
	log     *logger.Logger
}

// NewRelay creates a relay that republishes remote broadcasts to local. A nil
// local makes a publish-only relay, as used by the background worker.
func NewRelay(client *redis.Client, channel string, local Subscriber, log *logger.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		log:     log,
	}
}

var _ Subscriber = (*Relay)(nil)

// Name identifies the relay in delivery metrics.
func (r *Relay) Name() string { return "redis-relay" }

// Deliver publishes b for the other replicas.
func (r *Relay) Deliver(ctx context.Context, b Broadcast) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Broadcast: b})
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Run consumes remote broadcasts until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("dropping malformed dashboard relay message", "error", err)
		return
	}
	if env.Origin == r.origin || r.local == nil {
		return
	}
	if err := r.local.Deliver(ctx, env.Broadcast); err != nil {
		r.log.Warn("relay local delivery failed", "error", err)
	}
}
