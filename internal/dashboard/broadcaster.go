package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claimdesk_backend/internal/metrics"
	"claimdesk_backend/platform/logger"
)

const defaultDeliveryTimeout = 5 * time.Second

// Subscriber receives dashboard broadcasts. Deliver must return promptly or
// honor ctx cancellation.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, b Broadcast) error
}

// Broadcaster fans a broadcast out to every subscriber without blocking the
// caller. A failing or panicking subscriber does not affect the others.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	timeout     time.Duration
	log         *logger.Logger
	wg          sync.WaitGroup
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{timeout: defaultDeliveryTimeout, log: log}
}

// Subscribe registers s for all future broadcasts.
func (b *Broadcaster) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers bc asynchronously. Empty batches are dropped.
func (b *Broadcaster) Publish(ctx context.Context, bc Broadcast) {
	if len(bc.Events) == 0 {
		return
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	metrics.DashboardEventsPublished.Add(float64(len(bc.Events)))

	// Delivery outlives the request that produced the events.
	base := context.WithoutCancel(ctx)
	for _, sub := range subs {
		b.wg.Add(1)
		go b.deliver(base, sub, bc)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

func (b *Broadcaster) deliver(ctx context.Context, sub Subscriber, bc Broadcast) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return sub.Deliver(ctx, bc)
	}()
	if err != nil {
		metrics.DashboardDeliveryFailures.WithLabelValues(sub.Name()).Inc()
		b.log.Warn("dashboard delivery failed", "subscriber", sub.Name(), "error", err)
	}
}
