// Package sse streams dashboard events to connected admin browsers.
package sse

import (
	"context"
	"net/http"
	"sync"

	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/metrics"
	"claimdesk_backend/platform/httpkit"
	"claimdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const clientBuffer = 32

// client is one open stream, scoped to a company.
type client struct {
	companyID uuid.UUID
	events    chan dashboard.Event
}

// Service tracks open streams and implements dashboard.Subscriber.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // companyID -> clients
	closed  bool
	log     *logger.Logger
}

// New creates an empty stream hub.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

var _ dashboard.Subscriber = (*Service)(nil)

// Name identifies the hub in delivery metrics.
func (s *Service) Name() string { return "sse" }

// Deliver pushes b to the streams of its company, or to every stream when the
// broadcast is not company scoped. Slow clients drop events.
func (s *Service) Deliver(_ context.Context, b dashboard.Broadcast) error {
	// Sends happen under the read lock so removeClient cannot close a channel
	// mid-send. They never block.
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.targets(b.CompanyID) {
		for _, event := range b.Events {
			select {
			case c.events <- event:
			default:
				s.log.Warn("dashboard stream buffer full", "company_id", c.companyID)
			}
		}
	}
	return nil
}

// ClientCount reports the number of open streams.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, clients := range s.clients {
		n += len(clients)
	}
	return n
}

// targets must be called with s.mu held.
func (s *Service) targets(companyID *uuid.UUID) []*client {
	if companyID != nil {
		out := make([]*client, len(s.clients[*companyID]))
		copy(out, s.clients[*companyID])
		return out
	}

	var out []*client
	for _, clients := range s.clients {
		out = append(out, clients...)
	}
	return out
}

func (s *Service) addClient(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.clients[c.companyID] = append(s.clients[c.companyID], c)
	metrics.DashboardClients.Inc()
	return true
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.companyID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.companyID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			metrics.DashboardClients.Dec()
			break
		}
	}
	if len(s.clients[c.companyID]) == 0 {
		delete(s.clients, c.companyID)
	}
}

// Handler streams events for the caller's company. It must run behind
// httpkit.AuthRequired.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := httpkit.MustGetIdentity(c)
		if id == nil {
			return
		}
		companyID := id.CompanyID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{companyID: companyID, events: make(chan dashboard.Event, clientBuffer)}
		if !s.addClient(cl) {
			httpkit.Error(c, http.StatusServiceUnavailable, "stream closed", nil)
			return
		}
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"companyId": companyID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				c.SSEvent(event.Type, event)
				c.Writer.Flush()
			}
		}
	}
}

// Close ends every open stream and rejects new ones.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
			metrics.DashboardClients.Dec()
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
