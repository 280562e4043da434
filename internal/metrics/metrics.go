package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_chat_turns_total",
		Help: "Total number of chat turns, labelled by the recognized action (none when absent).",
	}, []string{"action"})

	ChatTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimdesk_chat_turn_duration_ms",
		Help:    "End-to-end chat turn latency in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	GatewayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_gateway_failures_total",
		Help: "Total number of failed language service calls, labelled by operation.",
	}, []string{"operation"})

	ClaimsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_claims_created_total",
		Help: "Total number of claim records created, labelled by kind.",
	}, []string{"kind"})

	ClaimsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_claims_finalized_total",
		Help: "Total number of admin decisions applied, labelled by kind and status.",
	}, []string{"kind", "status"})

	PolicyRefinements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_policy_refinements_total",
		Help: "Total number of policy refinement attempts, labelled by outcome.",
	}, []string{"outcome"})

	PendingClaims = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claimdesk_pending_claims",
		Help: "Claim records awaiting review across all companies, labelled by kind.",
	}, []string{"kind"})

	DashboardEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimdesk_dashboard_events_published_total",
		Help: "Total number of dashboard events handed to the broadcaster.",
	})

	DashboardDeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_dashboard_delivery_failures_total",
		Help: "Total number of failed dashboard deliveries, labelled by subscriber.",
	}, []string{"subscriber"})

	DashboardClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "claimdesk_dashboard_stream_clients",
		Help: "Current number of connected dashboard stream clients.",
	})
)
