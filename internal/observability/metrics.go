// Package observability provides domain metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CreditsConsumed counts credits spent on new conversations, by plan.
	CreditsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_credits_consumed_total",
		Help: "Total number of credits spent on starting conversations",
	}, []string{"plan"})

	// CreditRefills counts lazy credit refills, by plan.
	CreditRefills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_credit_refills_total",
		Help: "Total number of 48h credit refills applied",
	}, []string{"plan"})

	// PlanExpirations counts paid plans reverted to free, by trigger (read or sweep).
	PlanExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_plan_expirations_total",
		Help: "Total number of paid plans that expired",
	}, []string{"trigger"})

	// PlanAssignments counts admin or checkout plan assignments, by plan.
	PlanAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_plan_assignments_total",
		Help: "Total number of plan assignments",
	}, []string{"plan", "source"})

	// MessagesSent counts messages appended to conversations.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialnet_messages_sent_total",
		Help: "Total number of direct messages sent",
	})

	// ConversationsStarted counts newly created conversations.
	ConversationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialnet_conversations_started_total",
		Help: "Total number of conversations created",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
