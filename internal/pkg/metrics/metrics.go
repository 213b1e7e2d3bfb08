package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablefox_checkouts_total",
			Help: "Plan checkouts by payment method and result",
		},
		[]string{"method", "result"},
	)

	webhookNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablefox_webhook_notifications_total",
			Help: "Processor webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	subscriptionActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablefox_subscription_activations_total",
			Help: "Subscription activations triggered by paid orders",
		},
		[]string{"result"},
	)

	statusRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablefox_status_repairs_total",
			Help: "Subscription repairs run from the status poll",
		},
		[]string{"result"},
	)
)

// ObserveCheckout counts a checkout attempt. result is a short error code or ResultOK.
func ObserveCheckout(method, result string) {
	checkoutsTotal.WithLabelValues(method, result).Inc()
}

func ObserveWebhook(outcome string) {
	webhookNotificationsTotal.WithLabelValues(outcome).Inc()
}

func ObserveActivation(ok bool) {
	subscriptionActivationsTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func ObserveRepair(ok bool) {
	statusRepairsTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultFailed
}
