package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pipeline outcomes for the /metrics endpoint.
type Metrics struct {
	NotificationsTotal  *prometheus.CounterVec
	DuplicatesTotal     prometheus.Counter
	ResolutionFailures  *prometheus.CounterVec
	PropagationsTotal   *prometheus.CounterVec
	PropagationFailures prometheus.Counter
	Reverifications     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_notifications_total",
			Help: "Inbound processor notifications by topic.",
		}, []string{"topic"}),
		DuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "webhook_duplicates_suppressed_total",
			Help: "Notifications suppressed by the dedup ledger.",
		}),
		ResolutionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_resolution_failures_total",
			Help: "Payment resolutions that produced no payment, by reason.",
		}, []string{"reason"}),
		PropagationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_propagations_total",
			Help: "Status updates pushed to the lead store, by status.",
		}, []string{"status"}),
		PropagationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "webhook_propagation_failures_total",
			Help: "Lead store updates that failed and were absorbed.",
		}),
		Reverifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "webhook_reverifications_total",
			Help: "Delayed reverification attempts executed.",
		}),
	}
}
