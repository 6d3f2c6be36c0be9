package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch Prometheus metrics.
var (
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "dispatches_total",
			Help:      "Total number of campaign dispatch runs",
		},
		[]string{"mode", "outcome"},
	)

	MessagesEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "messages_enqueued_total",
			Help:      "Total messages accepted by the outbox",
		},
	)

	EnqueueErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "enqueue_errors_total",
			Help:      "Total outbox enqueue failures",
		},
	)

	QuotaSlotsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "quota_slots_granted_total",
			Help:      "Total daily quota slots granted to dispatch runs",
		},
	)

	BudgetDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "budget_decisions_total",
			Help:      "Total budget admission decisions",
		},
		[]string{"context", "action"},
	)

	LedgerWriteWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapline",
			Name:      "ledger_write_warnings_total",
			Help:      "Total ledger writes that failed after a successful enqueue",
		},
	)
)

var dispatchMetricsRegistered bool

// RegisterDispatchMetrics registers Prometheus dispatch metrics. Must be called once from main.
func RegisterDispatchMetrics() {
	if dispatchMetricsRegistered {
		return
	}
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(MessagesEnqueuedTotal)
	prometheus.MustRegister(EnqueueErrorsTotal)
	prometheus.MustRegister(QuotaSlotsGrantedTotal)
	prometheus.MustRegister(BudgetDecisionsTotal)
	prometheus.MustRegister(LedgerWriteWarningsTotal)
	dispatchMetricsRegistered = true
}
