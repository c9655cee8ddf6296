package refresh

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts refresh attempts by service and result.
	attemptsTotal *prometheus.CounterVec

	// classificationsTotal counts freshness classifications by service
	// and status.
	classificationsTotal *prometheus.CounterVec

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	// metricsRegistered indicates if metrics have been registered.
	metricsRegistered bool
)

// InitMetrics initializes the Prometheus metrics for assessment and refresh
// orchestration. Call once at startup if metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credfresh_refresh_attempts_total",
			Help: "Total number of credential refresh attempts by service and result",
		}, []string{"service", "result"})
		classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credfresh_check_classifications_total",
			Help: "Total number of freshness classifications by service and status",
		}, []string{"service", "status"})
		metricsRegistered = true
	})
}

// recordAttempt increments the attempt counter. Safe to call even if
// metrics have not been initialized.
func recordAttempt(service string, success bool) {
	if !metricsRegistered || attemptsTotal == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	attemptsTotal.WithLabelValues(service, result).Inc()
}

// recordClassification increments the classification counter. Safe to call
// even if metrics have not been initialized.
func recordClassification(service, status string) {
	if !metricsRegistered || classificationsTotal == nil {
		return
	}
	classificationsTotal.WithLabelValues(service, status).Inc()
}
