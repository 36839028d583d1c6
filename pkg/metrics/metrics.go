package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote configuration store metrics
	LoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnetctl_remote_config_loads_total",
			Help: "Total number of remote configuration loads",
		},
	)

	SavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnetctl_remote_config_saves_total",
			Help: "Total number of remote configuration saves",
		},
	)

	SaveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnetctl_remote_config_save_failures_total",
			Help: "Total number of failed remote configuration saves",
		},
	)

	// Validator metrics
	ValidationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnetctl_remote_config_validation_failures_total",
			Help: "Total number of failed live-state validation passes",
		},
	)

	ValidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnetctl_remote_config_validation_duration_seconds",
			Help:    "Live-state validation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(LoadsTotal)
	prometheus.MustRegister(SavesTotal)
	prometheus.MustRegister(SaveFailuresTotal)
	prometheus.MustRegister(ValidationFailuresTotal)
	prometheus.MustRegister(ValidationDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
