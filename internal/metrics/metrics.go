// metrics — Prometheus-наблюдатель цикла обновления сессии.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pribylovaa/research-gateway/internal/gateway"
)

const namespace = "gateway"

// Metrics реализует gateway.Observer.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	refreshTime prometheus.Histogram
	retries     *prometheus.CounterVec
	logouts     prometheus.Counter
}

// New регистрирует метрики в reg (nil — prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Metrics{
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token exchanges with the identity service by result.",
		}, []string{"result"}),
		refreshTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of token exchanges.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Replayed calls after a token exchange by outcome.",
		}, []string{"outcome"}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Terminal session logouts.",
		}),
	}
}

func (m *Metrics) RefreshFinished(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	m.refreshes.WithLabelValues(result).Inc()
	m.refreshTime.Observe(d.Seconds())
}

func (m *Metrics) Retried(k gateway.Kind) {
	m.retries.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) LoggedOut() {
	m.logouts.Inc()
}

var _ gateway.Observer = (*Metrics)(nil)
