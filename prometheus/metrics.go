package prometheus

import (
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the custom Prometheus metrics for the application.
type Metrics struct {
	Registry      *prometheus.Registry
	ConCalls      prometheus.Gauge
	Subscriptions prometheus.Gauge
	Notifies      prometheus.Counter
}

// NewMetrics initializes a new custom Prometheus registry and returns an instance of Metrics.
func NewMetrics(ua string) *Metrics {
	// drop "/1.0"
	ua = strings.Split(ua, "/")[0]

	reg := prometheus.NewRegistry()

	// Register default Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())

	opts := collectors.ProcessCollectorOpts{
		PidFn:        func() (int, error) { return os.Getpid(), nil },
		Namespace:    ua,
		ReportErrors: true,
	}
	reg.MustRegister(collectors.NewProcessCollector(opts))

	concurrentCalls := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ua,
		Name:      "ConcurrentCalls",
		Help:      "Shows concurrent calls active",
	})
	reg.MustRegister(concurrentCalls)

	subscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ua,
		Name:      "ActiveSubscriptions",
		Help:      "Shows dialog subscriptions currently tracked",
	})
	reg.MustRegister(subscriptions)

	notifies := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ua,
		Name:      "NotifiesProcessed",
		Help:      "Counts NOTIFY requests classified by the engine",
	})
	reg.MustRegister(notifies)

	metrics := &Metrics{
		Registry:      reg,
		ConCalls:      concurrentCalls,
		Subscriptions: subscriptions,
		Notifies:      notifies,
	}

	return metrics
}

// Handler returns an HTTP handler that serves the metrics on a specified endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
