package metrics

import (
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/provider"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultTimingUnit = time.Millisecond

	metricNamespace = "upline"
)

var BuildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "build_info",
		Help:      "Version of the running upline binary",
	}, []string{
		"version",
		"command",
	})

func init() {
	prometheus.MustRegister(BuildInfo)
}

// NewProvider returns a Prometheus backed provider for the named subsystem,
// or a provider discarding everything when enabled is false.
func NewProvider(enabled bool, subsystem string) provider.Provider {
	if !enabled {
		return provider.NewDiscardProvider()
	}
	return provider.NewPrometheusProvider(metricNamespace, subsystem)
}

// WriteTextfile writes all registered metrics to path in the text format
// read by the node exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func MeasureSince(h metrics.Histogram, t0 time.Time) {
	measureSince(h, t0, time.Now(), float64(defaultTimingUnit))
}

func measureSince(h metrics.Histogram, t0, t1 time.Time, unit float64) {
	d := t1.Sub(t0)
	if d < 0 {
		d = 0
	}
	h.Observe(float64(d) / unit)
}
