package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"co2dash/internal/engine"
)

// Metrics holds the dashboard's Prometheus collectors. A nil *Metrics is a
// valid no-op, used when metrics are disabled.
type Metrics struct {
	viewRequests    *prometheus.CounterVec // requests per view
	emptySelections prometheus.Counter     // selections matching no rows
	loadSeconds     prometheus.Gauge       // time spent loading and reshaping
	tidyRows        prometheus.Gauge       // rows in the tidy table
	unknownRows     prometheus.Gauge       // indicator rows ignored during pivot

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		viewRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "co2dash",
			Name:      "view_requests_total",
			Help:      "Dashboard view requests by view.",
		}, []string{"view"}),
		emptySelections: f.NewCounter(prometheus.CounterOpts{
			Namespace: "co2dash",
			Name:      "empty_selections_total",
			Help:      "Requests whose year/country selection matched no rows.",
		}),
		loadSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "co2dash",
			Name:      "load_duration_seconds",
			Help:      "Duration of the one-time load and reshape.",
		}),
		tidyRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "co2dash",
			Name:      "tidy_rows",
			Help:      "Rows in the tidy table.",
		}),
		unknownRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "co2dash",
			Name:      "unknown_indicator_rows",
			Help:      "Country/indicator pairs ignored because the indicator is unknown.",
		}),
		gatherer: reg,
	}
}

// ObserveLoad records the outcome of the data load.
func (m *Metrics) ObserveLoad(snap *engine.Snapshot) {
	if m == nil || snap == nil {
		return
	}
	m.loadSeconds.Set(snap.Elapsed.Seconds())
	m.tidyRows.Set(float64(snap.Stats.TidyRows))
	m.unknownRows.Set(float64(snap.Stats.UnknownIndicators))
}

// Register mounts /metrics on e.
func (m *Metrics) Register(e *echo.Echo) {
	if m == nil {
		return
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})))
}

func (m *Metrics) viewRequested(view string) {
	if m == nil {
		return
	}
	m.viewRequests.WithLabelValues(view).Inc()
}

func (m *Metrics) emptySelection() {
	if m == nil {
		return
	}
	m.emptySelections.Inc()
}
