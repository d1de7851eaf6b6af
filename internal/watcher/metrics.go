package watcher

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackwell-systems/freezer/internal/snapshots"
)

// Metrics exports drift as Prometheus gauges. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg       *prom.Registry
	pkgs      *prom.GaugeVec
	repos     *prom.GaugeVec
	checks    *prom.CounterVec
	lastCheck prom.Gauge
}

// NewMetrics registers the drift metrics on reg, or on a new registry when
// reg is nil.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	m := &Metrics{
		reg: reg,
		pkgs: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "freezer",
			Name:      "drift_packages",
			Help:      "Packages a restore would add or remove",
		}, []string{"direction"}),
		repos: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "freezer",
			Name:      "drift_repositories",
			Help:      "Repositories a restore would add or remove",
		}, []string{"direction"}),
		checks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "freezer",
			Name:      "drift_checks_total",
			Help:      "Drift checks by result",
		}, []string{"result"}),
		lastCheck: prom.NewGauge(prom.GaugeOpts{
			Namespace: "freezer",
			Name:      "drift_last_check_timestamp_seconds",
			Help:      "Unix time of the last successful drift check",
		}),
	}
	reg.MustRegister(m.pkgs, m.repos, m.checks, m.lastCheck)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(diff *snapshots.DiffResult, at time.Time) {
	if m == nil {
		return
	}
	m.pkgs.WithLabelValues("add").Set(float64(len(diff.Pkgs.Add)))
	m.pkgs.WithLabelValues("remove").Set(float64(len(diff.Pkgs.Remove)))
	m.repos.WithLabelValues("add").Set(float64(len(diff.Repos.Add)))
	m.repos.WithLabelValues("remove").Set(float64(len(diff.Repos.Remove)))
	m.checks.WithLabelValues("ok").Inc()
	m.lastCheck.Set(float64(at.Unix()))
}

func (m *Metrics) observeError() {
	if m == nil {
		return
	}
	m.checks.WithLabelValues("error").Inc()
}
