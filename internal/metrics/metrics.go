// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

type Config struct {
	Enabled bool
	Build   BuildInfo
}

type Provider struct {
	reg     *prometheus.Registry
	enabled bool
}

// Init creates a registry with the runtime collectors, build info and, when
// enabled, the domain collectors from observability.
func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.BuildDate).Set(1)

	observability.Init(reg, cfg.Enabled)
	return &Provider{reg: reg, enabled: cfg.Enabled}
}

func (p *Provider) Enabled() bool { return p.enabled }

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
