// Package metrics provides Prometheus metrics collection for the file server.
//
// Metrics are optional. Until InitRegistry is called, GetRegistry returns
// nil and collector constructors hand out no-op implementations, so the
// service runs unchanged with metrics disabled.
//
// Usage:
//
//	metrics.InitRegistry()
//	rpcMetrics := prometheus.NewRPCMetrics()
//	adapter := rpc.New(config, gateway, engine, rpcMetrics)
package metrics

import (
	"sync"

	"github.com/bert42/fileserver/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry. Later calls are no-ops.
//
// Besides the service collectors registered by their constructors, the
// registry exports Go runtime and process statistics and a constant
// fileserver_build_info gauge labelled with the build version.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			buildInfo(),
		)
		registry = reg
	})
}

func buildInfo() prometheus.Collector {
	info := version.Get()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fileserver_build_info",
		Help: "Build information of the running file server.",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"go_version": info.GoVersion,
		},
	})
	gauge.Set(1)
	return gauge
}

// GetRegistry returns the global registry, nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
