package config

import (
	"github.com/bert42/fileserver/pkg/metrics"
	promMetrics "github.com/bert42/fileserver/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// RPCMetrics is the collector for the RPC adapter and gateway (never nil,
	// uses noop if disabled)
	RPCMetrics metrics.RPCMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed collectors
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op collectors (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			RPCMetrics: metrics.NewNoopRPCMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:     metrics.NewServer(metrics.ServerConfig{Port: cfg.Server.Metrics.Port}),
		RPCMetrics: promMetrics.NewRPCMetrics(),
	}
}
