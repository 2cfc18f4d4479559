package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/internal/telemetry"
	"github.com/bert42/fileserver/internal/version"
	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/adapter/rpc"
	"github.com/bert42/fileserver/pkg/config"
	"github.com/bert42/fileserver/pkg/gateway"
	"github.com/bert42/fileserver/pkg/privilege"
	"github.com/bert42/fileserver/pkg/server"
	"github.com/bert42/fileserver/pkg/transfer"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the file server",
	Long: `Start the file server in the foreground.

When started as root with server.user and/or server.group configured, the
process drops to that identity before any socket is opened.

Examples:
  # Start with the default config location
  fileserverd start

  # Start with a custom config file
  fileserverd start --config /etc/fileserver/config.yaml

  # Override settings from the environment
  FILESERVER_LOGGING_LEVEL=DEBUG fileserverd start`,
	RunE: runStart,
}

var dropPrivileges = func(target privilege.Target) error {
	return privilege.Drop(privilege.System{}, target)
}

func runStart(cmd *cobra.Command, args []string) error {
	started := time.Now()

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Must complete before any exporter, profiler or listener starts a
	// goroutine or opens a socket.
	if err := dropPrivileges(config.PrivilegeTarget(cfg)); err != nil {
		return fmt.Errorf("failed to drop privileges: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, config.TracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error: %v", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(config.ProfilingSettings(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error: %v", err)
		}
	}()

	fmt.Printf("fileserverd %s\n", version.Version)
	logger.Info("Configuration loaded from %s", getConfigSource(GetConfigFile()))
	logger.Info("Log level %s, format %s", cfg.Logging.Level, cfg.Logging.Format)

	engine, err := config.NewAccessEngine(cfg)
	if err != nil {
		return err
	}

	store, err := config.CreateStore(&cfg.Storage)
	if err != nil {
		return err
	}

	metricsResult := config.InitializeMetrics(cfg)

	transfers := transfer.New(engine, store, config.TransferConfig(cfg))
	service := gateway.New(engine, store, transfers, gateway.Options{
		Version: version.Version,
		Metrics: metricsResult.RPCMetrics,
		Started: started,
	})

	srv := server.New()
	if metricsResult.Server != nil {
		logger.Info("Metrics enabled on port %d", cfg.Server.Metrics.Port)
		srv.SetMetricsServer(metricsResult.Server)
	}

	adapter := rpc.New(config.RPCConfig(cfg), service, engine, metricsResult.RPCMetrics)
	if err := srv.AddAdapter(adapter); err != nil {
		return fmt.Errorf("failed to add %s adapter: %w", adapter.Protocol(), err)
	}

	logServing(cfg, engine)

	if err := srv.Serve(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func logServing(cfg *config.Config, engine *access.Engine) {
	logger.Info("Starting fileserver on %s", net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.Port)))

	logger.Info("Configured directories:")
	for _, name := range engine.Directories() {
		root, _ := engine.Root(name)
		logger.Info("  - %s: %s (%s)", root.Name, root.Path, root.Permission)
	}

	logger.Info("Allowed IPs: %v", engine.Allowlist().Patterns())

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled (endpoint %s, sample rate %.2f)", cfg.Telemetry.Endpoint, cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled (endpoint %s)", cfg.Telemetry.Profiling.Endpoint)
	}
}
