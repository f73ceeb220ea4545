package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pxr-io/block-gateway/internal/audit"
	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/gateway"
	"github.com/pxr-io/block-gateway/internal/server"
)

func newServeCmd(version string) *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the block gateway server",
		Long:  "Start the HTTP server that mediates API calls between blocks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev, version)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool, version string) error {
	// 1. Load configuration
	cfg := config.Default()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	// 2. Set up logger
	logLevel := slog.LevelInfo
	if dev || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var logHandler slog.Handler
	if cfg.Logging.Format == "json" {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(logHandler)

	// 3. Open the audit store
	store, err := audit.NewStore(cfg.Audit.Driver, cfg.Audit.DSN)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	logger.Info("audit store ready", "driver", cfg.Audit.Driver)

	// 4. Build the proxy pipeline. Downstream timeouts are governed here,
	// not in the pipeline itself.
	client := &http.Client{}
	gwCfg := &cfg.Gateway

	operators, err := gateway.NewOperatorResolver(gwCfg, client)
	if err != nil {
		return fmt.Errorf("compile origin rules: %w", err)
	}
	permissions, err := gateway.NewPermissionEvaluator(gwCfg.Permissions)
	if err != nil {
		return fmt.Errorf("compile permission matrix: %w", err)
	}
	orch := gateway.NewOrchestrator(
		gwCfg, logger,
		operators,
		gateway.NewCatalogResolver(gwCfg, client),
		permissions,
		gateway.NewAccessGate(gwCfg, client),
		audit.NewRecorder(store),
		client,
	)

	// 5. Build and start the HTTP server
	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxBodySize:     cfg.Server.MaxBodySize,
		RatePerMinute:   cfg.Server.RatePerMinute,
		Version:         version,
	}
	srv := server.New(srvCfg, gwCfg, orch, store, logger)

	logger.Info("block gateway starting",
		"version", version,
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"root_block", cfg.Gateway.RootBlock.Code,
	)
	return srv.ListenAndServe()
}
