package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	_ "github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse/postgres"
	_ "github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse/sqlite"
	_ "github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse/sqlserver"
	"github.com/chingu-voyages/member-demographics/pkg/cleaning"
	"github.com/chingu-voyages/member-demographics/pkg/config"
	"github.com/chingu-voyages/member-demographics/pkg/country"
	"github.com/chingu-voyages/member-demographics/pkg/handlers"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/mcp"
	"github.com/chingu-voyages/member-demographics/pkg/metrics"
	"github.com/chingu-voyages/member-demographics/pkg/middleware"
	"github.com/chingu-voyages/member-demographics/pkg/retry"
	"github.com/chingu-voyages/member-demographics/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// Global flags
	configPath string
	envFile    string
	verbose    bool

	// clean flags
	outPath string
	load    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "demographics",
	Short: "Chingu member demographics cleaning pipeline and query API",
	Long: `demographics cleans the raw Chingu member survey export into an
analysis-ready members table and serves read queries over it.

Examples:
  # Clean an export into NDJSON
  demographics clean export.json --out members.ndjson

  # Clean and replace the warehouse table
  demographics clean export.json --load

  # Serve the query API
  demographics serve --config config.yaml`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the members query API",
	Long: `Serve the HTTP query API, the MCP endpoint and Prometheus metrics.

The unique-value cache is warmed at startup and again on SIGHUP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var cleanCmd = &cobra.Command{
	Use:   "clean [input]",
	Short: "Clean a raw survey export",
	Long: `Read a raw survey export (JSON array or NDJSON), normalize every row and
write the cleaned members as NDJSON and/or load them into the warehouse.

The input defaults to cleaning.input from the config; "-" reads stdin.
--out "-" writes the snapshot to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "demographics %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (default "+config.DefaultPath+" in the working directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the config; existing variables win")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cleanCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the cleaned snapshot as NDJSON to this file (default cleaning.output)")
	cleanCmd.Flags().BoolVar(&load, "load", false, "Replace the warehouse table with the cleaned snapshot")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the dotenv file and config, and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.Load(Version)
	} else {
		cfg, err = config.LoadFile(configPath, Version)
	}
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(cfg.IsProduction, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func openWarehouse(ctx context.Context, cfg *config.Config, logger *zap.Logger) (warehouse.Warehouse, error) {
	whCfg := cfg.WarehouseConfig()
	logger.Info("Connecting to warehouse", zap.String("warehouse", whCfg.Describe()))

	wh, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (warehouse.Warehouse, error) {
		return warehouse.Open(ctx, whCfg, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	return wh, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr()),
		zap.String("warehouse_type", cfg.Warehouse.Type),
		zap.String("table", cfg.Warehouse.Table),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
		zap.String("version", cfg.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	wh, err := openWarehouse(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := wh.Close(); err != nil {
			logger.Warn("Failed to close warehouse", zap.Error(err))
		}
	}()

	cache := services.NewValueCache(wh, m, logger)
	if err := cache.Warm(ctx); err != nil {
		// Filter routes answer 503 until a later warm succeeds.
		logger.Warn("Starting with cold unique-value cache", zap.String("error", logging.SanitizeError(err)))
	}
	go rewarmOnHangup(ctx, cache, logger)

	memberService := services.NewMemberService(wh, cache, m, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, m, logger).RegisterRoutes(mux)
	handlers.NewMembersHandler(memberService, logger).RegisterRoutes(mux)
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewMemberServer(cfg.Version, memberService, logger)
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.RequestLogger(logger, m)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tlsEnabled := cfg.TLSCertPath != "" && cfg.TLSKeyPath != ""
		logger.Info("Starting demographics server",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", tlsEnabled),
			zap.String("version", cfg.Version))

		var err error
		if tlsEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// rewarmOnHangup rebuilds the unique-value cache on every SIGHUP.
func rewarmOnHangup(ctx context.Context, cache *services.ValueCache, logger *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, rewarming unique-value cache")
			if err := cache.Warm(ctx); err != nil {
				logger.Warn("Rewarm failed, keeping previous snapshot", zap.String("error", logging.SanitizeError(err)))
			}
		}
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := cfg.Cleaning.Input
	if len(args) == 1 {
		input = args[0]
	}
	if input == "" {
		return errors.New("no input: pass a file or set cleaning.input")
	}
	output := outPath
	if output == "" {
		output = cfg.Cleaning.Output
	}
	if output == "" && !load {
		return errors.New("nothing to do: pass --out and/or --load")
	}

	overrides := country.DefaultOverrides()
	if cfg.Cleaning.OverridesFile != "" {
		if overrides, err = country.LoadOverrides(cfg.Cleaning.OverridesFile); err != nil {
			return err
		}
	}
	assembler := cleaning.NewAssembler(country.NewReconciler(country.NewResolver(), overrides), cfg.Cleaning.Workers)

	var loader cleaning.Loader
	if load {
		wh, err := openWarehouse(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = wh.Close() }()
		loader = wh
	}

	raw, closeRaw, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeRaw()

	export, closeExport, err := openOutput(output)
	if err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	pipeline := cleaning.NewPipeline(assembler, loader, m, logger)
	run, runErr := pipeline.Run(ctx, cleaning.RunInput{
		Source: input,
		Raw:    raw,
		Export: export,
		Load:   load,
	})
	if err := closeExport(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close %s: %w", output, err)
	}

	if err := m.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn("Failed to push metrics", zap.String("error", logging.SanitizeError(err)))
	}
	if runErr != nil {
		return runErr
	}

	// The run record goes to stderr when the snapshot itself is on stdout.
	reportOut := cmd.OutOrStdout()
	if output == "-" {
		reportOut = cmd.ErrOrStderr()
	}
	enc := json.NewEncoder(reportOut)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	switch path {
	case "":
		return nil, func() error { return nil }, nil
	case "-":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
