package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/logging"
	"github.com/forest-guardian/blackmarble-ntl/internal/metrics"
	"github.com/forest-guardian/blackmarble-ntl/internal/notification"
	"github.com/forest-guardian/blackmarble-ntl/internal/properties"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile   string
	logLevel  string
	logFormat string
	noBanner  bool
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg      *properties.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	notifier *notification.Discord
	server   *http.Server
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "blackmarble",
	Short: "Quality-filtered NASA Black Marble nighttime lights",
	Long: `Downloads NASA Black Marble (VNP46) nighttime-lights granules for a region,
masks fill values and unwanted quality codes, and reports per-date coverage.

Examples:
  blackmarble coverage --region lagos.geojson --product VNP46A3 --start 2022-01 --end 2022-12 --exclude 2
  blackmarble export --region lagos.geojson --product VNP46A2 --start 2023-01-01 --end 2023-01-10 --preview
  blackmarble filter --value ntl.tif --quality qa.tif --granularity daily --exclude 1,2 --out clean.tif
  blackmarble classify --granularity monthly 2`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current != nil && current.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return current.server.Shutdown(ctx)
		}
		return nil
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		ui.PrintError(os.Stderr, err.Error())
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env and ../.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "console or json (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "do not print the banner")
}

func setup(cmd *cobra.Command, args []string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := properties.Load(files...)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.New(cfg.LogLevel, cfg.LogFormat),
		notifier: notification.NewDiscord(cfg.DiscordErrorNotificationURL, cfg.DiscordSuccessNotificationURL),
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		a.metrics = metrics.New(reg)
		a.server = serveMetrics(cfg.MetricsAddr, reg, a.logger)
	}
	current = a

	if !noBanner {
		ui.PrintBanner(cmd.OutOrStdout())
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return server
}
