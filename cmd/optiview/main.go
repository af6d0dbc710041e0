package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/netopt/optiview/internal/api"
	"github.com/netopt/optiview/internal/config"
	"github.com/netopt/optiview/internal/engine"
	"github.com/netopt/optiview/internal/history"
	"github.com/netopt/optiview/internal/logging"
	"github.com/netopt/optiview/internal/models"
	"github.com/netopt/optiview/internal/optimizer"
	"github.com/netopt/optiview/internal/websocket"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "optiview",
	Short:   "Optiview - dashboard sync engine for the network optimizer",
	Long:    `Optiview keeps a live dashboard view of a network optimizer service: it polls metrics, mirrors optimization cycles, and streams view-models to connected dashboards.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Optiview %s\n", Version)
		fmt.Printf("Build time: %s\n", BuildTime)
		fmt.Printf("Git commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "optiview",
	})

	log.Info().
		Str("version", Version).
		Str("optimizer", cfg.OptimizerURL).
		Msg("Starting Optiview")

	store, err := history.NewStore(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.DataDir).Msg("Activity persistence disabled")
		store = nil
	}

	client := optimizer.NewClient(optimizer.ClientConfig{
		BaseURL: cfg.OptimizerURL,
		Timeout: cfg.RequestTimeout,
	})

	hub := websocket.NewHub(nil)
	eng := engine.New(cfg, client, hub, clockwork.NewRealClock(), store)
	hub.SetStateGetter(eng.Dashboard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run()
	go eng.Run(ctx)

	// Initial probe and refresh so the first dashboard client sees data
	// without waiting for the first tick.
	go func() {
		if eng.Probe(ctx) == models.StateConnected {
			if err := eng.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("Initial refresh incomplete")
			}
		}
	}()

	apiServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(cfg, eng, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Dashboard server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Dashboard server failed")
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Dashboard server shutdown incomplete")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown incomplete")
	}
	log.Info().Msg("Shutdown complete")
}
