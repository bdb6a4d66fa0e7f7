package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/mcastellin/scuttlebutt/internal/config"
	"github.com/mcastellin/scuttlebutt/internal/debugapi"
	"github.com/mcastellin/scuttlebutt/internal/leaderelection"
	"github.com/mcastellin/scuttlebutt/internal/metrics"
	scuttlebutt "github.com/mcastellin/scuttlebutt/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "join or start a Scuttlebutt cluster and serve its gossip socket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load(v)

	zapLogger, err := buildZapLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer zapLogger.Sync()
	logger := zapr.NewLogger(zapLogger)

	runID := xid.New().String()
	logger = logger.WithValues("run_id", runID)
	logger.Info("scuttlebutt node starting", "bind", cfg.BindAddr, "seeds", cfg.Seeds)

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	metricsObserver := metrics.NewObserver(collectors)

	election := leaderelection.New(float64(time.Now().UnixNano()%1000), 5*time.Second, func(master string) {
		logger.Info("master elected", "master", master)
	})

	events := debugapi.NewEventHub(logger)
	observers := scuttlebutt.MultiObserver{metricsObserver, election, events}

	g, err := scuttlebutt.NewGossiper(cfg.BindAddr, observers,
		scuttlebutt.WithLogger(logger),
		scuttlebutt.WithPhiThreshold(cfg.PhiThreshold),
		scuttlebutt.WithHeartbeatInterval(cfg.HeartbeatInterval),
		scuttlebutt.WithGossipInterval(cfg.GossipInterval),
	)
	if err != nil {
		return fmt.Errorf("constructing gossiper: %w", err)
	}

	var debugServer *debugapi.Server
	if cfg.DebugAPIAddr != "" {
		debugServer = debugapi.New(cfg.DebugAPIAddr, g, reg, logger, cfg.Debug, events)
	}

	if len(cfg.Seeds) > 0 {
		if err := g.Seed(cfg.Seeds); err != nil {
			return fmt.Errorf("seeding cluster view: %w", err)
		}
	}

	if err := g.Serve(); err != nil {
		return fmt.Errorf("starting gossiper: %w", err)
	}
	defer g.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if debugServer != nil {
		go func() {
			if err := debugServer.Serve(ctx); err != nil {
				logger.Error(err, "debug API server exited")
			}
		}()
	}

	<-ctx.Done()
	logger.Info("scuttlebutt node shutting down")
	return nil
}

func buildZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
