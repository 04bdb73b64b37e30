package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comalice/hsm"
	"github.com/comalice/hsm/examples/arena"
	"github.com/comalice/hsm/internal/config"
	"github.com/comalice/hsm/internal/production"
	"github.com/comalice/hsm/realtime"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a scripted session",
		Long:  `Runs the arena game on the realtime driver until the script ends, the tick limit is hit or the process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dot, _ := cmd.Flags().GetBool("dot")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cmd, cfg, dot)
		},
	}

	cmd.Flags().Int("ticks", 0, "Stop after this many ticks (0 = until the script ends)")
	cmd.Flags().Duration("tick-rate", 0, "Tick interval, e.g. 16ms")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")
	cmd.Flags().Bool("dot", false, "Print the final state tree as Graphviz DOT")
	return cmd
}

func runSession(ctx context.Context, cmd *cobra.Command, cfg config.Config, dot bool) error {
	out := cmd.OutOrStdout()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := production.NewMetrics(reg, "hsm")
	if err != nil {
		return err
	}

	records := make(chan production.Record, 256)
	pub := production.NewChannelPublisher(records)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for r := range records {
			fmt.Fprintf(out, "%s %s\n", r.Time.Format("15:04:05.000"), r)
		}
	}()

	game := arena.NewGame(cfg.Arena.EnemiesPerRound, logger,
		hsm.WithObserver(metrics),
		hsm.WithObserver(pub),
	)
	director := arena.NewDirector(game, arena.Script{
		KillEvery:    cfg.Arena.KillEvery,
		ShopTicks:    cfg.Arena.ShopTicks,
		DeathAtRound: cfg.Arena.DeathAtRound,
		Restarts:     cfg.Arena.Restarts,
	})
	driver := realtime.NewDriver(director, realtime.Config{
		TickRate:           cfg.TickRate,
		MaxCommandsPerTick: cfg.MaxCommandsPerTick,
		MaxTicks:           uint64(cfg.MaxTicks),
	}, realtime.WithLogger(logger))

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(reg)}
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := driver.Start(ctx); err != nil {
		return err
	}
	select {
	case <-driver.Done():
	case <-director.Finished():
	case <-ctx.Done():
	}
	runErr := driver.Stop()
	_ = pub.Close()
	<-printed

	if pub.Dropped > 0 {
		logger.Warn("lifecycle records dropped", "count", pub.Dropped)
	}
	s := game.Stats
	fmt.Fprintf(out, "ticks=%d rounds=%d purchases=%d deaths=%d restarts=%d\n",
		driver.TickNumber(), s.RoundsCleared, s.Purchases, s.Deaths, s.Restarts)

	if dot {
		if tree, ok := production.Tree(game.Machine); ok {
			v := &production.DefaultVisualizer{}
			fmt.Fprint(out, v.ExportDOT(tree))
		}
	}
	if runErr != nil {
		return fmt.Errorf("session failed: %w", runErr)
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
