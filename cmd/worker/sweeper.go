package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/app"
	"github.com/jmehdipour/paywall/internal/logger"
	"github.com/jmehdipour/paywall/internal/metrics"
)

var sweepOnce bool

var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Run the webhook retry sweeper out of process",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		log := logger.Named("worker.sweeper")

		metrics.MustRegister(prometheus.DefaultRegisterer)

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if sweepOnce {
			stats := a.Sweeper.SweepOnce(context.Background())
			log.Info("sweep finished", zap.Any("stats", stats))
			return nil
		}

		if cfg.Webhook.InProcessSweeper {
			log.Warn("webhook.in_process_sweeper is on; serve runs a sweeper too")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.Sweeper.Start(cfg.Webhook.SweepInterval)
		log.Info(">> sweeper started", zap.Duration("period", cfg.Webhook.SweepInterval), zap.Int("batch", cfg.Webhook.SweepBatch))
		<-ctx.Done()

		a.Sweeper.Stop()
		return nil
	},
}

func init() {
	sweeperCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single cycle and exit")
}
