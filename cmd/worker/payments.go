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
	"github.com/jmehdipour/paywall/internal/kafka"
	"github.com/jmehdipour/paywall/internal/logger"
	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/worker"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Consume gateway payment status notifications from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		log := logger.Named("worker.payments")

		metrics.MustRegister(prometheus.DefaultRegisterer)

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		kcfg := kafka.ConfigFor(cfg.Kafka, cfg.Kafka.PaymentsTopic)
		consumer := kafka.NewConsumerFromConfig(kcfg)
		defer consumer.Close()

		w := worker.NewPaymentStatus(consumer, a.Payments, log)

		// graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info(">> payments consumer started",
			zap.String("topic", kcfg.Topic), zap.String("group", kcfg.GroupID), zap.Strings("brokers", kcfg.Brokers))
		return w.Run(ctx)
	},
}
