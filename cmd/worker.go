package cmd

import (
	"fmt"

	"entrepreneur-connect-backend/internal/push"
	"entrepreneur-connect-backend/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver queued push notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required to run the worker")
		}

		var sender push.Dispatcher = push.Noop{}
		if cfg.Push.KeyFile != "" {
			apns, err := push.NewAPNsSender(cfg.Push)
			if err != nil {
				return fmt.Errorf("failed to create APNs client: %w", err)
			}
			sender = apns
		} else {
			log.Warn().Msg("APNs key not configured, queued notifications will be dropped")
		}

		srv := worker.NewServer(worker.RedisOpt(cfg.Redis), workerConcurrency)
		log.Info().Str("redis", cfg.Redis.Addr).Int("concurrency", workerConcurrency).Msg("Starting push worker")

		// Run blocks until SIGINT or SIGTERM
		return srv.Run(worker.NewMux(sender))
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 10, "number of concurrent deliveries")
}
