package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tanda-protocol/tanda-collector/collector"
	"github.com/tanda-protocol/tanda-collector/oracle"
	"github.com/tanda-protocol/tanda-collector/processor"
	"github.com/tanda-protocol/tanda-collector/router"
	"github.com/tanda-protocol/tanda-collector/scheduler"
	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/wallet"
)

func startCmd(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start collecting round payments for configured circles",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// optional .env beside the binary for local overrides
			_ = godotenv.Load()
			a.InitAppState()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.Logger
			cfg := a.Config

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			port, err := cmd.Flags().GetInt16(flagMetricsPort)
			if err != nil {
				return err
			}
			metrics := collector.InitPromMetrics(port)

			graph, err := router.NewGraph(cfg.Chains, cfg.Fees)
			if err != nil {
				return err
			}
			rtr := router.New(logger, graph, cfg.Router, time.Now().UnixNano())

			st, err := store.Open(cfg.Store.Path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			registry := wallet.NewRegistry()
			orc := oracle.NewClient(cfg.Oracle, logger)
			proc := processor.New(logger, cfg.Processor, rtr, registry, orc, st, metrics)

			sched := scheduler.New(logger, cfg.Scheduler, cfg.Processor.WorkerCount, cfg.Processor.DefaultMaxRetries, proc, st)

			if cfg.Api.Enabled {
				go startAPI(a, proc, sched)
			}

			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
				<-quit
				logger.Info("shutdown signal received")
				cancel()
			}()

			logger.Info("collector started",
				"chains", len(cfg.Chains),
				"circles", len(cfg.Scheduler.Circles),
				"workers", cfg.Processor.WorkerCount)

			sched.Start(ctx)
			return nil
		},
	}
	return cmd
}
