package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/cli/config"
	controller "github.com/secmon-lab/vantage/pkg/controller/http"
	slackCtrl "github.com/secmon-lab/vantage/pkg/controller/slack"
	"github.com/secmon-lab/vantage/pkg/service/llm"
	"github.com/secmon-lab/vantage/pkg/usecase"
	"github.com/secmon-lab/vantage/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

func cmdServe(governanceCfg *config.Governance) *cli.Command {
	var (
		serverCfg    config.Server
		slackCfg     config.Slack
		firestoreCfg config.Firestore
		geminiCfg    config.Gemini
		watchConfig  bool
	)

	flags := joinFlags(
		serverCfg.Flags(),
		slackCfg.Flags(),
		firestoreCfg.Flags(),
		geminiCfg.Flags(),
		[]cli.Flag{
			&cli.BoolFlag{
				Name:        "watch-config",
				Usage:       "Reload the governance configuration file when it changes",
				Category:    "Governance",
				Sources:     cli.EnvVars("VANTAGE_WATCH_CONFIG"),
				Destination: &watchConfig,
			},
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting vantage server",
				slog.Any("server", serverCfg),
				slog.Any("governance", governanceCfg),
				slog.Any("slack", slackCfg),
				slog.Any("firestore", firestoreCfg),
				slog.Any("gemini", geminiCfg),
			)

			if watchConfig && governanceCfg.Path == "" {
				return goerr.New("--watch-config requires --config")
			}

			govConfig, err := governanceCfg.Configure()
			if err != nil {
				return err
			}

			// Create repository using config
			repo, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Warn("Failed to close repository", "error", err)
				}
			}()

			governance, err := usecase.NewGovernance(repo, govConfig)
			if err != nil {
				return err
			}

			notifyOpts := []usecase.NotifyOption{
				usecase.WithDefaultChannel(slackCfg.Channel()),
			}
			if llmClient := geminiCfg.ConfigureOptional(ctx, logger); llmClient != nil {
				notifyOpts = append(notifyOpts, usecase.WithOutlook(llm.NewLLMService(llmClient)))
			}
			notify := usecase.NewNotify(governance, slackCfg.Configure(logger), notifyOpts...)

			var slackHandler *slackCtrl.Handler
			if slackCfg.IsFullyConfigured() {
				slackHandler = slackCtrl.NewHandler(ctx, &slackCfg, governance, notify)
			} else {
				logger.Info("Slack signing secret not set - slash command endpoint disabled")
			}

			server := controller.NewServer(ctx, serverCfg.Addr, governance, notify, slackHandler)

			watchCtx, stopWatch := context.WithCancel(ctx)
			defer stopWatch()
			if watchConfig {
				go func() {
					if err := config.WatchGovernance(watchCtx, governanceCfg.Path, governance.UpdateConfig); err != nil {
						logger.Error("Configuration watcher stopped", "error", err)
					}
				}()
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serverErr <- err
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-serverErr:
				return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverCfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if !async.Wait(shutdownCtx) {
				logger.Warn("Shutdown timed out with Slack notifications still running")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
