package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg     config.Logger
		governanceCfg config.Governance
	)

	app := &cli.Command{
		Name:    "vantage",
		Usage:   "Defect governance engine: business-day aging, KPI compliance and backlog velocity",
		Version: "0.1.0",
		Flags:   joinFlags(loggerCfg.Flags(), governanceCfg.Flags()),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Configure logger
			logger, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdServe(&governanceCfg),
			cmdReport(&governanceCfg),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		ctxlog.From(ctx).Error("command failed", "error", err)
		return goerr.Wrap(err, "CLI execution failed")
	}

	return nil
}

// joinFlags combines multiple flag slices into one
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}
