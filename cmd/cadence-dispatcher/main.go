package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/cadence/pkg/cmd"
	"github.com/dukex/cadence/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 100
	defaultClaimTimeout = 5 * time.Minute
)

func main() {
	cmd := &cli.Command{
		Name:                  "cadence-dispatcher",
		EnableShellCompletion: true,
		Usage:                 "Poll due scheduled actions and publish timeout jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often to poll for due scheduled actions",
				Value:   defaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Usage:   "Maximum actions claimed per poll",
				Value:   defaultBatchSize,
				Sources: cli.EnvVars("BATCH_SIZE"),
			},
			&cli.DurationFlag{
				Name:    "claim-timeout",
				Usage:   "Claims older than this without execution are requeued",
				Value:   defaultClaimTimeout,
				Sources: cli.EnvVars("CLAIM_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = "dispatcher-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("cadence-dispatcher").With("dispatcher_id", dispatcherID)

			logger.InfoContext(ctx, "Initializing Cadence Dispatcher")

			cmd.SetupTracing(ctx, "cadence-dispatcher", logger)

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cadence-dispatcher", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			manager := NewDispatcherManager(
				dispatcherID,
				persistence,
				eventBus,
				logger,
				command.Duration("poll-interval"),
				int(command.Int("batch-size")),
				command.Duration("claim-timeout"),
			)

			manager.Start(ctx)

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
