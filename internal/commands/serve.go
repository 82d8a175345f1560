package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"

	"github.com/takeshq/takes/internal/metrics"
	"github.com/takeshq/takes/internal/slackbot"
	"github.com/takeshq/takes/internal/store"
	"github.com/takeshq/takes/internal/takes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Takes bot",
	Long:  `Connect to Slack over socket mode, watch the listen channel for uploads, and run the notification sweeper.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().
		Str("version", version).
		Str("db", cfg.Storage.Path).
		Msg("Starting takes")

	if cfg.Slack.BotToken == "" || cfg.Slack.AppToken == "" {
		return fmt.Errorf("slack.bot_token and slack.app_token are required")
	}

	s, err := store.Open(cfg.Storage.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.StartMetricsServer(cfg.Metrics.Port, logger)
	}

	api := slack.New(cfg.Slack.BotToken, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	client := slackbot.NewClient(api, cfg.Slack.UserToken, logger)
	socket := socketmode.New(api)

	engine := takes.New(s, client, cfg.Takes, nil, logger)

	sweeper := takes.NewSweeper(engine, cfg.Takes.SweepInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	listener := slackbot.NewListener(socket, client, engine, s, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Slack.SpamChannel != "" {
		if _, err := client.PostMessage(takes.Message{
			Channel: cfg.Slack.SpamChannel,
			Text:    fmt.Sprintf("takes %s is up", version),
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to announce startup")
		}
	}

	if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("slack listener stopped: %w", err)
	}

	logger.Info().Msg("Shutting down")
	return nil
}
