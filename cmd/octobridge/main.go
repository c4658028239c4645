// octobridge is a webhook bridge between a git forge and a chat
// service. It relays forge events as channel and direct messages and
// schedules label-driven backports of merged pull requests.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobridge/octobridge/consts"
	"github.com/octobridge/octobridge/internal/api/handler"
	"github.com/octobridge/octobridge/internal/api/router"
	"github.com/octobridge/octobridge/internal/backport"
	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/git/github"
	"github.com/octobridge/octobridge/internal/git/workspace"
	"github.com/octobridge/octobridge/internal/messenger"
	"github.com/octobridge/octobridge/internal/server"
	"github.com/octobridge/octobridge/internal/slack"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// Build information, injected via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const shutdownTimeout = 15 * time.Second

var configPath string

func main() {
	consts.Version = version
	consts.BuildTime = buildTime
	consts.GitCommit = gitCommit

	rootCmd := &cobra.Command{
		Use:   consts.ServiceName,
		Short: "Bridge forge webhooks to chat notifications and backports",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (commit %s, built %s)\n",
				consts.ServiceName, consts.Version, consts.GitCommit, consts.BuildTime)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()
	consts.SetStartedAt(time.Now())

	logger.Info("Starting",
		zap.String("service", consts.ServiceName),
		zap.String("version", consts.Version),
		zap.String("commit", consts.GitCommit),
	)

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return err
	}

	forge, err := github.NewClient(cfg.Forge)
	if err != nil {
		return err
	}

	var chat messenger.ChatPoster
	if cfg.Slack.Enabled {
		chat = slack.NewClient(cfg.Slack.WebhookURL, cfg.Slack.Timeout)
	} else {
		logger.Warn("Chat notifications are disabled")
		chat = noopChat{}
	}
	msgr := messenger.New(cfg, chat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := backport.NewQueue(cfg.Backport.QueueSize)
	var worker *backport.Worker
	if cfg.Backport.Enabled {
		runner := &workspace.Runner{
			BaseDir: cfg.Backport.WorkDir,
			Token:   cfg.Forge.Token,
		}
		worker = backport.NewWorker(cfg.Backport, queue, forge, msgr, runner)
		worker.Start(ctx)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	webhook := handler.NewWebhookHandler(cfg, msgr, forge, queue)
	srv := server.New(cfg.Server, router.New(webhook))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
	case sig := <-quit:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("Stopped")
	return nil
}

// noopChat drops messages when chat is disabled
type noopChat struct{}

func (noopChat) Post(ctx context.Context, msg slack.Message) error { return nil }
