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

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	gh "github.com/google/go-github/v68/github"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/XiaoConstantine/robinrelay/internal/chat"
	"github.com/XiaoConstantine/robinrelay/internal/events"
	"github.com/XiaoConstantine/robinrelay/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and, when configured, the Slack listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	logger := logging.GetLogger()

	if cfg.GitHub.Token == "" {
		return errors.New("github.token (or GITHUB_TOKEN) is required to serve")
	}
	if cfg.GitHub.WebhookSecret == "" {
		logger.Warn(ctx, "No webhook secret configured; signatures will not be verified")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	router := events.NewRouter()
	router.Register(events.PullRequestLifecycle, "status-workflow", a.workflow.HandleEvent)
	router.Register(events.CommentCreation, "comment-commands", a.comments.HandleEvent)
	router.Register(events.Installation, "installation-log", logInstallation)

	mux := http.NewServeMux()
	webhook.NewHandler(cfg.GitHub.WebhookSecret, router).Routes(mux)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		logger.Info(ctx, "Listening for webhooks on %s as %s", cfg.Addr, cfg.Mention())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		logger.Info(context.Background(), "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := shutdown(shutdownCtx, srv, router)

		stats := router.Stats()
		logger.Info(shutdownCtx, "Handled %d events (%d failed, %d panicked, %d unrouted)",
			stats.Dispatched, stats.Failed, stats.Panicked, stats.Unrouted)
		return err
	})

	if cfg.SlackEnabled() {
		listener := chat.NewSocketListener(a.chat, chat.SocketConfig{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			Command:  cfg.Slack.Command,
			Debug:    cfg.Debug,
		})
		p.Go(func(ctx context.Context) error {
			logger.Info(ctx, "Starting Slack listener (slash command %s)", cfg.Slack.Command)
			return listener.Run(ctx)
		})
	} else {
		logger.Info(ctx, "Slack tokens not configured; chat surface disabled")
	}

	return p.Wait()
}

// shutdown stops accepting webhooks and waits for the handlers already
// dispatched, reporting both failures.
func shutdown(ctx context.Context, srv *http.Server, router *events.Router) error {
	return multierr.Append(srv.Shutdown(ctx), router.Shutdown(ctx))
}

func logInstallation(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(*gh.InstallationEvent)
	if !ok {
		return fmt.Errorf("installation logger: unexpected payload %T", ev.Payload)
	}
	logging.GetLogger().Info(ctx, "[%s] App installation %s for %s", ev.ID,
		payload.GetAction(), payload.GetInstallation().GetAccount().GetLogin())
	return nil
}
