package main

import (
	"context"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/chat"
	"github.com/XiaoConstantine/robinrelay/internal/command"
	"github.com/XiaoConstantine/robinrelay/internal/comment"
	"github.com/XiaoConstantine/robinrelay/internal/config"
	"github.com/XiaoConstantine/robinrelay/internal/github"
	"github.com/XiaoConstantine/robinrelay/internal/ratelimit"
	"github.com/XiaoConstantine/robinrelay/internal/workflow"
)

// app holds the wired components shared by the commands.
type app struct {
	workflow *workflow.StatusWorkflow
	comments *comment.Adapter
	chat     *chat.Adapter
}

// newRegistry builds the backend client and the command registry.
func newRegistry(ctx context.Context, cfg *config.Config) (*github.Client, *command.Registry, error) {
	client, err := github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.BaseURL)
	if err != nil {
		return nil, nil, err
	}
	registry := command.NewRegistry(client, analysis.NewInspector(client), command.Config{
		Mention:      cfg.Mention(),
		DefaultOwner: cfg.GitHub.DefaultOwner,
		DefaultRepo:  cfg.GitHub.DefaultRepo,
	})
	return client, registry, nil
}

// newApp wires every surface.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.GetLogger()

	client, registry, err := newRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	identity := comment.NewIdentity(cfg.Mention(), cfg.BotIdentities, cfg.SubstringHeuristic)
	if login, err := client.AuthenticatedUser(ctx); err != nil {
		logger.Warn(ctx, "Could not determine the authenticated GitHub user: %v", err)
	} else {
		logger.Info(ctx, "Acting on GitHub as %s", login)
		identity.AddLogin(login)
	}

	limiter := ratelimit.New(cfg.CommentCooldown, ratelimit.WithEvictionFactor(cfg.EvictionFactor))

	return &app{
		workflow: workflow.New(client, analysis.NewInspector(client), workflow.WithCheckName(cfg.GitHub.CheckName)),
		comments: comment.NewAdapter(client, registry, identity, limiter),
		chat:     chat.NewAdapter(registry),
	}, nil
}
