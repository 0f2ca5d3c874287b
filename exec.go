package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/robinrelay/internal/command"
)

// commandExecutor runs one parsed command.
type commandExecutor interface {
	Execute(ctx context.Context, cmd command.Command) command.Result
}

func newExecCmd() *cobra.Command {
	return execCommand(func(ctx context.Context) (commandExecutor, error) {
		_, registry, err := newRegistry(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return registry, nil
	})
}

func execCommand(newExecutor func(ctx context.Context) (commandExecutor, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [command...]",
		Short: "Run one chat command locally and print the reply",
		Example: `  robinrelay exec status octo/widgets
  robinrelay exec analyze octo/widgets 42
  robinrelay exec list branches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			executor, err := newExecutor(ctx)
			if err != nil {
				return err
			}

			parsed := command.ParseChat(strings.Join(args, " "))
			parsed.UserID = os.Getenv("USER")

			console := NewConsole(cmd.OutOrStdout())
			var result command.Result
			err = console.WithSpinner(ctx, "Running "+parsed.Kind.String()+"...", func() error {
				result = executor.Execute(ctx, parsed)
				return nil
			})
			if err != nil {
				return err
			}

			console.Markdown(result.Text)
			if result.IsError {
				console.Failure("%s failed", parsed.Kind)
				return errors.New("command failed")
			}
			console.Success("%s done", parsed.Kind)
			return nil
		},
	}
}
