package main

import (
	"fmt"
	"os"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/XiaoConstantine/robinrelay/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "robinrelay",
	Short: "Pull request bot for GitHub comments and Slack",
	Long: `RobinRelay reacts to GitHub pull request webhooks with a review status
check, answers @-mention commands in pull request comments, and serves the
same commands from Slack mentions, direct messages and a slash command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := v.BindPFlag("debug", cmd.Root().PersistentFlags().Lookup("debug")); err != nil {
			return err
		}
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg.Debug)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./robinrelay.yaml or ~/.config/robinrelay/robinrelay.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd(), newSignCmd(), newExecCmd())
}

func setupLogging(debug bool) {
	logLevel := logging.INFO
	if debug {
		logLevel = logging.DEBUG
	}

	output := logging.NewConsoleOutput(true, logging.WithColor(true))

	logger := logging.NewLogger(logging.Config{
		Severity: logLevel,
		Outputs:  []logging.Output{output},
	})
	logging.SetLogger(logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
