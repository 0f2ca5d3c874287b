// Package config loads RobinRelay's configuration from flags, environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// EnvPrefix prefixes every environment variable, e.g. ROBINRELAY_BOT_NAME.
const EnvPrefix = "ROBINRELAY"

// Default configuration values.
const (
	DefaultBotName        = "robin-relay-bot"
	DefaultCooldown       = 5 * time.Second
	DefaultEvictionFactor = 12
	DefaultAddr           = ":3000"
	DefaultSlashCommand   = "/robin-relay"
)

// DefaultBotIdentities are logins always treated as the bot itself, besides
// the bot name and the authenticated user.
var DefaultBotIdentities = []string{"robinrelay-bot"}

// Config is the resolved configuration.
type Config struct {
	Debug bool

	BotName            string
	BotIdentities      []string
	SubstringHeuristic bool

	CommentCooldown time.Duration
	EvictionFactor  int

	GitHub GitHub
	Slack  Slack

	Addr string
}

// GitHub holds code host settings.
type GitHub struct {
	Token         string
	WebhookSecret string
	BaseURL       string
	CheckName     string
	DefaultOwner  string
	DefaultRepo   github.Repo
}

// Slack holds chat platform settings.
type Slack struct {
	BotToken string
	AppToken string
	// Command is the slash command answered, e.g. /robin-relay.
	Command string
}

// legacyEnv lists the unprefixed variable names the bot has always honoured.
var legacyEnv = map[string]string{
	"github.token":          "GITHUB_TOKEN",
	"github.webhook_secret": "WEBHOOK_SECRET",
	"slack.bot_token":       "SLACK_BOT_TOKEN",
	"slack.app_token":       "SLACK_APP_TOKEN",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("bot.name", DefaultBotName)
	v.SetDefault("bot.identities", DefaultBotIdentities)
	v.SetDefault("bot.substring_heuristic", false)
	v.SetDefault("comment.cooldown", DefaultCooldown)
	v.SetDefault("ratelimit.eviction_factor", DefaultEvictionFactor)
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.check_name", "")
	v.SetDefault("github.default_owner", "")
	v.SetDefault("github.default_repo", "")
	v.SetDefault("slack.command", DefaultSlashCommand)
	v.SetDefault("server.addr", DefaultAddr)
}

// Load reads configuration into a Config. cfgFile may be empty, in which case
// robinrelay.yaml is looked up in the working directory and in
// ~/.config/robinrelay; a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("robinrelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "robinrelay"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Debug:              v.GetBool("debug"),
		BotName:            strings.TrimPrefix(strings.TrimSpace(v.GetString("bot.name")), "@"),
		BotIdentities:      v.GetStringSlice("bot.identities"),
		SubstringHeuristic: v.GetBool("bot.substring_heuristic"),
		CommentCooldown:    v.GetDuration("comment.cooldown"),
		EvictionFactor:     v.GetInt("ratelimit.eviction_factor"),
		GitHub: GitHub{
			Token:         v.GetString("github.token"),
			WebhookSecret: v.GetString("github.webhook_secret"),
			BaseURL:       v.GetString("github.base_url"),
			CheckName:     v.GetString("github.check_name"),
			DefaultOwner:  v.GetString("github.default_owner"),
		},
		Slack: Slack{
			BotToken: v.GetString("slack.bot_token"),
			AppToken: v.GetString("slack.app_token"),
			Command:  v.GetString("slack.command"),
		},
		Addr: v.GetString("server.addr"),
	}

	if repo := v.GetString("github.default_repo"); repo != "" {
		parsed, err := github.ParseRepo(repo, cfg.GitHub.DefaultOwner)
		if err != nil {
			return nil, fmt.Errorf("github.default_repo: %w", err)
		}
		cfg.GitHub.DefaultRepo = parsed
		if cfg.GitHub.DefaultOwner == "" {
			cfg.GitHub.DefaultOwner = parsed.Owner
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch {
	case c.BotName == "":
		return errors.New("bot.name must not be empty")
	case strings.ContainsAny(c.BotName, " \t\n"):
		return fmt.Errorf("bot.name %q must not contain whitespace", c.BotName)
	case c.CommentCooldown <= 0:
		return fmt.Errorf("comment.cooldown must be positive, got %s", c.CommentCooldown)
	case c.EvictionFactor <= 0:
		return fmt.Errorf("ratelimit.eviction_factor must be positive, got %d", c.EvictionFactor)
	}
	return nil
}

// Mention is the token that addresses the bot in comments.
func (c *Config) Mention() string {
	return "@" + c.BotName
}

// SlackEnabled reports whether both Socket Mode tokens are configured.
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != "" && c.Slack.AppToken != ""
}
