package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/robinrelay/internal/github"
)

func emptyDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	emptyDir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultBotName, cfg.BotName)
	assert.Equal(t, "@robin-relay-bot", cfg.Mention())
	assert.Equal(t, DefaultCooldown, cfg.CommentCooldown)
	assert.Equal(t, DefaultEvictionFactor, cfg.EvictionFactor)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultSlashCommand, cfg.Slack.Command)
	assert.Equal(t, "/robin-relay", cfg.Slack.Command)
	assert.Equal(t, []string{"robinrelay-bot"}, cfg.BotIdentities)
	assert.False(t, cfg.SubstringHeuristic)
	assert.False(t, cfg.SlackEnabled())
	assert.True(t, cfg.GitHub.DefaultRepo.IsZero())
}

func TestLoad_Environment(t *testing.T) {
	emptyDir(t)
	t.Setenv("ROBINRELAY_BOT_NAME", "@relay")
	t.Setenv("ROBINRELAY_COMMENT_COOLDOWN", "10s")
	t.Setenv("ROBINRELAY_GITHUB_DEFAULT_REPO", "octo/widgets")
	t.Setenv("GITHUB_TOKEN", "legacy-token")
	t.Setenv("WEBHOOK_SECRET", "legacy-secret")
	t.Setenv("ROBINRELAY_GITHUB_WEBHOOK_SECRET", "prefixed-secret")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-1")
	t.Setenv("SLACK_APP_TOKEN", "xapp-1")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "relay", cfg.BotName)
	assert.Equal(t, 10*time.Second, cfg.CommentCooldown)
	assert.Equal(t, github.Repo{Owner: "octo", Name: "widgets"}, cfg.GitHub.DefaultRepo)
	assert.Equal(t, "octo", cfg.GitHub.DefaultOwner)
	assert.Equal(t, "legacy-token", cfg.GitHub.Token)
	assert.Equal(t, "prefixed-secret", cfg.GitHub.WebhookSecret)
	assert.True(t, cfg.SlackEnabled())
}

func TestLoad_File(t *testing.T) {
	emptyDir(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  name: widget-bot
  identities: [widget-app, "widget-app[bot]"]
  substring_heuristic: true
github:
  default_owner: octo
  default_repo: gadgets
server:
  addr: ":8080"
`), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "widget-bot", cfg.BotName)
	assert.Equal(t, []string{"widget-app", "widget-app[bot]"}, cfg.BotIdentities)
	assert.True(t, cfg.SubstringHeuristic)
	assert.Equal(t, github.Repo{Owner: "octo", Name: "gadgets"}, cfg.GitHub.DefaultRepo)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	emptyDir(t)
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidDefaultRepo(t *testing.T) {
	emptyDir(t)
	t.Setenv("ROBINRELAY_GITHUB_DEFAULT_REPO", "widgets")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{BotName: "bot", CommentCooldown: time.Second, EvictionFactor: 1}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"empty name":        func(c *Config) { c.BotName = "" },
		"name with space":   func(c *Config) { c.BotName = "my bot" },
		"zero cooldown":     func(c *Config) { c.CommentCooldown = 0 },
		"negative cooldown": func(c *Config) { c.CommentCooldown = -time.Second },
		"zero eviction":     func(c *Config) { c.EvictionFactor = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
