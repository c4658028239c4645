package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "github.com", cfg.Forge.Host)
	assert.Equal(t, "octobot", cfg.BotUser)
	assert.True(t, cfg.Backport.Enabled)
	assert.Equal(t, 100, cfg.Backport.QueueSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 8080
slack:
  enabled: true
  webhook_url: https://hooks.example.com/services/xxx
repos:
  entries:
    - host: git.company.com
      full_name: some-user/some-repo
      channel: the-reviews-channel
users:
  overrides:
    the-pr-owner: the.pr.owner
bot_user: octobot
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://hooks.example.com/services/xxx", cfg.Slack.WebhookURL)

	channel, ok := cfg.Repos.Lookup("git.company.com", "some-user/some-repo")
	assert.True(t, ok)
	assert.Equal(t, "the-reviews-channel", channel)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("OCTOBRIDGE_TOKEN", "secret-token")

	content := `
forge:
  token: ${OCTOBRIDGE_TOKEN}
slack:
  enabled: true
  webhook_url: ${OCTOBRIDGE_SLACK_URL:-https://hooks.example.com/default}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Forge.Token)
	assert.Equal(t, "https://hooks.example.com/default", cfg.Slack.WebhookURL)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestValidateRejectsSlackWithoutURL(t *testing.T) {
	cfg := Default()
	cfg.Slack.Enabled = true
	cfg.Slack.WebhookURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook_url")
}

func TestRepoRegistryLookup(t *testing.T) {
	reg := RepoRegistry{Entries: []RepoConfig{
		{Host: "git.company.com", FullName: "some-user/some-repo", Channel: "the-reviews-channel"},
	}}

	tests := []struct {
		name     string
		host     string
		fullName string
		want     string
		found    bool
	}{
		{"exact match", "git.company.com", "some-user/some-repo", "the-reviews-channel", true},
		{"case insensitive", "Git.Company.Com", "Some-User/Some-Repo", "the-reviews-channel", true},
		{"unknown repo", "git.company.com", "other/repo", "", false},
		{"unknown host", "github.com", "some-user/some-repo", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.Lookup(tt.host, tt.fullName)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserRegistryChatName(t *testing.T) {
	reg := UserRegistry{Overrides: map[string]string{
		"the-pr-owner": "the.pr.owner",
	}}

	assert.Equal(t, "the.pr.owner", reg.ChatName("the-pr-owner"))
	assert.Equal(t, "the.pr.owner", reg.ChatName("The-PR-Owner"))
	assert.Equal(t, "joe.reviewer", reg.ChatName("joe-reviewer"))
	assert.Equal(t, "plain", reg.ChatName("plain"))
	assert.Equal(t, "@joe.sender", reg.Mention("joe-sender"))
}
