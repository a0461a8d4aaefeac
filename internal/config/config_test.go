// Package config_test tests the configuration loading for the podcast wrapper.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/podcastfy-wrapper/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlData = `
[podcast]
tts_model = "openai/tts-1-hd"
conversation_style = "casual"
dialogue_structure = "interview"

[backend]
kind = "openai"
python = "/usr/local/bin/python3.11"

[openai]
base_url = "http://127.0.0.1:9000/v1/"
voice = "nova"

[nats]
url = "nats://127.0.0.1:4222"
bucket = "EPISODES"
subject = "episodes.created"

[paths]
log_dir = "/var/log/podcastfy"
`

func writeConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "podcastfy.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlData), 0o600))

	return path
}

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "openai/tts-1-hd", cfg.Podcast.TTSModel)
	assert.Equal(t, "casual", cfg.Podcast.ConversationStyle)
	assert.Equal(t, "interview", cfg.Podcast.DialogueStructure)
	assert.Equal(t, "openai", cfg.Backend.Kind)
	assert.Equal(t, "/usr/local/bin/python3.11", cfg.Backend.Python)
	assert.Equal(t, "http://127.0.0.1:9000/v1/", cfg.OpenAI.BaseURL)
	assert.Equal(t, "nova", cfg.OpenAI.Voice)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "EPISODES", cfg.NATS.Bucket)
	assert.Equal(t, "episodes.created", cfg.NATS.Subject)
	assert.Equal(t, "/var/log/podcastfy", cfg.Paths.LogDir)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "openai/tts-1", cfg.Podcast.TTSModel)
	assert.Equal(t, "formal", cfg.Podcast.ConversationStyle)
	assert.Equal(t, "monologue", cfg.Podcast.DialogueStructure)
	assert.Equal(t, config.BackendPodcastfy, cfg.Backend.Kind)
	assert.Equal(t, "python3", cfg.Backend.Python)
	assert.Equal(t, config.DefaultOpenAIBaseURL, cfg.OpenAI.BaseURL)
	assert.Empty(t, cfg.OpenAI.APIKey)
	assert.False(t, cfg.PublishingEnabled())
	assert.Equal(t, os.TempDir(), cfg.Paths.LogDir)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		environ map[string]string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name:    "tts model",
			environ: map[string]string{"PODCASTFY_TTS_MODEL": "foo"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "foo", cfg.Podcast.TTSModel)
				assert.Equal(t, "formal", cfg.Podcast.ConversationStyle)
				assert.Equal(t, "monologue", cfg.Podcast.DialogueStructure)
			},
		},
		{
			name: "style and structure",
			environ: map[string]string{
				"PODCASTFY_STYLE":     "engaging",
				"PODCASTFY_STRUCTURE": "debate",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "openai/tts-1", cfg.Podcast.TTSModel)
				assert.Equal(t, "engaging", cfg.Podcast.ConversationStyle)
				assert.Equal(t, "debate", cfg.Podcast.DialogueStructure)
			},
		},
		{
			name: "backend is normalized",
			environ: map[string]string{
				"PODCASTFY_BACKEND": " OpenAI ",
				"OPENAI_API_KEY":    "sk-test",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.BackendOpenAI, cfg.Backend.Kind)
				assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
			},
		},
		{
			name:    "publishing",
			environ: map[string]string{"PODCASTFY_NATS_URL": "nats://localhost:4222"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.True(t, cfg.PublishingEnabled())
				assert.Equal(t, config.DefaultNATSBucket, cfg.NATS.Bucket)
				assert.Equal(t, config.DefaultNATSSubject, cfg.NATS.Subject)
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(testCase.environ)
			require.NoError(t, err)
			testCase.check(t, cfg)
		})
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t)

	cfg, err := config.Load(map[string]string{
		config.EnvConfigPath: path,
		"PODCASTFY_STYLE":    "formal",
	})
	require.NoError(t, err)

	assert.Equal(t, "openai/tts-1-hd", cfg.Podcast.TTSModel, "file overrides default")
	assert.Equal(t, "formal", cfg.Podcast.ConversationStyle, "environment overrides file")
	assert.Equal(t, "interview", cfg.Podcast.DialogueStructure)
	assert.Equal(t, "EPISODES", cfg.NATS.Bucket)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(map[string]string{"PODCASTFY_BACKEND": "espeak"})
	require.ErrorIs(t, err, config.ErrUnknownBackend)

	_, err = config.Load(map[string]string{
		config.EnvConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	badPath := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(badPath, []byte("[podcast\n"), 0o600))

	_, err = config.Load(map[string]string{config.EnvConfigPath: badPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
