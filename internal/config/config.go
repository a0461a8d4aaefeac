// Package config provides the configuration structure for the podcast wrapper.
//
// Values are resolved in three layers: compiled-in defaults, an optional TOML
// file named by PODCASTFY_CONFIG, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names the environment variable holding an optional TOML file path.
const EnvConfigPath = "PODCASTFY_CONFIG"

// Default values.
const (
	DefaultTTSModel          = "openai/tts-1"
	DefaultConversationStyle = "formal"
	DefaultDialogueStructure = "monologue"
	DefaultBackend           = BackendPodcastfy
	DefaultPython            = "python3"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1/"
	DefaultVoice             = "alloy"
	DefaultNATSBucket        = "PODCASTS"
	DefaultNATSSubject       = "podcast.audio.created"
)

// Backend names accepted by PODCASTFY_BACKEND.
const (
	BackendPodcastfy = "podcastfy"
	BackendOpenAI    = "openai"
)

// ErrUnknownBackend is returned when the configured backend is not supported.
var ErrUnknownBackend = errors.New("unknown backend")

// PodcastConfig holds the options forwarded to the generation backend.
type PodcastConfig struct {
	TTSModel          string `toml:"tts_model"          env:"PODCASTFY_TTS_MODEL"`
	ConversationStyle string `toml:"conversation_style" env:"PODCASTFY_STYLE"`
	DialogueStructure string `toml:"dialogue_structure" env:"PODCASTFY_STRUCTURE"`
}

// BackendConfig selects the generation backend.
type BackendConfig struct {
	Kind   string `toml:"kind"   env:"PODCASTFY_BACKEND"`
	Python string `toml:"python" env:"PODCASTFY_PYTHON"`
}

// OpenAIConfig holds the settings of the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"  env:"OPENAI_API_KEY"`
	BaseURL string `toml:"base_url" env:"OPENAI_BASE_URL"`
	Voice   string `toml:"voice"    env:"PODCASTFY_VOICE"`
}

// NATSConfig holds the configuration for publishing finished episodes.
// Publishing is disabled while URL is empty.
type NATSConfig struct {
	URL     string `toml:"url"     env:"PODCASTFY_NATS_URL"`
	Bucket  string `toml:"bucket"  env:"PODCASTFY_NATS_BUCKET"`
	Subject string `toml:"subject" env:"PODCASTFY_NATS_SUBJECT"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	LogDir string `toml:"log_dir" env:"PODCASTFY_LOG_DIR"`
}

// Config is the root configuration structure.
type Config struct {
	Podcast PodcastConfig `toml:"podcast"`
	Backend BackendConfig `toml:"backend"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	NATS    NATSConfig    `toml:"nats"`
	Paths   PathsConfig   `toml:"paths"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() Config {
	return Config{
		Podcast: PodcastConfig{
			TTSModel:          DefaultTTSModel,
			ConversationStyle: DefaultConversationStyle,
			DialogueStructure: DefaultDialogueStructure,
		},
		Backend: BackendConfig{
			Kind:   DefaultBackend,
			Python: DefaultPython,
		},
		OpenAI: OpenAIConfig{
			APIKey:  "",
			BaseURL: DefaultOpenAIBaseURL,
			Voice:   DefaultVoice,
		},
		NATS: NATSConfig{
			URL:     "",
			Bucket:  DefaultNATSBucket,
			Subject: DefaultNATSSubject,
		},
		Paths: PathsConfig{
			LogDir: os.TempDir(),
		},
	}
}

// Load resolves the configuration from the given environment, e.g.
// env.ToMap(os.Environ()).
func Load(environ map[string]string) (*Config, error) {
	cfg := Default()

	if path := environ[EnvConfigPath]; path != "" {
		fileErr := loadFile(path, &cfg)
		if fileErr != nil {
			return nil, fileErr
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// Validate checks the values that would otherwise fail late, after the
// input file was already read.
func (c *Config) Validate() error {
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))

	switch c.Backend.Kind {
	case BackendPodcastfy, BackendOpenAI:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend.Kind)
	}
}

// PublishingEnabled reports whether finished episodes go to NATS.
func (c *Config) PublishingEnabled() bool {
	return c.NATS.URL != ""
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	err = toml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}
