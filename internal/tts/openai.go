// Package tts provides the Go-native podcast backend: it turns the email
// text into a spoken monologue through the OpenAI speech API and writes the
// concatenated audio to the requested output file.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/core"
	"github.com/book-expert/podcastfy-wrapper/internal/tts/text"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Limits.
const (
	// MaxInputChars is the longest input accepted by a single speech request.
	MaxInputChars = 4096

	providerOpenAI  = "openai"
	filePermissions = 0o600
)

// Log formats.
const (
	logFmtSynthesizing = "Synthesizing %d chunk(s) with model %s, voice %s"
	logFmtChunkDone    = "Synthesized chunk %d/%d (%d bytes)"
	errFmtChunkFailed  = "chunk %d/%d failed: %w"
)

// Static errors.
var (
	ErrMissingAPIKey       = errors.New("OpenAI API key not set. Export OPENAI_API_KEY")
	ErrUnsupportedProvider = errors.New("unsupported TTS provider")
	ErrTextEmpty           = errors.New("text cannot be empty")
	ErrOutputPathEmpty     = errors.New("output path cannot be empty")
	ErrReceivedEmptyAudio  = errors.New("received empty audio data")
)

// Models that reject the instructions field.
var legacyModels = map[string]struct{}{
	"tts-1":    {},
	"tts-1-hd": {},
}

// OpenAIConfig holds the settings of the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Voice   string

	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// OpenAIGenerator implements core.PodcastGenerator on top of the OpenAI
// speech endpoint.
type OpenAIGenerator struct {
	client       openai.Client
	apiKey       string
	voice        string
	preprocessor *text.Preprocessor
	log          *logger.Logger
}

// NewOpenAIGenerator creates the backend. The API key is checked later by
// CheckAvailable so that a missing key is reported as a missing dependency.
func NewOpenAIGenerator(cfg OpenAIConfig, log *logger.Logger) *OpenAIGenerator {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}

	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(cfg.BaseURL)))
	}

	if cfg.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIGenerator{
		client:       openai.NewClient(reqOpts...),
		apiKey:       cfg.APIKey,
		voice:        cfg.Voice,
		preprocessor: text.NewPreprocessor(),
		log:          log,
	}
}

// ParseModel splits a "provider/model" identifier and returns the model
// name. A bare model name is taken as an OpenAI model.
func ParseModel(identifier string) (string, error) {
	provider, model, found := strings.Cut(strings.TrimSpace(identifier), "/")
	if !found {
		model = provider
		provider = providerOpenAI
	}

	if !strings.EqualFold(provider, providerOpenAI) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	if model == "" {
		return "", fmt.Errorf("%w: empty model in %q", ErrUnsupportedProvider, identifier)
	}

	return model, nil
}

// CheckAvailable reports a missing API key.
func (g *OpenAIGenerator) CheckAvailable(_ context.Context) error {
	if g.apiKey == "" {
		return ErrMissingAPIKey
	}

	return nil
}

// Generate synthesizes the episode chunk by chunk and writes the segments,
// in order, to req.OutputFile.
func (g *OpenAIGenerator) Generate(ctx context.Context, req core.PodcastRequest) error {
	model, err := ParseModel(req.TTSModel)
	if err != nil {
		return err
	}

	if req.OutputFile == "" {
		return ErrOutputPathEmpty
	}

	body := g.preprocessor.PreprocessText(req.Text)
	if body == "" {
		return ErrTextEmpty
	}

	chunks := g.preprocessor.Chunk(g.intro(req)+" "+body, MaxInputChars)
	instructions := g.instructions(model, req)

	g.log.Info(logFmtSynthesizing, len(chunks), model, g.voice)

	output, err := os.OpenFile(req.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	writeErr := g.writeChunks(ctx, output, chunks, model, instructions, req.OutputFormat)
	closeErr := output.Close()

	if writeErr != nil {
		return writeErr
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close audio file: %w", closeErr)
	}

	return nil
}

func (g *OpenAIGenerator) writeChunks(
	ctx context.Context,
	output io.Writer,
	chunks []string,
	model, instructions, format string,
) error {
	for index, chunk := range chunks {
		params := openai.AudioSpeechNewParams{
			Input:          chunk,
			Model:          model,
			Voice:          openai.AudioSpeechNewParamsVoice(g.voice),
			ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
		}
		if instructions != "" {
			params.Instructions = openai.String(instructions)
		}

		audioData, err := g.synthesize(ctx, params)
		if err != nil {
			return fmt.Errorf(errFmtChunkFailed, index+1, len(chunks), err)
		}

		_, err = output.Write(audioData)
		if err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}

		g.log.Info(logFmtChunkDone, index+1, len(chunks), len(audioData))
	}

	return nil
}

func (g *OpenAIGenerator) synthesize(ctx context.Context, params openai.AudioSpeechNewParams) ([]byte, error) {
	resp, err := g.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}
	defer resp.Body.Close()

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// intro is spoken before the body, e.g. "Email Podcast. Weekly digest."
func (g *OpenAIGenerator) intro(req core.PodcastRequest) string {
	parts := make([]string, 0, 2)

	for _, part := range []string{req.PodcastName, req.PodcastTagline} {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, strings.TrimRight(part, ".!?")+".")
		}
	}

	return strings.Join(parts, " ")
}

func (g *OpenAIGenerator) instructions(model string, req core.PodcastRequest) string {
	if _, legacy := legacyModels[model]; legacy {
		return ""
	}

	return fmt.Sprintf("Read this as a %s podcast %s.", req.ConversationStyle, req.DialogueStructure)
}

func withTrailingSlash(baseURL string) string {
	if strings.HasSuffix(baseURL, "/") {
		return baseURL
	}

	return baseURL + "/"
}
