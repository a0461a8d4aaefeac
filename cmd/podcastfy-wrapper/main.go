// main package for the podcastfy-wrapper command.
//
// Usage:
//
//	podcastfy-wrapper <input_file> <output_file> <title>
//
// The command reads the input text, generates a podcast episode at the output
// path and prints one JSON status line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/adapter"
	"github.com/book-expert/podcastfy-wrapper/internal/config"
	"github.com/book-expert/podcastfy-wrapper/internal/core"
	"github.com/book-expert/podcastfy-wrapper/internal/objectstore"
	"github.com/book-expert/podcastfy-wrapper/internal/podcastfy"
	"github.com/book-expert/podcastfy-wrapper/internal/publisher"
	"github.com/book-expert/podcastfy-wrapper/internal/tts"
	"github.com/caarlos0/env/v11"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const logFileName = "podcastfy-wrapper.log"

// Error messages.
const (
	errFmtLoadConfig = "Error: failed to load configuration: %v\n"
	errFmtInitLogger = "Error: failed to initialize logger: %v\n"
)

// stdoutMu guards the os.Stdout swap in newLogger.
var stdoutMu sync.Mutex

func main() {
	program := filepath.Base(os.Args[0])
	os.Exit(run(context.Background(), program, os.Args[1:], env.ToMap(os.Environ()), os.Stdout, os.Stderr))
}

// run wires configuration, logging and the backend, then hands the
// invocation to the adapter. It returns the process exit code.
func run(
	ctx context.Context,
	program string,
	args []string,
	environ map[string]string,
	stdout, stderr io.Writer,
) int {
	// Fail on a bad argument count before any configuration or log file is touched.
	if adapter.CheckArgs(args) != nil {
		fmt.Fprintln(stderr, adapter.Usage(program))

		return adapter.ExitFailure
	}

	cfg, err := config.Load(environ)
	if err != nil {
		fmt.Fprintf(stderr, errFmtLoadConfig, err)

		return adapter.ExitFailure
	}

	log, closeLog, err := newLogger(cfg.Paths.LogDir)
	if err != nil {
		fmt.Fprintf(stderr, errFmtInitLogger, err)

		return adapter.ExitFailure
	}

	defer func() {
		closeErr := closeLog()
		if closeErr != nil {
			fmt.Fprintf(stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	log.Info("Starting %s with backend %s", program, cfg.Backend.Kind)

	opts := []adapter.Option{adapter.WithProgramName(program)}

	var closePublisher func()

	defer func() {
		if closePublisher != nil {
			closePublisher()
		}
	}()

	if cfg.PublishingEnabled() {
		opts = append(opts, adapter.WithPublisherSetup(func(ctx context.Context) (core.EpisodePublisher, error) {
			episodePublisher, cleanup, setupErr := setupPublisher(ctx, cfg, log)
			if setupErr != nil {
				return nil, setupErr
			}

			closePublisher = cleanup

			return episodePublisher, nil
		}))
	}

	generator := newGenerator(cfg, log)

	return adapter.New(generator, cfg.Podcast, log, stdout, stderr, opts...).Run(ctx, args)
}

// newLogger opens the log file. Stdout carries only the JSON result, so the
// logger's console copy is bound to the null device.
func newLogger(logDir string) (*logger.Logger, func() error, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}

	stdoutMu.Lock()
	processStdout := os.Stdout
	os.Stdout = devNull
	log, err := logger.New(logDir, logFileName)
	os.Stdout = processStdout
	stdoutMu.Unlock()

	if err != nil {
		_ = devNull.Close()

		return nil, nil, err
	}

	closeAll := func() error {
		return errors.Join(log.Close(), devNull.Close())
	}

	return log, closeAll, nil
}

// newGenerator selects the backend named in the configuration.
func newGenerator(cfg *config.Config, log *logger.Logger) core.PodcastGenerator {
	if cfg.Backend.Kind == config.BackendOpenAI {
		return tts.NewOpenAIGenerator(tts.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Voice:      cfg.OpenAI.Voice,
			HTTPClient: nil,
		}, log)
	}

	return podcastfy.New(cfg.Backend.Python, log)
}

// setupPublisher connects to NATS and binds the episode bucket.
func setupPublisher(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (*publisher.NatsPublisher, func(), error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("podcastfy-wrapper"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	js, err := jetstream.New(natsConnection)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(ctx, js, cfg.NATS.Bucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	episodePublisher, err := publisher.NewNatsPublisher(natsConnection, cfg.NATS.Subject, store, log)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	log.Info("Publishing episodes to bucket %s and subject %s", store.Bucket(), cfg.NATS.Subject)

	return episodePublisher, natsConnection.Close, nil
}
