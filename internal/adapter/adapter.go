// Package adapter translates one command-line invocation into a single
// podcast generation and reports the outcome as JSON plus an exit code.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/config"
	"github.com/book-expert/podcastfy-wrapper/internal/core"
	"github.com/book-expert/podcastfy-wrapper/internal/fsutil"
)

// Fixed podcast options.
const (
	PodcastName  = "Email Podcast"
	OutputFormat = "mp3"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

const expectedArgs = 3

// Messages.
const (
	usageFormat          = "Usage: %s <input_file> <output_file> <title>"
	dependencyFormat     = "Error: %v"
	publishSetupFormat   = "Error: failed to set up publishing: %v"
	logFmtStarting       = "Generating %q from %s into %s"
	logFmtGenerated      = "Generated %s: %s"
	logFmtFailed         = "Generation failed: %v"
	logFmtUnavailable    = "Generation backend unavailable: %v"
	logFmtPublishSetup   = "Failed to set up publishing: %v"
	logFmtWriteResultErr = "Failed to write result: %v"
)

// ErrUsage is returned by CheckArgs for a wrong argument count.
var ErrUsage = errors.New("expected exactly 3 arguments")

// SuccessResult is printed on stdout after a successful generation.
type SuccessResult struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	ObjectKey string `json:"object_key,omitempty"`
}

// FailureResult is printed on stderr when reading, preparing, generating or
// publishing fails.
type FailureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// PublisherSetup connects the publisher. It runs once per Run, after the
// backend passed its availability check.
type PublisherSetup func(ctx context.Context) (core.EpisodePublisher, error)

// Adapter runs one generation per Run call.
type Adapter struct {
	program        string
	generator      core.PodcastGenerator
	publisher      core.EpisodePublisher
	setupPublisher PublisherSetup
	podcast   config.PodcastConfig
	stdout    io.Writer
	stderr    io.Writer
	log       *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPublisher publishes every successfully generated episode.
func WithPublisher(publisher core.EpisodePublisher) Option {
	return func(a *Adapter) {
		a.publisher = publisher
	}
}

// WithPublisherSetup defers connecting the publisher until the backend is
// known to be available.
func WithPublisherSetup(setup PublisherSetup) Option {
	return func(a *Adapter) {
		a.setupPublisher = setup
	}
}

// WithProgramName sets the name shown in the usage line.
func WithProgramName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.program = name
		}
	}
}

// New creates an Adapter writing its reports to stdout and stderr.
func New(
	generator core.PodcastGenerator,
	podcast config.PodcastConfig,
	log *logger.Logger,
	stdout, stderr io.Writer,
	opts ...Option,
) *Adapter {
	adapter := &Adapter{
		program:        "podcastfy-wrapper",
		generator:      generator,
		publisher:      nil,
		setupPublisher: nil,
		podcast:        podcast,
		stdout:         stdout,
		stderr:         stderr,
		log:            log,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// CheckArgs validates the positional argument count.
func CheckArgs(args []string) error {
	if len(args) != expectedArgs {
		return fmt.Errorf("%w, got %d", ErrUsage, len(args))
	}

	return nil
}

// Usage returns the usage line for program.
func Usage(program string) string {
	return fmt.Sprintf(usageFormat, program)
}

// Run processes args (input file, output file, title) and returns the
// process exit code.
func (a *Adapter) Run(ctx context.Context, args []string) int {
	if CheckArgs(args) != nil {
		fmt.Fprintln(a.stderr, Usage(a.program))

		return ExitFailure
	}

	availErr := a.generator.CheckAvailable(ctx)
	if availErr != nil {
		a.log.Error(logFmtUnavailable, availErr)
		fmt.Fprintf(a.stderr, dependencyFormat+"\n", availErr)

		return ExitFailure
	}

	if a.setupPublisher != nil {
		publisher, setupErr := a.setupPublisher(ctx)
		if setupErr != nil {
			a.log.Error(logFmtPublishSetup, setupErr)
			fmt.Fprintf(a.stderr, publishSetupFormat+"\n", setupErr)

			return ExitFailure
		}

		a.publisher = publisher
	}

	inputFile, outputFile, title := args[0], args[1], args[2]

	objectKey, err := a.process(ctx, inputFile, outputFile, title)
	if err != nil {
		a.log.Error(logFmtFailed, err)
		a.writeResult(a.stderr, FailureResult{Success: false, Error: err.Error()})

		return ExitFailure
	}

	a.writeResult(a.stdout, SuccessResult{Success: true, Output: outputFile, ObjectKey: objectKey})

	return ExitSuccess
}

// process is the single error boundary: read, prepare, generate, publish.
func (a *Adapter) process(ctx context.Context, inputFile, outputFile, title string) (string, error) {
	a.log.Info(logFmtStarting, title, inputFile, outputFile)

	content, err := fsutil.ReadText(inputFile)
	if err != nil {
		return "", err
	}

	err = fsutil.EnsureParentDir(outputFile)
	if err != nil {
		return "", err
	}

	started := time.Now()

	err = a.generator.Generate(ctx, core.PodcastRequest{
		Text:              content,
		OutputFile:        outputFile,
		TTSModel:          a.podcast.TTSModel,
		ConversationStyle: a.podcast.ConversationStyle,
		DialogueStructure: a.podcast.DialogueStructure,
		PodcastName:       PodcastName,
		PodcastTagline:    title,
		OutputFormat:      OutputFormat,
	})
	if err != nil {
		return "", err
	}

	a.log.Info(logFmtGenerated, outputFile, fsutil.DescribeEpisode(outputFile, time.Since(started)))

	if a.publisher == nil {
		return "", nil
	}

	return a.publisher.Publish(ctx, outputFile)
}

// writeResult prints result as one JSON line.
func (a *Adapter) writeResult(w io.Writer, result any) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(result)
	if err != nil {
		a.log.Error(logFmtWriteResultErr, err)
	}
}
