// Package podcastfy implements core.PodcastGenerator by driving the Python
// podcastfy library in a subprocess.
//
// The request travels to the interpreter as JSON on stdin. A failure inside
// the library is reported back on the last marked stderr line so the
// exception message reaches the caller unchanged.
package podcastfy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/core"
)

const errorMarker = "PODCASTFY_ERROR: "

const importCheckScript = "import podcastfy.client"

// bridgeScript runs inside the interpreter. Keep the keyword names in sync
// with bridgeRequest.
const bridgeScript = `import json
import sys

try:
    from podcastfy.client import generate_podcast

    request = json.load(sys.stdin)
    generate_podcast(
        text=request["text"],
        output_file=request["output_file"],
        text_to_speech_model=request["text_to_speech_model"],
        conversation_style=request["conversation_style"],
        dialogue_structure=request["dialogue_structure"],
        podcast_name=request["podcast_name"],
        podcast_tagline=request["podcast_tagline"],
        output_format=request["output_format"],
    )
except Exception as exc:
    print("` + errorMarker + `" + json.dumps(str(exc)), file=sys.stderr)
    sys.exit(1)
`

// ErrNotInstalled is returned by CheckAvailable when podcastfy cannot be imported.
var ErrNotInstalled = errors.New("podcastfy not installed. Run: pip install podcastfy")

// LibraryError carries the message of an exception raised by podcastfy.
type LibraryError struct {
	Message string
}

func (e *LibraryError) Error() string {
	return e.Message
}

type bridgeRequest struct {
	Text              string `json:"text"`
	OutputFile        string `json:"output_file"`
	TextToSpeechModel string `json:"text_to_speech_model"`
	ConversationStyle string `json:"conversation_style"`
	DialogueStructure string `json:"dialogue_structure"`
	PodcastName       string `json:"podcast_name"`
	PodcastTagline    string `json:"podcast_tagline"`
	OutputFormat      string `json:"output_format"`
}

// Generator runs podcastfy through the configured Python interpreter.
type Generator struct {
	python string
	log    *logger.Logger
}

// New creates a Generator using the given interpreter (e.g. "python3").
func New(python string, log *logger.Logger) *Generator {
	return &Generator{
		python: python,
		log:    log,
	}
}

// CheckAvailable verifies that the interpreter exists and can import podcastfy.
func (g *Generator) CheckAvailable(ctx context.Context) error {
	// #nosec G204 -- the interpreter path comes from operator configuration
	cmd := exec.CommandContext(ctx, g.python, "-c", importCheckScript)

	output, err := cmd.CombinedOutput()
	if err != nil {
		g.log.Warn("podcastfy import check with %s failed: %v - output: %s",
			g.python, err, strings.TrimSpace(string(output)))

		return ErrNotInstalled
	}

	return nil
}

// Generate calls podcastfy's generate_podcast once. The audio file is
// written by the library itself.
func (g *Generator) Generate(ctx context.Context, req core.PodcastRequest) error {
	payload, err := json.Marshal(bridgeRequest{
		Text:              req.Text,
		OutputFile:        req.OutputFile,
		TextToSpeechModel: req.TTSModel,
		ConversationStyle: req.ConversationStyle,
		DialogueStructure: req.DialogueStructure,
		PodcastName:       req.PodcastName,
		PodcastTagline:    req.PodcastTagline,
		OutputFormat:      req.OutputFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal podcastfy request: %w", err)
	}

	var stdout, stderr bytes.Buffer

	// #nosec G204 -- the script is a constant; user data only travels on stdin
	cmd := exec.CommandContext(ctx, g.python, "-c", bridgeScript)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.log.Info("Running podcastfy (model %s, style %s, structure %s) for %s",
		req.TTSModel, req.ConversationStyle, req.DialogueStructure, req.OutputFile)

	runErr := cmd.Run()

	if stdout.Len() > 0 {
		g.log.Info("podcastfy output: %s", strings.TrimSpace(stdout.String()))
	}

	if runErr != nil {
		return g.classifyFailure(runErr, stderr.Bytes())
	}

	return nil
}

// classifyFailure prefers the library's own exception message and falls
// back to the raw process error when the bridge never reached its handler.
func (g *Generator) classifyFailure(runErr error, stderr []byte) error {
	message, found := lastMarkedMessage(stderr)
	if found {
		g.log.Error("podcastfy raised: %s", message)

		return &LibraryError{Message: message}
	}

	g.log.Error("podcastfy process failed: %v - stderr: %s", runErr, strings.TrimSpace(string(stderr)))

	return fmt.Errorf("podcastfy process failed: %w - output: %s", runErr, strings.TrimSpace(string(stderr)))
}

func lastMarkedMessage(stderr []byte) (string, bool) {
	var (
		message string
		found   bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(stderr))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(stderr)+1)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, errorMarker) {
			continue
		}

		var decoded string

		decodeErr := json.Unmarshal([]byte(strings.TrimPrefix(line, errorMarker)), &decoded)
		if decodeErr != nil {
			decoded = strings.TrimPrefix(line, errorMarker)
		}

		message = decoded
		found = true
	}

	return message, found
}
