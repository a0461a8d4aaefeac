// Package publisher uploads a generated episode to the object store and
// announces it on a NATS subject.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	defaultExtension = "mp3"
	flushTimeout     = 10 * time.Second
)

var (
	// ErrSubjectEmpty indicates that no subject was configured.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
	// ErrEpisodeEmpty indicates that the generated file has no content.
	ErrEpisodeEmpty = errors.New("episode file is empty")
)

// NatsPublisher implements core.EpisodePublisher.
type NatsPublisher struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	log            *logger.Logger
}

// NewNatsPublisher creates a publisher that stores episodes in store and
// announces them on subject.
func NewNatsPublisher(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	log *logger.Logger,
) (*NatsPublisher, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsPublisher{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		log:            log,
	}, nil
}

// Publish uploads the file at outputPath under a fresh key and publishes an
// AudioChunkCreatedEvent for it. It returns the object key.
func (p *NatsPublisher) Publish(ctx context.Context, outputPath string) (string, error) {
	audioData, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read episode '%s': %w", outputPath, err)
	}

	if len(audioData) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEpisodeEmpty, outputPath)
	}

	audioKey := uuid.NewString() + "." + extensionOf(outputPath)

	err = p.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload episode for key '%s': %w", audioKey, err)
	}

	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now().UTC(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   audioKey,
		PageNumber: 1,
		TotalPages: 1,
	}

	err = p.publishEvent(ctx, event)
	if err != nil {
		return "", err
	}

	p.log.Info("Published episode %s as %s on %s", outputPath, audioKey, p.subject)

	return audioKey, nil
}

// publishEvent marshals the event and waits until the server has it.
func (p *NatsPublisher) publishEvent(ctx context.Context, event *events.AudioChunkCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audio created event: %w", err)
	}

	err = p.natsConnection.Publish(p.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish audio created event: %w", err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	err = p.natsConnection.FlushWithContext(flushCtx)
	if err != nil {
		return fmt.Errorf("failed to flush audio created event: %w", err)
	}

	return nil
}

func extensionOf(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return defaultExtension
	}

	return strings.ToLower(ext)
}
