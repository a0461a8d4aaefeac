// Package publisher_test tests episode publishing over NATS.
package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/podcastfy-wrapper/internal/objectstore"
	"github.com/book-expert/podcastfy-wrapper/internal/publisher"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "podcast.audio.created"

var errMockUpload = errors.New("mock upload error")

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	uploadShouldFail bool
	uploadedKey      string
	uploadedData     []byte
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func writeEpisode(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestNewNatsPublisher_EmptySubject(t *testing.T) {
	t.Parallel()

	_, err := publisher.NewNatsPublisher(nil, "", &mockObjectStore{}, newTestLogger(t))
	require.ErrorIs(t, err, publisher.ErrSubjectEmpty)
}

func TestPublish_UploadsAndAnnounces(t *testing.T) {
	t.Parallel()

	natsConnection := createTestNatsClient(t)

	js, err := jetstream.New(natsConnection)
	require.NoError(t, err)

	ctx := context.Background()

	store, err := objectstore.New(ctx, js, "PODCASTS")
	require.NoError(t, err)

	sub, err := natsConnection.SubscribeSync(testSubject)
	require.NoError(t, err)

	pub, err := publisher.NewNatsPublisher(natsConnection, testSubject, store, newTestLogger(t))
	require.NoError(t, err)

	episode := []byte("ID3 episode bytes")
	outputPath := writeEpisode(t, "episode.MP3", episode)

	key, err := pub.Publish(ctx, outputPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".mp3"), "key %q should keep the extension", key)

	bucket, err := js.ObjectStore(ctx, "PODCASTS")
	require.NoError(t, err)

	stored, err := bucket.GetBytes(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, episode, stored)

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var event events.AudioChunkCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))

	assert.Equal(t, key, event.AudioKey)
	assert.NotEmpty(t, event.Header.WorkflowID)
	assert.NotEmpty(t, event.Header.EventID)
	assert.EqualValues(t, 1, event.PageNumber)
	assert.EqualValues(t, 1, event.TotalPages)
}

func TestPublish_Failures(t *testing.T) {
	t.Parallel()

	natsConnection := createTestNatsClient(t)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		store := &mockObjectStore{}
		pub, err := publisher.NewNatsPublisher(natsConnection, testSubject, store, newTestLogger(t))
		require.NoError(t, err)

		_, err = pub.Publish(ctx, filepath.Join(t.TempDir(), "missing.mp3"))
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Empty(t, store.uploadedKey)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		store := &mockObjectStore{}
		pub, err := publisher.NewNatsPublisher(natsConnection, testSubject, store, newTestLogger(t))
		require.NoError(t, err)

		_, err = pub.Publish(ctx, writeEpisode(t, "empty.mp3", nil))
		require.ErrorIs(t, err, publisher.ErrEpisodeEmpty)
	})

	t.Run("upload error", func(t *testing.T) {
		t.Parallel()

		store := &mockObjectStore{uploadShouldFail: true}
		pub, err := publisher.NewNatsPublisher(natsConnection, testSubject, store, newTestLogger(t))
		require.NoError(t, err)

		_, err = pub.Publish(ctx, writeEpisode(t, "episode", []byte("x")))
		require.ErrorIs(t, err, errMockUpload)
	})
}
