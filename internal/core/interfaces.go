// Package core defines the request type and the interfaces shared by the
// podcast wrapper's adapter, generation backends and publisher.
package core

import "context"

// ObjectStore receives finished episodes. Consumers read them back with their
// own client, so the wrapper only writes.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// PodcastRequest holds every option forwarded to a generation backend for a
// single episode. Style and structure are opaque to the wrapper.
type PodcastRequest struct {
	Text              string
	OutputFile        string
	TTSModel          string
	ConversationStyle string
	DialogueStructure string
	PodcastName       string
	PodcastTagline    string
	OutputFormat      string
}

// PodcastGenerator turns text into an audio file written at
// PodcastRequest.OutputFile.
type PodcastGenerator interface {
	// CheckAvailable reports whether the backend can be used at all
	// (installed, credentials present). It must not touch the request files.
	CheckAvailable(ctx context.Context) error
	Generate(ctx context.Context, req PodcastRequest) error
}

// EpisodePublisher hands a generated episode to downstream consumers and
// returns the key it was stored under.
type EpisodePublisher interface {
	Publish(ctx context.Context, outputPath string) (string, error)
}
