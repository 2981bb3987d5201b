package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/redis"
	"github.com/google/uuid"
)

// Task types moved through the persistence queue.
const (
	TaskSaveSnapshot = "archive:snapshot"
	TaskSavePlaylist = "archive:playlist"
)

type Publisher interface {
	Publish(ctx context.Context, t string, message any) error
}

// Archive is the persistence sink. Saves are enqueued and performed by the
// worker so the engine's command path never waits on storage; playlist reads
// are synchronous because they only happen at room creation.
type Archive struct {
	redisClient *redis.Client
	publisher   Publisher
}

func NewArchive(redisClient *redis.Client, publisher Publisher) *Archive {
	return &Archive{redisClient: redisClient, publisher: publisher}
}

func (a *Archive) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := a.publisher.Publish(ctx, TaskSaveSnapshot, snapshot); err != nil {
		return fmt.Errorf("publisher.Publish: %w", err)
	}

	return nil
}

func (a *Archive) SavePlaylist(ctx context.Context, playlist domain.Playlist) error {
	if err := a.publisher.Publish(ctx, TaskSavePlaylist, playlist); err != nil {
		return fmt.Errorf("publisher.Publish: %w", err)
	}

	return nil
}

func (a *Archive) LoadPlaylist(ctx context.Context, id uuid.UUID) (domain.Playlist, error) {
	var playlist domain.Playlist
	if err := a.redisClient.GetJSON(ctx, playlistKey(id), &playlist); err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return domain.Playlist{}, domain.ErrPlaylistNotFound
		}

		return domain.Playlist{}, fmt.Errorf("redisClient.GetJSON: %w", err)
	}

	return playlist, nil
}

// WriteSnapshot and WritePlaylist are the worker-side halves of the saves.

func (a *Archive) WriteSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := a.redisClient.SetJSON(ctx, snapshotKey(snapshot.RoomID), snapshot); err != nil {
		return fmt.Errorf("redisClient.SetJSON: %w", err)
	}

	return nil
}

func (a *Archive) WritePlaylist(ctx context.Context, playlist domain.Playlist) error {
	if err := a.redisClient.SetJSON(ctx, playlistKey(playlist.ID), playlist); err != nil {
		return fmt.Errorf("redisClient.SetJSON: %w", err)
	}

	return nil
}

func snapshotKey(roomID uuid.UUID) string {
	return "karaoke:snapshot:" + roomID.String()
}

func playlistKey(id uuid.UUID) string {
	return "karaoke:playlist:" + id.String()
}
