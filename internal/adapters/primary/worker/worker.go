package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/archive"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/pubsub"
)

// Worker drains the persistence queue: it performs the snapshot and playlist
// writes the engine enqueued, keeping storage latency off the command path.
type Worker struct {
	subscriber *pubsub.Subscriber
	archive    *archive.Archive
}

func NewWorker(subscriber *pubsub.Subscriber, archive *archive.Archive) *Worker {
	return &Worker{subscriber: subscriber, archive: archive}
}

func (w *Worker) Run(ctx context.Context) error {
	w.subscriber.Subscribe(ctx, archive.TaskSaveSnapshot, func(ctx context.Context, t pubsub.Task) error {
		var snapshot domain.Snapshot
		if err := json.Unmarshal(t.Payload, &snapshot); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}

		if err := w.archive.WriteSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("archive.WriteSnapshot: %w", err)
		}

		slog.DebugContext(ctx, "snapshot archived", "room_id", snapshot.RoomID, "revision", snapshot.Revision)
		return nil
	})

	w.subscriber.Subscribe(ctx, archive.TaskSavePlaylist, func(ctx context.Context, t pubsub.Task) error {
		var playlist domain.Playlist
		if err := json.Unmarshal(t.Payload, &playlist); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}

		if err := w.archive.WritePlaylist(ctx, playlist); err != nil {
			return fmt.Errorf("archive.WritePlaylist: %w", err)
		}

		slog.DebugContext(ctx, "playlist archived", "playlist_id", playlist.ID, "songs", len(playlist.Songs))
		return nil
	})

	if err := w.subscriber.Start(); err != nil {
		return fmt.Errorf("subscriber.Start: %w", err)
	}

	<-ctx.Done()
	w.subscriber.Stop()

	return ctx.Err()
}
