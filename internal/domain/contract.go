package domain

import (
	"context"

	"github.com/google/uuid"
)

// Broadcaster publishes room events for fan-out to every connected
// participant of the room. Command failures never go through it.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// Messenger is the outbound side of one participant connection.
type Messenger interface {
	SendEvent(ctx context.Context, event Event) error
	SendSnapshot(ctx context.Context, snapshot Snapshot) error
	SendError(ctx context.Context, code string, message string) error
	SendServerClosing(ctx context.Context) error
}

// Archiver is the persistence sink. Saves are fire-and-forget from the
// engine's perspective; LoadPlaylist is the one read, used to seed a new
// room's queue.
type Archiver interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	SavePlaylist(ctx context.Context, playlist Playlist) error
	LoadPlaylist(ctx context.Context, id uuid.UUID) (Playlist, error)
}

// SessionStore owns the roomID -> actor mapping and the join-code index.
type SessionStore interface {
	Create(ctx context.Context, room *Room) (*Actor, error)
	Get(ctx context.Context, roomID uuid.UUID) (*Actor, error)
	ByJoinCode(ctx context.Context, code string) (*Actor, error)
	Actors(ctx context.Context) ([]*Actor, error)
}
