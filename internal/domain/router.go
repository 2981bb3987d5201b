package domain

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Router maps inbound (roomID, command) pairs to the actor owning that room.
// It never touches room state itself: per-connection ordering is preserved by
// the transport, and ordering across participants is whatever arrival order
// the actor's mailbox sees.
type Router struct {
	store    SessionStore
	archiver Archiver
	limits   Limits
}

func NewRouter(store SessionStore, archiver Archiver, limits Limits) *Router {
	return &Router{store: store, archiver: archiver, limits: limits}
}

type CreateRoomParams struct {
	Owner          Identity
	Name           string
	Visibility     Visibility
	SeedPlaylistID *uuid.UUID
}

// CreateRoom builds the aggregate, optionally seeds its queue from a saved
// playlist, and hands it to the session store which starts the actor.
func (r *Router) CreateRoom(ctx context.Context, params CreateRoomParams) (Snapshot, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" || params.Owner.UserID == "" {
		return Snapshot{}, fmt.Errorf("%w: missing room name or owner", ErrInvalidMessage)
	}

	visibility := params.Visibility
	if visibility != VisibilityPrivate {
		visibility = VisibilityPublic
	}

	room := NewRoom(params.Owner, name, visibility, newJoinCode())

	if params.SeedPlaylistID != nil {
		playlist, err := r.archiver.LoadPlaylist(ctx, *params.SeedPlaylistID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("archiver.LoadPlaylist: %w", err)
		}

		for _, song := range playlist.Songs {
			room.Queue = append(room.Queue, QueueEntry{
				ID:      uuid.New(),
				Song:    song,
				AddedBy: params.Owner.UserID,
				AddedAt: room.CreatedAt,
			})
		}

		slog.DebugContext(ctx, "seeded room queue from playlist", "room_id", room.ID, "playlist_id", playlist.ID, "songs", len(playlist.Songs))
	}

	if _, err := r.store.Create(ctx, room); err != nil {
		return Snapshot{}, fmt.Errorf("store.Create: %w", err)
	}

	return room.Snapshot(), nil
}

// Join validates the private-room code, then lets the actor admit the
// participant. The returned snapshot is the one the connection must deliver
// before any delta.
func (r *Router) Join(ctx context.Context, roomID uuid.UUID, identity Identity, joinCode string, messenger Messenger) (Snapshot, error) {
	actor, err := r.store.Get(ctx, roomID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store.Get: %w", err)
	}

	if actor.Visibility() == VisibilityPrivate && actor.JoinCode() != joinCode {
		return Snapshot{}, ErrInvalidCode
	}

	snapshot, err := actor.Join(ctx, identity, messenger)
	if err != nil {
		return Snapshot{}, fmt.Errorf("actor.Join: %w", err)
	}

	return snapshot, nil
}

// Dispatch forwards one command to the room's actor. Failures are for the
// issuing caller only and never mutate state.
func (r *Router) Dispatch(ctx context.Context, roomID uuid.UUID, cmd Command) (*Event, error) {
	actor, err := r.store.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.Get: %w", err)
	}

	event, err := actor.Dispatch(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("actor.Dispatch: %w", err)
	}

	return event, nil
}

// Rooms lists the public room directory.
func (r *Router) Rooms(ctx context.Context) ([]RoomInfo, error) {
	actors, err := r.store.Actors(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Actors: %w", err)
	}

	rooms := make([]RoomInfo, 0, len(actors))
	for _, actor := range actors {
		if actor.Visibility() != VisibilityPublic {
			continue
		}

		info, err := actor.Info(ctx)
		if err != nil {
			// the room was destroyed between listing and query
			continue
		}

		rooms = append(rooms, info)
	}

	return rooms, nil
}

// ByJoinCode resolves a private room from its code, for the join flow.
func (r *Router) ByJoinCode(ctx context.Context, code string) (RoomInfo, error) {
	actor, err := r.store.ByJoinCode(ctx, code)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("store.ByJoinCode: %w", err)
	}

	info, err := actor.Info(ctx)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("actor.Info: %w", err)
	}

	return info, nil
}

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a uuid
		return strings.ToUpper(uuid.NewString()[:6])
	}

	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}

	return string(buf)
}
