package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
)

// Registry tracks which messengers are connected to which room on this
// instance. The fan-out subscriber walks it to deliver each event; delivery
// is at-most-once per connection, and clients reconcile on revision.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[string]domain.Messenger
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uuid.UUID]map[string]domain.Messenger),
	}
}

func (r *Registry) Register(ctx context.Context, roomID uuid.UUID, userID string, m domain.Messenger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]domain.Messenger)
		r.rooms[roomID] = room
	}

	room[userID] = m
}

// Unregister removes the entry only if it still maps to m: when a user
// reconnects, the superseding connection overwrote the slot, and the stale
// connection's teardown must not clobber it.
func (r *Registry) Unregister(ctx context.Context, roomID uuid.UUID, userID string, m domain.Messenger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if current, ok := room[userID]; !ok || current != m {
		return
	}

	delete(room, userID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
}

// Deliver fans one event out to every connection of its room. A failing
// connection is logged and skipped; it never blocks the others.
func (r *Registry) Deliver(ctx context.Context, event domain.Event) error {
	r.mu.RLock()
	messengers := make([]domain.Messenger, 0, len(r.rooms[event.RoomID]))
	for _, m := range r.rooms[event.RoomID] {
		messengers = append(messengers, m)
	}
	r.mu.RUnlock()

	for _, m := range messengers {
		if err := m.SendEvent(ctx, event); err != nil {
			slog.DebugContext(ctx, "messenger.SendEvent", "error", err, "room_id", event.RoomID, "revision", event.Revision)
		}
	}

	return nil
}

// Close notifies every connection the server is going away.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		for _, m := range room {
			if err := m.SendServerClosing(ctx); err != nil {
				slog.DebugContext(ctx, "messenger.SendServerClosing", "error", err)
			}
		}
	}

	r.rooms = make(map[uuid.UUID]map[string]domain.Messenger)
	return nil
}
