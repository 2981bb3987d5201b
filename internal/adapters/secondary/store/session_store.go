package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
)

// SessionStore owns every active room actor. The map itself is the only
// state shared across rooms; actors never read each other.
type SessionStore struct {
	baseCtx     context.Context
	limits      domain.Limits
	broadcaster domain.Broadcaster
	archiver    domain.Archiver
	idleGrace   time.Duration

	mu    sync.RWMutex
	rooms map[uuid.UUID]*session
	codes map[string]uuid.UUID
}

type session struct {
	actor  *domain.Actor
	cancel context.CancelFunc
}

// NewSessionStore keeps baseCtx as the lifetime of every actor it starts;
// cancelling it drains and snapshots all rooms.
func NewSessionStore(baseCtx context.Context, limits domain.Limits, broadcaster domain.Broadcaster, archiver domain.Archiver, idleGrace time.Duration) *SessionStore {
	return &SessionStore{
		baseCtx:     baseCtx,
		limits:      limits,
		broadcaster: broadcaster,
		archiver:    archiver,
		idleGrace:   idleGrace,
		rooms:       make(map[uuid.UUID]*session),
		codes:       make(map[string]uuid.UUID),
	}
}

func (s *SessionStore) Create(ctx context.Context, room *domain.Room) (*domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return nil, fmt.Errorf("room %s already exists", room.ID)
	}
	if _, ok := s.codes[room.JoinCode]; ok {
		return nil, fmt.Errorf("join code %s already in use", room.JoinCode)
	}

	actor := domain.NewActor(room, s.limits, s.broadcaster, s.archiver)

	actorCtx, cancel := context.WithCancel(s.baseCtx)
	go func() {
		if err := actor.Run(actorCtx); err != nil {
			slog.ErrorContext(actorCtx, "actor.Run", "error", err, "room_id", room.ID)
		}
	}()

	s.rooms[room.ID] = &session{actor: actor, cancel: cancel}
	s.codes[room.JoinCode] = room.ID

	slog.DebugContext(ctx, "room created", "room_id", room.ID, "visibility", room.Visibility)
	return actor, nil
}

func (s *SessionStore) Get(ctx context.Context, roomID uuid.UUID) (*domain.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return sess.actor, nil
}

func (s *SessionStore) ByJoinCode(ctx context.Context, code string) (*domain.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	sess, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return sess.actor, nil
}

func (s *SessionStore) Actors(ctx context.Context) ([]*domain.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actors := make([]*domain.Actor, 0, len(s.rooms))
	for _, sess := range s.rooms {
		actors = append(actors, sess.actor)
	}

	return actors, nil
}

// Janitor periodically destroys rooms whose participant set has been empty
// past the idle grace. The actor snapshots itself on the way out.
func (s *SessionStore) Janitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

func (s *SessionStore) Sweep(ctx context.Context, now time.Time) {
	actors, _ := s.Actors(ctx)

	for _, actor := range actors {
		info, err := actor.Info(ctx)
		if err != nil {
			// already stopped; make sure the indexes are gone
			s.remove(actor.ID())
			continue
		}

		if info.EmptySince == nil || now.Sub(*info.EmptySince) < s.idleGrace {
			continue
		}

		slog.DebugContext(ctx, "evicting idle room", "room_id", actor.ID(), "empty_since", info.EmptySince)
		s.destroy(actor)
	}
}

// Close destroys every room, snapshotting each.
func (s *SessionStore) Close(ctx context.Context) error {
	actors, _ := s.Actors(ctx)
	for _, actor := range actors {
		s.destroy(actor)
	}

	return nil
}

func (s *SessionStore) destroy(actor *domain.Actor) {
	s.mu.Lock()
	sess, ok := s.rooms[actor.ID()]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.cancel()
	<-actor.Done()

	s.remove(actor.ID())
}

func (s *SessionStore) remove(roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.rooms[roomID]
	if !ok {
		return
	}

	delete(s.rooms, roomID)
	delete(s.codes, sess.actor.JoinCode())
}
