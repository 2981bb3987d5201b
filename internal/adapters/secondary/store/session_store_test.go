package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/store"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/domain/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
}

func (r *snapshotRecorder) record(snapshot domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
}

func (r *snapshotRecorder) all() []domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshots := make([]domain.Snapshot, len(r.snapshots))
	copy(snapshots, r.snapshots)
	return snapshots
}

func newStore(t *testing.T, idleGrace time.Duration) (*store.SessionStore, *snapshotRecorder) {
	t.Helper()

	broadcaster := mocks.NewMockBroadcaster(t)
	broadcaster.On("Broadcast", mock.Anything, mock.Anything).Maybe().Return(nil)

	recorder := &snapshotRecorder{}
	archiver := mocks.NewMockArchiver(t)
	archiver.On("SaveSnapshot", mock.Anything, mock.AnythingOfType("domain.Snapshot")).Maybe().
		Run(func(args mock.Arguments) { recorder.record(args.Get(1).(domain.Snapshot)) }).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	s := store.NewSessionStore(ctx, domain.DefaultLimits(), broadcaster, archiver, idleGrace)
	t.Cleanup(func() {
		_ = s.Close(context.Background())
		cancel()
	})

	return s, recorder
}

func newRoom(owner, code string) *domain.Room {
	return domain.NewRoom(domain.Identity{UserID: owner, DisplayName: owner}, owner+"'s room", domain.VisibilityPublic, code)
}

func TestSessionStore_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should start an actor and index it by id and join code", func(t *testing.T) {
		s, _ := newStore(t, time.Minute)

		room := newRoom("alice", "STORE1")
		actor, err := s.Create(ctx, room)
		require.NoError(t, err)

		got, err := s.Get(ctx, room.ID)
		require.NoError(t, err)
		require.Same(t, actor, got)

		byCode, err := s.ByJoinCode(ctx, "STORE1")
		require.NoError(t, err)
		require.Same(t, actor, byCode)
	})

	t.Run("it should reject a duplicate room or join code", func(t *testing.T) {
		s, _ := newStore(t, time.Minute)

		room := newRoom("alice", "STORE2")
		_, err := s.Create(ctx, room)
		require.NoError(t, err)

		_, err = s.Create(ctx, room)
		require.Error(t, err)

		_, err = s.Create(ctx, newRoom("bob", "STORE2"))
		require.Error(t, err)
	})

	t.Run("it should report unknown rooms as not found", func(t *testing.T) {
		s, _ := newStore(t, time.Minute)

		_, err := s.Get(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrRoomNotFound)

		_, err = s.ByJoinCode(ctx, "NOPE42")
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestSessionStore_Sweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should evict a room empty past the idle grace and snapshot it", func(t *testing.T) {
		s, recorder := newStore(t, time.Minute)

		room := newRoom("alice", "SWEEP1")
		actor, err := s.Create(ctx, room)
		require.NoError(t, err)

		m := mocks.NewMockMessenger(t)
		m.On("SendSnapshot", mock.Anything, mock.Anything).Once().Return(nil)

		_, err = actor.Join(ctx, domain.Identity{UserID: "alice"}, m)
		require.NoError(t, err)
		_, err = actor.Dispatch(ctx, domain.Leave{UserID: "alice"})
		require.NoError(t, err)

		// a sweep within the grace keeps the room
		s.Sweep(ctx, time.Now())
		_, err = s.Get(ctx, room.ID)
		require.NoError(t, err)

		// a sweep past the grace evicts it; destroy waits for the actor to
		// finish, so the shutdown snapshot is recorded by the time it returns
		s.Sweep(ctx, time.Now().Add(2*time.Minute))

		_, err = s.Get(ctx, room.ID)
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
		_, err = s.ByJoinCode(ctx, "SWEEP1")
		require.ErrorIs(t, err, domain.ErrRoomNotFound)

		snapshots := recorder.all()
		require.Len(t, snapshots, 1)
		require.Equal(t, room.ID, snapshots[0].RoomID)
	})

	t.Run("it should keep occupied rooms", func(t *testing.T) {
		s, _ := newStore(t, time.Minute)

		room := newRoom("alice", "SWEEP2")
		actor, err := s.Create(ctx, room)
		require.NoError(t, err)

		m := mocks.NewMockMessenger(t)
		m.On("SendSnapshot", mock.Anything, mock.Anything).Once().Return(nil)
		_, err = actor.Join(ctx, domain.Identity{UserID: "alice"}, m)
		require.NoError(t, err)

		s.Sweep(ctx, time.Now().Add(time.Hour))

		_, err = s.Get(ctx, room.ID)
		require.NoError(t, err)
	})
}

func TestSessionStore_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should stop every actor and snapshot each room", func(t *testing.T) {
		s, recorder := newStore(t, time.Minute)

		first := newRoom("alice", "CLOSE1")
		second := newRoom("bob", "CLOSE2")

		firstActor, err := s.Create(ctx, first)
		require.NoError(t, err)
		_, err = s.Create(ctx, second)
		require.NoError(t, err)

		require.NoError(t, s.Close(ctx))

		require.Len(t, recorder.all(), 2)

		_, err = s.Get(ctx, first.ID)
		require.ErrorIs(t, err, domain.ErrRoomNotFound)

		// a stopped actor rejects dispatch
		_, err = firstActor.Dispatch(ctx, domain.SendChat{UserID: "alice", Content: "hi"})
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}
