package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/store"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/domain/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*domain.Router, *mocks.MockArchiver) {
	t.Helper()

	broadcaster := mocks.NewMockBroadcaster(t)
	broadcaster.On("Broadcast", mock.Anything, mock.Anything).Maybe().Return(nil)

	archiver := mocks.NewMockArchiver(t)
	archiver.On("SaveSnapshot", mock.Anything, mock.Anything).Maybe().Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	sessions := store.NewSessionStore(ctx, domain.DefaultLimits(), broadcaster, archiver, time.Minute)
	t.Cleanup(func() {
		_ = sessions.Close(context.Background())
		cancel()
	})

	return domain.NewRouter(sessions, archiver, domain.DefaultLimits()), archiver
}

func TestRouter_CreateRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should create a room owned by the creator", func(t *testing.T) {
		router, _ := newRouter(t)

		snapshot, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner: domain.Identity{UserID: "alice", DisplayName: "Alice"},
			Name:  "friday night",
		})
		require.NoError(t, err)
		require.Equal(t, "alice", snapshot.OwnerID)
		require.Equal(t, domain.VisibilityPublic, snapshot.Visibility)
		require.Zero(t, snapshot.Revision)
		require.Empty(t, snapshot.Participants)
	})

	t.Run("it should reject a nameless or ownerless room", func(t *testing.T) {
		router, _ := newRouter(t)

		_, err := router.CreateRoom(ctx, domain.CreateRoomParams{Owner: domain.Identity{UserID: "alice"}})
		require.ErrorIs(t, err, domain.ErrInvalidMessage)

		_, err = router.CreateRoom(ctx, domain.CreateRoomParams{Name: "no owner"})
		require.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("it should seed the queue from a saved playlist", func(t *testing.T) {
		router, archiver := newRouter(t)

		playlistID := uuid.New()
		archiver.On("LoadPlaylist", mock.Anything, playlistID).Once().Return(domain.Playlist{
			ID:      playlistID,
			OwnerID: "alice",
			Name:    "classics",
			Songs:   []domain.SongMetadata{song("x"), song("y")},
		}, nil)

		snapshot, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner:          domain.Identity{UserID: "alice"},
			Name:           "seeded",
			SeedPlaylistID: &playlistID,
		})
		require.NoError(t, err)
		require.Len(t, snapshot.Queue, 2)
		require.Equal(t, "x", snapshot.Queue[0].Song.MediaID)
		require.Equal(t, "alice", snapshot.Queue[0].AddedBy)
	})

	t.Run("it should fail creation when the seed playlist does not exist", func(t *testing.T) {
		router, archiver := newRouter(t)

		playlistID := uuid.New()
		archiver.On("LoadPlaylist", mock.Anything, playlistID).Once().Return(domain.Playlist{}, domain.ErrPlaylistNotFound)

		_, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner:          domain.Identity{UserID: "alice"},
			Name:           "seeded",
			SeedPlaylistID: &playlistID,
		})
		require.ErrorIs(t, err, domain.ErrPlaylistNotFound)
	})
}

func TestRouter_Join(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	messenger := func(t *testing.T) domain.Messenger {
		m := mocks.NewMockMessenger(t)
		m.On("SendSnapshot", mock.Anything, mock.Anything).Maybe().Return(nil)
		return m
	}

	t.Run("it should reject joining an unknown room", func(t *testing.T) {
		router, _ := newRouter(t)

		_, err := router.Join(ctx, uuid.New(), domain.Identity{UserID: "bob"}, "", messenger(t))
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("it should require the join code for private rooms", func(t *testing.T) {
		router, _ := newRouter(t)

		snapshot, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner:      domain.Identity{UserID: "alice"},
			Name:       "secret",
			Visibility: domain.VisibilityPrivate,
		})
		require.NoError(t, err)

		_, err = router.Join(ctx, snapshot.RoomID, domain.Identity{UserID: "bob"}, "WRONG1", messenger(t))
		require.ErrorIs(t, err, domain.ErrInvalidCode)

		info, err := router.ByJoinCode(ctx, snapshot.JoinCode)
		require.NoError(t, err)

		joined, err := router.Join(ctx, snapshot.RoomID, domain.Identity{UserID: "bob"}, info.JoinCode, messenger(t))
		require.NoError(t, err)
		require.Equal(t, uint64(1), joined.Revision)
	})

	t.Run("it should ignore the join code for public rooms", func(t *testing.T) {
		router, _ := newRouter(t)

		snapshot, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner: domain.Identity{UserID: "alice"},
			Name:  "open door",
		})
		require.NoError(t, err)

		_, err = router.Join(ctx, snapshot.RoomID, domain.Identity{UserID: "bob"}, "", messenger(t))
		require.NoError(t, err)
	})
}

func TestRouter_Rooms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should list public rooms only", func(t *testing.T) {
		router, _ := newRouter(t)

		public, err := router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner: domain.Identity{UserID: "alice"},
			Name:  "public",
		})
		require.NoError(t, err)

		_, err = router.CreateRoom(ctx, domain.CreateRoomParams{
			Owner:      domain.Identity{UserID: "bob"},
			Name:       "private",
			Visibility: domain.VisibilityPrivate,
		})
		require.NoError(t, err)

		rooms, err := router.Rooms(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		require.Equal(t, public.RoomID, rooms[0].ID)
	})
}

func TestRouter_Dispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should reject dispatch to an unknown room", func(t *testing.T) {
		router, _ := newRouter(t)

		_, err := router.Dispatch(ctx, uuid.New(), domain.SendChat{UserID: "alice", Content: "hi"})
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}
