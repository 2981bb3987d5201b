package domain_test

import (
	"testing"
	"time"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("it should hold no references into the room", func(t *testing.T) {
		room := domain.NewRoom(domain.Identity{UserID: "alice"}, "room", domain.VisibilityPublic, "SNAP01")
		room.Queue = append(room.Queue, domain.QueueEntry{ID: uuid.New(), Song: song("x"), AddedBy: "alice", AddedAt: time.Now()})
		room.Chat = append(room.Chat, domain.ChatMessage{ID: uuid.New(), SenderID: "alice", Content: "hi", CreatedAt: time.Now()})
		current := room.Queue[0]
		room.Playback.Current = &current
		room.Playback.Status = domain.StatusPlaying
		room.Revision = 9

		snapshot := room.Snapshot()

		room.Queue[0].Song.Title = "mutated"
		room.Chat[0].Content = "mutated"
		room.Playback.Current.Song.Title = "mutated"
		room.OwnerID = "mutated"

		require.Equal(t, "song x", snapshot.Queue[0].Song.Title)
		require.Equal(t, "hi", snapshot.Chat[0].Content)
		require.Equal(t, "song x", snapshot.Playback.Current.Song.Title)
		require.Equal(t, "alice", snapshot.OwnerID)
		require.Equal(t, uint64(9), snapshot.Revision)
	})

	t.Run("it should survive the persistence codec", func(t *testing.T) {
		room := domain.NewRoom(domain.Identity{UserID: "alice"}, "room", domain.VisibilityPrivate, "SNAP02")
		room.Queue = append(room.Queue, domain.QueueEntry{ID: uuid.New(), Song: song("x"), AddedBy: "alice", AddedAt: time.Now().UTC()})
		room.Revision = 3

		encoded, err := domain.EncodeSnapshot(room.Snapshot())
		require.NoError(t, err)

		decoded, err := domain.DecodeSnapshot(encoded)
		require.NoError(t, err)
		require.Equal(t, room.ID, decoded.RoomID)
		require.Equal(t, uint64(3), decoded.Revision)
		require.Equal(t, "SNAP02", decoded.JoinCode)
		require.Len(t, decoded.Queue, 1)
	})

	t.Run("it should reject malformed input", func(t *testing.T) {
		_, err := domain.DecodeSnapshot([]byte("{"))
		require.Error(t, err)
	})
}

func TestRoom_Roster(t *testing.T) {
	t.Parallel()

	t.Run("it should order by join time then user id", func(t *testing.T) {
		room := domain.NewRoom(domain.Identity{UserID: "alice"}, "room", domain.VisibilityPublic, "ROS001")

		base := time.Now()
		room.Participants["carol"] = &domain.Participant{Identity: domain.Identity{UserID: "carol"}, JoinedAt: base.Add(time.Second)}
		room.Participants["bob"] = &domain.Participant{Identity: domain.Identity{UserID: "bob"}, JoinedAt: base}
		room.Participants["alice"] = &domain.Participant{Identity: domain.Identity{UserID: "alice"}, JoinedAt: base}

		roster := room.Roster()
		require.Len(t, roster, 3)
		require.Equal(t, "alice", roster[0].UserID)
		require.Equal(t, "bob", roster[1].UserID)
		require.Equal(t, "carol", roster[2].UserID)
	})
}
