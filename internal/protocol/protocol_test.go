package protocol_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, frameType string, payload any) protocol.ClientFrame {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)

	return protocol.ClientFrame{Type: frameType, Payload: b}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	t.Run("it should stamp commands with the authenticated user", func(t *testing.T) {
		entryID := uuid.New()

		cmd, err := protocol.ParseCommand(frame(t, protocol.TypeEnqueueSong, protocol.EnqueueSongPayload{
			Song: domain.SongMetadata{Title: "song", MediaID: "m1", DurationMs: 1000},
		}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.EnqueueSong{UserID: "alice", Song: domain.SongMetadata{Title: "song", MediaID: "m1", DurationMs: 1000}}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypeRemoveFromQueue, protocol.RemoveFromQueuePayload{EntryID: entryID}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RemoveFromQueue{UserID: "alice", EntryID: entryID}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypePlayPause, protocol.PlayPausePayload{Playing: true}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.PlayPause{UserID: "alice", Playing: true}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypeSeek, protocol.SeekPayload{PositionMs: 42}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.Seek{UserID: "alice", PositionMs: 42}, cmd)

		cmd, err = protocol.ParseCommand(protocol.ClientFrame{Type: protocol.TypeNext}, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.Next{UserID: "alice"}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypeSongEnded, protocol.SongEndedPayload{EntryID: entryID}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.SongEnded{EntryID: entryID}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypeSendChat, protocol.SendChatPayload{Content: "hello"}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.SendChat{UserID: "alice", Content: "hello"}, cmd)

		cmd, err = protocol.ParseCommand(frame(t, protocol.TypeSavePlaylist, protocol.SavePlaylistPayload{Name: "mine"}), "alice")
		require.NoError(t, err)
		require.Equal(t, domain.SavePlaylist{UserID: "alice", Name: "mine"}, cmd)

		cmd, err = protocol.ParseCommand(protocol.ClientFrame{Type: protocol.TypeSync}, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RequestSnapshot{UserID: "alice"}, cmd)

		cmd, err = protocol.ParseCommand(protocol.ClientFrame{Type: protocol.TypeLeave}, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.Leave{UserID: "alice"}, cmd)
	})

	t.Run("it should reject unknown frame types", func(t *testing.T) {
		_, err := protocol.ParseCommand(protocol.ClientFrame{Type: "dance"}, "alice")
		require.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("it should reject a missing payload", func(t *testing.T) {
		_, err := protocol.ParseCommand(protocol.ClientFrame{Type: protocol.TypeEnqueueSong}, "alice")
		require.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("it should reject a malformed payload", func(t *testing.T) {
		_, err := protocol.ParseCommand(protocol.ClientFrame{Type: protocol.TypeSeek, Payload: []byte(`{"positionMs":`)}, "alice")
		require.ErrorIs(t, err, domain.ErrInvalidMessage)
	})
}

func TestFrames(t *testing.T) {
	t.Parallel()

	t.Run("it should tag deltas with the room and revision", func(t *testing.T) {
		roomID := uuid.New()
		event := domain.Event{Type: domain.EventChatMessage, RoomID: roomID, Revision: 7}

		f := protocol.Delta(event)
		require.Equal(t, protocol.TypeDelta, f.Type)
		require.Equal(t, roomID.String(), f.RoomID)
		require.Equal(t, uint64(7), f.Revision)
	})

	t.Run("it should tag snapshots with the room and revision", func(t *testing.T) {
		roomID := uuid.New()
		snapshot := domain.Snapshot{RoomID: roomID, Revision: 12, CreatedAt: time.Now()}

		f := protocol.SnapshotFrame(snapshot)
		require.Equal(t, protocol.TypeSnapshot, f.Type)
		require.Equal(t, roomID.String(), f.RoomID)
		require.Equal(t, uint64(12), f.Revision)
	})

	t.Run("it should carry the error code over the wire", func(t *testing.T) {
		f := protocol.Error(domain.ErrorCode(domain.ErrRoomFull), "room is full")

		b, err := json.Marshal(f)
		require.NoError(t, err)

		var decoded protocol.ServerFrame
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Equal(t, protocol.TypeError, decoded.Type)
		require.Equal(t, "room_full", decoded.Code)
		require.Equal(t, "room is full", decoded.Message)
	})
}
