package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
)

// Inbound command frame types.
const (
	TypeEnqueueSong     = "enqueue_song"
	TypeRemoveFromQueue = "remove_from_queue"
	TypePlayPause       = "play_pause"
	TypeSeek            = "seek"
	TypeNext            = "next"
	TypeSongEnded       = "song_ended"
	TypeSendChat        = "send_chat"
	TypeSavePlaylist    = "save_playlist"
	TypeSync            = "sync"
	TypeLeave           = "leave"
)

// Outbound frame types.
const (
	TypeDelta         = "delta"
	TypeSnapshot      = "snapshot"
	TypeError         = "error"
	TypeServerClosing = "server_closing"
)

// ClientFrame is one message from a participant's transport.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is one message to a participant's transport.
type ServerFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	Revision uint64 `json:"revision,omitempty"`
	Payload  any    `json:"payload,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

type EnqueueSongPayload struct {
	Song domain.SongMetadata `json:"song"`
}

type RemoveFromQueuePayload struct {
	EntryID uuid.UUID `json:"entryId"`
}

type PlayPausePayload struct {
	Playing bool `json:"playing"`
}

type SeekPayload struct {
	PositionMs int64 `json:"positionMs"`
}

type SongEndedPayload struct {
	EntryID uuid.UUID `json:"entryId"`
}

type SendChatPayload struct {
	Content string `json:"content"`
}

type SavePlaylistPayload struct {
	Name string `json:"name"`
}

// ParseCommand maps an inbound frame to the engine command it requests,
// stamped with the authenticated user.
func ParseCommand(frame ClientFrame, userID string) (domain.Command, error) {
	switch frame.Type {
	case TypeEnqueueSong:
		var p EnqueueSongPayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.EnqueueSong{UserID: userID, Song: p.Song}, nil
	case TypeRemoveFromQueue:
		var p RemoveFromQueuePayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.RemoveFromQueue{UserID: userID, EntryID: p.EntryID}, nil
	case TypePlayPause:
		var p PlayPausePayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.PlayPause{UserID: userID, Playing: p.Playing}, nil
	case TypeSeek:
		var p SeekPayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.Seek{UserID: userID, PositionMs: p.PositionMs}, nil
	case TypeNext:
		return domain.Next{UserID: userID}, nil
	case TypeSongEnded:
		var p SongEndedPayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.SongEnded{EntryID: p.EntryID}, nil
	case TypeSendChat:
		var p SendChatPayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.SendChat{UserID: userID, Content: p.Content}, nil
	case TypeSavePlaylist:
		var p SavePlaylistPayload
		if err := unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return domain.SavePlaylist{UserID: userID, Name: p.Name}, nil
	case TypeSync:
		return domain.RequestSnapshot{UserID: userID}, nil
	case TypeLeave:
		return domain.Leave{UserID: userID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", domain.ErrInvalidMessage, frame.Type)
	}
}

func unmarshal(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", domain.ErrInvalidMessage)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidMessage, err)
	}

	return nil
}

func Delta(event domain.Event) ServerFrame {
	return ServerFrame{
		Type:     TypeDelta,
		RoomID:   event.RoomID.String(),
		Revision: event.Revision,
		Payload:  event,
	}
}

func SnapshotFrame(snapshot domain.Snapshot) ServerFrame {
	return ServerFrame{
		Type:     TypeSnapshot,
		RoomID:   snapshot.RoomID.String(),
		Revision: snapshot.Revision,
		Payload:  snapshot,
	}
}

func Error(code string, message string) ServerFrame {
	return ServerFrame{Type: TypeError, Code: code, Message: message}
}

func ServerClosing() ServerFrame {
	return ServerFrame{Type: TypeServerClosing, Message: "server is closing"}
}
